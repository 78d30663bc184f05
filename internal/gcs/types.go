package gcs

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when a storage object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// WriteObject stores data under the object name with a content type and
	// custom metadata, replacing any previous version.
	WriteObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string, metadata map[string]string) error

	// ReadObject returns the object bytes and its custom metadata.
	ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, map[string]string, error)

	// ObjectMetadata returns only the custom metadata of an object.
	ObjectMetadata(ctx context.Context, bucketName, objectName string) (map[string]string, error)

	// ListObjects returns the names of objects under a prefix, sorted.
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
	ExtractFilenameFromGCSURI(uri string) string
}
