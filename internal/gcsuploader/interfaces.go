package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dvloznov/youtube-trending/internal/gcs"
)

// Re-export interface from shared package for backward compatibility
type StorageService = gcs.StorageService

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage through one shared client.
type GCSStorageService struct {
	client *storage.Client
}

// ClientOptions returns the client options for an endpoint override.
// A non-empty endpoint points the client at an emulator without credentials.
func ClientOptions(endpoint string) []option.ClientOption {
	if endpoint == "" {
		return nil
	}
	return []option.ClientOption{
		option.WithEndpoint(endpoint),
		option.WithoutAuthentication(),
	}
}

// NewGCSStorageService creates a new instance of GCSStorageService.
// It assumes Application Default Credentials unless opts say otherwise.
func NewGCSStorageService(ctx context.Context, opts ...option.ClientOption) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// UploadFile uploads a local file to a GCS bucket under the given object name.
func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, s.client, bucketName, objectName, filePath)
}

// WriteObject stores data with content type and custom metadata.
func (s *GCSStorageService) WriteObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("WriteObject: writing %s/%s: %w", bucketName, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("WriteObject: finalize %s/%s: %w", bucketName, objectName, err)
	}
	return nil
}

// ReadObject returns the object bytes and custom metadata.
func (s *GCSStorageService) ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, map[string]string, error) {
	obj := s.client.Bucket(bucketName).Object(objectName)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ReadObject: attrs %s/%s: %w", bucketName, objectName, mapNotFound(err))
	}

	rc, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ReadObject: reading object %s/%s: %w", bucketName, objectName, mapNotFound(err))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("ReadObject: reading bytes: %w", err)
	}
	return data, attrs.Metadata, nil
}

// ObjectMetadata returns the custom metadata of an object.
func (s *GCSStorageService) ObjectMetadata(ctx context.Context, bucketName, objectName string) (map[string]string, error) {
	attrs, err := s.client.Bucket(bucketName).Object(objectName).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ObjectMetadata: %s/%s: %w", bucketName, objectName, mapNotFound(err))
	}
	return attrs.Metadata, nil
}

// ListObjects returns the sorted object names under prefix.
func (s *GCSStorageService) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	it := s.client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListObjects: iterating %s/%s: %w", bucketName, prefix, err)
		}
		names = append(names, attrs.Name)
	}
	sort.Strings(names)
	return names, nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: %w", err)
	}
	data, _, err := s.ReadObject(ctx, bucketName, objectPath)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: %w", err)
	}
	return data, nil
}

// ExtractFilenameFromGCSURI delegates to the existing ExtractFilenameFromGCSURI function.
func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", gcs.ErrObjectNotFound, err)
	}
	return err
}

var _ StorageService = (*GCSStorageService)(nil)
