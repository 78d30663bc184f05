package iomanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/gcs"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

// LakeStore keeps datasets as objects in a storage bucket. An asset key
// "silver/youtube/x" with partition "2021-08" lives at
// "<root>/silver/youtube/x/2021-08.<ext>"; unpartitioned at "<root>/silver/youtube/x.<ext>".
// Metadata is stored as object metadata.
type LakeStore struct {
	storage gcs.StorageService
	bucket  string
	root    string
	format  dataset.Format
}

// NewLakeStore creates a LakeStore. root may be empty.
func NewLakeStore(storage gcs.StorageService, bucket, root string, format dataset.Format) *LakeStore {
	return &LakeStore{
		storage: storage,
		bucket:  bucket,
		root:    strings.Trim(root, "/"),
		format:  format,
	}
}

// ObjectName returns the object path of a dataset.
func (s *LakeStore) ObjectName(key, partition string) string {
	name := key
	if partition != "" {
		name = path.Join(key, partition)
	}
	return path.Join(s.root, name) + "." + s.format.Extension()
}

// URI returns the gs:// URI of a dataset.
func (s *LakeStore) URI(key, partition string) string {
	return "gs://" + s.bucket + "/" + s.ObjectName(key, partition)
}

// PutDataset encodes ds and writes it with metadata attached.
func (s *LakeStore) PutDataset(ctx context.Context, key, partition string, ds *dataset.Dataset, meta dataset.Metadata) error {
	var buf bytes.Buffer
	if err := dataset.Encode(s.format, &buf, ds); err != nil {
		return fmt.Errorf("PutDataset: encoding %s: %w", key, err)
	}

	object := s.ObjectName(key, partition)
	if err := s.storage.WriteObject(ctx, s.bucket, object, buf.Bytes(), s.format.ContentType(), meta.AsMap()); err != nil {
		return fmt.Errorf("PutDataset: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("object", object).
		Int("bytes", buf.Len()).
		Msg("Dataset written")
	return nil
}

// GetDataset reads one object, or every partition object of key when
// partition is empty and no unpartitioned object exists.
func (s *LakeStore) GetDataset(ctx context.Context, key, partition string) (*dataset.Dataset, error) {
	ds, err := s.readObject(ctx, s.ObjectName(key, partition))
	switch {
	case err == nil:
		return ds, nil
	case partition != "" || !errors.Is(err, ErrDatasetNotFound):
		return nil, fmt.Errorf("GetDataset: %s: %w", key, err)
	}

	prefix := path.Join(s.root, key) + "/"
	names, err := s.storage.ListObjects(ctx, s.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("GetDataset: listing %s: %w", prefix, err)
	}

	var parts []*dataset.Dataset
	for _, name := range names {
		if !strings.HasSuffix(name, "."+s.format.Extension()) {
			continue
		}
		part, err := s.readObject(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("GetDataset: %s: %w", key, err)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("GetDataset: %s: %w", key, ErrDatasetNotFound)
	}
	return parts[0].Concat(parts[1:]...), nil
}

// Metadata reads the metadata attached to a dataset object.
func (s *LakeStore) Metadata(ctx context.Context, key, partition string) (dataset.Metadata, error) {
	object := s.ObjectName(key, partition)
	kv, err := s.storage.ObjectMetadata(ctx, s.bucket, object)
	if err != nil {
		return dataset.Metadata{}, fmt.Errorf("Metadata: %w", translateNotFound(err))
	}
	meta, err := dataset.MetadataFromMap(kv)
	if err != nil {
		return dataset.Metadata{}, fmt.Errorf("Metadata: %s: %w", object, err)
	}
	return meta, nil
}

func (s *LakeStore) readObject(ctx context.Context, object string) (*dataset.Dataset, error) {
	data, _, err := s.storage.ReadObject(ctx, s.bucket, object)
	if err != nil {
		return nil, translateNotFound(err)
	}
	ds, err := dataset.Decode(s.format, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", object, err)
	}
	return ds, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gcs.ErrObjectNotFound) {
		return fmt.Errorf("%w: %v", ErrDatasetNotFound, err)
	}
	return err
}
