package iomanager

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/gcs"
)

// mockStorage is an in-memory gcs.StorageService.
type mockStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	metadata map[string]map[string]string
	types    map[string]string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		objects:  make(map[string][]byte),
		metadata: make(map[string]map[string]string),
		types:    make(map[string]string),
	}
}

func (m *mockStorage) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return errors.New("not implemented")
}

func (m *mockStorage) WriteObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := bucketName + "/" + objectName
	m.objects[k] = append([]byte(nil), data...)
	m.metadata[k] = metadata
	m.types[k] = contentType
	return nil
}

func (m *mockStorage) ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := bucketName + "/" + objectName
	data, ok := m.objects[k]
	if !ok {
		return nil, nil, gcs.ErrObjectNotFound
	}
	return data, m.metadata[k], nil
}

func (m *mockStorage) ObjectMetadata(ctx context.Context, bucketName, objectName string) (map[string]string, error) {
	_, meta, err := m.ReadObject(ctx, bucketName, objectName)
	return meta, err
}

func (m *mockStorage) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		name := strings.TrimPrefix(k, bucketName+"/")
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStorage) ExtractFilenameFromGCSURI(uri string) string { return uri }

type loadCall struct {
	table     string
	partition string
	body      string
}

type mockLoader struct {
	calls []loadCall
	err   error
}

func (m *mockLoader) LoadTable(ctx context.Context, table string, schema bigquery.Schema, ndjson []byte, partitionKey string) error {
	m.calls = append(m.calls, loadCall{table: table, partition: partitionKey, body: string(ndjson)})
	return m.err
}

func sample(ids ...string) *dataset.Dataset {
	rows := make([][]dataset.Value, len(ids))
	for i, id := range ids {
		rows[i] = []dataset.Value{dataset.String(id)}
	}
	return dataset.MustNew([]string{"video_id"}, rows)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	meta := dataset.MetadataOf(sample("a"), "x.pq")

	require.NoError(t, s.PutDataset(ctx, "silver/x", "", sample("a"), meta))

	got, err := s.GetDataset(ctx, "silver/x", "")
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumRows())

	gotMeta, err := s.Metadata(ctx, "silver/x", "")
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)

	_, err = s.GetDataset(ctx, "silver/y", "")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestMemoryStore_UnpartitionedReadUnionsPartitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutDataset(ctx, "bronze/t", "2021-09", sample("c"), dataset.Metadata{}))
	require.NoError(t, s.PutDataset(ctx, "bronze/t", "2021-08", sample("a", "b"), dataset.Metadata{}))

	got, err := s.GetDataset(ctx, "bronze/t", "")
	require.NoError(t, err)

	ids, err := got.Column("video_id")
	require.NoError(t, err)
	assert.Equal(t, []dataset.Value{dataset.String("a"), dataset.String("b"), dataset.String("c")}, ids)
	assert.Equal(t, []string{"2021-08", "2021-09"}, s.Partitions("bronze/t"))

	_, err = s.GetDataset(ctx, "bronze/t", "2021-10")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestLakeStore_ObjectName(t *testing.T) {
	s := NewLakeStore(newMockStorage(), "lake", "/warehouse/", dataset.FormatNDJSON)

	assert.Equal(t, "warehouse/silver/youtube/x.jsonl", s.ObjectName("silver/youtube/x", ""))
	assert.Equal(t, "warehouse/silver/youtube/x/2021-08.jsonl", s.ObjectName("silver/youtube/x", "2021-08"))
	assert.Equal(t, "gs://lake/warehouse/silver/youtube/x.jsonl", s.URI("silver/youtube/x", ""))
}

func TestLakeStore_PutGetWithMetadata(t *testing.T) {
	ctx := context.Background()
	storage := newMockStorage()
	s := NewLakeStore(storage, "lake", "", dataset.FormatCSV)
	ds := sample("a", "b")
	meta := dataset.MetadataOf(ds, "linkVideos_clean.pq")

	require.NoError(t, s.PutDataset(ctx, "silver/youtube/links", "", ds, meta))
	assert.Equal(t, "text/csv", storage.types["lake/silver/youtube/links.csv"])

	got, err := s.GetDataset(ctx, "silver/youtube/links", "")
	require.NoError(t, err)
	assert.Equal(t, ds.Records(), got.Records())

	gotMeta, err := s.Metadata(ctx, "silver/youtube/links", "")
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)
}

func TestLakeStore_UnpartitionedReadUnionsPartitions(t *testing.T) {
	ctx := context.Background()
	s := NewLakeStore(newMockStorage(), "lake", "", dataset.FormatNDJSON)
	require.NoError(t, s.PutDataset(ctx, "bronze/t", "2021-08", sample("a"), dataset.Metadata{}))
	require.NoError(t, s.PutDataset(ctx, "bronze/t", "2021-09", sample("b"), dataset.Metadata{}))

	got, err := s.GetDataset(ctx, "bronze/t", "")
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumRows())

	_, err = s.GetDataset(ctx, "bronze/missing", "")
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = s.GetDataset(ctx, "bronze/t", "2020-01")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestWarehouseStore_AddsPartitionColumn(t *testing.T) {
	ctx := context.Background()
	loader := &mockLoader{}
	s := NewWarehouseStore(loader, map[string]WarehouseTable{
		"silver/trending": {Table: "silver_trending_videos"},
	})

	require.NoError(t, s.PutDataset(ctx, "silver/trending", "2021-08", sample("a"), dataset.Metadata{}))
	require.NoError(t, s.PutDataset(ctx, "silver/other", "", sample("a"), dataset.Metadata{}))

	require.Len(t, loader.calls, 1)
	assert.Equal(t, "silver_trending_videos", loader.calls[0].table)
	assert.Equal(t, "2021-08", loader.calls[0].partition)
	assert.JSONEq(t, `{"video_id":"a","partition_key":"2021-08"}`, strings.TrimSpace(loader.calls[0].body))
}

func TestTee_WritesMirrorsAfterPrimary(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	mirror := NewMemoryStore()
	tee := NewTee(primary, mirror)

	require.NoError(t, tee.PutDataset(ctx, "k", "", sample("a"), dataset.Metadata{Label: "l"}))

	_, err := mirror.GetDataset(ctx, "k", "")
	assert.NoError(t, err)
	meta, err := tee.Metadata(ctx, "k", "")
	require.NoError(t, err)
	assert.Equal(t, "l", meta.Label)
}

func TestTee_MirrorErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	loader := &mockLoader{err: errors.New("quota")}
	tee := NewTee(NewMemoryStore(), NewWarehouseStore(loader, map[string]WarehouseTable{"k": {Table: "t"}}))

	err := tee.PutDataset(ctx, "k", "", sample("a"), dataset.Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}
