package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/iomanager"
	"github.com/dvloznov/youtube-trending/internal/partition"
	"github.com/dvloznov/youtube-trending/internal/pipeline"
)

func noop(ctx context.Context, partitionKey string, in map[string]*dataset.Dataset) (*pipeline.Result, error) {
	return nil, nil
}

func TestNewGraph_TopoOrderIsDeterministic(t *testing.T) {
	g, err := NewGraph(partition.MonthlyPartitions{},
		Asset{Key: "c", Inputs: []Input{{Key: "a"}, {Key: "b"}}, Compute: noop},
		Asset{Key: "b", Inputs: []Input{{Key: "a"}}, Compute: noop},
		Asset{Key: "a"},
		Asset{Key: "d"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, g.TopoOrder())
	assert.Equal(t, []string{"b", "c"}, g.Downstream("a"))
}

func TestNewGraph_Errors(t *testing.T) {
	tests := []struct {
		name   string
		assets []Asset
		want   error
	}{
		{"cycle", []Asset{
			{Key: "a", Inputs: []Input{{Key: "b"}}, Compute: noop},
			{Key: "b", Inputs: []Input{{Key: "a"}}, Compute: noop},
		}, ErrCycle},
		{"unknown input", []Asset{
			{Key: "a", Inputs: []Input{{Key: "ghost"}}, Compute: noop},
		}, ErrUnknownAsset},
		{"duplicate", []Asset{{Key: "a"}, {Key: "a"}}, ErrDuplicateAsset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(partition.MonthlyPartitions{}, tt.assets...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDefinitions(t *testing.T) {
	g, err := Definitions(DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"bronze/youtube/bronze_youtube_trending_data",
		"bronze/youtube/linkVideos_trending_data",
		"bronze/youtube/videoCategory_trending_data",
		"silver/youtube/silver_linkVideos_clean",
		"silver/youtube/silver_trending_clean",
		"silver/youtube/silver_videoCategory_clean",
	}, g.TopoOrder())

	trending, ok := g.Asset("silver/youtube/silver_trending_clean")
	require.True(t, ok)
	assert.True(t, trending.Partitioned)
	assert.Equal(t, pipeline.LabelTrending, trending.Label)
	assert.Equal(t, "2020-08", g.Partitions.Start.Key())
}

type mockRuns struct {
	started   []string
	failed    []string
	succeeded map[string]int
}

func newMockRuns() *mockRuns { return &mockRuns{succeeded: make(map[string]int)} }

func (m *mockRuns) StartRun(ctx context.Context, assetKey, partitionKey string) (string, error) {
	id := assetKey + "@" + partitionKey
	m.started = append(m.started, id)
	return id, nil
}

func (m *mockRuns) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	m.failed = append(m.failed, runID)
}

func (m *mockRuns) MarkRunSucceeded(ctx context.Context, runID string, rowCount, columnCount int) error {
	m.succeeded[runID] = rowCount
	return nil
}

func (m *mockRuns) ListRuns(ctx context.Context, assetKey string, limit int) ([]*bq.MaterializationRunRow, error) {
	return nil, nil
}

func s(v string) dataset.Value { return dataset.String(v) }

func trendingMonth(ids ...string) *dataset.Dataset {
	rows := make([][]dataset.Value, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []dataset.Value{
			s(id), s(id[:7] + "-10T12:00:00Z"), s(id[:7] + "-11"), s("10"),
			s("100"), s("5"), s("1"), s("2"), s("http://i/" + id + "/default.jpg"),
		})
	}
	return dataset.MustNew([]string{
		"video_id", "publishedAt", "trending_date", "categoryId",
		"view_count", "likes", "dislikes", "comment_count", "thumbnail_link",
	}, rows)
}

func seededMaterializer(t *testing.T, runs bq.MaterializationRepository) (*Materializer, *iomanager.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	g, err := Definitions(DefaultOptions())
	require.NoError(t, err)

	store := iomanager.NewMemoryStore()
	require.NoError(t, store.PutDataset(ctx, "bronze/youtube/videoCategory_trending_data", "",
		dataset.MustNew([]string{"categoryId", "title"}, [][]dataset.Value{{s("24"), s("Entertainment")}, {s("10"), s("Music")}}),
		dataset.Metadata{}))
	require.NoError(t, store.PutDataset(ctx, "bronze/youtube/linkVideos_trending_data", "",
		dataset.MustNew([]string{"videoId", "link_video"}, [][]dataset.Value{{s("2021-08-a"), s("L1")}}),
		dataset.Metadata{}))
	require.NoError(t, store.PutDataset(ctx, "bronze/youtube/bronze_youtube_trending_data", "2021-08",
		trendingMonth("2021-08-a", "2021-08-b"), dataset.Metadata{}))
	require.NoError(t, store.PutDataset(ctx, "bronze/youtube/bronze_youtube_trending_data", "2021-09",
		trendingMonth("2021-09-c"), dataset.Metadata{}))

	m := NewMaterializer(g, store, runs)
	m.now = func() time.Time { return time.Date(2021, 10, 5, 0, 0, 0, 0, time.UTC) }
	return m, store
}

func TestMaterializer_Categories(t *testing.T) {
	runs := newMockRuns()
	m, store := seededMaterializer(t, runs)
	ctx := context.Background()

	res, err := m.Materialize(ctx, "silver/youtube/silver_videoCategory_clean", "")
	require.NoError(t, err)

	assert.Equal(t, dataset.Metadata{RowCount: 2, ColumnCount: 2, Label: "videoCategory_clean.pq"}, res.Metadata)
	assert.Equal(t, "silver/youtube/silver_videoCategory_clean@", res.RunID)
	assert.Equal(t, 2, runs.succeeded[res.RunID])

	stored, err := store.GetDataset(ctx, "silver/youtube/silver_videoCategory_clean", "")
	require.NoError(t, err)
	assert.Equal(t, dataset.Int(10), stored.Value(0, "categoryId"))

	meta, err := store.Metadata(ctx, "silver/youtube/silver_videoCategory_clean", "")
	require.NoError(t, err)
	assert.Equal(t, res.Metadata, meta)
}

func TestMaterializer_LinksReadEveryTrendingPartition(t *testing.T) {
	m, store := seededMaterializer(t, nil)
	ctx := context.Background()

	_, err := m.Materialize(ctx, "silver/youtube/silver_linkVideos_clean", "")
	require.NoError(t, err)

	out, err := store.GetDataset(ctx, "silver/youtube/silver_linkVideos_clean", "")
	require.NoError(t, err)
	ids, err := out.Column("video_id")
	require.NoError(t, err)
	assert.Equal(t, []dataset.Value{s("2021-08-a"), s("2021-08-b"), s("2021-09-c")}, ids)
	assert.Equal(t, s("L1"), out.Value(0, "link_video"))
}

func TestMaterializer_TrendingPartition(t *testing.T) {
	m, store := seededMaterializer(t, nil)
	ctx := context.Background()

	res, err := m.Materialize(ctx, "silver/youtube/silver_trending_clean", "2021-09")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Metadata.RowCount)

	out, err := store.GetDataset(ctx, "silver/youtube/silver_trending_clean", "2021-09")
	require.NoError(t, err)
	assert.Equal(t, s("http://i/2021-09-c/maxresdefault.jpg"), out.Value(0, "thumbnail_link"))
	assert.Equal(t, dataset.Int(100), out.Value(0, "view_count"))
}

func TestMaterializer_PartitionChecks(t *testing.T) {
	m, _ := seededMaterializer(t, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		key       string
		partition string
	}{
		{"partitioned without key", "silver/youtube/silver_trending_clean", ""},
		{"malformed key", "silver/youtube/silver_trending_clean", "2021-9"},
		{"future month", "silver/youtube/silver_trending_clean", "2022-01"},
		{"unpartitioned with key", "silver/youtube/silver_videoCategory_clean", "2021-08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Materialize(ctx, tt.key, tt.partition)
			var win *pipeline.PartitionWindowError
			assert.ErrorAs(t, err, &win)
			assert.True(t, pipeline.IsFatal(err))
		})
	}
}

func TestMaterializer_UnknownAndSource(t *testing.T) {
	m, _ := seededMaterializer(t, nil)
	ctx := context.Background()

	_, err := m.Materialize(ctx, "silver/youtube/nope", "")
	assert.ErrorIs(t, err, ErrUnknownAsset)

	_, err = m.Materialize(ctx, "bronze/youtube/linkVideos_trending_data", "")
	assert.ErrorIs(t, err, ErrSourceAsset)
}

func TestMaterializer_FailedRunIsRecorded(t *testing.T) {
	runs := newMockRuns()
	m, _ := seededMaterializer(t, runs)

	_, err := m.Materialize(context.Background(), "silver/youtube/silver_trending_clean", "2021-07")

	var empty *pipeline.EmptyResultError
	require.True(t, errors.As(err, &empty) || errors.Is(err, iomanager.ErrDatasetNotFound), "got %v", err)
	assert.Equal(t, []string{"silver/youtube/silver_trending_clean@2021-07"}, runs.failed)
}

func TestMaterializer_MaterializeAll(t *testing.T) {
	m, _ := seededMaterializer(t, nil)

	got, err := m.MaterializeAll(context.Background(), "2021-08")
	require.NoError(t, err)

	var keys []string
	for _, r := range got {
		keys = append(keys, r.AssetKey)
	}
	assert.Equal(t, []string{
		"silver/youtube/silver_linkVideos_clean",
		"silver/youtube/silver_trending_clean",
		"silver/youtube/silver_videoCategory_clean",
	}, keys)

	unpartitioned, err := m.MaterializeAll(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, unpartitioned, 2)
}

func TestMaterializer_BackfillContinuesPastMissingMonths(t *testing.T) {
	m, _ := seededMaterializer(t, nil)

	got, err := m.Backfill(context.Background(), "silver/youtube/silver_trending_clean", []string{"2021-07", "2021-08", "2021-09"})

	require.Error(t, err)
	assert.Len(t, got, 2)
}
