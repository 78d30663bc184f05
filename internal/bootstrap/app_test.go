package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/youtube-trending/internal/assets"
	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/domain"
)

func TestWarehouseTables(t *testing.T) {
	graph, err := assets.Definitions(assets.DefaultOptions())
	require.NoError(t, err)

	tables, err := WarehouseTables(graph)
	require.NoError(t, err)
	require.Len(t, tables, 3)

	trending := tables[assets.Key(assets.DefaultSilverPrefix, assets.SilverTrending)]
	assert.Equal(t, domain.TrendingTable, trending.Table)

	var names []string
	for _, f := range trending.Schema {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "video_id")
	assert.Contains(t, names, bq.PartitionKeyColumn)

	_, bronze := tables[assets.Key(assets.DefaultBronzePrefix, assets.BronzeTrending)]
	assert.False(t, bronze, "source assets are not mirrored")
}

func TestAppRunsNilWithoutWarehouse(t *testing.T) {
	app := &App{}
	assert.Nil(t, app.Runs())
	assert.NoError(t, app.Close())
}
