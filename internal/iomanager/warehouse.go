package iomanager

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

// WarehouseTable names the BigQuery table an asset is mirrored into.
type WarehouseTable struct {
	Table  string
	Schema bigquery.Schema
}

// WarehouseStore mirrors datasets into BigQuery tables. Assets without a
// table are ignored.
type WarehouseStore struct {
	loader bq.SilverTableLoader
	tables map[string]WarehouseTable
}

// NewWarehouseStore creates a WarehouseStore for the given asset key -> table map.
func NewWarehouseStore(loader bq.SilverTableLoader, tables map[string]WarehouseTable) *WarehouseStore {
	return &WarehouseStore{loader: loader, tables: tables}
}

// PutDataset loads ds into the asset's table, replacing the partition's rows.
func (s *WarehouseStore) PutDataset(ctx context.Context, key, partition string, ds *dataset.Dataset, meta dataset.Metadata) error {
	t, ok := s.tables[key]
	if !ok {
		log := logger.FromContext(ctx)
		log.Debug().Str("asset", key).Msg("No warehouse table, skipping mirror")
		return nil
	}

	out := ds
	if partition != "" {
		var err error
		out, err = ds.WithConstant(bq.PartitionKeyColumn, dataset.String(partition))
		if err != nil {
			return fmt.Errorf("PutDataset: %s: %w", key, err)
		}
	}

	var buf bytes.Buffer
	if err := dataset.WriteNDJSON(&buf, out); err != nil {
		return fmt.Errorf("PutDataset: encoding %s: %w", key, err)
	}
	if err := s.loader.LoadTable(ctx, t.Table, t.Schema, buf.Bytes(), partition); err != nil {
		return fmt.Errorf("PutDataset: %s -> %s: %w", key, t.Table, err)
	}
	return nil
}
