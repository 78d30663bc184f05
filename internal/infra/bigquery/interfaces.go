package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
)

// Re-export interfaces from shared package for backward compatibility
type MaterializationRepository = bq.MaterializationRepository
type SilverTableLoader = bq.SilverTableLoader

// BigQueryWarehouse implements MaterializationRepository and SilverTableLoader
// over one shared BigQuery client.
type BigQueryWarehouse struct {
	client    *bigquery.Client
	datasetID string
}

// NewBigQueryWarehouse creates a warehouse bound to projectID and datasetID.
func NewBigQueryWarehouse(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*BigQueryWarehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWarehouse: creating client: %w", err)
	}
	return &BigQueryWarehouse{client: client, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (w *BigQueryWarehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// StartRun delegates to StartRunWithClient with the shared client.
func (w *BigQueryWarehouse) StartRun(ctx context.Context, assetKey, partitionKey string) (string, error) {
	return StartRunWithClient(ctx, w.client, w.datasetID, assetKey, partitionKey)
}

// MarkRunFailed delegates to MarkRunFailedWithClient with the shared client.
func (w *BigQueryWarehouse) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	MarkRunFailedWithClient(ctx, w.client, w.datasetID, runID, runErr)
}

// MarkRunSucceeded delegates to MarkRunSucceededWithClient with the shared client.
func (w *BigQueryWarehouse) MarkRunSucceeded(ctx context.Context, runID string, rowCount, columnCount int) error {
	return MarkRunSucceededWithClient(ctx, w.client, w.datasetID, runID, rowCount, columnCount)
}

// ListRuns delegates to ListRunsWithClient with the shared client.
func (w *BigQueryWarehouse) ListRuns(ctx context.Context, assetKey string, limit int) ([]*MaterializationRunRow, error) {
	return ListRunsWithClient(ctx, w.client, w.datasetID, assetKey, limit)
}

// LoadTable delegates to LoadTableWithClient with the shared client.
func (w *BigQueryWarehouse) LoadTable(ctx context.Context, table string, schema bigquery.Schema, ndjson []byte, partitionKey string) error {
	return LoadTableWithClient(ctx, w.client, w.datasetID, table, schema, ndjson, partitionKey)
}

var (
	_ MaterializationRepository = (*BigQueryWarehouse)(nil)
	_ SilverTableLoader         = (*BigQueryWarehouse)(nil)
)
