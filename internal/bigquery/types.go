package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
)

// Run statuses stored in materialization_runs.status.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// PartitionKeyColumn is added to partitioned silver tables so a month can be
// replaced without touching the others.
const PartitionKeyColumn = "partition_key"

// MaterializationRepository records one row per asset materialization.
type MaterializationRepository interface {
	// StartRun inserts a new run with status=RUNNING and returns the run_id.
	StartRun(ctx context.Context, assetKey, partitionKey string) (string, error)

	// MarkRunFailed sets status=FAILED, finished_ts and error_message for a run.
	MarkRunFailed(ctx context.Context, runID string, runErr error)

	// MarkRunSucceeded sets status=SUCCESS, finished_ts and the output shape.
	MarkRunSucceeded(ctx context.Context, runID string, rowCount, columnCount int) error

	// ListRuns returns the most recent runs for an asset, newest first.
	// An empty asset key lists runs of every asset.
	ListRuns(ctx context.Context, assetKey string, limit int) ([]*MaterializationRunRow, error)
}

// SilverTableLoader replaces silver table contents from newline-delimited JSON.
type SilverTableLoader interface {
	// LoadTable loads ndjson into table. With a partition key only the rows of
	// that partition are replaced; otherwise the whole table is truncated.
	LoadTable(ctx context.Context, table string, schema bigquery.Schema, ndjson []byte, partitionKey string) error
}

// MaterializationRunRow represents a materialization_runs record in BigQuery.
type MaterializationRunRow struct {
	RunID        string `bigquery:"run_id"`    // REQUIRED
	AssetKey     string `bigquery:"asset_key"` // REQUIRED
	PartitionKey string `bigquery:"partition_key"`

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	RowCount    bigquery.NullInt64 `bigquery:"row_count"`    // NULLABLE
	ColumnCount bigquery.NullInt64 `bigquery:"column_count"` // NULLABLE
}
