package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

const (
	materializationRunsTable = "materialization_runs"
	maxErrorMessageLen       = 2000
)

type MaterializationRunRow = bq.MaterializationRunRow

// StartRunWithClient inserts a new row into materialization_runs with
// status=RUNNING and returns the generated run_id.
func StartRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, assetKey, partitionKey string) (string, error) {
	runID := uuid.NewString()
	started := time.Now()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			asset_key,
			partition_key,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@asset_key,
			@partition_key,
			@started_ts,
			@status
		)
	`, datasetID, materializationRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "asset_key", Value: assetKey},
		{Name: "partition_key", Value: partitionKey},
		{Name: "started_ts", Value: started},
		{Name: "status", Value: bq.RunStatusRunning},
	}

	if err := runQuery(ctx, q); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}
	return runID, nil
}

// truncateError returns the error text capped at maxErrorMessageLen bytes.
func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}

// MarkRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged, not returned: the materialization error matters more.
func MarkRunFailedWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, runErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, datasetID, materializationRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

// MarkRunSucceededWithClient sets status=SUCCESS, finished_ts and the output shape.
func MarkRunSucceededWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, rowCount, columnCount int) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    row_count = @row_count,
		    column_count = @column_count
		WHERE run_id = @run_id
	`, datasetID, materializationRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "row_count", Value: int64(rowCount)},
		{Name: "column_count", Value: int64(columnCount)},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// ListRunsWithClient returns the latest runs, newest first.
func ListRunsWithClient(ctx context.Context, client *bigquery.Client, datasetID, assetKey string, limit int) ([]*MaterializationRunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			asset_key,
			partition_key,
			started_ts,
			finished_ts,
			status,
			error_message,
			row_count,
			column_count
		FROM %s.%s
		WHERE @asset_key = "" OR asset_key = @asset_key
		ORDER BY started_ts DESC
		LIMIT @limit
	`, datasetID, materializationRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "asset_key", Value: assetKey},
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: reading query: %w", err)
	}

	var runs []*MaterializationRunRow
	for {
		var row MaterializationRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iterating rows: %w", err)
		}
		runs = append(runs, &row)
	}
	return runs, nil
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
