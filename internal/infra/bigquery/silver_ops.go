package bigquery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

// LoadTableWithClient runs a load job from ndjson into datasetID.table.
// With a partition key the partition's existing rows are deleted first and
// the load appends; without one the load truncates the table.
func LoadTableWithClient(ctx context.Context, client *bigquery.Client, datasetID, table string, schema bigquery.Schema, ndjson []byte, partitionKey string) error {
	log := logger.FromContext(ctx)

	disposition := bigquery.WriteTruncate
	if partitionKey != "" {
		disposition = bigquery.WriteAppend
		if err := deletePartitionWithClient(ctx, client, datasetID, table, partitionKey); err != nil {
			return fmt.Errorf("LoadTable: %w", err)
		}
	}

	src := bigquery.NewReaderSource(bytes.NewReader(ndjson))
	src.SourceFormat = bigquery.JSON
	src.Schema = schema
	src.IgnoreUnknownValues = true

	loader := client.Dataset(datasetID).Table(table).LoaderFrom(src)
	loader.WriteDisposition = disposition
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("LoadTable: starting load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("LoadTable: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("LoadTable: job error: %w", err)
	}

	log.Info().
		Str("table", table).
		Str("partition", partitionKey).
		Int("bytes", len(ndjson)).
		Msg("Loaded silver table")
	return nil
}

// deletePartitionWithClient removes the rows of one partition. A missing
// table is not an error; the load job creates it.
func deletePartitionWithClient(ctx context.Context, client *bigquery.Client, datasetID, table, partitionKey string) error {
	if _, err := client.Dataset(datasetID).Table(table).Metadata(ctx); err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("reading table metadata: %w", err)
	}

	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s.%s
		WHERE %s = @partition_key
	`, datasetID, table, bq.PartitionKeyColumn))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "partition_key", Value: partitionKey},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("deleting partition %s: %w", partitionKey, err)
	}
	return nil
}

// IsNotFound reports whether err is a BigQuery 404 (missing dataset or table).
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
