package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/youtube-trending/internal/assets"
)

// Materializer runs one asset partition.
type Materializer interface {
	Materialize(ctx context.Context, key, partitionKey string) (*assets.Materialization, error)
}

// MaterializeHandler returns a JobHandler that materializes MaterializeJobs
// and records the run ID and output shape on the job.
func MaterializeHandler(m Materializer) JobHandler {
	return func(ctx context.Context, job Job) error {
		mj, ok := job.(*MaterializeJob)
		if !ok {
			return fmt.Errorf("MaterializeHandler: unsupported job type %s", job.GetType())
		}
		res, err := m.Materialize(ctx, mj.AssetKey, mj.PartitionKey)
		if err != nil {
			return err
		}
		mj.RunID = res.RunID
		mj.RowCount = res.Metadata.RowCount
		mj.ColumnCount = res.Metadata.ColumnCount
		return nil
	}
}
