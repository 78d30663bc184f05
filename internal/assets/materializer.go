package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/iomanager"
	"github.com/dvloznov/youtube-trending/internal/logger"
	"github.com/dvloznov/youtube-trending/internal/pipeline"
)

// ErrNotPartitioned is the cause attached when a partition key is given for
// an unpartitioned asset.
var ErrNotPartitioned = errors.New("asset is not partitioned")

// Materialization describes one successful asset run.
type Materialization struct {
	AssetKey     string
	PartitionKey string
	RunID        string
	Metadata     dataset.Metadata
	Coercions    map[string]int
	Duration     time.Duration
}

// Materializer runs assets one at a time: load inputs, compute, persist.
type Materializer struct {
	graph *Graph
	store iomanager.Store
	runs  bq.MaterializationRepository
	now   func() time.Time
}

// NewMaterializer creates a Materializer. runs may be nil to skip bookkeeping.
func NewMaterializer(graph *Graph, store iomanager.Store, runs bq.MaterializationRepository) *Materializer {
	return &Materializer{graph: graph, store: store, runs: runs, now: time.Now}
}

// Graph returns the asset graph being materialized.
func (m *Materializer) Graph() *Graph { return m.graph }

// Store returns the dataset store.
func (m *Materializer) Store() iomanager.Store { return m.store }

// checkPartition validates partitionKey against the asset's partitioning.
func (m *Materializer) checkPartition(a Asset, partitionKey string) error {
	if !a.Partitioned {
		if partitionKey != "" {
			return &pipeline.PartitionWindowError{Key: partitionKey, Err: ErrNotPartitioned}
		}
		return nil
	}
	if partitionKey == "" {
		return &pipeline.PartitionWindowError{Err: pipeline.ErrNoPartition}
	}
	if _, err := m.graph.Partitions.Validate(partitionKey, m.now()); err != nil {
		return &pipeline.PartitionWindowError{Key: partitionKey, Err: err}
	}
	return nil
}

// Materialize computes one asset (at one partition) and stores the result.
func (m *Materializer) Materialize(ctx context.Context, key, partitionKey string) (*Materialization, error) {
	a, ok := m.graph.Asset(key)
	if !ok {
		return nil, fmt.Errorf("Materialize: %w: %s", ErrUnknownAsset, key)
	}
	if a.IsSource() {
		return nil, fmt.Errorf("Materialize: %s: %w", key, ErrSourceAsset)
	}
	if err := m.checkPartition(a, partitionKey); err != nil {
		return nil, fmt.Errorf("Materialize: %s: %w", key, err)
	}

	log := logger.ForAsset(logger.FromContext(ctx), key, partitionKey)
	ctx = logger.WithContext(ctx, log)
	started := m.now()

	var runID string
	if m.runs != nil {
		id, err := m.runs.StartRun(ctx, key, partitionKey)
		if err != nil {
			return nil, fmt.Errorf("Materialize: starting run: %w", err)
		}
		runID = id
		log = log.With().Str("run_id", runID).Logger()
		ctx = logger.WithContext(ctx, log)
	}

	res, err := m.run(ctx, a, partitionKey)
	if err != nil {
		if m.runs != nil {
			m.runs.MarkRunFailed(ctx, runID, err)
		}
		log.Error().Err(err).Msg("Materialization failed")
		return nil, fmt.Errorf("Materialize: %s: %w", key, err)
	}

	if m.runs != nil {
		if err := m.runs.MarkRunSucceeded(ctx, runID, res.Metadata.RowCount, res.Metadata.ColumnCount); err != nil {
			log.Warn().Err(err).Msg("Could not mark run succeeded")
		}
	}

	out := &Materialization{
		AssetKey:     key,
		PartitionKey: partitionKey,
		RunID:        runID,
		Metadata:     res.Metadata,
		Coercions:    res.Coercions,
		Duration:     m.now().Sub(started),
	}
	log.Info().
		Int("rows", out.Metadata.RowCount).
		Int("columns", out.Metadata.ColumnCount).
		Dur("duration", out.Duration).
		Msg("Materialized asset")
	return out, nil
}

func (m *Materializer) run(ctx context.Context, a Asset, partitionKey string) (*pipeline.Result, error) {
	inputs := make(map[string]*dataset.Dataset, len(a.Inputs))
	for _, in := range a.Inputs {
		p := m.graph.inputPartition(in, partitionKey)
		ds, err := m.store.GetDataset(ctx, in.Key, p)
		if err != nil {
			return nil, fmt.Errorf("loading input %s: %w", in.Key, err)
		}
		inputs[in.Key] = ds
	}

	res, err := a.Compute(ctx, partitionKey, inputs)
	if err != nil {
		return nil, err
	}
	if a.Label != "" {
		res.Metadata.Label = a.Label
	}

	if err := m.store.PutDataset(ctx, a.Key, partitionKey, res.Dataset, res.Metadata); err != nil {
		return nil, fmt.Errorf("storing output: %w", err)
	}
	return res, nil
}

// MaterializeAll walks the graph in topological order and materializes every
// non-source asset. Partitioned assets run at partitionKey and are skipped
// when it is empty.
func (m *Materializer) MaterializeAll(ctx context.Context, partitionKey string) ([]*Materialization, error) {
	log := logger.FromContext(ctx)
	var out []*Materialization
	for _, a := range m.graph.Assets() {
		if a.IsSource() {
			continue
		}
		p := ""
		if a.Partitioned {
			if partitionKey == "" {
				log.Info().Str("asset", a.Key).Msg("Skipping partitioned asset without a partition")
				continue
			}
			p = partitionKey
		}
		res, err := m.Materialize(ctx, a.Key, p)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Backfill materializes a partitioned asset for each key. Empty months do not
// stop the run; all failures are joined into the returned error.
func (m *Materializer) Backfill(ctx context.Context, key string, partitionKeys []string) ([]*Materialization, error) {
	var (
		out  []*Materialization
		errs []error
	)
	for _, p := range partitionKeys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := m.Materialize(ctx, key, p)
		if err != nil {
			var empty *pipeline.EmptyResultError
			if !errors.As(err, &empty) && pipeline.IsFatal(err) {
				return out, err
			}
			errs = append(errs, err)
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}
