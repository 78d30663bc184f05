package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/logger"
	"github.com/dvloznov/youtube-trending/internal/partition"
)

// PipelineStep represents a single step in a cleaning stage.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Stage        string
	PartitionKey string
	Inputs       map[string]*dataset.Dataset
	Current      *dataset.Dataset

	// Coercions counts the cells nulled per column by failed casts.
	Coercions map[string]int
}

// NewPipelineState creates a state with the given named inputs.
func NewPipelineState(stage, partitionKey string, inputs map[string]*dataset.Dataset) *PipelineState {
	return &PipelineState{
		Stage:        stage,
		PartitionKey: partitionKey,
		Inputs:       inputs,
		Coercions:    make(map[string]int),
	}
}

func (s *PipelineState) input(name string) (*dataset.Dataset, error) {
	if name == "" {
		if s.Current == nil {
			return nil, fmt.Errorf("%s: no current dataset", s.Stage)
		}
		return s.Current, nil
	}
	ds, ok := s.Inputs[name]
	if !ok || ds == nil {
		return nil, fmt.Errorf("%s: missing input %q", s.Stage, name)
	}
	return ds, nil
}

// LoadStep makes the row-wise union of the named inputs the current dataset.
type LoadStep struct {
	Inputs []string
}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(s.Inputs) == 0 {
		return fmt.Errorf("load: no inputs named")
	}
	first, err := state.input(s.Inputs[0])
	if err != nil {
		return err
	}
	rest := make([]*dataset.Dataset, 0, len(s.Inputs)-1)
	for _, name := range s.Inputs[1:] {
		ds, err := state.input(name)
		if err != nil {
			return err
		}
		rest = append(rest, ds)
	}
	if len(rest) == 0 {
		state.Current = first
		return nil
	}
	state.Current = first.Concat(rest...)
	return nil
}

// WindowFilterStep keeps rows whose Column falls in the state's YYYY-MM window.
// Without a partition key the step is skipped unless Required is set.
type WindowFilterStep struct {
	Column   string
	Required bool
}

func (s *WindowFilterStep) Name() string { return "window_filter" }

func (s *WindowFilterStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.PartitionKey == "" {
		if s.Required {
			return &PartitionWindowError{Err: ErrNoPartition}
		}
		return nil
	}
	window, err := partition.ParseMonth(state.PartitionKey)
	if err != nil {
		return &PartitionWindowError{Key: state.PartitionKey, Err: err}
	}
	if !state.Current.HasColumn(s.Column) {
		return fmt.Errorf("window_filter: %w %q", dataset.ErrUnknownColumn, s.Column)
	}

	filtered, err := state.Current.Filter(func(row int) (bool, error) {
		v, cerr := coerceTimestamp(s.Column, state.Current.Value(row, s.Column))
		if cerr != nil || v.IsNull() {
			return false, nil
		}
		t, _ := v.Time()
		return window.Contains(t), nil
	})
	if err != nil {
		return err
	}
	state.Current = filtered
	return nil
}

// recoverCoercion turns a RowCoercionError into a null cell and counts it.
func recoverCoercion(state *PipelineState, column string, v dataset.Value, err error) (dataset.Value, error) {
	var rce *RowCoercionError
	if errors.As(err, &rce) {
		state.Coercions[column]++
		return dataset.Null(), nil
	}
	return v, err
}

// CastIntStep casts Column to integers; bad cells become null.
type CastIntStep struct {
	Column string
}

func (s *CastIntStep) Name() string { return "cast_int:" + s.Column }

func (s *CastIntStep) Execute(ctx context.Context, state *PipelineState) error {
	out, err := state.Current.MapColumn(s.Column, func(v dataset.Value) (dataset.Value, error) {
		cast, err := coerceInt(s.Column, v)
		return recoverCoercion(state, s.Column, cast, err)
	})
	if err != nil {
		return err
	}
	state.Current = out
	return nil
}

// ParseTimestampStep reformats Column to the canonical date layout and parses
// it; bad cells become null.
type ParseTimestampStep struct {
	Column string
}

func (s *ParseTimestampStep) Name() string { return "parse_timestamp:" + s.Column }

func (s *ParseTimestampStep) Execute(ctx context.Context, state *PipelineState) error {
	out, err := state.Current.MapColumn(s.Column, func(v dataset.Value) (dataset.Value, error) {
		ts, err := coerceTimestamp(s.Column, v)
		return recoverCoercion(state, s.Column, ts, err)
	})
	if err != nil {
		return err
	}
	state.Current = out
	return nil
}

// ReplaceStep substitutes Old with New in every string cell of Column.
type ReplaceStep struct {
	Column string
	Old    string
	New    string
}

func (s *ReplaceStep) Name() string { return "replace:" + s.Column }

func (s *ReplaceStep) Execute(ctx context.Context, state *PipelineState) error {
	out, err := state.Current.MapColumn(s.Column, func(v dataset.Value) (dataset.Value, error) {
		return replaceInCell(v, s.Old, s.New), nil
	})
	if err != nil {
		return err
	}
	state.Current = out
	return nil
}

// SortStep orders the current dataset ascending by Column (stable, nulls first).
type SortStep struct {
	Column string
}

func (s *SortStep) Name() string { return "sort:" + s.Column }

func (s *SortStep) Execute(ctx context.Context, state *PipelineState) error {
	out, err := state.Current.SortBy(s.Column)
	if err != nil {
		return err
	}
	state.Current = out
	return nil
}

// DedupStep keeps the first row per Column value. With Input set it rewrites
// that named input instead of the current dataset.
type DedupStep struct {
	Input  string
	Column string
}

func (s *DedupStep) Name() string { return "dedup:" + s.Column }

func (s *DedupStep) Execute(ctx context.Context, state *PipelineState) error {
	src, err := state.input(s.Input)
	if err != nil {
		return err
	}
	out, err := src.DedupBy(s.Column)
	if err != nil {
		return err
	}
	if s.Input == "" {
		state.Current = out
	} else {
		state.Inputs[s.Input] = out
	}
	return nil
}

// CheckKeyStep verifies a join key column exists and only holds strings or nulls.
type CheckKeyStep struct {
	Input  string
	Column string
}

func (s *CheckKeyStep) Name() string { return "check_key:" + s.Column }

func (s *CheckKeyStep) Execute(ctx context.Context, state *PipelineState) error {
	src, err := state.input(s.Input)
	if err != nil {
		return err
	}
	side := s.Input
	if side == "" {
		side = "current"
	}
	values, err := src.Column(s.Column)
	if err != nil {
		return &JoinKeyMismatchError{Side: side, Column: s.Column, Err: err}
	}
	for i, v := range values {
		if k := v.Kind(); k != dataset.KindString && k != dataset.KindNull {
			return &JoinKeyMismatchError{Side: side, Column: s.Column, Row: i, Got: k}
		}
	}
	return nil
}

// OuterJoinStep full-outer-joins the current dataset (left) with a named input (right).
type OuterJoinStep struct {
	Right    string
	LeftKey  string
	RightKey string
	Output   []dataset.JoinedColumn
}

func (s *OuterJoinStep) Name() string { return "outer_join:" + s.Right }

func (s *OuterJoinStep) Execute(ctx context.Context, state *PipelineState) error {
	right, err := state.input(s.Right)
	if err != nil {
		return err
	}
	out, err := dataset.OuterJoin(state.Current, right, s.LeftKey, s.RightKey, s.Output)
	if err != nil {
		return err
	}
	state.Current = out
	return nil
}

// ProjectStep keeps only Columns.
type ProjectStep struct {
	Columns []string
}

func (s *ProjectStep) Name() string { return "project" }

func (s *ProjectStep) Execute(ctx context.Context, state *PipelineState) error {
	out, err := state.Current.Project(s.Columns...)
	if err != nil {
		return err
	}
	state.Current = out
	return nil
}

// RequireRowsStep fails with EmptyResultError when no usable row remains.
// With Column set, a row is usable only when that column is non-null.
type RequireRowsStep struct {
	Column string
}

func (s *RequireRowsStep) Name() string { return "require_rows" }

func (s *RequireRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Current.NumRows() == 0 {
		reason := "no rows"
		if state.PartitionKey != "" {
			reason = fmt.Sprintf("no rows in partition %s", state.PartitionKey)
		}
		return &EmptyResultError{Stage: state.Stage, Reason: reason}
	}
	if s.Column == "" {
		return nil
	}
	values, err := state.Current.Column(s.Column)
	if err != nil {
		return err
	}
	for _, v := range values {
		if !v.IsNull() {
			return nil
		}
	}
	return &EmptyResultError{Stage: state.Stage, Reason: fmt.Sprintf("no valid %s in %d rows", s.Column, len(values))}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		if state.Current != nil {
			rows, cols := state.Current.Shape()
			log.Debug().
				Str("stage", state.Stage).
				Str("step", step.Name()).
				Int("rows", rows).
				Int("columns", cols).
				Msg("Step completed")
		}
	}
	return nil
}
