package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

// StageConfig carries the explicit parameters of one stage run.
type StageConfig struct {
	// PartitionKey is the YYYY-MM window, empty for unpartitioned runs.
	PartitionKey string
	// Label overrides the default output label.
	Label string
}

func (c StageConfig) label(def string) string {
	if c.Label != "" {
		return c.Label
	}
	return def
}

// TrendingConfig configures NormalizeTrending.
type TrendingConfig struct {
	StageConfig
	// RequireWindow fails the run when no partition key is given.
	RequireWindow bool
}

// Result is the output of a stage: the cleaned dataset and its metadata.
type Result struct {
	Dataset   *dataset.Dataset
	Metadata  dataset.Metadata
	Coercions map[string]int
}

// CategoryPipeline builds the category normalizer steps.
func CategoryPipeline() *Pipeline {
	return NewPipeline(
		&LoadStep{Inputs: []string{InputCategories}},
		&CastIntStep{Column: ColCategoryID},
		&SortStep{Column: ColCategoryID},
		&RequireRowsStep{Column: ColCategoryID},
	)
}

// LinkPipeline builds the link reconciler steps.
func LinkPipeline() *Pipeline {
	return NewPipeline(
		&CheckKeyStep{Input: InputTrending, Column: ColVideoID},
		&CheckKeyStep{Input: InputLinks, Column: ColLinkVideoID},
		&DedupStep{Input: InputTrending, Column: ColVideoID},
		&DedupStep{Input: InputLinks, Column: ColLinkVideoID},
		&LoadStep{Inputs: []string{InputTrending}},
		&OuterJoinStep{
			Right:    InputLinks,
			LeftKey:  ColVideoID,
			RightKey: ColLinkVideoID,
			Output: []dataset.JoinedColumn{
				{Name: ColVideoID, FromLeft: true, Source: ColVideoID, Coalesce: ColLinkVideoID},
				{Name: ColLinkVideo, Source: ColLinkVideo},
			},
		},
		&ProjectStep{Columns: []string{ColVideoID, ColLinkVideo}},
		&RequireRowsStep{},
	)
}

// TrendingPipeline builds the trending normalizer steps for the given inputs.
func TrendingPipeline(inputs []string, requireWindow bool) *Pipeline {
	steps := []PipelineStep{
		&LoadStep{Inputs: inputs},
		&WindowFilterStep{Column: ColPublishedAt, Required: requireWindow},
		&ParseTimestampStep{Column: ColPublishedAt},
		&ParseTimestampStep{Column: ColTrendingDate},
	}
	for _, col := range trendingIntColumns {
		steps = append(steps, &CastIntStep{Column: col})
	}
	steps = append(steps,
		&ReplaceStep{Column: ColThumbnailLink, Old: DefaultThumbnailSuffix, New: MaxResThumbnailSuffix},
		&RequireRowsStep{},
	)
	return NewPipeline(steps...)
}

// NormalizeCategories casts categoryId to an integer and sorts by it.
func NormalizeCategories(ctx context.Context, cfg StageConfig, categories *dataset.Dataset) (*Result, error) {
	state := NewPipelineState(StageCategories, "", map[string]*dataset.Dataset{
		InputCategories: categories,
	})
	return runStage(ctx, CategoryPipeline(), state, cfg.label(LabelCategories))
}

// ReconcileLinks joins the link mapping with the distinct trending video ids.
// The output has exactly the columns video_id and link_video.
func ReconcileLinks(ctx context.Context, cfg StageConfig, links, trending *dataset.Dataset) (*Result, error) {
	state := NewPipelineState(StageLinks, "", map[string]*dataset.Dataset{
		InputLinks:    links,
		InputTrending: trending,
	})
	return runStage(ctx, LinkPipeline(), state, cfg.label(LabelLinks))
}

// NormalizeTrending unions the trending inputs, restricts them to the
// configured month and normalizes dates, counts and thumbnails.
func NormalizeTrending(ctx context.Context, cfg TrendingConfig, trending ...*dataset.Dataset) (*Result, error) {
	if len(trending) == 0 {
		return nil, &EmptyResultError{Stage: StageTrending, Reason: "no trending inputs"}
	}
	inputs := make(map[string]*dataset.Dataset, len(trending))
	names := make([]string, len(trending))
	for i, ds := range trending {
		names[i] = fmt.Sprintf("%s_%d", InputTrending, i)
		inputs[names[i]] = ds
	}
	state := NewPipelineState(StageTrending, cfg.PartitionKey, inputs)
	return runStage(ctx, TrendingPipeline(names, cfg.RequireWindow), state, cfg.label(LabelTrending))
}

func runStage(ctx context.Context, p *Pipeline, state *PipelineState, label string) (*Result, error) {
	log := logger.FromContext(ctx)
	log.Info().
		Str("stage", state.Stage).
		Str("partition", state.PartitionKey).
		Msg("Starting stage")

	if err := p.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("stage", state.Stage).Msg("Stage failed")
		return nil, fmt.Errorf("%s: %w", state.Stage, err)
	}

	for col, n := range state.Coercions {
		log.Warn().
			Str("stage", state.Stage).
			Str("column", col).
			Int("nulled", n).
			Msg("Cells could not be coerced")
	}

	meta := dataset.MetadataOf(state.Current, label)
	log.Info().
		Str("stage", state.Stage).
		Int("rows", meta.RowCount).
		Int("columns", meta.ColumnCount).
		Str("label", meta.Label).
		Msg("Stage completed")

	return &Result{Dataset: state.Current, Metadata: meta, Coercions: state.Coercions}, nil
}
