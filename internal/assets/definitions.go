package assets

import (
	"context"
	"path"

	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/domain"
	"github.com/dvloznov/youtube-trending/internal/partition"
	"github.com/dvloznov/youtube-trending/internal/pipeline"
)

// Default key prefixes of the two layers.
const (
	DefaultBronzePrefix = "bronze/youtube"
	DefaultSilverPrefix = "silver/youtube"
)

// DefaultPartitionStart is the first month of trending data.
const DefaultPartitionStart = "2020-08"

// Asset names inside their layer prefix.
const (
	BronzeCategories = "videoCategory_trending_data"
	BronzeLinks      = "linkVideos_trending_data"
	BronzeTrending   = "bronze_youtube_trending_data"

	SilverCategories = "silver_videoCategory_clean"
	SilverLinks      = "silver_linkVideos_clean"
	SilverTrending   = "silver_trending_clean"
)

// Options configures Definitions.
type Options struct {
	BronzePrefix string
	SilverPrefix string
	Partitions   partition.MonthlyPartitions
}

// DefaultOptions returns the standard prefixes and partitions from 2020-08.
func DefaultOptions() Options {
	parts, _ := partition.NewMonthlyPartitions(DefaultPartitionStart, "")
	return Options{
		BronzePrefix: DefaultBronzePrefix,
		SilverPrefix: DefaultSilverPrefix,
		Partitions:   parts,
	}
}

// Key joins a layer prefix and an asset name.
func Key(prefix, name string) string { return path.Join(prefix, name) }

// Definitions builds the YouTube trending asset graph.
func Definitions(opts Options) (*Graph, error) {
	if opts.BronzePrefix == "" {
		opts.BronzePrefix = DefaultBronzePrefix
	}
	if opts.SilverPrefix == "" {
		opts.SilverPrefix = DefaultSilverPrefix
	}

	categories := Key(opts.BronzePrefix, BronzeCategories)
	links := Key(opts.BronzePrefix, BronzeLinks)
	trending := Key(opts.BronzePrefix, BronzeTrending)

	return NewGraph(opts.Partitions,
		Asset{Key: categories, Description: "Raw video categories"},
		Asset{Key: links, Description: "Raw video id to link mapping"},
		Asset{Key: trending, Description: "Raw monthly trending chart", Partitioned: true},
		Asset{
			Key:         Key(opts.SilverPrefix, SilverCategories),
			Description: "Categories with integer ids, sorted",
			Inputs:      []Input{{Key: categories}},
			Label:       pipeline.LabelCategories,
			Table:       domain.CategoriesTable,
			Compute: func(ctx context.Context, partitionKey string, in map[string]*dataset.Dataset) (*pipeline.Result, error) {
				return pipeline.NormalizeCategories(ctx, pipeline.StageConfig{}, in[categories])
			},
		},
		Asset{
			Key:         Key(opts.SilverPrefix, SilverLinks),
			Description: "Trending video ids joined with their links",
			Inputs:      []Input{{Key: links}, {Key: trending, AllPartitions: true}},
			Label:       pipeline.LabelLinks,
			Table:       domain.LinksTable,
			Compute: func(ctx context.Context, partitionKey string, in map[string]*dataset.Dataset) (*pipeline.Result, error) {
				return pipeline.ReconcileLinks(ctx, pipeline.StageConfig{}, in[links], in[trending])
			},
		},
		Asset{
			Key:         Key(opts.SilverPrefix, SilverTrending),
			Description: "Monthly trending chart with typed dates and counts",
			Inputs:      []Input{{Key: trending}},
			Partitioned: true,
			Label:       pipeline.LabelTrending,
			Table:       domain.TrendingTable,
			Compute: func(ctx context.Context, partitionKey string, in map[string]*dataset.Dataset) (*pipeline.Result, error) {
				cfg := pipeline.TrendingConfig{
					StageConfig:   pipeline.StageConfig{PartitionKey: partitionKey},
					RequireWindow: true,
				}
				return pipeline.NormalizeTrending(ctx, cfg, in[trending])
			},
		},
	)
}
