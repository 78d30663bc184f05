package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/youtube-trending/internal/assets"
	"github.com/dvloznov/youtube-trending/internal/bootstrap"
	"github.com/dvloznov/youtube-trending/internal/config"
	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := bootstrap.CreateLogger(cfg, "cli")

	switch os.Args[1] {
	case "materialize":
		runMaterialize(cfg, log)
	case "backfill":
		runBackfill(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "assets":
		runAssets(cfg, log)
	case "partitions":
		runPartitions(cfg)
	case "inspect":
		runInspect(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("YouTube Trending CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  materialize  Materialize one asset, or every derived asset")
	fmt.Println("  backfill     Materialize a partitioned asset over a range of months")
	fmt.Println("  upload       Upload a local CSV or JSONL file as a bronze asset")
	fmt.Println("  assets       List the asset graph in dependency order")
	fmt.Println("  partitions   List the valid monthly partition keys")
	fmt.Println("  inspect      Show the stored metadata of an asset")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) *bootstrap.App {
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	return app
}

func printMaterialization(m *assets.Materialization) {
	partition := m.PartitionKey
	if partition == "" {
		partition = "-"
	}
	fmt.Printf("%-45s %-8s rows=%-7d columns=%-3d label=%s (%s)\n",
		m.AssetKey, partition, m.Metadata.RowCount, m.Metadata.ColumnCount, m.Metadata.Label,
		m.Duration.Round(time.Millisecond))
	for col, n := range m.Coercions {
		fmt.Printf("    %d %s cells could not be coerced\n", n, col)
	}
}

func runMaterialize(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("materialize", flag.ExitOnError)
	assetKey := fs.String("asset", "", "Asset key (default: every derived asset)")
	partitionKey := fs.String("partition", "", "Monthly partition key YYYY-MM")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	app := newApp(ctx, cfg, log)
	defer app.Close()

	if *assetKey == "" {
		results, err := app.Materializer.MaterializeAll(ctx, *partitionKey)
		for _, m := range results {
			printMaterialization(m)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Materialization failed")
		}
		return
	}

	m, err := app.Materializer.Materialize(ctx, *assetKey, *partitionKey)
	if err != nil {
		log.Fatal().Err(err).Str("asset", *assetKey).Msg("Materialization failed")
	}
	printMaterialization(m)
}

func runBackfill(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	assetKey := fs.String("asset", "", "Partitioned asset key")
	from := fs.String("from", "", "First month YYYY-MM (default: partitions.start)")
	to := fs.String("to", "", "Last month YYYY-MM (default: current month)")
	fs.Parse(os.Args[2:])

	if *assetKey == "" {
		log.Fatal().Msg("Usage: cli backfill -asset KEY [-from YYYY-MM] [-to YYYY-MM]")
	}

	keys, err := cfg.MonthlyPartitions().Range(*from, *to, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid partition range")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	app := newApp(ctx, cfg, log)
	defer app.Close()

	log.Info().Str("asset", *assetKey).Strs("partitions", keys).Msg("Starting backfill")

	results, err := app.Materializer.Backfill(ctx, *assetKey, keys)
	for _, m := range results {
		printMaterialization(m)
	}
	fmt.Printf("\n%d of %d partitions materialized\n", len(results), len(keys))
	if err != nil {
		log.Fatal().Err(err).Msg("Backfill finished with errors")
	}
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local .csv or .jsonl file")
	assetKey := fs.String("asset", "", "Bronze asset key")
	partitionKey := fs.String("partition", "", "Monthly partition key YYYY-MM")
	fs.Parse(os.Args[2:])

	if *filePath == "" || *assetKey == "" {
		log.Fatal().Msg("Usage: cli upload -file PATH -asset KEY [-partition YYYY-MM]")
	}

	format, err := dataset.ParseFormat(strings.TrimPrefix(filepath.Ext(*filePath), "."))
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Unsupported file type")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open file")
	}
	defer f.Close()

	ds, err := dataset.Decode(format, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to decode file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	app := newApp(ctx, cfg, log)
	defer app.Close()

	a, ok := app.Graph.Asset(*assetKey)
	if !ok {
		log.Fatal().Str("asset", *assetKey).Msg("Unknown asset")
	}
	if !a.IsSource() {
		log.Fatal().Str("asset", *assetKey).Msg("Only source assets can be uploaded")
	}
	if a.Partitioned && *partitionKey == "" {
		log.Fatal().Str("asset", *assetKey).Msg("Partitioned asset requires -partition")
	}

	meta := dataset.MetadataOf(ds, filepath.Base(*filePath))
	log.Info().
		Str("file", *filePath).
		Str("asset", *assetKey).
		Str("partition", *partitionKey).
		Int("rows", meta.RowCount).
		Msg("Uploading dataset")

	if err := app.Lake.PutDataset(ctx, *assetKey, *partitionKey, ds, meta); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, app.Lake.URI(*assetKey, *partitionKey))
}

func runAssets(cfg *config.Config, log zerolog.Logger) {
	graph, err := assets.Definitions(assets.Options{
		BronzePrefix: cfg.Lake.BronzePrefix,
		SilverPrefix: cfg.Lake.SilverPrefix,
		Partitions:   cfg.MonthlyPartitions(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build asset graph")
	}

	fmt.Println("\n=== Assets ===")
	for i, a := range graph.Assets() {
		kind := "derived"
		if a.IsSource() {
			kind = "source"
		}
		if a.Partitioned {
			kind += ", monthly"
		}
		fmt.Printf("\n%d. %s (%s)\n", i+1, a.Key, kind)
		if a.Description != "" {
			fmt.Printf("   %s\n", a.Description)
		}
		for _, in := range a.Inputs {
			suffix := ""
			if in.AllPartitions {
				suffix = " [all partitions]"
			}
			fmt.Printf("   <- %s%s\n", in.Key, suffix)
		}
		if a.Table != "" {
			fmt.Printf("   table: %s\n", a.Table)
		}
	}
	fmt.Println()
}

func runPartitions(cfg *config.Config) {
	for _, key := range cfg.MonthlyPartitions().Keys(time.Now()) {
		fmt.Println(key)
	}
}

func runInspect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	assetKey := fs.String("asset", "", "Asset key")
	partitionKey := fs.String("partition", "", "Monthly partition key YYYY-MM")
	fs.Parse(os.Args[2:])

	if *assetKey == "" {
		log.Fatal().Msg("Usage: cli inspect -asset KEY [-partition YYYY-MM]")
	}

	ctx := logger.WithContext(context.Background(), log)

	app := newApp(ctx, cfg, log)
	defer app.Close()

	meta, err := app.Store.Metadata(ctx, *assetKey, *partitionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read metadata")
	}

	fmt.Println("\n=== Dataset ===")
	fmt.Printf("Asset:     %s\n", *assetKey)
	fmt.Printf("Partition: %s\n", *partitionKey)
	fmt.Printf("URI:       %s\n", app.Lake.URI(*assetKey, *partitionKey))
	fmt.Printf("Rows:      %d\n", meta.RowCount)
	fmt.Printf("Columns:   %d\n", meta.ColumnCount)
	fmt.Printf("Label:     %s\n", meta.Label)

	if runs := app.Runs(); runs != nil {
		rows, err := runs.ListRuns(ctx, *assetKey, 5)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list runs")
			return
		}
		fmt.Printf("\n=== Recent runs (%d) ===\n", len(rows))
		for _, r := range rows {
			fmt.Printf("%s  %-9s partition=%s started=%s\n",
				r.RunID, r.Status, r.PartitionKey, r.StartedTS.Format(time.RFC3339))
		}
	}
	fmt.Println()
}
