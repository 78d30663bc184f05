// Package bootstrap wires configuration, storage, the warehouse mirror and
// the asset graph into a ready-to-use Materializer.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dvloznov/youtube-trending/internal/assets"
	bq "github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/config"
	"github.com/dvloznov/youtube-trending/internal/domain"
	"github.com/dvloznov/youtube-trending/internal/gcsuploader"
	infraBQ "github.com/dvloznov/youtube-trending/internal/infra/bigquery"
	"github.com/dvloznov/youtube-trending/internal/iomanager"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

const defaultConfigPath = "config.yml"

// App holds the long-lived clients of a process.
type App struct {
	Config       *config.Config
	Log          zerolog.Logger
	Storage      *gcsuploader.GCSStorageService
	Lake         *iomanager.LakeStore
	Store        iomanager.Store
	Warehouse    *infraBQ.BigQueryWarehouse
	Graph        *assets.Graph
	Materializer *assets.Materializer
}

// LoadConfig loads and validates the configuration. A missing config.yml is
// fine when CONFIG_PATH is unset; env variables then supply everything.
func LoadConfig() (*config.Config, error) {
	path := config.GetConfigPath(defaultConfigPath)
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates the process logger at the configured level.
func CreateLogger(cfg *config.Config, service string) zerolog.Logger {
	return logger.NewWithLevel(cfg.Logging.Level).With().Str("service", service).Logger()
}

// New connects to storage (and BigQuery when the warehouse is enabled) and
// builds the asset graph.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	storage, err := gcsuploader.NewGCSStorageService(ctx, gcsuploader.ClientOptions(cfg.GCP.StorageEndpoint)...)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	graph, err := assets.Definitions(assets.Options{
		BronzePrefix: cfg.Lake.BronzePrefix,
		SilverPrefix: cfg.Lake.SilverPrefix,
		Partitions:   cfg.MonthlyPartitions(),
	})
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("asset graph: %w", err)
	}

	app := &App{
		Config:  cfg,
		Log:     log,
		Storage: storage,
		Lake:    iomanager.NewLakeStore(storage, cfg.Lake.Bucket, cfg.Lake.Root, cfg.LakeFormat()),
		Graph:   graph,
	}
	app.Store = app.Lake

	var runs bq.MaterializationRepository
	if cfg.Warehouse.Enabled {
		wh, err := infraBQ.NewBigQueryWarehouse(ctx, cfg.GCP.Project, cfg.Warehouse.Dataset)
		if err != nil {
			storage.Close()
			return nil, fmt.Errorf("warehouse: %w", err)
		}
		tables, err := WarehouseTables(graph)
		if err != nil {
			wh.Close()
			storage.Close()
			return nil, fmt.Errorf("warehouse tables: %w", err)
		}
		app.Warehouse = wh
		app.Store = iomanager.NewTee(app.Lake, iomanager.NewWarehouseStore(wh, tables))
		runs = wh
		log.Info().
			Str("project", cfg.GCP.Project).
			Str("dataset", cfg.Warehouse.Dataset).
			Int("tables", len(tables)).
			Msg("Warehouse mirror enabled")
	}

	app.Materializer = assets.NewMaterializer(graph, app.Store, runs)
	return app, nil
}

// Runs returns the run repository, or nil when the warehouse is disabled.
func (a *App) Runs() bq.MaterializationRepository {
	if a.Warehouse == nil {
		return nil
	}
	return a.Warehouse
}

// Close releases the storage and BigQuery clients.
func (a *App) Close() error {
	var errs []error
	if a.Warehouse != nil {
		errs = append(errs, a.Warehouse.Close())
	}
	if a.Storage != nil {
		errs = append(errs, a.Storage.Close())
	}
	return errors.Join(errs...)
}

// WarehouseTables maps every asset with a table to that table's schema.
func WarehouseTables(graph *assets.Graph) (map[string]iomanager.WarehouseTable, error) {
	tables := make(map[string]iomanager.WarehouseTable)
	for _, a := range graph.Assets() {
		if a.Table == "" {
			continue
		}
		schema, err := domain.SchemaFor(a.Table)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Key, err)
		}
		tables[a.Key] = iomanager.WarehouseTable{Table: a.Table, Schema: schema}
	}
	return tables, nil
}
