// Package config loads the pipeline configuration from a YAML file, .env
// files and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dvloznov/youtube-trending/internal/dataset"
	"github.com/dvloznov/youtube-trending/internal/partition"
)

// Configuration validation errors.
var (
	ErrMissingProject     = errors.New("gcp.project is required when the warehouse is enabled")
	ErrMissingBucket      = errors.New("lake.bucket is required")
	ErrInvalidFormat      = errors.New("lake.format must be 'jsonl' or 'csv'")
	ErrMissingDataset     = errors.New("warehouse.dataset is required when the warehouse is enabled")
	ErrInvalidPartition   = errors.New("partitions.start must be a YYYY-MM month")
	ErrInvalidWorkerCount = errors.New("queue.workers must be at least 1")
	ErrInvalidQueueSize   = errors.New("queue.size must be at least 1")
	ErrInvalidMaxRetries  = errors.New("queue.max_retries must be non-negative")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidPort        = errors.New("server.port must be between 1 and 65535")
)

// Config is the complete pipeline configuration.
type Config struct {
	GCP        GCPConfig        `yaml:"gcp"`
	Lake       LakeConfig       `yaml:"lake"`
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	Partitions PartitionsConfig `yaml:"partitions"`
	Queue      QueueConfig      `yaml:"queue"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
}

// GCPConfig holds project-wide settings.
type GCPConfig struct {
	Project string `yaml:"project" env:"GCP_PROJECT"`
	// StorageEndpoint points the storage client at an emulator.
	StorageEndpoint string `yaml:"storage_endpoint" env:"STORAGE_EMULATOR_HOST"`
}

// LakeConfig locates bronze and silver datasets in object storage.
type LakeConfig struct {
	Bucket       string `yaml:"bucket" env:"GCS_BUCKET"`
	Root         string `yaml:"root" env:"LAKE_ROOT"`
	BronzePrefix string `yaml:"bronze_prefix"`
	SilverPrefix string `yaml:"silver_prefix"`
	Format       string `yaml:"format" env:"LAKE_FORMAT"`
}

// WarehouseConfig controls the BigQuery mirror and run bookkeeping.
type WarehouseConfig struct {
	Enabled bool   `yaml:"enabled" env:"WAREHOUSE_ENABLED"`
	Dataset string `yaml:"dataset" env:"BQ_DATASET"`
}

// PartitionsConfig bounds the monthly partitions.
type PartitionsConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// QueueConfig sizes the in-memory job queue.
type QueueConfig struct {
	Workers    int           `yaml:"workers" env:"WORKER_COUNT"`
	Size       int           `yaml:"size"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// Default returns a configuration with every optional field set.
func Default() *Config {
	return &Config{
		Lake: LakeConfig{
			BronzePrefix: "bronze/youtube",
			SilverPrefix: "silver/youtube",
			Format:       string(dataset.FormatNDJSON),
		},
		Warehouse: WarehouseConfig{Dataset: "youtube"},
		Partitions: PartitionsConfig{
			Start: "2020-08",
		},
		Queue: QueueConfig{
			Workers:    5,
			Size:       100,
			MaxRetries: 3,
			Backoff:    time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Port: 8080},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty), .env files and the environment.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Lake.Bucket == "" {
		return ErrMissingBucket
	}
	if _, err := dataset.ParseFormat(c.Lake.Format); err != nil {
		return ErrInvalidFormat
	}
	if c.Warehouse.Enabled {
		if c.GCP.Project == "" {
			return ErrMissingProject
		}
		if c.Warehouse.Dataset == "" {
			return ErrMissingDataset
		}
	}
	if _, err := partition.NewMonthlyPartitions(c.Partitions.Start, c.Partitions.End); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPartition, err)
	}
	if c.Queue.Workers < 1 {
		return ErrInvalidWorkerCount
	}
	if c.Queue.Size < 1 {
		return ErrInvalidQueueSize
	}
	if c.Queue.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// LakeFormat returns the parsed dataset format. Call after Validate.
func (c *Config) LakeFormat() dataset.Format {
	f, _ := dataset.ParseFormat(c.Lake.Format)
	return f
}

// MonthlyPartitions returns the partition definition. Call after Validate.
func (c *Config) MonthlyPartitions() partition.MonthlyPartitions {
	p, _ := partition.NewMonthlyPartitions(c.Partitions.Start, c.Partitions.End)
	return p
}

// loadEnvFiles loads .env files in priority order:
// 1. ENV_FILE environment variable (if set, loads only this file)
// 2. .env.local (if exists, overrides .env)
// 3. .env (default)
// Missing files are ignored. godotenv never overrides variables already set.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}

	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

// applyEnvOverrides sets fields tagged `env:"NAME"` from the environment.
func applyEnvOverrides(cfg any) {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	applyEnvToStruct(v)
}

func applyEnvToStruct(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			applyEnvToStruct(field)
			continue
		}

		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" {
			continue
		}
		envVal := os.Getenv(envTag)
		if envVal == "" {
			continue
		}
		setFieldFromString(field, envVal)
	}
}

func setFieldFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(val); err == nil {
				field.SetInt(int64(d))
			}
		} else if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			field.SetInt(i)
		}

	case reflect.Bool:
		s := strings.ToLower(strings.TrimSpace(val))
		field.SetBool(s == "true" || s == "1" || s == "yes")
	}
}

// GetConfigPath returns the config path from CONFIG_PATH env var or the default.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}
