package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("WORKER_COUNT", "9")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeConfig(t, `
gcp:
  project: demo
lake:
  bucket: lake-bucket
  format: csv
warehouse:
  enabled: true
  dataset: yt
partitions:
  start: "2021-01"
queue:
  workers: 2
  backoff: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.GCP.Project)
	assert.Equal(t, "lake-bucket", cfg.Lake.Bucket)
	assert.Equal(t, "csv", string(cfg.LakeFormat()))
	assert.Equal(t, 9, cfg.Queue.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.Backoff)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "bronze/youtube", cfg.Lake.BronzePrefix)
	assert.Equal(t, "2021-01", cfg.MonthlyPartitions().Start.Key())
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("GCS_BUCKET", "from-env")
	t.Setenv("WAREHOUSE_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Lake.Bucket)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("GCS_BUCKET=dotenv-bucket\n"), 0o600))
	t.Setenv("ENV_FILE", envPath)
	t.Setenv("GCS_BUCKET", "")
	os.Unsetenv("GCS_BUCKET")
	t.Cleanup(func() { os.Unsetenv("GCS_BUCKET") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-bucket", cfg.Lake.Bucket)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Lake.Bucket = "b"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing bucket", func(c *Config) { c.Lake.Bucket = "" }, ErrMissingBucket},
		{"bad format", func(c *Config) { c.Lake.Format = "parquet" }, ErrInvalidFormat},
		{"warehouse without project", func(c *Config) { c.Warehouse.Enabled = true }, ErrMissingProject},
		{"warehouse without dataset", func(c *Config) {
			c.Warehouse.Enabled = true
			c.GCP.Project = "p"
			c.Warehouse.Dataset = ""
		}, ErrMissingDataset},
		{"bad partition start", func(c *Config) { c.Partitions.Start = "2020-8" }, ErrInvalidPartition},
		{"no workers", func(c *Config) { c.Queue.Workers = 0 }, ErrInvalidWorkerCount},
		{"no queue", func(c *Config) { c.Queue.Size = 0 }, ErrInvalidQueueSize},
		{"negative retries", func(c *Config) { c.Queue.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}
