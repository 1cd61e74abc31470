package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.5, cfg.Inference.Step)
	assert.Equal(t, "local", cfg.Artifacts.Backend)
	assert.Equal(t, "go-json+zstd", cfg.Artifacts.Codec)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontoinfer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  format: json
  level: debug
inference:
  binary: true
  threshold: 1.5
  workers: 4
  ranges:
    - [-1, 0]
    - [0, 1]
artifacts:
  backend: minio
  codec: json+lz4
  minio:
    endpoint: localhost:9000
    bucket: ontoinfer
scores:
  path: scores.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Inference.Binary)
	assert.Equal(t, 1.5, cfg.Inference.Threshold)
	assert.Equal(t, 4, cfg.Inference.Workers)
	assert.Equal(t, [][]float64{{-1, 0}, {0, 1}}, cfg.Inference.Ranges)
	assert.Equal(t, 0.5, cfg.Inference.Step) // default kept
	assert.Equal(t, "minio", cfg.Artifacts.Backend)
	assert.Equal(t, "ontoinfer", cfg.Artifacts.MinIO.Bucket)
	assert.Equal(t, "scores.db", cfg.Scores.Path)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontoinfer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inference:\n  workers: 2\n"), 0o600))
	t.Setenv("ONTOINFER_INFERENCE_WORKERS", "8")
	t.Setenv("ONTOINFER_ARTIFACTS_PREFIX", "ri")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Inference.Workers)
	assert.Equal(t, "ri", cfg.Artifacts.Prefix)
}

func TestLoadMissingSearchedFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"step", func(c *Config) { c.Inference.Step = 0 }, "inference.step"},
		{"threshold", func(c *Config) { c.Inference.Binary, c.Inference.Threshold = true, -1 }, "inference.threshold"},
		{"workers", func(c *Config) { c.Inference.Workers = -2 }, "inference.workers"},
		{"codec", func(c *Config) { c.Artifacts.Codec = "gob" }, "artifacts.codec"},
		{"backend", func(c *Config) { c.Artifacts.Backend = "ftp" }, "artifacts.backend"},
		{"local dir", func(c *Config) { c.Artifacts.Dir = "" }, "artifacts.dir"},
		{"s3 bucket", func(c *Config) { c.Artifacts.Backend = "s3" }, "artifacts.s3.bucket"},
		{"minio", func(c *Config) { c.Artifacts.Backend = "minio" }, "artifacts.minio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)

			err := cfg.Validate()
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
