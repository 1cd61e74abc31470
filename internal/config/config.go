// Package config loads the ontoinfer CLI configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/ontoinfer/codec"
)

// Config is the CLI configuration.
type Config struct {
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Ontology  OntologyConfig  `json:"ontology" mapstructure:"ontology"`
	Inference InferenceConfig `json:"inference" mapstructure:"inference"`
	Artifacts ArtifactsConfig `json:"artifacts" mapstructure:"artifacts"`
	Scores    ScoresConfig    `json:"scores" mapstructure:"scores"`
}

// LoggingConfig selects the log handler.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"` // text or json
	Level  string `json:"level" mapstructure:"level"`
}

// OntologyConfig controls tree building.
type OntologyConfig struct {
	// Categories groups the root's children by Cognitive Atlas category.
	Categories bool `json:"categories" mapstructure:"categories"`
}

// InferenceConfig controls estimation and scoring.
type InferenceConfig struct {
	Step        float64     `json:"step" mapstructure:"step"`
	Ranges      [][]float64 `json:"ranges" mapstructure:"ranges"`
	Binary      bool        `json:"binary" mapstructure:"binary"`
	Threshold   float64     `json:"threshold" mapstructure:"threshold"`
	EqualPriors bool        `json:"equalPriors" mapstructure:"equalPriors"`
	Workers     int         `json:"workers" mapstructure:"workers"`
	MemoryLimit int64       `json:"memoryLimitBytes" mapstructure:"memoryLimitBytes"`
}

// ArtifactsConfig selects where group records and likelihood tables go.
type ArtifactsConfig struct {
	Backend    string      `json:"backend" mapstructure:"backend"` // local, s3 or minio
	Dir        string      `json:"dir" mapstructure:"dir"`
	Prefix     string      `json:"prefix" mapstructure:"prefix"`
	Codec      string      `json:"codec" mapstructure:"codec"`
	CacheBytes int64       `json:"cacheBytes" mapstructure:"cacheBytes"`
	IOLimit    int64       `json:"ioLimitBytesPerSec" mapstructure:"ioLimitBytesPerSec"`
	S3         S3Config    `json:"s3" mapstructure:"s3"`
	MinIO      MinIOConfig `json:"minio" mapstructure:"minio"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	Bucket   string `json:"bucket" mapstructure:"bucket"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
	Region   string `json:"region" mapstructure:"region"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// MinIOConfig configures the MinIO backend.
type MinIOConfig struct {
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	Prefix    string `json:"prefix" mapstructure:"prefix"`
	AccessKey string `json:"accessKey" mapstructure:"accessKey"`
	SecretKey string `json:"secretKey" mapstructure:"secretKey"`
	Secure    bool   `json:"secure" mapstructure:"secure"`
}

// ScoresConfig configures the score database. An empty path disables it.
type ScoresConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
		Inference: InferenceConfig{
			Step: 0.5,
		},
		Artifacts: ArtifactsConfig{
			Backend:    "local",
			Dir:        "artifacts",
			Prefix:     "concept",
			Codec:      "go-json+zstd",
			CacheBytes: 64 << 20,
		},
	}
}

// Load reads the configuration. With an empty path, ontoinfer.{yaml,json,toml}
// is searched in the working directory and $HOME/.ontoinfer; a missing file
// yields the defaults. Environment variables prefixed ONTOINFER_ override
// file values, e.g. ONTOINFER_INFERENCE_WORKERS=8.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ontoinfer")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ontoinfer")
	}
	v.SetEnvPrefix("ONTOINFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("ontology.categories", d.Ontology.Categories)
	v.SetDefault("inference.step", d.Inference.Step)
	v.SetDefault("inference.binary", d.Inference.Binary)
	v.SetDefault("inference.threshold", d.Inference.Threshold)
	v.SetDefault("inference.equalPriors", d.Inference.EqualPriors)
	v.SetDefault("inference.workers", d.Inference.Workers)
	v.SetDefault("inference.memoryLimitBytes", d.Inference.MemoryLimit)
	v.SetDefault("artifacts.backend", d.Artifacts.Backend)
	v.SetDefault("artifacts.dir", d.Artifacts.Dir)
	v.SetDefault("artifacts.prefix", d.Artifacts.Prefix)
	v.SetDefault("artifacts.codec", d.Artifacts.Codec)
	v.SetDefault("artifacts.cacheBytes", d.Artifacts.CacheBytes)
	v.SetDefault("artifacts.ioLimitBytesPerSec", d.Artifacts.IOLimit)
	v.SetDefault("artifacts.s3.bucket", "")
	v.SetDefault("artifacts.s3.prefix", "")
	v.SetDefault("artifacts.s3.region", "")
	v.SetDefault("artifacts.s3.endpoint", "")
	v.SetDefault("artifacts.minio.endpoint", "")
	v.SetDefault("artifacts.minio.bucket", "")
	v.SetDefault("artifacts.minio.prefix", "")
	v.SetDefault("artifacts.minio.accessKey", "")
	v.SetDefault("artifacts.minio.secretKey", "")
	v.SetDefault("artifacts.minio.secure", false)
	v.SetDefault("scores.path", d.Scores.Path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	if _, err := c.LogLevel(); err != nil {
		return &ConfigError{Field: "logging.level", Message: err.Error()}
	}
	if !(c.Inference.Step > 0) {
		return &ConfigError{Field: "inference.step", Message: "must be positive"}
	}
	if c.Inference.Binary && c.Inference.Threshold < 0 {
		return &ConfigError{Field: "inference.threshold", Message: "must not be negative"}
	}
	if c.Inference.Workers < 0 {
		return &ConfigError{Field: "inference.workers", Message: "must not be negative"}
	}
	if _, ok := codec.ByName(c.Artifacts.Codec); !ok {
		return &ConfigError{Field: "artifacts.codec", Message: fmt.Sprintf("unknown codec %q", c.Artifacts.Codec)}
	}
	switch c.Artifacts.Backend {
	case "local":
		if c.Artifacts.Dir == "" {
			return &ConfigError{Field: "artifacts.dir", Message: "required for the local backend"}
		}
	case "s3":
		if c.Artifacts.S3.Bucket == "" {
			return &ConfigError{Field: "artifacts.s3.bucket", Message: "required for the s3 backend"}
		}
	case "minio":
		if c.Artifacts.MinIO.Endpoint == "" || c.Artifacts.MinIO.Bucket == "" {
			return &ConfigError{Field: "artifacts.minio", Message: "endpoint and bucket are required"}
		}
	default:
		return &ConfigError{Field: "artifacts.backend", Message: fmt.Sprintf("unknown backend %q", c.Artifacts.Backend)}
	}
	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Logging.Level))
	return level, err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
