// Package config loads application configuration and bootstraps logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Temporal TemporalConfig `yaml:"temporal" mapstructure:"temporal"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Cleanup  CleanupConfig  `yaml:"cleanup" mapstructure:"cleanup"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the relational store.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// StorageConfig configures the S3-compatible blob store holding uploads.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Region    string `yaml:"region" mapstructure:"region"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// ExtractConfig configures document text extraction.
type ExtractConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// ScoringConfig configures the AI scoring engine.
type ScoringConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	PromptVersion     string `yaml:"prompt_version" mapstructure:"prompt_version"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// TemporalConfig configures the task broker connection.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// DispatchConfig configures queue routing, retries, and time limits for
// the three work-unit types.
type DispatchConfig struct {
	RetryAttempts         int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelaySecs        int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	SoftTimeLimitSecs     int    `yaml:"soft_time_limit_secs" mapstructure:"soft_time_limit_secs"`
	HardTimeLimitSecs     int    `yaml:"hard_time_limit_secs" mapstructure:"hard_time_limit_secs"`
	ExtractionConcurrency int    `yaml:"extraction_concurrency" mapstructure:"extraction_concurrency"`
	ScanConcurrency       int    `yaml:"scan_concurrency" mapstructure:"scan_concurrency"`
	CleanupCron           string `yaml:"cleanup_cron" mapstructure:"cleanup_cron"`
}

// CleanupConfig configures the periodic scan cleanup task. A retention of
// zero disables deletion; the task then only logs.
type CleanupConfig struct {
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// ServerConfig configures the intake HTTP server.
type ServerConfig struct {
	Port        int `yaml:"port" mapstructure:"port"`
	MaxUploadMB int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPLIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "evidence")
	v.SetDefault("extract.provider", "local")
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("extract.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("scoring.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("scoring.max_tokens", 4096)
	v.SetDefault("scoring.prompt_version", "v1.0")
	v.SetDefault("scoring.requests_per_minute", 30)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("dispatch.retry_attempts", 3)
	v.SetDefault("dispatch.retry_delay_secs", 60)
	v.SetDefault("dispatch.soft_time_limit_secs", 300)
	v.SetDefault("dispatch.hard_time_limit_secs", 600)
	v.SetDefault("dispatch.extraction_concurrency", 8)
	v.SetDefault("dispatch.scan_concurrency", 1)
	v.SetDefault("dispatch.cleanup_cron", "0 3 * * *")
	v.SetDefault("cleanup.retention_days", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
