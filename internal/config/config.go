// Package config provides application configuration management with support for
// command-line flags, environment variables, .env files and an optional TOML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Metadata MetadataConfig
	Server   ServerConfig
	Auth     AuthConfig
	Ingest   IngestConfig
	Images   ImagesConfig
	Taxonomy TaxonomyConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// MetadataConfig holds the data directory layout.
type MetadataConfig struct {
	// BasePath holds the database, report archive, search index, images and auth key.
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string
	PublicURL    string // Base URL used when building image asset URLs
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// AuthConfig holds bearer token configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key (32 bytes). Loaded from {metadata}/auth.key at startup.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
}

// IngestConfig holds batch ingestion policy.
type IngestConfig struct {
	// MaxBatchSize rejects larger submissions before any record is processed.
	MaxBatchSize int
	// Workers bounds concurrent record materializations. Keep it at or below
	// the store's connection limit.
	Workers int
	// ImageConcurrency bounds concurrent role uploads within one record.
	ImageConcurrency int
	// RestrictedTaxonomy is the default restriction mode when a request does not choose one.
	RestrictedTaxonomy bool
	// AllowPartialImages downgrades image storage failures to warnings.
	AllowPartialImages bool
	// SubmissionsPerMinute limits batch submissions per publisher. Zero disables the limit.
	SubmissionsPerMinute float64
}

// ImagesConfig holds image storage and download limits.
type ImagesConfig struct {
	MaxBytes        int64
	DownloadTimeout time.Duration
	DownloadRPS     float64 // Per remote host
}

// TaxonomyConfig holds canonical taxonomy seeding options.
type TaxonomyConfig struct {
	SeedFile  string // YAML file; empty uses the built-in defaults
	WatchSeed bool   // Re-import the seed file when it changes
}

// fileConfig mirrors the TOML file layout. Every value is optional.
type fileConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	DataPath  string `toml:"data_path"`
	Server    struct {
		Name         string   `toml:"name"`
		Port         string   `toml:"port"`
		PublicURL    string   `toml:"public_url"`
		ReadTimeout  string   `toml:"read_timeout"`
		WriteTimeout string   `toml:"write_timeout"`
		IdleTimeout  string   `toml:"idle_timeout"`
		CORSOrigins  []string `toml:"cors_origins"`
	} `toml:"server"`
	Auth struct {
		AccessTokenDuration string `toml:"access_token_duration"`
	} `toml:"auth"`
	Ingest struct {
		MaxBatchSize         int      `toml:"max_batch_size"`
		Workers              int      `toml:"workers"`
		ImageConcurrency     int      `toml:"image_concurrency"`
		RestrictedTaxonomy   *bool    `toml:"restricted_taxonomy"`
		AllowPartialImages   *bool    `toml:"allow_partial_images"`
		SubmissionsPerMinute *float64 `toml:"submissions_per_minute"`
	} `toml:"ingest"`
	Images struct {
		MaxBytes        int64    `toml:"max_bytes"`
		DownloadTimeout string   `toml:"download_timeout"`
		DownloadRPS     *float64 `toml:"download_rps"`
	} `toml:"images"`
	Taxonomy struct {
		SeedFile  string `toml:"seed_file"`
		WatchSeed *bool  `toml:"watch_seed"`
	} `toml:"taxonomy"`
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. TOML config file (CONFIG_FILE or --config).
// 5. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("shelfwise", flag.ContinueOnError)

	configFile := fs.String("config", "", "Path to TOML config file")
	envFile := fs.String("env-file", ".env", "Path to .env file")
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for database, reports, index and images")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	publicURL := fs.String("public-url", "", "Public base URL for image links")
	workers := fs.String("ingest-workers", "", "Concurrent record workers (default: 4)")
	maxBatch := fs.String("max-batch-size", "", "Maximum records per submission (default: 50)")
	seedFile := fs.String("taxonomy-seed", "", "YAML taxonomy seed file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Missing .env is fine; variables already set in the environment win.
	_ = godotenv.Load(*envFile)

	var file fileConfig
	if path := getConfigValue(*configFile, "CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path) //#nosec G304 -- config path is operator supplied
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", or(file.Env, "development")),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", or(file.LogLevel, "info")),
		},
		Metadata: MetadataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", file.DataPath),
		},
		Server: ServerConfig{
			Name:        getConfigValue("", "SERVER_NAME", or(file.Server.Name, "Shelfwise")),
			Port:        getConfigValue(*serverPort, "SERVER_PORT", or(file.Server.Port, "8080")),
			PublicURL:   getConfigValue(*publicURL, "PUBLIC_URL", file.Server.PublicURL),
			CORSOrigins: getListConfigValue("CORS_ORIGINS", file.Server.CORSOrigins),
		},
		Ingest: IngestConfig{
			MaxBatchSize:         getIntConfigValue(*maxBatch, "INGEST_MAX_BATCH_SIZE", orInt(file.Ingest.MaxBatchSize, 50)),
			Workers:              getIntConfigValue(*workers, "INGEST_WORKERS", orInt(file.Ingest.Workers, 4)),
			ImageConcurrency:     getIntConfigValue("", "INGEST_IMAGE_CONCURRENCY", orInt(file.Ingest.ImageConcurrency, 3)),
			RestrictedTaxonomy:   getBoolConfigValue("", "INGEST_RESTRICTED_TAXONOMY", orBool(file.Ingest.RestrictedTaxonomy, true)),
			AllowPartialImages:   getBoolConfigValue("", "INGEST_ALLOW_PARTIAL_IMAGES", orBool(file.Ingest.AllowPartialImages, false)),
			SubmissionsPerMinute: getFloatConfigValue("INGEST_SUBMISSIONS_PER_MINUTE", orFloat(file.Ingest.SubmissionsPerMinute, 10)),
		},
		Images: ImagesConfig{
			MaxBytes:    getInt64ConfigValue("IMAGES_MAX_BYTES", orInt64(file.Images.MaxBytes, 10*1024*1024)),
			DownloadRPS: getFloatConfigValue("IMAGES_DOWNLOAD_RPS", orFloat(file.Images.DownloadRPS, 2)),
		},
		Taxonomy: TaxonomyConfig{
			SeedFile:  getConfigValue(*seedFile, "TAXONOMY_SEED_FILE", file.Taxonomy.SeedFile),
			WatchSeed: getBoolConfigValue("", "TAXONOMY_WATCH_SEED", orBool(file.Taxonomy.WatchSeed, false)),
		},
	}

	durations := []struct {
		dst      *time.Duration
		envKey   string
		fileVal  string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT", file.Server.ReadTimeout, "15s"},
		// Batch submissions with remote images can take a while.
		{&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT", file.Server.WriteTimeout, "120s"},
		{&cfg.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT", file.Server.IdleTimeout, "60s"},
		{&cfg.Auth.AccessTokenDuration, "ACCESS_TOKEN_DURATION", file.Auth.AccessTokenDuration, "24h"},
		{&cfg.Images.DownloadTimeout, "IMAGES_DOWNLOAD_TIMEOUT", file.Images.DownloadTimeout, "30s"},
	}
	for _, d := range durations {
		raw := getConfigValue("", d.envKey, or(d.fileVal, d.fallback))
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Taxonomy.SeedFile != "" {
		expanded, err := expandPath(cfg.Taxonomy.SeedFile, "")
		if err != nil {
			return nil, fmt.Errorf("invalid taxonomy seed path: %w", err)
		}
		cfg.Taxonomy.SeedFile = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Metadata.BasePath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Ingest.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be positive, got %d", c.Ingest.MaxBatchSize)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest workers must be positive, got %d", c.Ingest.Workers)
	}
	if c.Ingest.ImageConcurrency < 1 {
		return fmt.Errorf("image concurrency must be positive, got %d", c.Ingest.ImageConcurrency)
	}
	if c.Images.MaxBytes < 1 {
		return fmt.Errorf("image max bytes must be positive, got %d", c.Images.MaxBytes)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ~/Shelfwise/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Shelfwise", "data")

	expanded, err := expandPath(c.Metadata.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Metadata.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getInt64ConfigValue(envKey string, defaultValue int64) int64 {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseInt(strValue, 10, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(envKey string, defaultValue float64) float64 {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getListConfigValue reads a comma-separated env var.
func getListConfigValue(envKey string, defaultValue []string) []string {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func orInt64(v, fallback int64) int64 {
	if v != 0 {
		return v
	}
	return fallback
}

func orBool(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func orFloat(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
