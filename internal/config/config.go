// Package config loads importer settings from an optional YAML file and
// STUDYLOADER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"studyloader/internal/blob"
	"studyloader/internal/persistence"
)

// Environment variables consulted by Load. They take precedence over the file.
const (
	EnvStorageDriver   = "STUDYLOADER_STORAGE_DRIVER"
	EnvSQLitePath      = "STUDYLOADER_SQLITE_PATH"
	EnvPostgresDSN     = "STUDYLOADER_POSTGRES_DSN"
	EnvStagingDriver   = "STUDYLOADER_STAGING_DRIVER"
	EnvS3Bucket        = "STUDYLOADER_STAGING_S3_BUCKET"
	EnvS3Region        = "STUDYLOADER_STAGING_S3_REGION"
	EnvS3Endpoint      = "STUDYLOADER_STAGING_S3_ENDPOINT"
	EnvS3PathStyle     = "STUDYLOADER_STAGING_S3_PATH_STYLE"
	EnvS3Prefix        = "STUDYLOADER_STAGING_S3_PREFIX"
	EnvMetricsFile     = "STUDYLOADER_METRICS_FILE"
	EnvLogLevel        = "STUDYLOADER_LOG_LEVEL"
	EnvLogFormat       = "STUDYLOADER_LOG_FORMAT"
	EnvGeneFile        = "STUDYLOADER_GENE_FILE"
	EnvPromoterEntrez  = "STUDYLOADER_PROMOTER_WHITELIST"
	defaultSQLitePath  = "studyloader.db"
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
	defaultStoreDriver = persistence.DriverSQLite
)

// Config is the root configuration document.
type Config struct {
	Storage persistence.Config `yaml:"storage"`
	Staging blob.Config        `yaml:"staging"`
	Log     Log                `yaml:"log"`
	Metrics Metrics            `yaml:"metrics"`
	Import  Import             `yaml:"import"`
}

// Log configures the CLI logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the optional prometheus textfile export.
type Metrics struct {
	TextFile string `yaml:"textfile"`
}

// Import holds knobs for the importer itself.
type Import struct {
	// GeneFile seeds the gene catalog when the store holds no genes.
	GeneFile string `yaml:"gene_file"`
	// PromoterWhitelist lists entrez ids whose 5'Flank calls are kept as promoter mutations.
	PromoterWhitelist []int64 `yaml:"promoter_whitelist"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage: persistence.Config{Driver: defaultStoreDriver, SQLitePath: defaultSQLitePath},
		Staging: blob.Config{Driver: blob.DriverFilesystem},
		Log:     Log{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := Decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Decode reads a YAML document into cfg, rejecting unknown fields.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup(EnvStorageDriver); ok && v != "" {
		cfg.Storage.Driver = persistence.Driver(v)
	}
	str(EnvSQLitePath, &cfg.Storage.SQLitePath)
	str(EnvPostgresDSN, &cfg.Storage.PostgresDSN)
	if v, ok := lookup(EnvStagingDriver); ok && v != "" {
		cfg.Staging.Driver = blob.Driver(v)
	}
	str(EnvS3Bucket, &cfg.Staging.S3.Bucket)
	str(EnvS3Region, &cfg.Staging.S3.Region)
	str(EnvS3Endpoint, &cfg.Staging.S3.Endpoint)
	str(EnvS3Prefix, &cfg.Staging.S3.Prefix)
	if v, ok := lookup(EnvS3PathStyle); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvS3PathStyle, err)
		}
		cfg.Staging.S3.PathStyle = b
	}
	str(EnvMetricsFile, &cfg.Metrics.TextFile)
	str(EnvLogLevel, &cfg.Log.Level)
	str(EnvLogFormat, &cfg.Log.Format)
	str(EnvGeneFile, &cfg.Import.GeneFile)
	if v, ok := lookup(EnvPromoterEntrez); ok && v != "" {
		ids, err := parseIDList(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPromoterEntrez, err)
		}
		cfg.Import.PromoterWhitelist = ids
	}
	return nil
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case persistence.DriverMemory, persistence.DriverSQLite, persistence.DriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Staging.Driver {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("unknown staging driver %q", c.Staging.Driver)
	}
	if c.Staging.Driver == blob.DriverS3 && c.Staging.S3.Bucket == "" {
		return fmt.Errorf("staging s3 bucket required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
