package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyloader/internal/blob"
	"studyloader/internal/persistence"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, persistence.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "studyloader.db", cfg.Storage.SQLitePath)
	assert.Equal(t, blob.DriverFilesystem, cfg.Staging.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.TextFile)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyloader.yaml")
	doc := `storage:
  driver: postgres
  postgres_dsn: postgres://file/db
staging:
  driver: s3
  s3:
    bucket: staging
    region: eu-west-1
log:
  level: debug
import:
  promoter_whitelist: [7015, 1]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := load(path, env(map[string]string{
		EnvPostgresDSN:   "postgres://env/db",
		EnvS3PathStyle:   "true",
		EnvS3Prefix:      "studies/",
		EnvLogFormat:     "json",
		EnvMetricsFile:   "/var/lib/node_exporter/studyloader.prom",
		EnvLogLevel:      "",
		EnvStagingDriver: "",
	}))
	require.NoError(t, err)
	assert.Equal(t, persistence.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://env/db", cfg.Storage.PostgresDSN)
	assert.Equal(t, blob.DriverS3, cfg.Staging.Driver)
	assert.Equal(t, "staging", cfg.Staging.S3.Bucket)
	assert.Equal(t, "studies/", cfg.Staging.S3.Prefix)
	assert.True(t, cfg.Staging.S3.PathStyle)
	assert.Equal(t, "debug", cfg.Log.Level, "empty env values do not override")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []int64{7015, 1}, cfg.Import.PromoterWhitelist)
	assert.Equal(t, "/var/lib/node_exporter/studyloader.prom", cfg.Metrics.TextFile)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown storage driver": {EnvStorageDriver: "oracle"},
		"unknown staging driver": {EnvStagingDriver: "ftp"},
		"bucket required":        {EnvStagingDriver: "s3"},
		"unknown log level":      {EnvLogLevel: "trace"},
		"unknown log format":     {EnvLogFormat: "xml"},
		EnvS3PathStyle:           {EnvS3PathStyle: "maybe"},
		EnvPromoterEntrez:        {EnvPromoterEntrez: "7015,x"},
	}
	for want, vars := range cases {
		_, err := load("", env(vars))
		require.Error(t, err, want)
		assert.Contains(t, err.Error(), want)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("storage:\n  engine: sqlite\n"), &cfg)
	require.Error(t, err)

	cfg = Default()
	require.NoError(t, Decode(strings.NewReader(""), &cfg))
	assert.Equal(t, persistence.DriverSQLite, cfg.Storage.Driver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config")
}

func TestParseIDListSkipsBlanks(t *testing.T) {
	ids, err := parseIDList(" 7015, ,42 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{7015, 42}, ids)
}
