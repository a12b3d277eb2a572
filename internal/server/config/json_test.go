package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":                    "www.example:9000",
		"store_backend":                "postgres",
		"database_dsn":                 "postgres://db",
		"secret_key":                   "my_secret_key",
		"token_validity_duration":      "2h",
		"s3_bucket":                    "bucket",
		"avatar_url_validity_duration": 60000000000,
		"short_link_hosts":             []string{"s.io"},
		"link_timeout":                 "3s",
		"link_rate_limit":              2.5,
		"details_cache_size":           16,
		"places_api_key":               "key",
		"metrics_enabled":              false,
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, StorePostgres, cfg.StoreBackend)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 2*time.Hour, cfg.TokenValidityDuration)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, time.Minute, cfg.AvatarURLValidityDuration)
		assert.Equal(t, []string{"s.io"}, cfg.ShortLinkHosts)
		assert.Equal(t, 3*time.Second, cfg.LinkTimeout)
		assert.Equal(t, 2.5, cfg.LinkRateLimit)
		assert.Equal(t, 16, cfg.DetailsCacheSize)
		assert.Equal(t, "key", cfg.PlacesAPIKey)
		assert.False(t, cfg.MetricsEnabled)
	})

	t.Run("missing keys keep previous values", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "admin", cfg.S3RootUser)
		assert.Equal(t, "nose", cfg.AppScheme)
		assert.Equal(t, 10, cfg.LinkBurst)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", SecretKey: "key", LinkTimeout: time.Second}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, time.Second, cfg.LinkTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}

func TestLoadFile(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{"app_scheme": "demo", "link_burst": 3})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, LoadFile(path, cfg))
	assert.Equal(t, "demo", cfg.AppScheme)
	assert.Equal(t, 3, cfg.LinkBurst)
	assert.Equal(t, ":8080", cfg.HTTPAddr)

	require.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.json"), cfg))
}
