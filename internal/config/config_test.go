package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Source.BaseURL)
	assert.Equal(t, "/explore-wa-parks", cfg.Source.ListingPath)
	assert.Equal(t, 16, cfg.Source.ListingPages)
	assert.Equal(t, "a.link--image", cfg.Source.Selectors.ListingLink)
	assert.Equal(t, `script[data-drupal-selector="drupal-settings-json"]`, cfg.Source.Selectors.SettingsScript)
	assert.Equal(t, DefaultLayerName, cfg.Layer.ExpectedName)
	assert.Equal(t, "first", cfg.Layer.Fallback)
	assert.Equal(t, "./html", cfg.Cache.Dir)
	assert.Equal(t, "hashed", cfg.Cache.KeyMode)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 1, cfg.Fetch.MaxAttempts)
	assert.InDelta(t, 2.0, cfg.Fetch.RatePerSec, 0.001)
	assert.Equal(t, "national_parks.json", cfg.Output.Path)
	assert.Equal(t, "National Parks", cfg.Output.Style.LayerName)
	assert.Equal(t, "md/MdOutlinePark", cfg.Output.Style.Icon)
	assert.Equal(t, "green", cfg.Output.Style.Color)
	assert.InDelta(t, 0.005, cfg.Simplify.Tolerance, 1e-9)
	assert.Equal(t, "national_parks_simplified.json", cfg.Simplify.Output)
	assert.Equal(t, []string{"name", "title"}, cfg.Simplify.NameKeys)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  listing_pages: 3
cache:
  dir: /tmp/parks
  key_mode: segment
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Source.ListingPages)
	assert.Equal(t, "/tmp/parks", cfg.Cache.Dir)
	assert.Equal(t, "segment", cfg.Cache.KeyMode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, DefaultListingPath, cfg.Source.ListingPath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
layer:
  fallback: none
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("PARKMAP_LAYER_FALLBACK", "first")
	t.Setenv("PARKMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "first", cfg.Layer.Fallback)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PARKMAP_SIMPLIFY_TOLERANCE", "0.01")
	t.Setenv("PARKMAP_STORE_PATH", "runs.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.01, cfg.Simplify.Tolerance, 1e-9)
	assert.Equal(t, "runs.db", cfg.Store.Path)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("source: [unterminated"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Source.BaseURL = DefaultBaseURL
	cfg.Source.ListingPages = DefaultListingPages
	cfg.Cache.KeyMode = "hashed"
	cfg.Layer.Fallback = "first"
	cfg.Simplify.Tolerance = 0.005
	cfg.Fetch.RatePerSec = 2
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero tolerance", func(c *Config) { c.Simplify.Tolerance = 0 }, ""},
		{"relative base url", func(c *Config) { c.Source.BaseURL = "/parks" }, "source.base_url"},
		{"no pages", func(c *Config) { c.Source.ListingPages = 0 }, "listing_pages must be >= 1"},
		{"bad key mode", func(c *Config) { c.Cache.KeyMode = "md5" }, "cache.key_mode"},
		{"bad fallback", func(c *Config) { c.Layer.Fallback = "last" }, "layer.fallback"},
		{"negative tolerance", func(c *Config) { c.Simplify.Tolerance = -1 }, "simplify.tolerance"},
		{"zero rate", func(c *Config) { c.Fetch.RatePerSec = 0 }, "rate_per_sec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
