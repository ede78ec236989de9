package config

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Layer    LayerConfig    `yaml:"layer" mapstructure:"layer"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Simplify SimplifyConfig `yaml:"simplify" mapstructure:"simplify"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourceConfig describes the parks website and the page regions to read.
type SourceConfig struct {
	BaseURL      string          `yaml:"base_url" mapstructure:"base_url"`
	ListingPath  string          `yaml:"listing_path" mapstructure:"listing_path"`
	ListingPages int             `yaml:"listing_pages" mapstructure:"listing_pages"`
	Selectors    SelectorsConfig `yaml:"selectors" mapstructure:"selectors"`
}

// SelectorsConfig holds the CSS selectors used against park and listing pages.
type SelectorsConfig struct {
	ListingLink    string `yaml:"listing_link" mapstructure:"listing_link"`
	SettingsScript string `yaml:"settings_script" mapstructure:"settings_script"`
	Description    string `yaml:"description" mapstructure:"description"`
	Gallery        string `yaml:"gallery" mapstructure:"gallery"`
}

// LayerConfig selects the Leaflet layer holding park geometries.
type LayerConfig struct {
	ExpectedName string `yaml:"expected_name" mapstructure:"expected_name"`
	// Fallback is "first" (use the first layer in source order) or "none".
	Fallback string `yaml:"fallback" mapstructure:"fallback"`
}

// CacheConfig configures the on-disk page cache.
type CacheConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	KeyMode string `yaml:"key_mode" mapstructure:"key_mode"`
}

// FetchConfig configures HTTP behaviour.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// OutputConfig configures the harvest output document.
type OutputConfig struct {
	Path  string      `yaml:"path" mapstructure:"path"`
	Style StyleConfig `yaml:"style" mapstructure:"style"`
}

// StyleConfig is the display style written into the collection properties.
type StyleConfig struct {
	LayerName string `yaml:"layer_name" mapstructure:"layer_name"`
	Icon      string `yaml:"icon" mapstructure:"icon"`
	Color     string `yaml:"color" mapstructure:"color"`
}

// SimplifyConfig configures the geometry simplifier.
type SimplifyConfig struct {
	Tolerance float64  `yaml:"tolerance" mapstructure:"tolerance"`
	Output    string   `yaml:"output" mapstructure:"output"`
	NameKeys  []string `yaml:"name_keys" mapstructure:"name_keys"`
}

// StoreConfig configures the optional SQLite run ledger. An empty path
// disables it.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Defaults for the parks website.
const (
	DefaultBaseURL      = "https://exploreparks.dbca.wa.gov.au"
	DefaultListingPath  = "/explore-wa-parks"
	DefaultListingPages = 16
	DefaultLayerName    = "leaflet-map-view-places-places-parks-sites-campgrounds-map"
)

// Load reads configuration from config.yaml (optional), PARKMAP_* environment
// variables, and built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", DefaultBaseURL)
	v.SetDefault("source.listing_path", DefaultListingPath)
	v.SetDefault("source.listing_pages", DefaultListingPages)
	v.SetDefault("source.selectors.listing_link", "a.link--image")
	v.SetDefault("source.selectors.settings_script", `script[data-drupal-selector="drupal-settings-json"]`)
	v.SetDefault("source.selectors.description", "div.block.block-layout-builder.block-field-blocknodeplacebody")
	v.SetDefault("source.selectors.gallery", "div.block.block-layout-builder.block-field-blocknodeplacefield-gallery")
	v.SetDefault("layer.expected_name", DefaultLayerName)
	v.SetDefault("layer.fallback", "first")
	v.SetDefault("cache.dir", "./html")
	v.SetDefault("cache.key_mode", "hashed")
	v.SetDefault("fetch.user_agent", "parkmap/1.0 (+https://github.com/sells-group/parkmap)")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 1)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("output.path", "national_parks.json")
	v.SetDefault("output.style.layer_name", "National Parks")
	v.SetDefault("output.style.icon", "md/MdOutlinePark")
	v.SetDefault("output.style.color", "green")
	v.SetDefault("simplify.tolerance", 0.005)
	v.SetDefault("simplify.output", "national_parks_simplified.json")
	v.SetDefault("simplify.name_keys", []string{"name", "title"})
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return eris.Errorf("config: source.base_url %q must be an absolute URL", c.Source.BaseURL)
	}
	if c.Source.ListingPages < 1 {
		return eris.Errorf("config: source.listing_pages must be >= 1, got %d", c.Source.ListingPages)
	}
	switch strings.ToLower(c.Cache.KeyMode) {
	case "hashed", "segment", "":
	default:
		return eris.Errorf("config: cache.key_mode %q must be hashed or segment", c.Cache.KeyMode)
	}
	switch strings.ToLower(c.Layer.Fallback) {
	case "first", "none":
	default:
		return eris.Errorf("config: layer.fallback %q must be first or none", c.Layer.Fallback)
	}
	if c.Simplify.Tolerance < 0 {
		return eris.Errorf("config: simplify.tolerance must be >= 0, got %g", c.Simplify.Tolerance)
	}
	if c.Fetch.RatePerSec <= 0 {
		return eris.Errorf("config: fetch.rate_per_sec must be > 0, got %g", c.Fetch.RatePerSec)
	}
	return nil
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
