// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DBConfig controls access to the relational store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ScraperConfig governs the two-phase scrape pipeline.
type ScraperConfig struct {
	SitemapURL string `mapstructure:"sitemap_url"`
	ContentURL string `mapstructure:"content_url"`
	UserAgent  string `mapstructure:"user_agent"`

	// StartYear is the earliest indexing window start.
	StartYear int `mapstructure:"start_year"`

	// RequestDelay is the minimum interval between content requests,
	// in seconds (fractions allowed).
	RequestDelay float64 `mapstructure:"request_delay"`

	// SitemapDelayMs spaces out sitemap window requests.
	SitemapDelayMs int `mapstructure:"sitemap_delay_ms"`

	BatchSize      int  `mapstructure:"batch_size"`
	MaxIterations  int  `mapstructure:"max_iterations"`
	StoreXML       bool `mapstructure:"store_xml"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// StorageConfig holds the object-store connection settings.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// ServerConfig controls the optional status/metrics HTTP listener.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindOperationalEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)

	v.SetDefault("scraper.sitemap_url", "https://uitspraken.rechtspraak.nl/sitemap/UrlSet")
	v.SetDefault("scraper.content_url", "https://data.rechtspraak.nl/uitspraken/content")
	v.SetDefault("scraper.user_agent",
		"OpenDataCollection.com bot - Data zonder drempels (https://opendatacollection.com)")
	v.SetDefault("scraper.start_year", 2000)
	v.SetDefault("scraper.request_delay", 1.0)
	v.SetDefault("scraper.sitemap_delay_ms", 500)
	v.SetDefault("scraper.batch_size", 100)
	v.SetDefault("scraper.max_iterations", 1000)
	v.SetDefault("scraper.store_xml", true)
	v.SetDefault("scraper.timeout_seconds", 30)

	v.SetDefault("storage.endpoint", "localhost:9002")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "minioadmin")
	v.SetDefault("storage.bucket", "raw-data")
	v.SetDefault("storage.secure", false)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", false)
}

// bindOperationalEnv keeps the short environment names used by existing
// deployments working alongside the SCRAPER_-prefixed forms.
func bindOperationalEnv(v *viper.Viper) {
	aliases := map[string]string{
		"db.dsn":                "DATABASE_DSN",
		"scraper.start_year":    "START_YEAR",
		"scraper.request_delay": "REQUEST_DELAY",
		"scraper.batch_size":    "BATCH_SIZE",
		"scraper.store_xml":     "STORE_XML",
		"storage.endpoint":      "MINIO_ENDPOINT",
		"storage.access_key":    "MINIO_ACCESS_KEY",
		"storage.secret_key":    "MINIO_SECRET_KEY",
		"storage.bucket":        "MINIO_BUCKET",
		"storage.secure":        "MINIO_SECURE",
	}
	for key, env := range aliases {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key, env)
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Scraper.StartYear < 1900 {
		return fmt.Errorf("scraper.start_year must be >= 1900")
	}
	if c.Scraper.RequestDelay < 0 {
		return fmt.Errorf("scraper.request_delay must be >= 0")
	}
	if c.Scraper.BatchSize <= 0 {
		return fmt.Errorf("scraper.batch_size must be > 0")
	}
	if c.Scraper.MaxIterations <= 0 {
		return fmt.Errorf("scraper.max_iterations must be > 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.SitemapURL == "" || c.Scraper.ContentURL == "" {
		return fmt.Errorf("scraper.sitemap_url and scraper.content_url must be set")
	}
	if c.Scraper.StoreXML && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket must be set when scraper.store_xml is enabled")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// RequestInterval converts the configured delay into a duration.
func (c Config) RequestInterval() time.Duration {
	return time.Duration(c.Scraper.RequestDelay * float64(time.Second))
}

// SitemapInterval is the pause between sitemap window requests.
func (c Config) SitemapInterval() time.Duration {
	return time.Duration(c.Scraper.SitemapDelayMs) * time.Millisecond
}

// HTTPTimeout is the per-request timeout for outbound calls.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}
