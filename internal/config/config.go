// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs the sweep and the fetch policy.
type CrawlerConfig struct {
	BaseURL          string  `mapstructure:"base_url"`
	PagesPerCategory int     `mapstructure:"pages_per_category"`
	Concurrency      int     `mapstructure:"concurrency"`
	Attempts         int     `mapstructure:"attempts"`
	JitterMinMs      int     `mapstructure:"jitter_min_ms"`
	JitterMaxMs      int     `mapstructure:"jitter_max_ms"`
	BackoffMinMs     int     `mapstructure:"backoff_min_ms"`
	BackoffMaxMs     int     `mapstructure:"backoff_max_ms"`
	RPS              float64 `mapstructure:"rps"`
	UserAgent        string  `mapstructure:"user_agent"`
}

// HTTPConfig configures request and session timeouts.
type HTTPConfig struct {
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	SessionTimeoutSeconds int `mapstructure:"session_timeout_seconds"`
}

// DBConfig controls access to the relational store.
type DBConfig struct {
	DSN                 string `mapstructure:"dsn"`
	Table               string `mapstructure:"table"`
	MinConns            int    `mapstructure:"min_conns"`
	MaxConns            int    `mapstructure:"max_conns"`
	ConnLifetimeSeconds int    `mapstructure:"conn_lifetime_seconds"`
}

// ArchiveConfig controls the optional raw payload archive; an empty Dir
// disables it.
type ArchiveConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxPageBytes int64  `mapstructure:"max_page_bytes"`
}

// MetricsConfig controls the optional metrics endpoint; port 0 disables it.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NCSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
	v.SetDefault("crawler.base_url", "https://www.ncss.cn/student/jobs")
	v.SetDefault("crawler.pages_per_category", 10)
	v.SetDefault("crawler.concurrency", 10)
	v.SetDefault("crawler.attempts", 3)
	v.SetDefault("crawler.jitter_min_ms", 500)
	v.SetDefault("crawler.jitter_max_ms", 1500)
	v.SetDefault("crawler.backoff_min_ms", 1000)
	v.SetDefault("crawler.backoff_max_ms", 3000)
	v.SetDefault("crawler.rps", 0)
	v.SetDefault("crawler.user_agent", "ncss-crawler/1.0 (+https://github.com/jobsift/ncss-crawler)")
	v.SetDefault("http.request_timeout_seconds", 10)
	v.SetDefault("http.session_timeout_seconds", 30)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "jobs_info")
	v.SetDefault("db.min_conns", 5)
	v.SetDefault("db.max_conns", 20)
	v.SetDefault("db.conn_lifetime_seconds", 3600)
	v.SetDefault("archive.dir", "")
	v.SetDefault("archive.max_page_bytes", 5*1024*1024)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if c.Crawler.PagesPerCategory <= 0 {
		return fmt.Errorf("crawler.pages_per_category must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.Attempts <= 0 {
		return fmt.Errorf("crawler.attempts must be > 0")
	}
	if c.Crawler.JitterMinMs > c.Crawler.JitterMaxMs {
		return fmt.Errorf("crawler.jitter_min_ms must be <= crawler.jitter_max_ms")
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("http.request_timeout_seconds must be > 0")
	}
	if c.HTTP.SessionTimeoutSeconds < c.HTTP.RequestTimeoutSeconds {
		return fmt.Errorf("http.session_timeout_seconds must be >= http.request_timeout_seconds")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	return nil
}

// RequestTimeout returns the per-attempt deadline as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}

// SessionTimeout returns the per-exchange cap as a duration.
func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.HTTP.SessionTimeoutSeconds) * time.Second
}

// ConnLifetime returns the pool connection recycle interval.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.ConnLifetimeSeconds) * time.Second
}

// JitterWindow returns the politeness delay bounds.
func (c Config) JitterWindow() (time.Duration, time.Duration) {
	return time.Duration(c.Crawler.JitterMinMs) * time.Millisecond,
		time.Duration(c.Crawler.JitterMaxMs) * time.Millisecond
}

// BackoffWindow returns the 429 backoff bounds.
func (c Config) BackoffWindow() (time.Duration, time.Duration) {
	return time.Duration(c.Crawler.BackoffMinMs) * time.Millisecond,
		time.Duration(c.Crawler.BackoffMaxMs) * time.Millisecond
}
