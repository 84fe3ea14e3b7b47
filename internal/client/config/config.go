package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the storeadmin CLI.
//
// Fields:
//   - APIBaseURL: root of the store REST API.
//   - StoragePath: SQLite file holding the session slots; empty runs without
//     persistent storage.
//   - LogoutPollInterval: how often the cross-process logout signal is polled
//     in addition to file notifications.
//   - RequestsPerSecond: client-side API rate limit; 0 disables it.
//   - PageSize: products per page.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	APIBaseURL         string
	StoragePath        string
	LogoutPollInterval time.Duration
	RequestsPerSecond  float64
	PageSize           int
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://api.escuelajs.co/api/v1"
	c.StoragePath = defaultStoragePath()
	c.LogoutPollInterval = 2 * time.Second
	c.RequestsPerSecond = 5
	c.PageSize = 8
	c.LogLevel = "warn"
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "storeadmin.db"
	}
	return filepath.Join(dir, "storeadmin", "storeadmin.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
