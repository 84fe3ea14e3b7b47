package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "STOREADMIN_"

// EnvConfig mirrors Config for environment parsing. It is seeded from the
// current Config, so unset or empty variables keep the earlier value.
type EnvConfig struct {
	APIBaseURL         string        `env:"API_BASE_URL"`
	StoragePath        string        `env:"STORAGE_PATH"`
	LogoutPollInterval time.Duration `env:"LOGOUT_POLL_INTERVAL"`
	RequestsPerSecond  float64       `env:"REQUESTS_PER_SECOND"`
	PageSize           int           `env:"PAGE_SIZE"`
	LogLevel           string        `env:"LOG_LEVEL"`
}

// parseEnv overlays Config with STOREADMIN_* variables. Malformed values
// panic.
func parseEnv(cfg *Config) {
	ec := EnvConfig(*cfg)
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: envPrefix}); err != nil {
		panic(err)
	}
	*cfg = Config(ec)
}
