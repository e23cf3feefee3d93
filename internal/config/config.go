// Package config handles gateway configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all gateway configuration.
type Config struct {
	Port        string `env:"PORT" envDefault:"8090"`
	UpstreamURL string `env:"EXPENSEGW_UPSTREAM_URL" envDefault:"http://localhost:8000"`
	APIPrefix   string `env:"EXPENSEGW_API_PREFIX" envDefault:"/api/"`

	// Version names the current cache generation; bumping it stages a new
	// generation on the next install.
	Version  string `env:"EXPENSEGW_VERSION" envDefault:"v1.0.0"`
	CacheDir string `env:"EXPENSEGW_CACHE_DIR"`

	QueuePath string `env:"EXPENSEGW_QUEUE_PATH" envDefault:"expensegw-queue.db"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// GatewayURL is where the worker reports drain results.
	GatewayURL string `env:"EXPENSEGW_GATEWAY_URL" envDefault:"http://localhost:8090"`

	// NetworkTimeout bounds every live upstream call before a strategy
	// falls back to its cache.
	NetworkTimeout time.Duration `env:"EXPENSEGW_NETWORK_TIMEOUT" envDefault:"5s"`
	WatchInterval  time.Duration `env:"EXPENSEGW_WATCH_INTERVAL" envDefault:"30s"`

	// SyncEvery is the cron spec for the scheduled background drain.
	SyncEvery string `env:"EXPENSEGW_SYNC_EVERY" envDefault:"@every 15m"`

	// ServiceToken authorizes install-time warm-up of API manifest URLs.
	ServiceToken string `env:"EXPENSEGW_SERVICE_TOKEN"`

	RatesURL string `env:"EXPENSEGW_RATES_URL" envDefault:"https://open.er-api.com/v6"`

	// Precache is the install manifest: app shell, offline page, key
	// routes, and API warm-up URLs.
	Precache []string `env:"EXPENSEGW_PRECACHE" envSeparator:"," envDefault:"/,/offline.html,/manifest.json,/dashboard,/expenses,/reports,/api/expenses/categories/,/api/auth/profile/"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
