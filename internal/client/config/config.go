// Package config holds runtime settings for the feed client. Sources are
// layered: defaults, then environment, then a JSON file, then command-line
// flags — later sources win.
package config

import (
	"time"

	"github.com/parlaysocial/feedcore/internal/common"
)

// Config is the resolved runtime configuration.
type Config struct {
	// APIBaseURL is the root of the feed API, e.g. "https://api.example.com".
	APIBaseURL string

	// DatabasePath is the local SQLite file backing credentials and snapshots.
	DatabasePath string

	// RequestTimeout applies to each authoritative request.
	RequestTimeout time.Duration

	// DebounceWindow collapses rapid repeated actions on one target.
	DebounceWindow time.Duration

	// RefreshCooldown coalesces unforced refresh-all calls.
	RefreshCooldown time.Duration

	// SnapshotMaxAge is the freshness threshold for persisted snapshots.
	SnapshotMaxAge time.Duration

	// ReadRetryAttempts bounds automatic retries of transient read failures.
	ReadRetryAttempts uint64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "feedcore.db"
	c.RequestTimeout = common.DefaultRequestTimeout
	c.DebounceWindow = common.DefaultDebounceWindow
	c.RefreshCooldown = common.DefaultRefreshCooldown
	c.SnapshotMaxAge = common.DefaultSnapshotMaxAge
	c.ReadRetryAttempts = 2
}

// LoadConfig resolves the configuration from all sources in precedence order.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
