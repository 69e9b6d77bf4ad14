package config

import (
	"github.com/caarlos0/env/v11"
)

// envConfig is a DTO for environment parsing. Pointer fields distinguish
// "unset" from zero values so the overlay only touches what's present.
type envConfig struct {
	APIBaseURL        *string `env:"FEEDCORE_API_BASE_URL"`
	DatabasePath      *string `env:"FEEDCORE_DB_PATH"`
	RequestTimeout    *string `env:"FEEDCORE_REQUEST_TIMEOUT"`
	DebounceWindow    *string `env:"FEEDCORE_DEBOUNCE_WINDOW"`
	RefreshCooldown   *string `env:"FEEDCORE_REFRESH_COOLDOWN"`
	SnapshotMaxAge    *string `env:"FEEDCORE_SNAPSHOT_MAX_AGE"`
	ReadRetryAttempts *uint64 `env:"FEEDCORE_READ_RETRIES"`
}

// parseEnv overlays values from the process environment. Malformed values
// are ignored rather than fatal; config should never crash the client.
func parseEnv(cfg *Config) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return
	}
	if ec.APIBaseURL != nil {
		cfg.APIBaseURL = *ec.APIBaseURL
	}
	if ec.DatabasePath != nil {
		cfg.DatabasePath = *ec.DatabasePath
	}
	setDuration(&cfg.RequestTimeout, ec.RequestTimeout)
	setDuration(&cfg.DebounceWindow, ec.DebounceWindow)
	setDuration(&cfg.RefreshCooldown, ec.RefreshCooldown)
	setDuration(&cfg.SnapshotMaxAge, ec.SnapshotMaxAge)
	if ec.ReadRetryAttempts != nil {
		cfg.ReadRetryAttempts = *ec.ReadRetryAttempts
	}
}
