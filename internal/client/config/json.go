package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/parlaysocial/feedcore/internal/flagx"
	"github.com/parlaysocial/feedcore/internal/timex"
)

// jsonConfig is a DTO for JSON unmarshalling. timex.Duration lets files
// specify intervals as "500ms"/"5m" strings or integer nanoseconds.
type jsonConfig struct {
	APIBaseURL        *string         `json:"api_base_url"`
	DatabasePath      *string         `json:"db_path"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	DebounceWindow    *timex.Duration `json:"debounce_window"`
	RefreshCooldown   *timex.Duration `json:"refresh_cooldown"`
	SnapshotMaxAge    *timex.Duration `json:"snapshot_max_age"`
	ReadRetryAttempts *uint64         `json:"read_retries"`
}

// parseJSON overlays values from the file named by -c/-config, when given.
// A missing or malformed file is ignored; flags can still complete the config.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return
	}

	if jc.APIBaseURL != nil {
		cfg.APIBaseURL = *jc.APIBaseURL
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DebounceWindow != nil {
		cfg.DebounceWindow = jc.DebounceWindow.Duration
	}
	if jc.RefreshCooldown != nil {
		cfg.RefreshCooldown = jc.RefreshCooldown.Duration
	}
	if jc.SnapshotMaxAge != nil {
		cfg.SnapshotMaxAge = jc.SnapshotMaxAge.Duration
	}
	if jc.ReadRetryAttempts != nil {
		cfg.ReadRetryAttempts = *jc.ReadRetryAttempts
	}
}

// setDuration parses s into dst when s is a valid duration string.
func setDuration(dst *time.Duration, s *string) {
	if s == nil {
		return
	}
	if d, err := time.ParseDuration(*s); err == nil {
		*dst = d
	}
}
