package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parlaysocial/feedcore/internal/common"
)

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	require.Equal(t, "http://127.0.0.1:8080", cfg.APIBaseURL)
	require.Equal(t, "feedcore.db", cfg.DatabasePath)
	require.Equal(t, common.DefaultRequestTimeout, cfg.RequestTimeout)
	require.Equal(t, common.DefaultDebounceWindow, cfg.DebounceWindow)
	require.Equal(t, common.DefaultRefreshCooldown, cfg.RefreshCooldown)
	require.Equal(t, common.DefaultSnapshotMaxAge, cfg.SnapshotMaxAge)
	require.Equal(t, uint64(2), cfg.ReadRetryAttempts)
}

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("FEEDCORE_API_BASE_URL", "https://api.parlaysocial.dev")
	t.Setenv("FEEDCORE_DEBOUNCE_WINDOW", "250ms")
	t.Setenv("FEEDCORE_READ_RETRIES", "5")

	var cfg Config
	cfg.LoadDefaults()
	parseEnv(&cfg)

	require.Equal(t, "https://api.parlaysocial.dev", cfg.APIBaseURL)
	require.Equal(t, 250*time.Millisecond, cfg.DebounceWindow)
	require.Equal(t, uint64(5), cfg.ReadRetryAttempts)

	// Untouched fields keep their defaults.
	require.Equal(t, "feedcore.db", cfg.DatabasePath)
	require.Equal(t, common.DefaultRequestTimeout, cfg.RequestTimeout)
}

func TestParseEnv_MalformedDurationIgnored(t *testing.T) {
	t.Setenv("FEEDCORE_REQUEST_TIMEOUT", "not-a-duration")

	var cfg Config
	cfg.LoadDefaults()
	parseEnv(&cfg)

	require.Equal(t, common.DefaultRequestTimeout, cfg.RequestTimeout)
}
