package config

import (
	"flag"
	"os"
	"time"

	"github.com/parlaysocial/feedcore/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the feed API
//	-d string   path to the local database file
//	-t int      request timeout in seconds
//
// Arguments are filtered to just these flags so other components can define
// their own without interference.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the feed API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	timeoutSec := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (seconds)")

	if err := fs.Parse(args); err != nil {
		return
	}

	cfg.RequestTimeout = time.Duration(*timeoutSec) * time.Second
}
