package main

import (
	"fmt"
	"os"

	"github.com/tphakala/voxgraph/internal/logging"
	"github.com/tphakala/voxgraph/internal/telemetry"
)

// initLogging brings up the ambient structured/human-readable loggers
// and, when VOXGRAPH_SENTRY_DSN is set, the optional last-error telemetry
// reporting hook -- both ambient concerns carried regardless of which
// pipeline feature the invoked subcommand exercises.
func initLogging() {
	logging.Init()

	dsn := os.Getenv("VOXGRAPH_SENTRY_DSN")
	_, err := telemetry.Init(telemetry.Config{
		DSN:         dsn,
		Enabled:     dsn != "",
		Environment: envOr("VOXGRAPH_ENVIRONMENT", "production"),
		Release:     "voxgraph@" + version,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "telemetry: "+err.Error())
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
