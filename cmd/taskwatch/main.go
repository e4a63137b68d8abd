// Package main is the entry point for the taskwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oscarh/taskwatch/internal/config"
	"github.com/oscarh/taskwatch/internal/logging"
)

// Version is set at build time.
var Version = "dev"

func main() {
	// Initialize logging from config
	initLogging()

	rootCmd := &cobra.Command{
		Use:   "taskwatch",
		Short: "Watch tasks for changes and deliver signed webhooks",
		Long: `Taskwatch polls an upstream task service on a four-tier schedule
(today, current week, past weeks, future weeks), diffs each poll against
per-subscriber snapshots in Redis, and delivers HMAC-signed webhook events
for the changes it finds.`,
	}

	// Add subcommands
	rootCmd.AddCommand(
		newWatchCmd(),
		newOnceCmd(),
		newSubscribersCmd(),
		newTestWebhookCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging initializes the logger from config.
func initLogging() {
	cfg, err := config.Get()
	if err != nil {
		// If config fails, use defaults (console output)
		_ = logging.Init(nil)
		return
	}

	lc := logging.LoggingConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		JSON:       cfg.Logging.JSON,
		Console:    cfg.Logging.Console,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}

	if err := logging.InitFromLogConfig(lc); err != nil {
		// Fall back to defaults on error
		_ = logging.Init(nil)
	}
}
