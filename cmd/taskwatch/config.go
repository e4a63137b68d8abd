package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oscarh/taskwatch/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Manage taskwatch configuration files.`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  `Display the current configuration values from all sources.`,
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create example configuration file",
		Long: `Create an example configuration file at ~/.config/taskwatch/config.yaml.

The generated file contains all available options with their default values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Long:  `Display the paths where configuration files are searched.`,
		RunE:  runConfigPath,
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Current configuration:")
	fmt.Println()
	fmt.Printf("  redis_url:     %s\n", cfg.RedisURL)
	fmt.Println()
	fmt.Println("  Task API:")
	fmt.Printf("    base_url: %s\n", valueOrDefault(cfg.TaskAPI.BaseURL, "(not set)"))
	fmt.Printf("    token:    %s\n", maskSecret(cfg.TaskAPI.Token))
	fmt.Println()
	fmt.Println("  Webhook:")
	fmt.Printf("    enabled:           %t\n", cfg.Webhook.Enabled)
	fmt.Printf("    url:               %s\n", valueOrDefault(cfg.Webhook.URL, "(not set)"))
	fmt.Printf("    secret:            %s\n", maskSecret(cfg.Webhook.Secret))
	fmt.Printf("    events:            %v\n", cfg.Webhook.Events)
	fmt.Printf("    intervals:         today=%s week=%s past=%s future=%s\n",
		cfg.Webhook.Intervals.Today, cfg.Webhook.Intervals.Week,
		cfg.Webhook.Intervals.Past, cfg.Webhook.Intervals.Future)
	fmt.Printf("    past window:       %d week(s) + %d day(s)\n", cfg.Webhook.PastWeeks, cfg.Webhook.PastExtraDays)
	fmt.Printf("    future window:     %d week(s) + %d day(s)\n", cfg.Webhook.FutureWeeks, cfg.Webhook.FutureExtraDays)
	fmt.Printf("    fetch batching:    %d day(s) per batch, %s between batches\n",
		cfg.Webhook.FetchBatchSize, cfg.Webhook.FetchBatchDelay)
	fmt.Printf("    delivery_timeout:  %s\n", cfg.Webhook.DeliveryTimeout)
	fmt.Printf("    origin_ttl:        %s\n", cfg.Webhook.OriginTTL)
	fmt.Println()
	fmt.Printf("  Subscribers: %d configured\n", len(cfg.Subscribers))
	for _, sub := range cfg.Subscribers {
		fmt.Printf("    %s: url=%s secret=%s events=%v\n",
			sub.ID, valueOrDefault(sub.URL, "(global)"), maskSecret(sub.Secret), sub.Events)
	}

	return nil
}

func runConfigInit(force bool) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".config", "taskwatch", "config.yaml")

	// Check if file exists
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	if err := config.WriteExample(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at: %s\n", configPath)
	fmt.Println()
	fmt.Println("Edit this file to customize your settings.")
	fmt.Println("Run 'taskwatch config show' to see current values.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration file search paths (in priority order):")
	fmt.Println()

	paths := config.ConfigPaths()
	for i, p := range paths {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, p, exists)
	}

	fmt.Println()
	fmt.Println("Environment variables can override file settings.")
	fmt.Println("Supported env vars:")
	fmt.Println("  TASKWATCH_REDIS_URL (or REDIS_URL)")
	fmt.Println("  TASKWATCH_TASK_API_URL")
	fmt.Println("  TASKWATCH_TASK_API_TOKEN")
	fmt.Println("  TASKWATCH_WEBHOOK_ENABLED")
	fmt.Println("  TASKWATCH_WEBHOOK_URL")
	fmt.Println("  TASKWATCH_WEBHOOK_SECRET")

	return nil
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

func maskSecret(val string) string {
	if val == "" {
		return "(not set)"
	}
	if len(val) <= 8 {
		return "***"
	}
	return val[:4] + "..." + val[len(val)-4:]
}
