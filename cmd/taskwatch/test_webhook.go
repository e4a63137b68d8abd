package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oscarh/taskwatch/internal/config"
	"github.com/oscarh/taskwatch/internal/task"
	"github.com/oscarh/taskwatch/internal/webhook"
)

var (
	testWebhookURL    string
	testWebhookSecret string
	testWebhookEvent  string
)

func newTestWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "test-webhook",
		Short:  "Send a sample signed event to a webhook endpoint",
		Hidden: true, // Hide from main help (dev/test command)
		Long: `Send one fabricated, fully signed event to the configured endpoint
(or --url) so receivers can verify their signature checks end to end.`,
		RunE: runTestWebhook,
	}

	cmd.Flags().StringVar(&testWebhookURL, "url", "", "Endpoint URL (default: webhook.url from config)")
	cmd.Flags().StringVar(&testWebhookSecret, "secret", "", "Signing secret (default: webhook.secret from config)")
	cmd.Flags().StringVar(&testWebhookEvent, "event", "task.completed", "Event type to send")

	return cmd
}

func runTestWebhook(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	url := testWebhookURL
	if url == "" {
		url = cfg.Webhook.URL
	}
	secret := testWebhookSecret
	if secret == "" {
		secret = cfg.Webhook.Secret
	}
	if url == "" {
		return fmt.Errorf("no endpoint URL (use --url or set webhook.url)")
	}
	if secret == "" {
		return fmt.Errorf("no signing secret (use --secret or set webhook.secret)")
	}

	types, err := parseEventTypes([]string{testWebhookEvent})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sample := task.Task{
		ID:          "test-task-1",
		Text:        "Sample task from taskwatch test-webhook",
		Completed:   true,
		CompletedAt: now.Format(time.RFC3339),
	}
	snap := task.NewSnapshot(sample, now)

	ev := webhook.NewEvent("test", types[0], webhook.EventData{Task: &snap}, now)

	fmt.Printf("Sending %s event to %s...\n", ev.Type, url)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res := webhook.NewDispatcher().Send(ctx, webhook.Endpoint{URL: url, Secret: secret}, ev)
	if !res.Delivered {
		return fmt.Errorf("delivery failed (status %d): %s", res.StatusCode, res.Detail)
	}

	fmt.Printf("Delivered: status %d in %s\n", res.StatusCode, res.Duration.Round(time.Millisecond))
	fmt.Println()
	fmt.Println("The receiver should verify:")
	fmt.Printf("  %s: sha256=<HMAC-SHA256 of the raw body with your secret>\n", webhook.HeaderSignature)
	fmt.Printf("  %s: %s\n", webhook.HeaderEvent, ev.Type)
	fmt.Printf("  %s: unix timestamp of the send\n", webhook.HeaderTimestamp)

	return nil
}
