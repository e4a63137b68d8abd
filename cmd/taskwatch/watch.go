package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oscarh/taskwatch/internal/clock"
	"github.com/oscarh/taskwatch/internal/config"
	"github.com/oscarh/taskwatch/internal/logging"
	"github.com/oscarh/taskwatch/internal/scope"
	"github.com/oscarh/taskwatch/internal/source"
	"github.com/oscarh/taskwatch/internal/store"
	"github.com/oscarh/taskwatch/internal/watcher"
	"github.com/oscarh/taskwatch/internal/webhook"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the polling watcher until interrupted",
		Long: `Start the four-tier polling scheduler and deliver webhook events
for every configured subscriber. Runs until SIGINT or SIGTERM.`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := logging.WithCommand("watch")

	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.Webhook.Enabled {
		return fmt.Errorf("webhooks are disabled (set webhook.enabled: true)")
	}

	st, src, err := buildBackends(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	defer src.Close()

	subs, err := buildSubscribers(cfg)
	if err != nil {
		return err
	}

	w := watcher.New(src, st, webhook.NewDispatcher(), clock.System(), watcherConfig(cfg))
	sched := watcher.NewScheduler(w, subs, map[scope.Tier]time.Duration{
		scope.TierToday:  cfg.Webhook.Intervals.Today,
		scope.TierWeek:   cfg.Webhook.Intervals.Week,
		scope.TierPast:   cfg.Webhook.Intervals.Past,
		scope.TierFuture: cfg.Webhook.Intervals.Future,
	})

	sched.Start(context.Background())
	fmt.Printf("taskwatch started with %d subscriber(s), press Ctrl+C to stop\n", len(subs))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.WithField("signal", sig.String()).Info("shutting down")
	fmt.Printf("\nReceived %v, shutting down...\n", sig)
	sched.Stop()

	return nil
}

// buildBackends connects the Redis state store and the task API client.
func buildBackends(cfg *config.Config) (*store.Store, source.Source, error) {
	st, err := store.New(cfg.RedisURL, cfg.Webhook.OriginTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	src, err := source.NewRESTSource(source.RESTConfig{
		BaseURL: cfg.TaskAPI.BaseURL,
		Token:   cfg.TaskAPI.Token,
	})
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to create task API client: %w", err)
	}

	return st, src, nil
}

// buildSubscribers resolves the configured subscribers, falling back to the
// global webhook settings for any omitted field. With no subscribers block a
// single implicit "default" subscriber is used.
func buildSubscribers(cfg *config.Config) ([]watcher.Subscriber, error) {
	timeout := cfg.Webhook.DeliveryTimeout

	if len(cfg.Subscribers) == 0 {
		events, err := parseEventTypes(cfg.Webhook.Events)
		if err != nil {
			return nil, err
		}
		return []watcher.Subscriber{{
			ID: "default",
			Endpoint: webhook.Endpoint{
				URL:     cfg.Webhook.URL,
				Secret:  cfg.Webhook.Secret,
				Events:  events,
				Timeout: timeout,
			},
		}}, nil
	}

	subs := make([]watcher.Subscriber, 0, len(cfg.Subscribers))
	for _, sc := range cfg.Subscribers {
		url := sc.URL
		if url == "" {
			url = cfg.Webhook.URL
		}
		secret := sc.Secret
		if secret == "" {
			secret = cfg.Webhook.Secret
		}
		rawEvents := sc.Events
		if len(rawEvents) == 0 {
			rawEvents = cfg.Webhook.Events
		}
		events, err := parseEventTypes(rawEvents)
		if err != nil {
			return nil, fmt.Errorf("subscriber %s: %w", sc.ID, err)
		}

		subs = append(subs, watcher.Subscriber{
			ID: sc.ID,
			Endpoint: webhook.Endpoint{
				URL:     url,
				Secret:  secret,
				Events:  events,
				Timeout: timeout,
			},
		})
	}

	return subs, nil
}

// parseEventTypes validates configured event names against the known types.
func parseEventTypes(names []string) ([]webhook.EventType, error) {
	if len(names) == 0 {
		return nil, nil
	}

	known := make(map[webhook.EventType]bool)
	for _, t := range webhook.AllEventTypes() {
		known[t] = true
	}

	events := make([]webhook.EventType, 0, len(names))
	for _, name := range names {
		t := webhook.EventType(name)
		if !known[t] {
			return nil, fmt.Errorf("unknown event type %q", name)
		}
		events = append(events, t)
	}
	return events, nil
}

func watcherConfig(cfg *config.Config) watcher.Config {
	return watcher.Config{
		Windows: scope.Windows{
			PastWeeks:       cfg.Webhook.PastWeeks,
			PastExtraDays:   cfg.Webhook.PastExtraDays,
			FutureWeeks:     cfg.Webhook.FutureWeeks,
			FutureExtraDays: cfg.Webhook.FutureExtraDays,
		},
		BatchSize:  cfg.Webhook.FetchBatchSize,
		BatchDelay: cfg.Webhook.FetchBatchDelay,
	}
}
