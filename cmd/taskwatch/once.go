package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oscarh/taskwatch/internal/clock"
	"github.com/oscarh/taskwatch/internal/config"
	"github.com/oscarh/taskwatch/internal/scope"
	"github.com/oscarh/taskwatch/internal/watcher"
	"github.com/oscarh/taskwatch/internal/webhook"
)

var (
	onceTier       string
	onceSubscriber string
	onceDryRun     bool
)

func newOnceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single poll cycle and exit",
		Long: `Run one poll cycle per tier (or one tier with --tier) for every
configured subscriber (or one with --subscriber), then exit.

Useful for cron-driven setups and for verifying configuration before
starting the watcher. With --dry-run changes are detected and logged
but nothing is delivered.`,
		RunE: runOnce,
	}

	cmd.Flags().StringVar(&onceTier, "tier", "", "Poll only this tier (today, week, past, future)")
	cmd.Flags().StringVar(&onceSubscriber, "subscriber", "", "Poll only this subscriber ID")
	cmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "Detect changes without delivering webhooks")

	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	tiers := scope.AllTiers()
	if onceTier != "" {
		tier := scope.Tier(onceTier)
		if !tier.Valid() {
			return fmt.Errorf("unknown tier %q (valid: today, week, past, future)", onceTier)
		}
		tiers = []scope.Tier{tier}
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
	if onceSubscriber != "" {
		var match []watcher.Subscriber
		for _, sub := range subs {
			if sub.ID == onceSubscriber {
				match = append(match, sub)
			}
		}
		if len(match) == 0 {
			return fmt.Errorf("unknown subscriber %q", onceSubscriber)
		}
		subs = match
	}

	wcfg := watcherConfig(cfg)
	wcfg.DryRun = onceDryRun
	w := watcher.New(src, st, webhook.NewDispatcher(), clock.System(), wcfg)

	ctx := context.Background()
	failed := 0
	for _, sub := range subs {
		for _, tier := range tiers {
			stats, err := w.RunCycle(ctx, sub, tier)
			if err != nil {
				failed++
				fmt.Printf("  %-10s %-8s ERROR: %v\n", sub.ID, tier, err)
				continue
			}
			printStats(stats)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d poll cycle(s) failed", failed)
	}
	return nil
}

func printStats(s *watcher.Stats) {
	note := ""
	if s.FirstPoll {
		note = " (baseline)"
	}
	fmt.Printf("  %-10s %-8s fetched=%d new=%d changed=%d dispatched=%d skipped=%d suppressed=%d failed=%d in %s%s\n",
		s.Subscriber, s.Tier, s.Fetched, s.New, s.Changed,
		s.Dispatched, s.Skipped, s.Suppressed, s.Failed,
		s.Elapsed.Round(time.Millisecond), note)
}
