package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oscarh/taskwatch/internal/config"
	"github.com/oscarh/taskwatch/internal/store"
)

func newSubscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Inspect subscriber state in Redis",
	}

	cmd.AddCommand(newSubscribersListCmd())
	cmd.AddCommand(newSubscribersResetCmd())

	return cmd
}

func newSubscribersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscribers with stored snapshot state",
		RunE:  runSubscribersList,
	}
}

func newSubscribersResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <subscriber-id>",
		Short: "Delete a subscriber's stored state",
		Long: `Delete all stored snapshots for a subscriber. The next poll becomes a
first poll again: it rebuilds the baseline and emits no events.`,
		Args: cobra.ExactArgs(1),
		RunE: runSubscribersReset,
	}
}

func runSubscribersList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := st.ListSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscribers: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No subscriber state found.")
		return nil
	}

	fmt.Printf("%-20s %-8s %s\n", "SUBSCRIBER", "TASKS", "LAST POLL")
	for _, id := range ids {
		state, err := st.LoadState(ctx, id)
		if err != nil {
			fmt.Printf("%-20s (error: %v)\n", id, err)
			continue
		}
		lastPoll := "never"
		if !state.LastPoll.IsZero() {
			lastPoll = state.LastPoll.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-20s %-8d %s\n", id, len(state.Tasks), lastPoll)
	}

	return nil
}

func runSubscribersReset(cmd *cobra.Command, args []string) error {
	subscriber := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.DeleteState(ctx, subscriber); err != nil {
		return fmt.Errorf("failed to delete state for %s: %w", subscriber, err)
	}

	fmt.Printf("Deleted state for subscriber %s. The next poll rebuilds the baseline.\n", subscriber)
	return nil
}

func openStore() (*store.Store, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.New(cfg.RedisURL, cfg.Webhook.OriginTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return st, nil
}
