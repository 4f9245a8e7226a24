// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/chronicle/internal/backfill"
	"github.com/tomtom215/chronicle/internal/logging"
)

var backfillSince string

var backfillCmd = &cobra.Command{
	Use:     "backfill <channel-id>",
	Short:   "Reconcile channel history into both projections",
	GroupID: "maintenance",
	Long: `Backfill pages through the history of a channel, newest first, and merges
it into the relational and search projections. Messages already projected
gain a version only when their content differs from the latest one.

The search store is opened directly, so stop projection consumers on this
node first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := parseSince(backfillSince, time.Now())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session, err := newSession(cfg)
		if err != nil {
			return err
		}
		store, index, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStores(store, index)

		report, err := backfill.NewReconciler(cfg.Backfill, session, store, index).Run(ctx, args[0], since)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", args[0], err)
		}

		logging.Info().Str("channel_id", report.Channel).Msg("Backfill finished")
		fmt.Printf("channel %s: fetched %d, inserted %d, versioned %d, unchanged %d, skipped %d in %d batches (%s)\n",
			report.Channel, report.Fetched, report.Inserted, report.Versioned, report.Unchanged,
			report.Skipped, report.Batches, report.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillSince, "since", "", "stop at messages older than this (RFC3339 time or duration such as 720h)")
}

// parseSince accepts an RFC3339 timestamp or a duration back from now.
// Empty means the full history.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("--since %q is neither an RFC3339 time nor a positive duration", s)
	}
	return now.Add(-d), nil
}
