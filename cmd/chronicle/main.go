// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

// Package main is the entry point for the chronicle command.
//
// Chronicle captures Discord gateway activity as domain events, appends them
// to a partitioned NATS JetStream log and projects them into a relational
// store (DuckDB or PostgreSQL) and a Badger-backed search document store.
//
// # Commands
//
//	chronicle run                      capture and project under one supervisor tree
//	chronicle run --capture=false      projection consumers only
//	chronicle run --project=false      gateway capture only
//	chronicle backfill <channel-id>    reconcile channel history into both projections
//	chronicle forget-channel <id>      purge a channel from both projections
//	chronicle ignore add|remove|list   edit the capture ignore list
//	chronicle migrate                  apply relational schema migrations
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (DISCORD_TOKEN, NATS_URL, DATABASE_URL, ...)
//   - Config file (--config, CONFIG_PATH or the default search paths)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor tree then closes
// the gateway, drains the emitter, stops consumers after their in-flight
// records settle and shuts the ops server down.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/logging"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "chronicle <command>",
	Short:         "Discord activity capture with event-sourced projections",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logging.Init(logging.Config{
			Level:     level,
			Format:    cfg.Logging.Format,
			Caller:    cfg.Logging.Caller,
			Timestamp: true,
			Output:    os.Stderr,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: CONFIG_PATH or search paths)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddGroup(
		&cobra.Group{ID: "service", Title: "Service:"},
		&cobra.Group{ID: "maintenance", Title: "Maintenance:"},
	)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: %v\n", err)
		os.Exit(1)
	}
}
