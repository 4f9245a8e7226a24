// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tomtom215/chronicle/internal/capture"
	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/validation"
)

var forgetAndIgnore bool

var forgetCmd = &cobra.Command{
	Use:     "forget-channel <channel-id>",
	Short:   "Purge a channel from both projections",
	GroupID: "maintenance",
	Long: `Forget-channel deletes a channel and everything captured in it from the
relational store and the search store. Events already in the log are not
touched; pass --ignore so capture stops recording the channel.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID := args[0]
		if !validation.IsSnowflake(channelID) {
			return fmt.Errorf("channel id %q is not a snowflake", channelID)
		}

		if forgetAndIgnore {
			ignore, err := capture.LoadIgnoreList(cfg.Capture.IgnoreFile)
			if err != nil {
				return err
			}
			if _, err := ignore.Add(channelID); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		store, index, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStores(store, index)

		rows, err := store.ForgetChannel(ctx, channelID)
		if err != nil {
			return err
		}
		docs, err := index.ForgetChannel(ctx, channelID)
		if err != nil {
			return err
		}

		logging.Info().Str("channel_id", channelID).Int("search_documents", docs).Msg("Channel forgotten")

		tables := make([]string, 0, len(rows))
		for table := range rows {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			fmt.Printf("%-22s %d\n", table, rows[table])
		}
		fmt.Printf("%-22s %d\n", "search documents", docs)
		return nil
	},
}

func init() {
	forgetCmd.Flags().BoolVar(&forgetAndIgnore, "ignore", false, "also add the channel to the capture ignore list")
}
