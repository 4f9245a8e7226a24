// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/chronicle/internal/capture"
)

var ignoreCmd = &cobra.Command{
	Use:     "ignore",
	Short:   "Edit the capture ignore list",
	GroupID: "maintenance",
	Long: `Ignore edits the file named by capture.ignore_file. Running nodes with
capture.watch_ignore_file set pick up changes without a restart.`,
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <channel-id>...",
	Short: "Stop capturing channels",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := capture.LoadIgnoreList(cfg.Capture.IgnoreFile)
		if err != nil {
			return err
		}
		for _, id := range args {
			added, err := list.Add(id)
			if err != nil {
				return fmt.Errorf("ignore %s: %w", id, err)
			}
			if added {
				fmt.Printf("Ignoring %s\n", id)
			} else {
				fmt.Printf("%s already ignored\n", id)
			}
		}
		return nil
	},
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove <channel-id>...",
	Short: "Resume capturing channels",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := capture.LoadIgnoreList(cfg.Capture.IgnoreFile)
		if err != nil {
			return err
		}
		for _, id := range args {
			removed, err := list.Remove(id)
			if err != nil {
				return fmt.Errorf("unignore %s: %w", id, err)
			}
			if removed {
				fmt.Printf("Capturing %s\n", id)
			} else {
				fmt.Printf("%s was not ignored\n", id)
			}
		}
		return nil
	},
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ignored channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := capture.LoadIgnoreList(cfg.Capture.IgnoreFile)
		if err != nil {
			return err
		}
		for _, id := range list.List() {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	ignoreCmd.AddCommand(ignoreAddCmd)
	ignoreCmd.AddCommand(ignoreRemoveCmd)
	ignoreCmd.AddCommand(ignoreListCmd)
}
