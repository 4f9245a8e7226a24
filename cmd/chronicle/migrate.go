// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/chronicle/internal/relational"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Apply relational schema migrations",
	GroupID: "maintenance",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := relational.Open(&cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s schema at version %d\n", store.Backend(), version)
		return nil
	},
}
