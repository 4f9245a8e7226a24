// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingToken is returned by ValidateCapture when no Discord token is configured.
var ErrMissingToken = errors.New("discord.token is required (set DISCORD_TOKEN)")

// Validate checks settings shared by every role.
func (c *Config) Validate() error {
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if c.Capture.Workers < 1 {
		return fmt.Errorf("capture.workers must be at least 1, got %d", c.Capture.Workers)
	}
	if c.Capture.QueueSize < 1 {
		return fmt.Errorf("capture.queue_size must be at least 1, got %d", c.Capture.QueueSize)
	}
	if c.Dispatch.Retries < 0 {
		return fmt.Errorf("dispatch.retries must not be negative, got %d", c.Dispatch.Retries)
	}
	if c.Backfill.BatchSize < 1 {
		return fmt.Errorf("backfill.batch_size must be at least 1, got %d", c.Backfill.BatchSize)
	}
	if c.Backfill.RequestsPerSecond <= 0 {
		return fmt.Errorf("backfill.requests_per_second must be positive, got %v", c.Backfill.RequestsPerSecond)
	}
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Search.InMemory && c.Search.Path == "" {
		return fmt.Errorf("search.path is required unless search.in_memory is set")
	}
	return nil
}

// ValidateCapture checks settings needed to connect to the Discord gateway.
func (c *Config) ValidateCapture() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.NATS.Partitions < 1 || c.NATS.Partitions > 99 {
		return fmt.Errorf("nats.partitions must be between 1 and 99, got %d", c.NATS.Partitions)
	}
	if c.NATS.Stream == "" {
		return fmt.Errorf("nats.stream is required")
	}
	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " .*>") {
		return fmt.Errorf("nats.subject_prefix must be a single subject token, got %q", c.NATS.SubjectPrefix)
	}
	if !c.NATS.Embedded && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when the embedded server is disabled")
	}
	if c.NATS.Embedded && c.NATS.StoreDir == "" {
		return fmt.Errorf("nats.store_dir is required for the embedded server")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Backend {
	case "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the duckdb backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres backend (set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("database.backend must be duckdb or postgres, got %q", c.Database.Backend)
	}
	return nil
}
