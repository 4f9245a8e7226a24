// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

// Package config loads Chronicle configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"time"
)

// Config is the root configuration for every Chronicle role.
type Config struct {
	Discord  DiscordConfig  `koanf:"discord"`
	NATS     NATSConfig     `koanf:"nats"`
	Capture  CaptureConfig  `koanf:"capture"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	Database DatabaseConfig `koanf:"database"`
	Search   SearchConfig   `koanf:"search"`
	Backfill BackfillConfig `koanf:"backfill"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Breaker  BreakerConfig  `koanf:"breaker"`
}

// DiscordConfig configures the gateway session used by capture and backfill.
type DiscordConfig struct {
	Token string `koanf:"token"`

	// MessageContent requests the privileged message content intent.
	// Without it, content of messages not mentioning the bot arrives empty.
	MessageContent bool `koanf:"message_content"`
}

// NATSConfig configures the JetStream transport.
type NATSConfig struct {
	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"`

	// Embedded server settings
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	StoreDir string `koanf:"store_dir"`
	MaxStore int64  `koanf:"max_store"`

	Stream          string        `koanf:"stream"`
	SubjectPrefix   string        `koanf:"subject_prefix"`
	Partitions      int           `koanf:"partitions"`
	MaxAge          time.Duration `koanf:"max_age"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// CaptureConfig configures the emitter.
type CaptureConfig struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`

	// IgnoreFile is the line-based list of channel ids excluded from capture.
	IgnoreFile      string `koanf:"ignore_file"`
	WatchIgnoreFile bool   `koanf:"watch_ignore_file"`
}

// DispatchConfig configures projection consumers.
type DispatchConfig struct {
	// DeadLetter routes records whose handler failed to chronicle.dlq.<group>
	// instead of committing past them.
	DeadLetter bool `koanf:"dead_letter"`

	Retries       int           `koanf:"retries"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	CloseTimeout  time.Duration `koanf:"close_timeout"`
	AckWait       time.Duration `koanf:"ack_wait"`
}

// DatabaseConfig configures the relational projection store.
type DatabaseConfig struct {
	Backend string `koanf:"backend"` // duckdb or postgres

	// DuckDB
	Path      string `koanf:"path"`
	Threads   int    `koanf:"threads"`
	MaxMemory string `koanf:"max_memory"`

	// PostgreSQL
	URL          string `koanf:"url"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// SearchConfig configures the search document store.
type SearchConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`

	// LinkTagParity drops the link tag on embed updates unless the message
	// has attachments, matching documents produced by the previous indexer.
	LinkTagParity bool `koanf:"link_tag_parity"`

	Compression bool `koanf:"compression"`

	// GCInterval is how often value log garbage collection runs. Zero disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// BackfillConfig configures the history reconciler.
type BackfillConfig struct {
	BatchSize         int     `koanf:"batch_size"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// AdminRequestsPerMinute limits ignore-list edits per client IP.
	AdminRequestsPerMinute int `koanf:"admin_requests_per_minute"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// BreakerConfig configures the publish circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}
