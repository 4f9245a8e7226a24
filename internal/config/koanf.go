// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"chronicle.yaml",
	"chronicle.yml",
	"/etc/chronicle/config.yaml",
	"/etc/chronicle/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			MessageContent: true,
		},
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			Embedded:        true,
			Host:            "127.0.0.1",
			Port:            4222,
			StoreDir:        "/data/nats/jetstream",
			MaxStore:        10 << 30, // 10GB
			Stream:          "CHRONICLE_EVENTS",
			SubjectPrefix:   "chronicle",
			Partitions:      8,
			MaxAge:          30 * 24 * time.Hour,
			DuplicateWindow: 2 * time.Minute,
			MaxReconnects:   -1,
			ReconnectWait:   2 * time.Second,
		},
		Capture: CaptureConfig{
			Workers:         8,
			QueueSize:       4096,
			IgnoreFile:      "/data/ignored-channels.txt",
			WatchIgnoreFile: true,
		},
		Dispatch: DispatchConfig{
			DeadLetter:    false,
			Retries:       0,
			RetryInterval: 500 * time.Millisecond,
			CloseTimeout:  30 * time.Second,
			AckWait:       30 * time.Second,
		},
		Database: DatabaseConfig{
			Backend:      "duckdb",
			Path:         "/data/chronicle.duckdb",
			Threads:      0, // 0 = runtime.NumCPU()
			MaxMemory:    "1GB",
			MaxOpenConns: 10,
		},
		Search: SearchConfig{
			Path:          "/data/search",
			GCInterval:    10 * time.Minute,
			Compression:   true,
			InMemory:      false,
			LinkTagParity: false,
		},
		Backfill: BackfillConfig{
			BatchSize:         1000,
			RequestsPerSecond: 2,
		},
		Server: ServerConfig{
			Enabled:                true,
			Host:                   "127.0.0.1",
			Port:                   9464,
			Timeout:                15 * time.Second,
			AdminRequestsPerMinute: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Load loads configuration with layered sources:
//  1. Defaults
//  2. Config file: path if non-empty, else CONFIG_PATH or DefaultConfigPaths
//  3. Environment variables
//
// The result is validated before it is returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"discord_token":           "discord.token",
	"discord_message_content": "discord.message_content",

	"nats_url":              "nats.url",
	"nats_embedded":         "nats.embedded",
	"nats_host":             "nats.host",
	"nats_port":             "nats.port",
	"nats_store_dir":        "nats.store_dir",
	"nats_max_store":        "nats.max_store",
	"nats_stream":           "nats.stream",
	"nats_subject_prefix":   "nats.subject_prefix",
	"nats_partitions":       "nats.partitions",
	"nats_max_age":          "nats.max_age",
	"nats_duplicate_window": "nats.duplicate_window",

	"capture_workers":    "capture.workers",
	"capture_queue_size": "capture.queue_size",
	"ignore_file":        "capture.ignore_file",
	"watch_ignore_file":  "capture.watch_ignore_file",

	"dispatch_dead_letter":   "dispatch.dead_letter",
	"dispatch_retries":       "dispatch.retries",
	"dispatch_close_timeout": "dispatch.close_timeout",
	"dispatch_ack_wait":      "dispatch.ack_wait",

	"db_backend":        "database.backend",
	"db_path":           "database.path",
	"duckdb_path":       "database.path",
	"duckdb_threads":    "database.threads",
	"duckdb_max_memory": "database.max_memory",
	"database_url":      "database.url",

	"search_path":            "search.path",
	"search_in_memory":       "search.in_memory",
	"search_link_tag_parity": "search.link_tag_parity",
	"search_gc_interval":     "search.gc_interval",
	"search_compression":     "search.compression",

	"backfill_batch_size":          "backfill.batch_size",
	"backfill_requests_per_second": "backfill.requests_per_second",

	"http_enabled": "server.enabled",
	"http_host":    "server.host",
	"http_port":    "server.port",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"breaker_failure_threshold": "breaker.failure_threshold",
	"breaker_timeout":           "breaker.timeout",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchFile invokes callback whenever the file at path changes.
// Errors from the watcher are passed to callback so callers can log them.
func WatchFile(path string, callback func(err error)) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		callback(err)
	})
}
