// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"time"
)

// Config holds connection, stream and consumer settings for the JetStream log.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration

	// Stream settings
	Stream          string
	SubjectPrefix   string
	Partitions      int
	MaxAge          time.Duration
	MaxBytes        int64
	DuplicateWindow time.Duration

	// Consumer settings
	AckWait      time.Duration
	CloseTimeout time.Duration

	// PublishRetries is the number of JetStream publish attempts before a
	// publish is reported as failed.
	PublishRetries int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		URL:             "nats://127.0.0.1:4222",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		Stream:          "CHRONICLE_EVENTS",
		SubjectPrefix:   "chronicle",
		Partitions:      8,
		MaxAge:          30 * 24 * time.Hour,
		MaxBytes:        -1,
		DuplicateWindow: 2 * time.Minute,
		AckWait:         30 * time.Second,
		CloseTimeout:    30 * time.Second,
		PublishRetries:  3,
	}
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host     string
	Port     int // -1 picks a random port
	StoreDir string
	MaxStore int64
}

// BreakerConfig configures the publish circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns defaults for the publish circuit breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "publisher",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}
