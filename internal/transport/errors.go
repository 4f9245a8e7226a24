// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import "errors"

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrMissingMetadata is returned when a consumed message lacks envelope headers.
var ErrMissingMetadata = errors.New("message missing envelope metadata")

// ErrServerNotReady is returned when the embedded server fails to start in time.
var ErrServerNotReady = errors.New("NATS server not ready within timeout")
