// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package dispatch

import "errors"

// ErrUnknownSchema is returned when no handler is registered for a record's schema.
var ErrUnknownSchema = errors.New("no handler registered for schema")

// ErrNoSubscriptions is returned when a consumer is built without subscriptions.
var ErrNoSubscriptions = errors.New("consumer has no subscriptions")
