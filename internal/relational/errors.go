// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import "errors"

// ErrUnknownBackend is returned for a database backend other than duckdb or postgres.
var ErrUnknownBackend = errors.New("unknown database backend")

// ErrEmptyChannelID is returned when forgetting a channel without an id.
var ErrEmptyChannelID = errors.New("channel id is required")
