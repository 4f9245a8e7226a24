// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package events

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is wrapped by every decode failure: malformed JSON and
// missing or invalid required fields. Consumers skip such records.
var ErrInvalidPayload = errors.New("invalid event payload")

// ErrInvalidSnowflake is returned for entity ids that are not unsigned 64-bit integers.
var ErrInvalidSnowflake = errors.New("invalid snowflake")

// ValidationError describes the first field that failed validation.
type ValidationError struct {
	Schema string
	Field  string
	Tag    string
}

func (e *ValidationError) Error() string {
	if e.Tag == "required" {
		return fmt.Sprintf("%s: missing required field %s", e.Schema, e.Field)
	}
	return fmt.Sprintf("%s: field %s failed %s", e.Schema, e.Field, e.Tag)
}

// Unwrap lets errors.Is match ErrInvalidPayload.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidPayload
}
