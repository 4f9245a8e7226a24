// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package events

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/tomtom215/chronicle/internal/validation"
)

// NewEnvelope serializes ev into a transport envelope stamped with now.
func NewEnvelope(ev Event, now time.Time) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Schema(), err)
	}
	return &Envelope{
		SchemaName:    ev.Schema(),
		SchemaVersion: SchemaVersion,
		Key:           ev.Key(),
		Payload:       payload,
		PublishedAt:   now.UTC(),
	}, nil
}

// Validate checks the validate tags of an event payload.
func Validate(schema string, v any) error {
	if err := validation.GetValidator().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{
				Schema: schema,
				Field:  verrs[0].Namespace(),
				Tag:    verrs[0].Tag(),
			}
		}
		return fmt.Errorf("%s: %w: %v", schema, ErrInvalidPayload, err)
	}
	return nil
}

// Decode unmarshals and validates a payload of type T. Every failure wraps
// ErrInvalidPayload.
func Decode[T any](schema string, payload []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(payload, v); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", schema, ErrInvalidPayload, err)
	}
	if err := Validate(schema, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseSnowflake parses a decimal entity id.
func ParseSnowflake(id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidSnowflake, id)
	}
	return n, nil
}

// snowflakeEpoch is the platform epoch (2015-01-01T00:00:00Z) in milliseconds.
const snowflakeEpoch = 1420070400000

// SnowflakeTime returns the creation time encoded in a snowflake.
func SnowflakeTime(id string) (time.Time, error) {
	n, err := ParseSnowflake(id)
	if err != nil {
		return time.Time{}, err
	}
	ms := int64(n>>22) + snowflakeEpoch
	return time.UnixMilli(ms).UTC(), nil
}

// SnowflakeBefore returns the smallest snowflake created at t, suitable as
// an exclusive "before" cursor for history fetches.
func SnowflakeBefore(t time.Time) string {
	ms := t.UnixMilli() - snowflakeEpoch
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}
