// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

// Package dispatch routes log records to typed projection handlers.
package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/chronicle/internal/events"
)

// HandlerFunc handles one serialized record.
type HandlerFunc func(ctx context.Context, env *events.Envelope) error

// Registry maps schema names to decoding handlers. It is populated before
// the consumer starts and read-only afterwards.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds schema to fn. The payload is decoded and validated into a
// T before fn is called; decode failures are returned wrapping
// events.ErrInvalidPayload and fn is not called. Registering a schema twice
// replaces the earlier handler.
func Register[T any](r *Registry, schema string, fn func(ctx context.Context, key string, ev *T) error) {
	r.handlers[schema] = func(ctx context.Context, env *events.Envelope) error {
		ev, err := events.Decode[T](schema, env.Payload)
		if err != nil {
			return err
		}
		return fn(ctx, env.Key, ev)
	}
}

// Dispatch decodes env and runs its handler.
func (r *Registry) Dispatch(ctx context.Context, env *events.Envelope) error {
	h, ok := r.handlers[env.SchemaName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, env.SchemaName)
	}
	return h(ctx, env)
}

// Schemas returns the registered schema names, sorted.
func (r *Registry) Schemas() []string {
	out := make([]string, 0, len(r.handlers))
	for s := range r.handlers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Projection is implemented by read models that register their handlers.
type Projection interface {
	Register(r *Registry)
}
