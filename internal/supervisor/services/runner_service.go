// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package services

import (
	"context"
	"fmt"
)

// Runner is a component that works until its context is canceled.
// Satisfied by *capture.Emitter and *dispatch.Consumer.
type Runner interface {
	Run(ctx context.Context) error
}

// Closer is implemented by runners that hold resources between runs.
type Closer interface {
	Close() error
}

// RunnerFactory builds the runner for one Serve call. Components that
// cannot be restarted, such as a Watermill router, are rebuilt each time.
type RunnerFactory func() (Runner, error)

// RunnerService supervises a Runner.
type RunnerService struct {
	name    string
	factory RunnerFactory
}

// NewRunnerService supervises the runner built by factory.
func NewRunnerService(name string, factory RunnerFactory) *RunnerService {
	return &RunnerService{name: name, factory: factory}
}

// NewStaticRunnerService supervises a runner that can be run repeatedly.
func NewStaticRunnerService(name string, r Runner) *RunnerService {
	return NewRunnerService(name, func() (Runner, error) { return r, nil })
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	r, err := s.factory()
	if err != nil {
		return fmt.Errorf("%s: build: %w", s.name, err)
	}
	if c, ok := r.(Closer); ok {
		defer func() { _ = c.Close() }()
	}

	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *RunnerService) String() string {
	return s.name
}
