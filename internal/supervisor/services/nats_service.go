// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNATSServerStopped is returned when the embedded server exits on its own.
var ErrNATSServerStopped = errors.New("embedded NATS server stopped")

// NATSServer matches the lifecycle of *transport.EmbeddedServer.
type NATSServer interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// NATSServerService keeps the embedded JetStream server under supervision.
// It polls the server and fails if it stops, so the supervisor logs the
// outage and the dependent layers see their connections drop.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	pollInterval    time.Duration
}

// NewNATSServerService creates the service.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		pollInterval:    5 * time.Second,
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if err := s.server.Start(ctx); err != nil {
		return fmt.Errorf("start embedded NATS: %w", err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown embedded NATS: %w", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return ErrNATSServerStopped
			}
		}
	}
}

// String implements fmt.Stringer.
func (s *NATSServerService) String() string {
	return "nats-server"
}
