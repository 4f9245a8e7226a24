// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package services

import (
	"context"
	"fmt"
)

// Gateway matches the websocket lifecycle of *discordgo.Session.
type Gateway interface {
	Open() error
	Close() error
}

// GatewayService holds the gateway connection open. The session reconnects
// on its own after drops; a failed Open is returned so the supervisor backs
// off before retrying.
type GatewayService struct {
	gateway Gateway
}

// NewGatewayService creates the service.
func NewGatewayService(gateway Gateway) *GatewayService {
	return &GatewayService{gateway: gateway}
}

// Serve implements suture.Service.
func (s *GatewayService) Serve(ctx context.Context) error {
	if err := s.gateway.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	<-ctx.Done()
	if err := s.gateway.Close(); err != nil {
		return fmt.Errorf("close gateway: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *GatewayService) String() string {
	return "discord-gateway"
}
