// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the suture defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c *TreeConfig) applyDefaults() {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

// Layer names a branch of the tree.
type Layer string

const (
	// LayerTransport holds the embedded NATS server.
	LayerTransport Layer = "transport-layer"
	// LayerCapture holds the gateway session and the emitter.
	LayerCapture Layer = "capture-layer"
	// LayerProjection holds the consumers and store maintenance.
	LayerProjection Layer = "projection-layer"
	// LayerAPI holds the ops HTTP server.
	LayerAPI Layer = "api-layer"
)

// SupervisorTree is the process supervisor:
//
//	chronicle
//	├── transport-layer   embedded NATS (optional)
//	├── capture-layer     gateway session, emitter
//	├── projection-layer  relational and search consumers, search GC
//	└── api-layer         ops HTTP server
//
// A projection consumer crash restarts only that consumer; capture keeps
// appending to the log and the consumer resumes from its durable position.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers map[Layer]*suture.Supervisor
	logger *slog.Logger
	config TreeConfig
}

// NewSupervisorTree builds the tree.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config.applyDefaults()

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	root := suture.New("chronicle", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	})

	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	layers := make(map[Layer]*suture.Supervisor, 4)
	for _, name := range []Layer{LayerTransport, LayerCapture, LayerProjection, LayerAPI} {
		layer := suture.New(string(name), childSpec)
		root.Add(layer)
		layers[name] = layer
	}

	return &SupervisorTree{
		root:   root,
		layers: layers,
		logger: logger,
		config: config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// Add adds a service to a layer.
func (t *SupervisorTree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	return t.layers[layer].Add(svc)
}

// AddTransportService adds a service to the transport layer.
func (t *SupervisorTree) AddTransportService(svc suture.Service) suture.ServiceToken {
	return t.Add(LayerTransport, svc)
}

// AddCaptureService adds a service to the capture layer.
func (t *SupervisorTree) AddCaptureService(svc suture.Service) suture.ServiceToken {
	return t.Add(LayerCapture, svc)
}

// AddProjectionService adds a service to the projection layer.
func (t *SupervisorTree) AddProjectionService(svc suture.Service) suture.ServiceToken {
	return t.Add(LayerProjection, svc)
}

// AddAPIService adds a service to the API layer.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.Add(LayerAPI, svc)
}

// RemoveProjectionService stops and removes a projection service.
func (t *SupervisorTree) RemoveProjectionService(token suture.ServiceToken) error {
	return t.layers[LayerProjection].Remove(token)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// result when the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
