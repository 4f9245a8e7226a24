// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

/*
Package supervisor runs Chronicle's long-lived services under suture v4.

# Layout

	chronicle
	├── transport-layer
	│   └── NATSServerService (embedded mode only)
	├── capture-layer
	│   ├── GatewayService
	│   └── RunnerService "emitter"
	├── projection-layer
	│   ├── RunnerService "consumer-relational"
	│   ├── RunnerService "consumer-search"
	│   └── PeriodicService "search-gc"
	└── api-layer
	    └── HTTPServerService

Each layer has its own failure counter, so a consumer stuck in a restart
loop does not push the gateway into backoff. Consumers rebuild their
Watermill router on every restart and resume from their JetStream durable.

# Logging

Supervisor events go through sutureslog to the slog handler bridged onto
zerolog by internal/logging:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddProjectionService(services.NewRunnerService("consumer-search", buildSearchConsumer))
	err = tree.Serve(ctx)

# Shutdown

Canceling the context stops every layer. Services that miss
TreeConfig.ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
