// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

/*
Package services adapts Chronicle components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error:

  - NATSServerService: embedded JetStream server (Start/Shutdown/IsRunning)
  - GatewayService: Discord gateway session (Open/Close)
  - RunnerService: anything with Run(ctx), such as the capture emitter and
    the projection consumers; non-restartable runners are rebuilt through a
    factory on every Serve
  - PeriodicService: interval tasks such as search store garbage collection
  - HTTPServerService: the ops HTTP server (ListenAndServe/Shutdown)

Serve returns ctx.Err() on shutdown and a wrapped error on failure, which
suture answers with a restart under its backoff policy.
*/
package services
