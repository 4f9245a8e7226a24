// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

/*
Package middleware provides HTTP middleware for the ops server.

All middleware uses the chi signature func(http.Handler) http.Handler so it
can be mounted with Router.Use or Router.With.

Key Components:

  - RequestID: propagates or generates X-Request-ID and stores it as the
    correlation ID used by the logging package
  - Metrics: counts requests by method, route pattern and status
  - AccessLog: one debug line per request with duration and status

Metrics are labeled with the chi route pattern rather than the raw path so
that ids in URLs do not explode label cardinality.
*/
package middleware
