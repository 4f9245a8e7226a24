// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

/*
Package api provides the ops HTTP server for Chronicle.

The server is small and internal: it exposes probes, Prometheus metrics and a
handful of admin endpoints for the capture ignore list and for inspecting or
forgetting projected data.

Routes:

	GET    /healthz                          liveness, always 200 while serving
	GET    /readyz                           transport and relational store reachability
	GET    /metrics                          Prometheus exposition
	GET    /admin/ignore                     list ignored channels
	POST   /admin/ignore                     {"channel_id": "..."} add a channel
	DELETE /admin/ignore/{channelID}         remove a channel
	GET    /admin/messages/{messageID}/versions   content history, newest first
	GET    /admin/search/{messageID}         search document for a message
	POST   /admin/channels/{channelID}/forget     purge a channel from both projections

Admin routes are rate limited per client IP with go-chi/httprate. Every
response uses the same JSON envelope:

	{"status": "success", "data": ..., "metadata": {"timestamp": "..."}}
	{"status": "error", "error": {"code": "...", "message": "..."}, "metadata": {...}}

Dependencies are injected through Deps; nil members disable the routes that
need them so the server can run in capture-only or projection-only processes.
*/
package api
