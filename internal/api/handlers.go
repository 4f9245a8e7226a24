// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/search"
	"github.com/tomtom215/chronicle/internal/validation"
)

// maxBodyBytes bounds admin request bodies.
const maxBodyBytes = 4 << 10

// LiveStatus is the /healthz payload.
type LiveStatus struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`
}

// ReadyStatus is the /readyz payload.
type ReadyStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Live reports that the process is serving.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, LiveStatus{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Seconds(),
	})
}

// Ready probes every registered dependency and returns 503 when any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.deps.Checks))
	for name := range h.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := ReadyStatus{Status: "ready", Components: make(map[string]string, len(names))}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := h.deps.Checks[name].Healthy(ctx)
		cancel()
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("component", name).Msg("Readiness check failed")
			status.Status = "not_ready"
			status.Components[name] = err.Error()
			continue
		}
		status.Components[name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	respondData(w, r, code, status)
}

// IgnoreRequest is the body of POST /admin/ignore.
type IgnoreRequest struct {
	ChannelID string `json:"channel_id" validate:"required,snowflake"`
}

// IgnoreChange reports the effect of an ignore-list edit.
type IgnoreChange struct {
	ChannelID string `json:"channel_id"`
	Changed   bool   `json:"changed"`
}

// ListIgnored returns the ignored channel ids.
func (h *Handler) ListIgnored(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.deps.Ignore.List())
}

// AddIgnored adds a channel to the ignore list. Adding a present channel
// succeeds with changed=false.
func (h *Handler) AddIgnored(w http.ResponseWriter, r *http.Request) {
	var req IgnoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "Request body must be {\"channel_id\": \"...\"}", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	changed, err := h.deps.Ignore.Add(req.ChannelID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "IGNORE_UPDATE_FAILED", "Failed to update ignore list", err)
		return
	}
	if changed {
		logging.Ctx(r.Context()).Info().Str("channel_id", req.ChannelID).Msg("Channel added to ignore list")
	}

	status := http.StatusOK
	if changed {
		status = http.StatusCreated
	}
	respondData(w, r, status, IgnoreChange{ChannelID: req.ChannelID, Changed: changed})
}

// RemoveIgnored removes a channel from the ignore list.
func (h *Handler) RemoveIgnored(w http.ResponseWriter, r *http.Request) {
	channelID, ok := snowflakeParam(w, r, "channelID")
	if !ok {
		return
	}

	changed, err := h.deps.Ignore.Remove(channelID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "IGNORE_UPDATE_FAILED", "Failed to update ignore list", err)
		return
	}
	if !changed {
		respondError(w, r, http.StatusNotFound, "NOT_IGNORED", "Channel is not on the ignore list", nil)
		return
	}

	logging.Ctx(r.Context()).Info().Str("channel_id", channelID).Msg("Channel removed from ignore list")
	respondData(w, r, http.StatusOK, IgnoreChange{ChannelID: channelID, Changed: true})
}

// VersionView is one content version in API form.
type VersionView struct {
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
}

// MessageVersions returns the content history of a message, newest first.
func (h *Handler) MessageVersions(w http.ResponseWriter, r *http.Request) {
	messageID, ok := snowflakeParam(w, r, "messageID")
	if !ok {
		return
	}

	versions, err := h.deps.Relational.Versions(r.Context(), messageID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load message versions", err)
		return
	}
	if len(versions) == 0 {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Message not found", nil)
		return
	}

	out := make([]VersionView, len(versions))
	for i, v := range versions {
		out[i] = VersionView{CreatedAt: v.CreatedAt.UTC(), Content: v.Content}
	}
	respondData(w, r, http.StatusOK, out)
}

// SearchDocument returns the search projection document of a message.
func (h *Handler) SearchDocument(w http.ResponseWriter, r *http.Request) {
	messageID, ok := snowflakeParam(w, r, "messageID")
	if !ok {
		return
	}

	doc, err := h.deps.Search.Get(r.Context(), messageID)
	switch {
	case errors.Is(err, search.ErrDocumentNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Search document not found", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load search document", err)
		return
	}
	respondData(w, r, http.StatusOK, doc)
}

// ForgetResult reports what a forget request removed.
type ForgetResult struct {
	ChannelID       string           `json:"channel_id"`
	Rows            map[string]int64 `json:"rows,omitempty"`
	SearchDocuments int              `json:"search_documents"`
}

// ForgetChannel purges a channel from every configured projection.
func (h *Handler) ForgetChannel(w http.ResponseWriter, r *http.Request) {
	channelID, ok := snowflakeParam(w, r, "channelID")
	if !ok {
		return
	}

	result := ForgetResult{ChannelID: channelID}
	if h.deps.Relational != nil {
		rows, err := h.deps.Relational.ForgetChannel(r.Context(), channelID)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "FORGET_FAILED", "Failed to forget channel in relational store", err)
			return
		}
		result.Rows = rows
	}
	if h.deps.Search != nil {
		n, err := h.deps.Search.ForgetChannel(r.Context(), channelID)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "FORGET_FAILED", "Failed to forget channel in search store", err)
			return
		}
		result.SearchDocuments = n
	}

	logging.Ctx(r.Context()).Info().
		Str("channel_id", channelID).
		Int("search_documents", result.SearchDocuments).
		Msg("Channel forgotten")
	respondData(w, r, http.StatusOK, result)
}

// snowflakeParam reads a URL parameter and rejects malformed ids with 400.
func snowflakeParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if !validation.IsSnowflake(id) {
		respondError(w, r, http.StatusBadRequest, validation.ErrorCode, name+" must be a valid snowflake id", nil)
		return "", false
	}
	return id, true
}
