// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package search

import "errors"

// ErrDocumentNotFound is returned when no document exists for a message id.
var ErrDocumentNotFound = errors.New("search document not found")

// ErrStoreClosed is returned after Close.
var ErrStoreClosed = errors.New("search store is closed")

// ErrEmptyChannelID is returned by ForgetChannel for an empty channel id.
var ErrEmptyChannelID = errors.New("channel id is required")
