// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

// Package validation provides struct validation using go-playground/validator v10.
//
// One validator instance is shared by the event codec and the ops API so
// struct metadata is cached once and custom tags are registered in one place.
//
// # Custom Tags
//
//   - snowflake: a non-empty decimal string that parses as an unsigned
//     64-bit integer (platform entity ids)
//
// # Usage
//
//	type ignoreRequest struct {
//	    ChannelID string `json:"channel_id" validate:"required,snowflake"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Error messages are translated to plain sentences ("ChannelID must be a
// valid snowflake id") and grouped under the VALIDATION_ERROR code.
package validation
