// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

// Package events defines the domain events exchanged between the emitter
// and the projections.
//
// Every event is addressed by the snowflake of the entity it concerns.
// That key is also the transport partitioning key, so all events about one
// entity reach each consumer in publication order. Payloads are JSON; the
// schema name travels next to the payload so consumers route without
// depending on producer types.
package events

import "time"

// SchemaVersion is the current payload version, carried in the
// schema_version header. Increment it when a payload changes incompatibly.
const SchemaVersion = 1

// Family groups schemas onto one logical topic.
type Family string

const (
	// FamilyMetadata carries server, channel, role and user state.
	FamilyMetadata Family = "metadata"

	// FamilyMessages carries message lifecycle and reaction events.
	FamilyMessages Family = "messages"
)

// Families lists every topic family.
var Families = []Family{FamilyMetadata, FamilyMessages}

// Schema names.
const (
	SchemaServerInfo         = "ServerInfo"
	SchemaChannelInfo        = "ChannelInfo"
	SchemaChannelDeletion    = "ChannelDeletion"
	SchemaRoleInfo           = "RoleInfo"
	SchemaRoleDeletion       = "RoleDeletion"
	SchemaUserInfo           = "UserInfo"
	SchemaMemberInfo         = "MemberInfo"
	SchemaNewMessage         = "NewMessage"
	SchemaMessageEdit        = "MessageEdit"
	SchemaMessageEmbedUpdate = "MessageEmbedUpdate"
	SchemaMessageDeletion    = "MessageDeletion"
	SchemaReactionAdd        = "ReactionAdd"
	SchemaReactionRemove     = "ReactionRemove"
	SchemaReactionClear      = "ReactionClear"
)

// Event is implemented by every payload type.
type Event interface {
	// Schema returns the schema name used for routing.
	Schema() string

	// Key returns the entity key (decimal snowflake) used for partitioning.
	Key() string

	// Family returns the topic family the event is published on.
	Family() Family
}

// Envelope is the transport-level wrapper around a payload.
type Envelope struct {
	SchemaName    string
	SchemaVersion int
	Key           string
	Payload       []byte
	PublishedAt   time.Time
}
