// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"

	"github.com/tomtom215/chronicle/internal/dispatch"
	"github.com/tomtom215/chronicle/internal/events"
)

// Group is the consumer group of the relational projection.
const Group = "relational"

// Register binds every schema to its handler.
func (s *Store) Register(r *dispatch.Registry) {
	dispatch.Register(r, events.SchemaServerInfo, keyless(s.ServerInfo))
	dispatch.Register(r, events.SchemaChannelInfo, keyless(s.ChannelInfo))
	dispatch.Register(r, events.SchemaChannelDeletion, keyless(s.ChannelDeletion))
	dispatch.Register(r, events.SchemaRoleInfo, keyless(s.RoleInfo))
	dispatch.Register(r, events.SchemaRoleDeletion, keyless(s.RoleDeletion))
	dispatch.Register(r, events.SchemaUserInfo, keyless(s.UserInfo))
	dispatch.Register(r, events.SchemaMemberInfo, keyless(s.MemberInfo))
	dispatch.Register(r, events.SchemaNewMessage, keyless(s.NewMessage))
	dispatch.Register(r, events.SchemaMessageEdit, keyless(s.MessageEdit))
	dispatch.Register(r, events.SchemaMessageEmbedUpdate, keyless(s.MessageEmbedUpdate))
	dispatch.Register(r, events.SchemaMessageDeletion, keyless(s.MessageDeletion))
	dispatch.Register(r, events.SchemaReactionAdd, keyless(s.ReactionAdd))
	dispatch.Register(r, events.SchemaReactionRemove, keyless(s.ReactionRemove))
	dispatch.Register(r, events.SchemaReactionClear, keyless(s.ReactionClear))
}

// keyless adapts a handler that reads its key from the event itself.
func keyless[T any](fn func(context.Context, *T) error) func(context.Context, string, *T) error {
	return func(ctx context.Context, _ string, ev *T) error {
		return fn(ctx, ev)
	}
}
