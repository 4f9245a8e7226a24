// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/chronicle/internal/logging"
)

// forgetStatements hard-delete a channel in dependency order: overrides,
// message children, messages, then the channel row.
var forgetStatements = []struct {
	table string
	query string
}{
	{"permission_overrides", `DELETE FROM permission_overrides WHERE channel = $1`},
	{"message_reactions", `DELETE FROM message_reactions WHERE message_id IN (SELECT id FROM messages WHERE channel = $1)`},
	{"message_versions", `DELETE FROM message_versions WHERE message_id IN (SELECT id FROM messages WHERE channel = $1)`},
	{"message_embed_fields", `DELETE FROM message_embed_fields WHERE message_id IN (SELECT id FROM messages WHERE channel = $1)`},
	{"message_embeds", `DELETE FROM message_embeds WHERE message_id IN (SELECT id FROM messages WHERE channel = $1)`},
	{"message_attachments", `DELETE FROM message_attachments WHERE message_id IN (SELECT id FROM messages WHERE channel = $1)`},
	{"messages", `DELETE FROM messages WHERE channel = $1`},
	{"channels", `DELETE FROM channels WHERE id = $1`},
}

// ForgetChannel permanently removes a channel and everything captured in it.
// It returns the number of rows removed per table.
func (s *Store) ForgetChannel(ctx context.Context, channelID string) (map[string]int64, error) {
	if channelID == "" {
		return nil, ErrEmptyChannelID
	}

	removed := make(map[string]int64, len(forgetStatements))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, st := range forgetStatements {
			res, err := tx.ExecContext(ctx, st.query, channelID)
			if err != nil {
				return fmt.Errorf("forget channel %s: delete from %s: %w", channelID, st.table, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				removed[st.table] = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("channel_id", channelID).
		Int64("messages", removed["messages"]).
		Msg("Forgot channel")
	return removed, nil
}
