// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/chronicle/internal/events"
)

// Reactions are append-only. Removal and clear set deleted_at on active rows.

// ReactionAdd records a reaction unless the same reaction is already active.
func (s *Store) ReactionAdd(ctx context.Context, ev *events.ReactionAdd) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if ev.User != nil {
			if err := upsertUser(ctx, tx, ev.User); err != nil {
				return err
			}
		}

		var active int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM message_reactions
			WHERE message_id = $1 AND user_id = $2 AND type = $3 AND emoji = $4 AND emoji_id = $5
				AND deleted_at IS NULL`,
			ev.Message, ev.UserID, string(ev.Type), ev.Emoji, ev.EmojiID).Scan(&active)
		if err != nil {
			return fmt.Errorf("check reaction on %s: %w", ev.Message, err)
		}
		if active > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO message_reactions (message_id, user_id, type, emoji, emoji_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT DO NOTHING`,
			ev.Message, ev.UserID, string(ev.Type), ev.Emoji, ev.EmojiID, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("insert reaction on %s: %w", ev.Message, err)
		}
		return nil
	})
}

// ReactionRemove marks the matching active reaction deleted.
func (s *Store) ReactionRemove(ctx context.Context, ev *events.ReactionRemove) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE message_reactions SET deleted_at = $6
			WHERE message_id = $1 AND user_id = $2 AND type = $3 AND emoji = $4 AND emoji_id = $5
				AND deleted_at IS NULL`,
			ev.Message, ev.UserID, string(ev.Type), ev.Emoji, ev.EmojiID, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("remove reaction on %s: %w", ev.Message, err)
		}
		return nil
	})
}

// ReactionClear marks every active reaction on a message deleted.
func (s *Store) ReactionClear(ctx context.Context, ev *events.ReactionClear) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE message_reactions SET deleted_at = $2 WHERE message_id = $1 AND deleted_at IS NULL`,
			ev.Message, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("clear reactions on %s: %w", ev.Message, err)
		}
		return nil
	})
}
