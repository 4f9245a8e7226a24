// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
)

// NewMessage inserts a message with its first version, embeds and
// attachments. Replaying it leaves one message row and one version.
func (s *Store) NewMessage(ctx context.Context, ev *events.NewMessage) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertMessage(ctx, tx, ev); err != nil {
			return err
		}
		_, err := insertVersion(ctx, tx, ev.ID, ev.CreatedAt, ev.Content)
		return err
	})
}

// insertMessage writes everything about a message except its versions.
func insertMessage(ctx context.Context, tx *sql.Tx, ev *events.NewMessage) error {
	if err := ensureServer(ctx, tx, ev.Server, ev.ServerName); err != nil {
		return err
	}
	if err := ensureChannel(ctx, tx, ev.Channel, ev.Server, ev.ChannelName); err != nil {
		return err
	}
	if err := upsertUser(ctx, tx, &ev.Author); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, server, channel, user_id, webhook_name,
			referenced_server, referenced_channel, referenced_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Server, ev.Channel, ev.Author.ID, ev.WebhookName,
		ev.ReferencedServer, ev.ReferencedChannel, ev.ReferencedMessage, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", ev.ID, err)
	}

	if err := replaceEmbeds(ctx, tx, ev.ID, ev.Embeds); err != nil {
		return err
	}
	return replaceAttachments(ctx, tx, ev.ID, ev.Attachments)
}

// MessageEdit appends a version when the content differs from the latest one.
func (s *Store) MessageEdit(ctx context.Context, ev *events.MessageEdit) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := appendVersion(ctx, tx, ev.ID, ev.Timestamp, ev.Content)
		return err
	})
}

// appendVersion adds a version unless content equals the latest stored one.
// It reports whether a row was written.
func appendVersion(ctx context.Context, tx *sql.Tx, messageID string, at time.Time, content string) (bool, error) {
	latest, ok, err := latestContent(ctx, tx, messageID)
	if err != nil {
		return false, err
	}
	if ok && latest == content {
		return false, nil
	}
	if !ok {
		logging.Debug().Str("message_id", messageID).Msg("Edit for message without versions")
	}
	return insertVersion(ctx, tx, messageID, at, content)
}

func latestContent(ctx context.Context, tx *sql.Tx, messageID string) (string, bool, error) {
	var content string
	err := tx.QueryRowContext(ctx, `
		SELECT content FROM message_versions
		WHERE message_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, messageID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read latest version of %s: %w", messageID, err)
	}
	return content, true, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, messageID string, at time.Time, content string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO message_versions (message_id, created_at, content) VALUES ($1, $2, $3)
		ON CONFLICT (message_id, created_at) DO NOTHING`,
		messageID, at, content)
	if err != nil {
		return false, fmt.Errorf("insert version of %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return true, nil
	}
	return n > 0, nil
}

// MessageEmbedUpdate replaces the embeds of a message.
func (s *Store) MessageEmbedUpdate(ctx context.Context, ev *events.MessageEmbedUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return replaceEmbeds(ctx, tx, ev.ID, ev.Embeds)
	})
}

// MessageDeletion tombstones a message. Versions and children are kept.
func (s *Store) MessageDeletion(ctx context.Context, ev *events.MessageDeletion) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE messages SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
			ev.ID, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("delete message %s: %w", ev.ID, err)
		}
		return nil
	})
}

func replaceEmbeds(ctx context.Context, tx *sql.Tx, messageID string, embeds []events.Embed) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM message_embed_fields WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("clear embed fields of %s: %w", messageID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM message_embeds WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("clear embeds of %s: %w", messageID, err)
	}

	for i := range embeds {
		e := &embeds[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO message_embeds (message_id, embed_index, type, title, description, url,
				color, embed_timestamp, footer, image_url, thumbnail_url, video_url, provider,
				author_name, author_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			messageID, i, e.Type, nullString(e.Title), nullString(e.Description), nullString(e.URL),
			e.Color, e.Timestamp, nullString(e.Footer), nullString(e.ImageURL),
			nullString(e.ThumbnailURL), nullString(e.VideoURL), nullString(e.ProviderName),
			nullString(e.AuthorName), nullString(e.AuthorURL))
		if err != nil {
			return fmt.Errorf("insert embed %d of %s: %w", i, messageID, err)
		}

		for j, f := range e.Fields {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO message_embed_fields (message_id, embed_index, field_index, name, value, inline)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				messageID, i, j, f.Name, f.Value, f.Inline)
			if err != nil {
				return fmt.Errorf("insert embed field %d.%d of %s: %w", i, j, messageID, err)
			}
		}
	}
	return nil
}

func replaceAttachments(ctx context.Context, tx *sql.Tx, messageID string, attachments []events.Attachment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM message_attachments WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("clear attachments of %s: %w", messageID, err)
	}
	for _, a := range attachments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO message_attachments (message_id, id, name, url, size, width, height)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (message_id, id) DO NOTHING`,
			messageID, a.ID, a.Name, a.URL, a.Size, nullInt(a.Width), nullInt(a.Height))
		if err != nil {
			return fmt.Errorf("insert attachment %s of %s: %w", a.ID, messageID, err)
		}
	}
	return nil
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
