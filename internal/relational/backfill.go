// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/chronicle/internal/events"
)

// Outcome is what a backfill batch did with one message.
type Outcome int

const (
	// Unchanged means the message was known and its content matched.
	Unchanged Outcome = iota
	// Inserted means the message was new.
	Inserted
	// Versioned means a new version was appended to a known message.
	Versioned
)

// BackfillMessage is one message fetched from history. Message.Content is
// the current content; EditedAt is set when the message was edited.
type BackfillMessage struct {
	Message  events.NewMessage
	EditedAt *time.Time
}

// BackfillResult reports the outcome per message id.
type BackfillResult struct {
	Outcomes map[string]Outcome
}

// Count returns how many messages had outcome o.
func (r BackfillResult) Count(o Outcome) int {
	n := 0
	for _, got := range r.Outcomes {
		if got == o {
			n++
		}
	}
	return n
}

// KnownMessages returns the latest stored content for each id that exists.
func (s *Store) KnownMessages(ctx context.Context, ids []string) (map[string]string, error) {
	var known map[string]string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		known, err = knownMessages(ctx, tx, ids)
		return err
	})
	return known, err
}

func knownMessages(ctx context.Context, tx *sql.Tx, ids []string) (map[string]string, error) {
	known := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return known, nil
	}

	args := make([]any, len(ids))
	var placeholders strings.Builder
	for i, id := range ids {
		if i > 0 {
			placeholders.WriteString(", ")
		}
		placeholders.WriteString("$" + strconv.Itoa(i+1))
		args[i] = id
	}

	query := `
		SELECT m.id, v.content
		FROM messages m
		LEFT JOIN (
			SELECT message_id, content,
				ROW_NUMBER() OVER (PARTITION BY message_id ORDER BY created_at DESC) AS rn
			FROM message_versions
		) v ON v.message_id = m.id AND v.rn = 1
		WHERE m.id IN (` + placeholders.String() + `)`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query known messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var content sql.NullString
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("scan known message: %w", err)
		}
		known[id] = content.String
	}
	return known, rows.Err()
}

// ApplyBackfillBatch reconciles a batch of fetched messages in one
// transaction. Known messages get at most one version, and only when the
// content changed and an edit timestamp is present. Unknown messages are
// inserted with a single version stamped with the edit time, or the creation
// time when unedited. Users, embeds and attachments are refreshed for both.
func (s *Store) ApplyBackfillBatch(ctx context.Context, batch []BackfillMessage) (BackfillResult, error) {
	result := BackfillResult{Outcomes: make(map[string]Outcome, len(batch))}
	if len(batch) == 0 {
		return result, nil
	}

	ids := make([]string, len(batch))
	for i := range batch {
		ids[i] = batch[i].Message.ID
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		known, err := knownMessages(ctx, tx, ids)
		if err != nil {
			return err
		}

		for i := range batch {
			b := &batch[i]
			msg := &b.Message

			if err := insertMessage(ctx, tx, msg); err != nil {
				return err
			}

			latest, exists := known[msg.ID]
			if exists {
				outcome := Unchanged
				if b.EditedAt != nil && latest != msg.Content {
					added, err := appendVersion(ctx, tx, msg.ID, *b.EditedAt, msg.Content)
					if err != nil {
						return err
					}
					if added {
						outcome = Versioned
					}
				}
				result.Outcomes[msg.ID] = outcome
				continue
			}

			// History only returns current content, so an edited message's
			// original text is unknown and no initial version is invented.
			at := msg.CreatedAt
			if b.EditedAt != nil {
				at = *b.EditedAt
			}
			if _, err := insertVersion(ctx, tx, msg.ID, at, msg.Content); err != nil {
				return err
			}
			known[msg.ID] = msg.Content
			result.Outcomes[msg.ID] = Inserted
		}
		return nil
	})
	if err != nil {
		return BackfillResult{}, err
	}
	return result, nil
}
