// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"fmt"
	"time"
)

// Version is one stored content version.
type Version struct {
	CreatedAt time.Time
	Content   string
}

// Versions returns the versions of a message, newest first.
func (s *Store) Versions(ctx context.Context, messageID string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, content FROM message_versions
		WHERE message_id = $1
		ORDER BY created_at DESC`, messageID)
	if err != nil {
		return nil, fmt.Errorf("query versions of %s: %w", messageID, err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.CreatedAt, &v.Content); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TableCounts returns the row count of each projected table.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		// Table names come from the fixed Tables list.
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Tables lists the projected tables.
var Tables = []string{
	"servers", "channels", "permission_overrides",
	"users", "roles", "user_roles", "user_nicknames",
	"messages", "message_versions",
	"message_embeds", "message_embed_fields",
	"message_attachments", "message_reactions",
}
