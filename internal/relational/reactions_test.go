// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/chronicle/internal/events"
)

func reactionAdd(user, emoji string, at time.Time) *events.ReactionAdd {
	return &events.ReactionAdd{
		Message:   "1",
		Channel:   "20",
		UserID:    user,
		User:      &events.UserInfo{ID: user, Name: "u" + user},
		Type:      events.ReactionNormal,
		Emoji:     emoji,
		Timestamp: at,
	}
}

func TestReactions_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := func() int {
		return countRows(t, s, `SELECT COUNT(*) FROM message_reactions WHERE message_id = '1' AND deleted_at IS NULL`)
	}
	total := func() int {
		return countRows(t, s, `SELECT COUNT(*) FROM message_reactions WHERE message_id = '1'`)
	}

	// Duplicate add of an active reaction is ignored, even at a new time.
	for _, ev := range []*events.ReactionAdd{
		reactionAdd("501", "👍", t0),
		reactionAdd("501", "👍", t0),
		reactionAdd("501", "👍", t0.Add(time.Second)),
		reactionAdd("502", "👍", t0),
		reactionAdd("501", "🔥", t0),
	} {
		if err := s.ReactionAdd(ctx, ev); err != nil {
			t.Fatalf("ReactionAdd() error = %v", err)
		}
	}
	if got := active(); got != 3 {
		t.Fatalf("active reactions = %d, want 3", got)
	}

	err := s.ReactionRemove(ctx, &events.ReactionRemove{
		Message: "1", Channel: "20", UserID: "501", Type: events.ReactionNormal, Emoji: "🔥", Timestamp: t0.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("ReactionRemove() error = %v", err)
	}
	if got := active(); got != 2 {
		t.Fatalf("active after remove = %d, want 2", got)
	}

	// Reacting again after removal appends a new row.
	if err := s.ReactionAdd(ctx, reactionAdd("501", "🔥", t0.Add(2*time.Minute))); err != nil {
		t.Fatalf("ReactionAdd() error = %v", err)
	}
	if got, want := total(), 4; got != want {
		t.Fatalf("total rows = %d, want %d", got, want)
	}

	clearAt := t0.Add(time.Hour)
	if err := s.ReactionClear(ctx, &events.ReactionClear{Message: "1", Channel: "20", Timestamp: clearAt}); err != nil {
		t.Fatalf("ReactionClear() error = %v", err)
	}
	if got := active(); got != 0 {
		t.Fatalf("active after clear = %d, want 0", got)
	}

	// The row removed earlier keeps its own deletion time.
	removedAt := t0.Add(time.Minute)
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_reactions WHERE deleted_at = $1`, removedAt); got != 1 {
		t.Errorf("rows deleted at removal time = %d, want 1", got)
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_reactions WHERE deleted_at = $1`, clearAt); got != 3 {
		t.Errorf("rows deleted at clear time = %d, want 3", got)
	}

	// Re-clearing is a no-op.
	if err := s.ReactionClear(ctx, &events.ReactionClear{Message: "1", Channel: "20", Timestamp: clearAt.Add(time.Hour)}); err != nil {
		t.Fatalf("ReactionClear() error = %v", err)
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_reactions WHERE deleted_at = $1`, clearAt); got != 3 {
		t.Errorf("re-clear changed deletion times")
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM users WHERE id IN ('501', '502')`); got != 2 {
		t.Errorf("reacting users = %d, want 2", got)
	}
}

func TestReactionAdd_CustomEmojiDistinct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := reactionAdd("501", "party", t0)
	b := reactionAdd("501", "party", t0)
	b.EmojiID = "777"
	for _, ev := range []*events.ReactionAdd{a, b} {
		if err := s.ReactionAdd(ctx, ev); err != nil {
			t.Fatalf("ReactionAdd() error = %v", err)
		}
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_reactions WHERE deleted_at IS NULL`); got != 2 {
		t.Errorf("active reactions = %d, want 2", got)
	}
}
