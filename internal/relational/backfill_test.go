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

func fetched(id, content string, edited *time.Time) BackfillMessage {
	return BackfillMessage{Message: *newMessage(id, "20", content), EditedAt: edited}
}

func TestApplyBackfillBatch_OverlapAddsNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.NewMessage(ctx, newMessage("1", "20", "same")); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	edited := t0.Add(time.Hour)
	batch := []BackfillMessage{fetched("1", "same", &edited)}
	for i := 0; i < 2; i++ {
		res, err := s.ApplyBackfillBatch(ctx, batch)
		if err != nil {
			t.Fatalf("ApplyBackfillBatch() error = %v", err)
		}
		if res.Outcomes["1"] != Unchanged {
			t.Errorf("outcome = %v, want Unchanged", res.Outcomes["1"])
		}
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_versions`); got != 1 {
		t.Errorf("versions = %d, want 1", got)
	}
}

func TestApplyBackfillBatch_ChangedContentAppendsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.NewMessage(ctx, newMessage("1", "20", "old")); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	edited := t0.Add(time.Hour)
	batch := []BackfillMessage{fetched("1", "new", &edited)}

	res, err := s.ApplyBackfillBatch(ctx, batch)
	if err != nil {
		t.Fatalf("ApplyBackfillBatch() error = %v", err)
	}
	if res.Outcomes["1"] != Versioned {
		t.Errorf("outcome = %v, want Versioned", res.Outcomes["1"])
	}

	res, err = s.ApplyBackfillBatch(ctx, batch)
	if err != nil {
		t.Fatalf("second ApplyBackfillBatch() error = %v", err)
	}
	if res.Outcomes["1"] != Unchanged {
		t.Errorf("second outcome = %v, want Unchanged", res.Outcomes["1"])
	}

	versions, err := s.Versions(ctx, "1")
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(versions))
	}
	if versions[0].Content != "new" || !versions[0].CreatedAt.Equal(edited) {
		t.Errorf("latest version = %+v, want new at %v", versions[0], edited)
	}
}

func TestApplyBackfillBatch_ChangedWithoutEditTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.NewMessage(ctx, newMessage("1", "20", "old")); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	res, err := s.ApplyBackfillBatch(ctx, []BackfillMessage{fetched("1", "different", nil)})
	if err != nil {
		t.Fatalf("ApplyBackfillBatch() error = %v", err)
	}
	if res.Outcomes["1"] != Unchanged {
		t.Errorf("outcome = %v, want Unchanged", res.Outcomes["1"])
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_versions`); got != 1 {
		t.Errorf("versions = %d, want 1", got)
	}
}

func TestApplyBackfillBatch_NewMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	edited := t0.Add(time.Minute)
	plain := fetched("1", "plain", nil)
	plain.Message.Attachments = []events.Attachment{{ID: "900", Name: "a.png", URL: "u"}}
	batch := []BackfillMessage{plain, fetched("2", "edited", &edited)}

	for i := 0; i < 2; i++ {
		res, err := s.ApplyBackfillBatch(ctx, batch)
		if err != nil {
			t.Fatalf("ApplyBackfillBatch() #%d error = %v", i, err)
		}
		wantInserted := 2
		if i == 1 {
			wantInserted = 0
		}
		if got := res.Count(Inserted); got != wantInserted {
			t.Errorf("run %d inserted = %d, want %d", i, got, wantInserted)
		}
	}

	if got := countRows(t, s, `SELECT COUNT(*) FROM messages`); got != 2 {
		t.Errorf("messages = %d, want 2", got)
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_versions`); got != 2 {
		t.Errorf("versions = %d, want 2", got)
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_attachments`); got != 1 {
		t.Errorf("attachments = %d, want 1", got)
	}
	if got := countRows(t, s, `SELECT COUNT(*) FROM message_versions WHERE message_id = '2' AND created_at = $1`, edited); got != 1 {
		t.Error("edited message version not stamped with edit time")
	}

	known, err := s.KnownMessages(ctx, []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("KnownMessages() error = %v", err)
	}
	if len(known) != 2 || known["1"] != "plain" || known["2"] != "edited" {
		t.Errorf("KnownMessages() = %v", known)
	}
}
