// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package search

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/dispatch"
	"github.com/tomtom215/chronicle/internal/events"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestStore(t *testing.T, parity bool) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	s := New(db, parity)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMessage(id, channel, content string) *events.NewMessage {
	return &events.NewMessage{
		ID:          id,
		Server:      "10",
		ServerName:  "guild",
		Channel:     channel,
		ChannelName: "general",
		Author:      events.UserInfo{ID: "500", Name: "alice", Discriminator: "0001"},
		CreatedAt:   t0,
		Content:     content,
	}
}

func mustGet(t *testing.T, s *Store, id string) *Document {
	t.Helper()
	doc, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	return doc
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(&config.SearchConfig{InMemory: true, Compression: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := s.Get(context.Background(), "1"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get() after Close error = %v, want ErrStoreClosed", err)
	}
}

func TestOpen_OnDiskPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "search")
	ctx := context.Background()

	s, err := Open(&config.SearchConfig{Path: dir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.NewMessage(ctx, newMessage("1", "200", "hello")); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(&config.SearchConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if doc := mustGet(t, s, "1"); doc.Content != "hello" {
		t.Errorf("Content = %q after reopen", doc.Content)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t, false)
	if _, err := s.Get(context.Background(), "404"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Get() error = %v, want ErrDocumentNotFound", err)
	}
}

func TestNewMessage_Document(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	ev := newMessage("1", "200", "look https://example.com <@42>")
	ev.Attachments = []events.Attachment{{ID: "9", Name: "a.zip", URL: "https://cdn/a.zip"}}
	ev.Embeds = []events.Embed{{Type: "image", ImageURL: "https://x/y.png"}}
	if err := s.NewMessage(ctx, ev); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	doc := mustGet(t, s, "1")
	want := &Document{
		ID:          "1",
		Server:      "10",
		Channel:     ChannelRef{ID: "200", Name: "general"},
		Author:      AuthorRef{ID: "500", Name: "alice", Discriminator: "0001"},
		Content:     ev.Content,
		Has:         []string{TagEmbed, TagFile, TagImage, TagLink},
		Mentions:    []string{"42"},
		Attachments: true,
		Timestamp:   t0.UnixMilli(),
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("document = %+v, want %+v", doc, want)
	}

	// Redelivery overwrites without duplicating the channel index.
	if err := s.NewMessage(ctx, ev); err != nil {
		t.Fatalf("second NewMessage() error = %v", err)
	}
	ids, err := s.ChannelDocuments(ctx, "200")
	if err != nil {
		t.Fatalf("ChannelDocuments() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"1"}) {
		t.Errorf("ChannelDocuments() = %v, want [1]", ids)
	}
}

func TestMessageEdit_KeepsOtherTags(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	ev := newMessage("1", "200", "https://example.com")
	ev.Attachments = []events.Attachment{{ID: "9", Name: "clip.mp4"}}
	if err := s.NewMessage(ctx, ev); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	edit := &events.MessageEdit{ID: "1", Server: "10", Channel: "200", Content: "no link <@7>", Timestamp: t0.Add(time.Minute)}
	if err := s.MessageEdit(ctx, edit); err != nil {
		t.Fatalf("MessageEdit() error = %v", err)
	}

	doc := mustGet(t, s, "1")
	if doc.Content != "no link <@7>" {
		t.Errorf("Content = %q", doc.Content)
	}
	if !reflect.DeepEqual(doc.Has, []string{TagVideo}) {
		t.Errorf("Has = %v, want [video]", doc.Has)
	}
	if !reflect.DeepEqual(doc.Mentions, []string{"7"}) {
		t.Errorf("Mentions = %v, want [7]", doc.Mentions)
	}
	if doc.Timestamp != t0.UnixMilli() {
		t.Errorf("Timestamp changed to %d", doc.Timestamp)
	}
}

func TestMessageEdit_MissingDocumentSkipped(t *testing.T) {
	s := newTestStore(t, false)
	edit := &events.MessageEdit{ID: "404", Channel: "200", Content: "x", Timestamp: t0}
	if err := s.MessageEdit(context.Background(), edit); err != nil {
		t.Fatalf("MessageEdit() error = %v, want nil", err)
	}
	if _, err := s.Get(context.Background(), "404"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("edit created a document: %v", err)
	}
}

func TestMessageEmbedUpdate_PreservesAttachmentTags(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	ev := newMessage("1", "200", "https://example.com")
	ev.Attachments = []events.Attachment{{ID: "9", Name: "a.zip"}}
	ev.Embeds = []events.Embed{{Type: "rich", Title: "preview"}}
	if err := s.NewMessage(ctx, ev); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if doc := mustGet(t, s, "1"); !reflect.DeepEqual(doc.Has, []string{TagEmbed, TagFile, TagLink}) {
		t.Fatalf("initial Has = %v", doc.Has)
	}

	if err := s.MessageEmbedUpdate(ctx, &events.MessageEmbedUpdate{ID: "1", Channel: "200"}); err != nil {
		t.Fatalf("MessageEmbedUpdate() error = %v", err)
	}
	doc := mustGet(t, s, "1")
	if !reflect.DeepEqual(doc.Has, []string{TagFile, TagLink}) {
		t.Errorf("Has = %v, want [file link]", doc.Has)
	}
}

func TestMessageEmbedUpdate_LinkTagParity(t *testing.T) {
	tests := []struct {
		name        string
		parity      bool
		attachments []events.Attachment
		want        []string
	}{
		{"independent", false, nil, []string{TagEmbed, TagLink}},
		{"parity drops link", true, nil, []string{TagEmbed}},
		{"parity keeps link with attachments", true, []events.Attachment{{ID: "9", Name: "a.txt"}}, []string{TagEmbed, TagFile, TagLink}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, tt.parity)
			ctx := context.Background()

			ev := newMessage("1", "200", "https://example.com")
			ev.Attachments = tt.attachments
			if err := s.NewMessage(ctx, ev); err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			update := &events.MessageEmbedUpdate{ID: "1", Channel: "200", Embeds: []events.Embed{{Type: "link"}}}
			if err := s.MessageEmbedUpdate(ctx, update); err != nil {
				t.Fatalf("MessageEmbedUpdate() error = %v", err)
			}
			if doc := mustGet(t, s, "1"); !reflect.DeepEqual(doc.Has, tt.want) {
				t.Errorf("Has = %v, want %v", doc.Has, tt.want)
			}
		})
	}
}

func TestMessageDeletion_SoftDeletes(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	if err := s.NewMessage(ctx, newMessage("1", "200", "bye")); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	at := t0.Add(time.Hour + 123*time.Millisecond)
	if err := s.MessageDeletion(ctx, &events.MessageDeletion{ID: "1", Channel: "200", Timestamp: at}); err != nil {
		t.Fatalf("MessageDeletion() error = %v", err)
	}

	doc := mustGet(t, s, "1")
	if !doc.Deleted() || *doc.DeletedAt != at.UnixMilli() {
		t.Errorf("DeletedAt = %v, want %d", doc.DeletedAt, at.UnixMilli())
	}
	if doc.Content != "bye" {
		t.Errorf("Content = %q, document should be kept", doc.Content)
	}
}

func TestForgetChannel(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	for _, m := range []*events.NewMessage{
		newMessage("1", "200", "a"),
		newMessage("2", "200", "b"),
		newMessage("3", "2000", "c"),
	} {
		if err := s.NewMessage(ctx, m); err != nil {
			t.Fatalf("NewMessage(%s) error = %v", m.ID, err)
		}
	}

	n, err := s.ForgetChannel(ctx, "200")
	if err != nil {
		t.Fatalf("ForgetChannel() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ForgetChannel() = %d, want 2", n)
	}
	if _, err := s.Get(ctx, "1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("document 1 still present: %v", err)
	}
	if _, err := s.GetProvenance(ctx, "2"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("provenance 2 still present: %v", err)
	}
	if doc := mustGet(t, s, "3"); doc.Channel.ID != "2000" {
		t.Errorf("channel 2000 document affected: %+v", doc)
	}
	if count, _ := s.Count(ctx); count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}

	if _, err := s.ForgetChannel(ctx, ""); !errors.Is(err, ErrEmptyChannelID) {
		t.Errorf("ForgetChannel(\"\") error = %v", err)
	}
}

func TestRegister_EndToEnd(t *testing.T) {
	s := newTestStore(t, false)
	r := dispatch.NewRegistry()
	s.Register(r)
	ctx := context.Background()

	msg := newMessage("1", "200", "first")
	msg.Embeds = []events.Embed{{Type: "rich"}}
	stream := []events.Event{
		msg,
		&events.MessageEdit{ID: "1", Server: "10", Channel: "200", Content: "now https://go.dev", Timestamp: t0.Add(time.Minute)},
		&events.MessageEmbedUpdate{ID: "1", Channel: "200", Embeds: []events.Embed{{Type: "video"}}},
		&events.MessageDeletion{ID: "1", Channel: "200", Timestamp: t0.Add(time.Hour)},
	}
	for _, ev := range stream {
		env, err := events.NewEnvelope(ev, time.Now())
		if err != nil {
			t.Fatalf("NewEnvelope(%s) error = %v", ev.Schema(), err)
		}
		if err := r.Dispatch(ctx, env); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", ev.Schema(), err)
		}
	}

	doc := mustGet(t, s, "1")
	if doc.Content != "now https://go.dev" {
		t.Errorf("Content = %q", doc.Content)
	}
	if !reflect.DeepEqual(doc.Has, []string{TagEmbed, TagLink, TagVideo}) {
		t.Errorf("Has = %v", doc.Has)
	}
	if doc.DeletedAt == nil || *doc.DeletedAt != t0.Add(time.Hour).UnixMilli() {
		t.Errorf("DeletedAt = %v", doc.DeletedAt)
	}

	want := []string{
		events.SchemaMessageDeletion,
		events.SchemaMessageEdit,
		events.SchemaMessageEmbedUpdate,
		events.SchemaNewMessage,
	}
	if got := r.Schemas(); !reflect.DeepEqual(got, want) {
		t.Errorf("Schemas() = %v, want %v", got, want)
	}
}

func TestRunGC_NoRewrite(t *testing.T) {
	s, err := Open(&config.SearchConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() error = %v", err)
	}
}

func TestClose_WaitsForRunningOperation(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	if err := s.NewMessage(ctx, newMessage("1", "200", "hi")); err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	release, err := s.acquire()
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()

	select {
	case err := <-closed:
		t.Fatalf("Close() returned %v while an operation held the store", err)
	case <-time.After(50 * time.Millisecond):
	}

	// The database stays usable for the holder until it releases.
	var doc *Document
	if err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDocument(txn, "1")
		return err
	}); err != nil || doc.Content != "hi" {
		t.Fatalf("read under hold: doc=%+v err=%v", doc, err)
	}

	release()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close() did not return after release")
	}

	if err := s.MessageDeletion(ctx, &events.MessageDeletion{ID: "1", Channel: "200", Timestamp: t0}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("MessageDeletion() after Close error = %v, want ErrStoreClosed", err)
	}
}
