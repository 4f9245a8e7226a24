// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/chronicle/internal/events"
)

func TestNewMessage_Metadata(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env, err := events.NewEnvelope(&events.MessageDeletion{
		ID:        "175928847299117063",
		Channel:   "81384788765712384",
		Timestamp: now,
	}, now)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}

	msg := NewMessage(env)

	if msg.UUID == "" {
		t.Fatal("message UUID is empty")
	}
	if got := msg.Metadata.Get(natsgo.MsgIdHdr); got != msg.UUID {
		t.Errorf("%s = %q, want %q", natsgo.MsgIdHdr, got, msg.UUID)
	}
	if got := msg.Metadata.Get(MetadataKey); got != "175928847299117063" {
		t.Errorf("key = %q", got)
	}
	if got := msg.Metadata.Get(MetadataSchemaName); got != events.SchemaMessageDeletion {
		t.Errorf("schema = %q", got)
	}

	back, err := EnvelopeFromMessage(msg)
	if err != nil {
		t.Fatalf("EnvelopeFromMessage() error = %v", err)
	}
	if back.SchemaVersion != events.SchemaVersion {
		t.Errorf("SchemaVersion = %d", back.SchemaVersion)
	}
	if !back.PublishedAt.Equal(now) {
		t.Errorf("PublishedAt = %v, want %v", back.PublishedAt, now)
	}
	if string(back.Payload) != string(env.Payload) {
		t.Errorf("payload changed: %s", back.Payload)
	}
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	env := &events.Envelope{SchemaName: events.SchemaUserInfo, Key: "1", Payload: []byte(`{}`)}
	a, b := NewMessage(env), NewMessage(env)
	if a.UUID == b.UUID {
		t.Error("two publishes of the same envelope share a message id")
	}
}

func TestEnvelopeFromMessage_MissingSchema(t *testing.T) {
	msg := message.NewMessage("id", []byte(`{}`))
	_, err := EnvelopeFromMessage(msg)
	if !errors.Is(err, ErrMissingMetadata) {
		t.Errorf("EnvelopeFromMessage() error = %v, want ErrMissingMetadata", err)
	}
}
