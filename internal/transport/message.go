// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/chronicle/internal/events"
)

// Envelope metadata keys, carried as NATS headers.
const (
	MetadataKey           = "key"
	MetadataSchemaName    = "schema_name"
	MetadataSchemaVersion = "schema_version"
	MetadataPublishedAt   = "published_at"
)

// NewMessage wraps an envelope in a Watermill message with a fresh UUID,
// which also serves as the JetStream deduplication id.
func NewMessage(env *events.Envelope) *message.Message {
	msg := message.NewMessage(uuid.New().String(), env.Payload)
	msg.Metadata.Set(MetadataKey, env.Key)
	msg.Metadata.Set(MetadataSchemaName, env.SchemaName)
	msg.Metadata.Set(MetadataSchemaVersion, strconv.Itoa(env.SchemaVersion))
	msg.Metadata.Set(MetadataPublishedAt, env.PublishedAt.Format(time.RFC3339Nano))
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	return msg
}

// EnvelopeFromMessage reads the envelope back from a consumed message.
// A missing schema name is an error; other fields degrade to zero values.
func EnvelopeFromMessage(msg *message.Message) (*events.Envelope, error) {
	schema := msg.Metadata.Get(MetadataSchemaName)
	if schema == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingMetadata, MetadataSchemaName)
	}

	env := &events.Envelope{
		SchemaName: schema,
		Key:        msg.Metadata.Get(MetadataKey),
		Payload:    msg.Payload,
	}
	if v, err := strconv.Atoi(msg.Metadata.Get(MetadataSchemaVersion)); err == nil {
		env.SchemaVersion = v
	}
	if ts, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(MetadataPublishedAt)); err == nil {
		env.PublishedAt = ts
	}
	return env, nil
}
