// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/chronicle/internal/dispatch"
	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
)

// Group is the consumer group of the search projection.
const Group = "search"

// Register binds the message schemas this projection consumes.
// Metadata and reaction events are not indexed.
func (s *Store) Register(r *dispatch.Registry) {
	dispatch.Register(r, events.SchemaNewMessage, keyless(s.NewMessage))
	dispatch.Register(r, events.SchemaMessageEdit, keyless(s.MessageEdit))
	dispatch.Register(r, events.SchemaMessageEmbedUpdate, keyless(s.MessageEmbedUpdate))
	dispatch.Register(r, events.SchemaMessageDeletion, keyless(s.MessageDeletion))
}

func keyless[T any](fn func(context.Context, *T) error) func(context.Context, string, *T) error {
	return func(ctx context.Context, _ string, ev *T) error {
		return fn(ctx, ev)
	}
}

// NewMessage writes the full document, replacing any previous one.
func (s *Store) NewMessage(ctx context.Context, ev *events.NewMessage) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	doc, prov := NewDocument(ev)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return writeDocument(txn, doc, prov)
	}); err != nil {
		return fmt.Errorf("index message %s: %w", ev.ID, err)
	}
	return nil
}

// MessageEdit replaces the content and recomputes the content-derived link
// tag and mentions. Attachment and embed tags are kept.
func (s *Store) MessageEdit(ctx context.Context, ev *events.MessageEdit) error {
	return s.merge(ctx, ev.ID, "edit", func(doc *Document, prov *Provenance) {
		doc.Content = ev.Content
		prov.Content, doc.Mentions = ContentTags(ev.Content)
	})
}

// MessageEmbedUpdate recomputes the embed-derived tags only. In parity mode
// the link tag is also dropped when the message has no attachments.
func (s *Store) MessageEmbedUpdate(ctx context.Context, ev *events.MessageEmbedUpdate) error {
	return s.merge(ctx, ev.ID, "embed update", func(doc *Document, prov *Provenance) {
		prov.Embeds = EmbedTags(ev.Embeds)
		if s.linkTagParity && !doc.Attachments {
			prov.Content = without(prov.Content, TagLink)
		}
	})
}

// MessageDeletion stamps deletedAt. The document is kept.
func (s *Store) MessageDeletion(ctx context.Context, ev *events.MessageDeletion) error {
	return s.merge(ctx, ev.ID, "deletion", func(doc *Document, _ *Provenance) {
		doc.DeletedAt = millis(ev.Timestamp)
	})
}

// merge applies fn to an existing document and its provenance, then
// rebuilds the tag union. A missing document is logged and skipped.
func (s *Store) merge(ctx context.Context, id, op string, fn func(*Document, *Provenance)) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	err = s.db.Update(func(txn *badger.Txn) error {
		doc, err := readDocument(txn, id)
		if err != nil {
			return err
		}
		prov, err := readProvenance(txn, id)
		if errors.Is(err, ErrDocumentNotFound) {
			prov = &Provenance{Content: doc.Has}
		} else if err != nil {
			return err
		}

		fn(doc, prov)
		doc.Has = prov.Union()
		return writeDocument(txn, doc, prov)
	})
	if errors.Is(err, ErrDocumentNotFound) {
		logging.Ctx(ctx).Warn().Str("message_id", id).Str("op", op).Msg("No search document for message, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %s to %s: %w", op, id, err)
	}
	return nil
}

// ForgetChannel removes every document of a channel and returns how many
// were removed.
func (s *Store) ForgetChannel(ctx context.Context, channel string) (int, error) {
	release, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	if channel == "" {
		return 0, ErrEmptyChannelID
	}

	var ids []string
	if err := s.db.View(func(txn *badger.Txn) error {
		ids = channelIDs(txn, channel)
		return nil
	}); err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, id := range ids {
		for _, key := range [][]byte{docKey(id), srcKey(id), chanKey(channel, id)} {
			if err := wb.Delete(key); err != nil {
				return 0, fmt.Errorf("delete %s: %w", key, err)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush channel %s deletes: %w", channel, err)
	}

	logging.Ctx(ctx).Info().Str("channel_id", channel).Int("documents", len(ids)).Msg("Forgot channel in search store")
	return len(ids), nil
}
