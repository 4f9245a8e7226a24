// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package search

import (
	"sort"
	"time"

	"github.com/tomtom215/chronicle/internal/events"
)

// ChannelRef identifies the channel a document was posted in.
type ChannelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthorRef identifies the author of a document.
type AuthorRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
}

// Document is the denormalized search record for one message.
// Timestamp and DeletedAt are epoch milliseconds.
type Document struct {
	ID          string     `json:"id"`
	Server      string     `json:"server"`
	Channel     ChannelRef `json:"channel"`
	Author      AuthorRef  `json:"author"`
	Content     string     `json:"content"`
	Has         []string   `json:"has"`
	Mentions    []string   `json:"mentions"`
	Attachments bool       `json:"attachments"`
	Timestamp   int64      `json:"timestamp"`
	DeletedAt   *int64     `json:"deletedAt,omitempty"`
}

// Deleted reports whether the message was soft deleted.
func (d *Document) Deleted() bool {
	return d.DeletedAt != nil
}

// HasTag reports whether tag is in the feature set.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.Has {
		if t == tag {
			return true
		}
	}
	return false
}

// Provenance records which source produced each tag so partial updates can
// replace one source without touching the others.
type Provenance struct {
	Content     []string `json:"content"`
	Attachments []string `json:"attachments"`
	Embeds      []string `json:"embeds"`
}

// Union returns the sorted, de-duplicated tag set.
func (p *Provenance) Union() []string {
	set := make(map[string]struct{}, len(p.Content)+len(p.Attachments)+len(p.Embeds))
	for _, group := range [][]string{p.Content, p.Attachments, p.Embeds} {
		for _, tag := range group {
			set[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// without returns tags minus drop.
func without(tags []string, drop string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != drop {
			out = append(out, t)
		}
	}
	return out
}

// NewDocument builds the full document and its provenance for a new message.
func NewDocument(ev *events.NewMessage) (*Document, *Provenance) {
	contentTags, mentions := ContentTags(ev.Content)
	prov := &Provenance{
		Content:     contentTags,
		Attachments: AttachmentTags(ev.Attachments),
		Embeds:      EmbedTags(ev.Embeds),
	}

	doc := &Document{
		ID:     ev.ID,
		Server: ev.Server,
		Channel: ChannelRef{
			ID:   ev.Channel,
			Name: ev.ChannelName,
		},
		Author: AuthorRef{
			ID:            ev.Author.ID,
			Name:          ev.Author.Name,
			Discriminator: ev.Author.Discriminator,
		},
		Content:     ev.Content,
		Has:         prov.Union(),
		Mentions:    mentions,
		Attachments: len(ev.Attachments) > 0,
		Timestamp:   ev.CreatedAt.UnixMilli(),
	}
	return doc, prov
}

func millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}
