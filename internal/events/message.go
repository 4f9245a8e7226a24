// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package events

import "time"

// ReactionType distinguishes regular reactions from super reactions.
type ReactionType string

const (
	ReactionNormal ReactionType = "NORMAL"
	ReactionBurst  ReactionType = "BURST"
)

// EmbedField is a name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a rich preview attached to a message.
type Embed struct {
	Type         string       `json:"type"`
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	URL          string       `json:"url,omitempty"`
	Color        *int         `json:"color,omitempty"`
	Timestamp    *time.Time   `json:"timestamp,omitempty"`
	Footer       string       `json:"footer,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	ThumbnailURL string       `json:"thumbnailUrl,omitempty"`
	VideoURL     string       `json:"videoUrl,omitempty"`
	ProviderName string       `json:"providerName,omitempty"`
	AuthorName   string       `json:"authorName,omitempty"`
	AuthorURL    string       `json:"authorUrl,omitempty"`
	Fields       []EmbedField `json:"fields,omitempty"`
}

// Attachment is a file uploaded with a message.
type Attachment struct {
	ID     string `json:"id" validate:"required,snowflake"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// NewMessage is emitted once per created message. It carries everything
// both projections need to build their first view of the message.
type NewMessage struct {
	ID                string       `json:"id" validate:"required,snowflake"`
	Server            string       `json:"server" validate:"required,snowflake"`
	ServerName        string       `json:"serverName,omitempty"`
	Channel           string       `json:"channel" validate:"required,snowflake"`
	ChannelName       string       `json:"channelName,omitempty"`
	Author            UserInfo     `json:"author"`
	WebhookName       *string      `json:"webhookName,omitempty"`
	ReferencedServer  *string      `json:"referencedServer,omitempty"`
	ReferencedChannel *string      `json:"referencedChannel,omitempty"`
	ReferencedMessage *string      `json:"referencedMessage,omitempty"`
	CreatedAt         time.Time    `json:"createdAt" validate:"required"`
	Content           string       `json:"content"`
	Embeds            []Embed      `json:"embeds,omitempty"`
	Attachments       []Attachment `json:"attachments,omitempty" validate:"dive"`
}

func (e *NewMessage) Schema() string { return SchemaNewMessage }
func (e *NewMessage) Key() string    { return e.ID }
func (e *NewMessage) Family() Family { return FamilyMessages }

// MessageEdit carries new content for an existing message.
type MessageEdit struct {
	ID        string    `json:"id" validate:"required,snowflake"`
	Server    string    `json:"server"`
	Channel   string    `json:"channel" validate:"required,snowflake"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

func (e *MessageEdit) Schema() string { return SchemaMessageEdit }
func (e *MessageEdit) Key() string    { return e.ID }
func (e *MessageEdit) Family() Family { return FamilyMessages }

// MessageEmbedUpdate replaces the embeds of a message. An empty list
// removes all embeds.
type MessageEmbedUpdate struct {
	ID      string  `json:"id" validate:"required,snowflake"`
	Channel string  `json:"channel" validate:"required,snowflake"`
	Embeds  []Embed `json:"embeds"`
}

func (e *MessageEmbedUpdate) Schema() string { return SchemaMessageEmbedUpdate }
func (e *MessageEmbedUpdate) Key() string    { return e.ID }
func (e *MessageEmbedUpdate) Family() Family { return FamilyMessages }

// MessageDeletion soft-deletes a message.
type MessageDeletion struct {
	ID        string    `json:"id" validate:"required,snowflake"`
	Channel   string    `json:"channel" validate:"required,snowflake"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

func (e *MessageDeletion) Schema() string { return SchemaMessageDeletion }
func (e *MessageDeletion) Key() string    { return e.ID }
func (e *MessageDeletion) Family() Family { return FamilyMessages }

// ReactionAdd records a user reacting to a message. It is keyed by the
// message so reactions are ordered with the message lifecycle.
type ReactionAdd struct {
	Message   string       `json:"message" validate:"required,snowflake"`
	Channel   string       `json:"channel" validate:"required,snowflake"`
	UserID    string       `json:"userId" validate:"required,snowflake"`
	User      *UserInfo    `json:"user,omitempty"`
	Type      ReactionType `json:"type" validate:"required,oneof=NORMAL BURST"`
	Emoji     string       `json:"emoji" validate:"required"`
	EmojiID   string       `json:"emojiId,omitempty"`
	Timestamp time.Time    `json:"timestamp" validate:"required"`
}

func (e *ReactionAdd) Schema() string { return SchemaReactionAdd }
func (e *ReactionAdd) Key() string    { return e.Message }
func (e *ReactionAdd) Family() Family { return FamilyMessages }

// ReactionRemove records a user withdrawing a reaction.
type ReactionRemove struct {
	Message   string       `json:"message" validate:"required,snowflake"`
	Channel   string       `json:"channel" validate:"required,snowflake"`
	UserID    string       `json:"userId" validate:"required,snowflake"`
	Type      ReactionType `json:"type" validate:"required,oneof=NORMAL BURST"`
	Emoji     string       `json:"emoji" validate:"required"`
	EmojiID   string       `json:"emojiId,omitempty"`
	Timestamp time.Time    `json:"timestamp" validate:"required"`
}

func (e *ReactionRemove) Schema() string { return SchemaReactionRemove }
func (e *ReactionRemove) Key() string    { return e.Message }
func (e *ReactionRemove) Family() Family { return FamilyMessages }

// ReactionClear removes every active reaction from a message.
type ReactionClear struct {
	Message   string    `json:"message" validate:"required,snowflake"`
	Channel   string    `json:"channel" validate:"required,snowflake"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

func (e *ReactionClear) Schema() string { return SchemaReactionClear }
func (e *ReactionClear) Key() string    { return e.Message }
func (e *ReactionClear) Family() Family { return FamilyMessages }
