// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package events

import "time"

// ChannelType is the kind of a captured channel.
type ChannelType string

const (
	ChannelText ChannelType = "TEXT"
	ChannelNews ChannelType = "NEWS"
)

// OverrideType is the target kind of a permission override.
type OverrideType string

const (
	OverrideRole OverrideType = "ROLE"
	OverrideUser OverrideType = "USER"
)

// WebhookDiscriminator marks webhook-originated pseudo-users.
const WebhookDiscriminator = "HOOK"

// ServerInfo carries the full current state of a server.
// Active is false once the capture process has lost access.
type ServerInfo struct {
	ID      string `json:"id" validate:"required,snowflake"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
	Active  bool   `json:"active"`
}

func (e *ServerInfo) Schema() string { return SchemaServerInfo }
func (e *ServerInfo) Key() string    { return e.ID }
func (e *ServerInfo) Family() Family { return FamilyMetadata }

// PermissionOverride is one allow/deny pair on a channel.
type PermissionOverride struct {
	Type     OverrideType `json:"type" validate:"required,oneof=ROLE USER"`
	TargetID string       `json:"targetId" validate:"required,snowflake"`
	Allowed  int64        `json:"allowed"`
	Denied   int64        `json:"denied"`
}

// ChannelInfo carries the full current state of a channel, including the
// complete set of permission overrides.
type ChannelInfo struct {
	ID                  string               `json:"id" validate:"required,snowflake"`
	Server              string               `json:"server" validate:"required,snowflake"`
	Name                string               `json:"name"`
	Category            *string              `json:"category,omitempty"`
	CategoryPosition    *int                 `json:"categoryPosition,omitempty"`
	Position            int                  `json:"position"`
	Type                ChannelType          `json:"type" validate:"required,oneof=TEXT NEWS"`
	PermissionOverrides []PermissionOverride `json:"permissionOverrides" validate:"dive"`
}

func (e *ChannelInfo) Schema() string { return SchemaChannelInfo }
func (e *ChannelInfo) Key() string    { return e.ID }
func (e *ChannelInfo) Family() Family { return FamilyMetadata }

// ChannelDeletion soft-deletes a channel.
type ChannelDeletion struct {
	ID        string    `json:"id" validate:"required,snowflake"`
	Server    string    `json:"server"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

func (e *ChannelDeletion) Schema() string { return SchemaChannelDeletion }
func (e *ChannelDeletion) Key() string    { return e.ID }
func (e *ChannelDeletion) Family() Family { return FamilyMetadata }

// RoleInfo carries the full current state of a role.
type RoleInfo struct {
	ID          string `json:"id" validate:"required,snowflake"`
	Server      string `json:"server" validate:"required,snowflake"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Permissions int64  `json:"permissions"`
}

func (e *RoleInfo) Schema() string { return SchemaRoleInfo }
func (e *RoleInfo) Key() string    { return e.ID }
func (e *RoleInfo) Family() Family { return FamilyMetadata }

// RoleDeletion soft-deletes a role.
type RoleDeletion struct {
	ID        string    `json:"id" validate:"required,snowflake"`
	Server    string    `json:"server"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

func (e *RoleDeletion) Schema() string { return SchemaRoleDeletion }
func (e *RoleDeletion) Key() string    { return e.ID }
func (e *RoleDeletion) Family() Family { return FamilyMetadata }

// UserInfo carries the full current state of a user. It is also embedded
// in message and reaction events as the author or reactor.
type UserInfo struct {
	ID            string `json:"id" validate:"required,snowflake"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
	Bot           bool   `json:"bot"`
}

func (e *UserInfo) Schema() string { return SchemaUserInfo }
func (e *UserInfo) Key() string    { return e.ID }
func (e *UserInfo) Family() Family { return FamilyMetadata }

// IsWebhook reports whether the user is a webhook pseudo-user.
func (e *UserInfo) IsWebhook() bool { return e.Discriminator == WebhookDiscriminator }

// MemberInfo carries a user's per-server nickname and role set.
// Both are replaced wholesale for (server, user).
type MemberInfo struct {
	Server   string   `json:"server" validate:"required,snowflake"`
	User     UserInfo `json:"user"`
	Nickname *string  `json:"nickname,omitempty"`
	Roles    []string `json:"roles" validate:"dive,snowflake"`
}

func (e *MemberInfo) Schema() string { return SchemaMemberInfo }
func (e *MemberInfo) Key() string    { return e.User.ID }
func (e *MemberInfo) Family() Family { return FamilyMetadata }
