// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/chronicle/internal/events"
)

// Metadata events carry full current state, so they are plain upserts where
// the last writer wins.

// ServerInfo upserts a server.
func (s *Store) ServerInfo(ctx context.Context, ev *events.ServerInfo) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO servers (id, name, icon_url, active) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				icon_url = excluded.icon_url,
				active = excluded.active`,
			ev.ID, ev.Name, nullString(ev.IconURL), ev.Active)
		if err != nil {
			return fmt.Errorf("upsert server %s: %w", ev.ID, err)
		}
		return nil
	})
}

// ChannelInfo upserts a channel and replaces its permission overrides.
func (s *Store) ChannelInfo(ctx context.Context, ev *events.ChannelInfo) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureServer(ctx, tx, ev.Server, ""); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO channels (id, server, name, category, category_position, position, type)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				server = excluded.server,
				name = excluded.name,
				category = excluded.category,
				category_position = excluded.category_position,
				position = excluded.position,
				type = excluded.type`,
			ev.ID, ev.Server, ev.Name, ev.Category, ev.CategoryPosition, ev.Position, string(ev.Type))
		if err != nil {
			return fmt.Errorf("upsert channel %s: %w", ev.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM permission_overrides WHERE channel = $1`, ev.ID); err != nil {
			return fmt.Errorf("clear permission overrides of %s: %w", ev.ID, err)
		}
		for _, o := range ev.PermissionOverrides {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO permission_overrides (channel, type, target_id, allowed, denied)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (channel, type, target_id) DO UPDATE SET
					allowed = excluded.allowed,
					denied = excluded.denied`,
				ev.ID, string(o.Type), o.TargetID, o.Allowed, o.Denied)
			if err != nil {
				return fmt.Errorf("insert permission override on %s: %w", ev.ID, err)
			}
		}
		return nil
	})
}

// ChannelDeletion soft-deletes a channel.
func (s *Store) ChannelDeletion(ctx context.Context, ev *events.ChannelDeletion) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE channels SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
			ev.ID, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("delete channel %s: %w", ev.ID, err)
		}
		return nil
	})
}

// RoleInfo upserts a role.
func (s *Store) RoleInfo(ctx context.Context, ev *events.RoleInfo) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureServer(ctx, tx, ev.Server, ""); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roles (id, server, name, color, position, permissions)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				server = excluded.server,
				name = excluded.name,
				color = excluded.color,
				position = excluded.position,
				permissions = excluded.permissions`,
			ev.ID, ev.Server, ev.Name, ev.Color, ev.Position, ev.Permissions)
		if err != nil {
			return fmt.Errorf("upsert role %s: %w", ev.ID, err)
		}
		return nil
	})
}

// RoleDeletion soft-deletes a role.
func (s *Store) RoleDeletion(ctx context.Context, ev *events.RoleDeletion) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE roles SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
			ev.ID, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("delete role %s: %w", ev.ID, err)
		}
		return nil
	})
}

// UserInfo upserts a user.
func (s *Store) UserInfo(ctx context.Context, ev *events.UserInfo) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertUser(ctx, tx, ev)
	})
}

// MemberInfo upserts the user and replaces their nickname and roles on the server.
func (s *Store) MemberInfo(ctx context.Context, ev *events.MemberInfo) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertUser(ctx, tx, &ev.User); err != nil {
			return err
		}

		if ev.Nickname == nil || *ev.Nickname == "" {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM user_nicknames WHERE server = $1 AND user_id = $2`, ev.Server, ev.User.ID)
			if err != nil {
				return fmt.Errorf("clear nickname of %s: %w", ev.User.ID, err)
			}
		} else {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_nicknames (server, user_id, nickname) VALUES ($1, $2, $3)
				ON CONFLICT (server, user_id) DO UPDATE SET nickname = excluded.nickname`,
				ev.Server, ev.User.ID, *ev.Nickname)
			if err != nil {
				return fmt.Errorf("upsert nickname of %s: %w", ev.User.ID, err)
			}
		}

		_, err := tx.ExecContext(ctx,
			`DELETE FROM user_roles WHERE server = $1 AND user_id = $2`, ev.Server, ev.User.ID)
		if err != nil {
			return fmt.Errorf("clear roles of %s: %w", ev.User.ID, err)
		}
		for _, role := range ev.Roles {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_roles (server, user_id, role_id) VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING`,
				ev.Server, ev.User.ID, role)
			if err != nil {
				return fmt.Errorf("insert role %s of %s: %w", role, ev.User.ID, err)
			}
		}
		return nil
	})
}

func upsertUser(ctx context.Context, tx *sql.Tx, u *events.UserInfo) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, name, discriminator, bot) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			discriminator = excluded.discriminator,
			bot = excluded.bot`,
		u.ID, u.Name, u.Discriminator, u.Bot)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// ensureServer inserts a stub server row unless the server is known.
func ensureServer(ctx context.Context, tx *sql.Tx, id, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO servers (id, name, active) VALUES ($1, $2, TRUE)
		ON CONFLICT (id) DO NOTHING`,
		id, name)
	if err != nil {
		return fmt.Errorf("ensure server %s: %w", id, err)
	}
	return nil
}

// ensureChannel inserts a stub channel row unless the channel is known.
func ensureChannel(ctx context.Context, tx *sql.Tx, id, server, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO channels (id, server, name, type) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		id, server, name, string(events.ChannelText))
	if err != nil {
		return fmt.Errorf("ensure channel %s: %w", id, err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
