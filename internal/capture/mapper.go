// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package capture

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/tomtom215/chronicle/internal/events"
)

const iconURLFormat = "https://cdn.discordapp.com/icons/%s/%s.png"

// Directory resolves names that gateway payloads reference only by id.
// Lookups of unknown ids return "".
type Directory interface {
	ServerName(id string) string
	ChannelName(id string) string
}

// StateDirectory resolves names from the session's state cache.
type StateDirectory struct {
	State *discordgo.State
}

// ServerName implements Directory.
func (d StateDirectory) ServerName(id string) string {
	if d.State == nil {
		return ""
	}
	g, err := d.State.Guild(id)
	if err != nil || g == nil {
		return ""
	}
	return g.Name
}

// ChannelName implements Directory.
func (d StateDirectory) ChannelName(id string) string {
	if d.State == nil {
		return ""
	}
	ch, err := d.State.Channel(id)
	if err != nil || ch == nil {
		return ""
	}
	return ch.Name
}

// Mapper translates gateway payloads into domain events.
type Mapper struct {
	dir    Directory
	ignore *IgnoreList
	now    func() time.Time
}

// NewMapper creates a mapper. dir and ignore may be nil.
func NewMapper(dir Directory, ignore *IgnoreList) *Mapper {
	return &Mapper{dir: dir, ignore: ignore, now: time.Now}
}

func (m *Mapper) ignored(channel string) bool {
	return m.ignore != nil && m.ignore.Contains(channel)
}

func (m *Mapper) serverName(id string) string {
	if m.dir == nil {
		return ""
	}
	return m.dir.ServerName(id)
}

func (m *Mapper) channelName(id string) string {
	if m.dir == nil {
		return ""
	}
	return m.dir.ChannelName(id)
}

// Map translates one gateway payload. Payload types that carry nothing the
// projections need map to no events.
func (m *Mapper) Map(item any) ([]events.Event, error) {
	switch ev := item.(type) {
	case *discordgo.GuildCreate:
		return m.guild(ev.Guild)
	case *discordgo.GuildUpdate:
		return m.guild(ev.Guild)
	case *discordgo.GuildDelete:
		return m.guildDelete(ev.Guild)
	case *discordgo.ChannelCreate:
		return m.channel(ev.Channel, nil)
	case *discordgo.ChannelUpdate:
		return m.channel(ev.Channel, nil)
	case *discordgo.ChannelDelete:
		return m.channelDelete(ev.Channel)
	case *discordgo.GuildRoleCreate:
		return m.role(ev.GuildRole)
	case *discordgo.GuildRoleUpdate:
		return m.role(ev.GuildRole)
	case *discordgo.GuildRoleDelete:
		return m.roleDelete(ev)
	case *discordgo.GuildMemberAdd:
		return m.member(ev.Member)
	case *discordgo.GuildMemberUpdate:
		return m.member(ev.Member)
	case *discordgo.UserUpdate:
		return m.user(ev.User)
	case *discordgo.MessageCreate:
		return m.messageCreate(ev.Message)
	case *discordgo.MessageUpdate:
		return m.messageUpdate(ev.Message)
	case *discordgo.MessageDelete:
		return m.messageDelete(ev.Message)
	case *discordgo.MessageDeleteBulk:
		return m.messageDeleteBulk(ev)
	case *discordgo.MessageReactionAdd:
		return m.reactionAdd(ev)
	case *discordgo.MessageReactionRemove:
		return m.reactionRemove(ev.MessageReaction)
	case *discordgo.MessageReactionRemoveAll:
		return m.reactionClear(ev.MessageReaction)
	default:
		return nil, nil
	}
}

func checkIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := events.ParseSnowflake(id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) guild(g *discordgo.Guild) ([]events.Event, error) {
	if g == nil {
		return nil, nil
	}
	if err := checkIDs(g.ID); err != nil {
		return nil, fmt.Errorf("guild: %w", err)
	}

	out := []events.Event{ServerInfo(g, true)}

	categories := make(map[string]*discordgo.Channel)
	for _, ch := range g.Channels {
		if ch != nil && ch.Type == discordgo.ChannelTypeGuildCategory {
			categories[ch.ID] = ch
		}
	}
	for _, ch := range g.Channels {
		if ch == nil || !textual(ch.Type) || m.ignored(ch.ID) {
			continue
		}
		if ch.GuildID == "" {
			// Guild payloads omit the channel's guild id; the pointer is shared with the state cache.
			cp := *ch
			cp.GuildID = g.ID
			ch = &cp
		}
		info, err := ChannelInfo(ch, categories[ch.ParentID])
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	for _, r := range g.Roles {
		if r == nil {
			continue
		}
		if err := checkIDs(r.ID); err != nil {
			return nil, fmt.Errorf("role: %w", err)
		}
		out = append(out, RoleInfo(g.ID, r))
	}
	return out, nil
}

func (m *Mapper) guildDelete(g *discordgo.Guild) ([]events.Event, error) {
	// An unavailable guild is an outage, not a removal.
	if g == nil || g.Unavailable {
		return nil, nil
	}
	if err := checkIDs(g.ID); err != nil {
		return nil, fmt.Errorf("guild: %w", err)
	}
	return []events.Event{ServerInfo(g, false)}, nil
}

// ServerInfo maps a guild.
func ServerInfo(g *discordgo.Guild, active bool) *events.ServerInfo {
	info := &events.ServerInfo{ID: g.ID, Name: g.Name, Active: active}
	if g.Icon != "" {
		info.IconURL = fmt.Sprintf(iconURLFormat, g.ID, g.Icon)
	}
	return info
}

func textual(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildText || t == discordgo.ChannelTypeGuildNews
}

func (m *Mapper) channel(ch *discordgo.Channel, category *discordgo.Channel) ([]events.Event, error) {
	if ch == nil || !textual(ch.Type) || m.ignored(ch.ID) {
		return nil, nil
	}
	if category == nil && ch.ParentID != "" {
		if name := m.channelName(ch.ParentID); name != "" {
			category = &discordgo.Channel{ID: ch.ParentID, Name: name, Position: -1}
		}
	}
	info, err := ChannelInfo(ch, category)
	if err != nil {
		return nil, err
	}
	return []events.Event{info}, nil
}

// ChannelInfo maps a text or news channel and its optional category.
// A category with a negative position has an unknown position.
func ChannelInfo(ch *discordgo.Channel, category *discordgo.Channel) (*events.ChannelInfo, error) {
	if err := checkIDs(ch.ID, ch.GuildID); err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}

	info := &events.ChannelInfo{
		ID:                  ch.ID,
		Server:              ch.GuildID,
		Name:                ch.Name,
		Position:            ch.Position,
		Type:                events.ChannelText,
		PermissionOverrides: make([]events.PermissionOverride, 0, len(ch.PermissionOverwrites)),
	}
	if ch.Type == discordgo.ChannelTypeGuildNews {
		info.Type = events.ChannelNews
	}
	if category != nil {
		name := category.Name
		info.Category = &name
		if category.Position >= 0 {
			pos := category.Position
			info.CategoryPosition = &pos
		}
	}

	for _, o := range ch.PermissionOverwrites {
		if o == nil {
			continue
		}
		if err := checkIDs(o.ID); err != nil {
			return nil, fmt.Errorf("permission override: %w", err)
		}
		kind := events.OverrideRole
		if o.Type == discordgo.PermissionOverwriteTypeMember {
			kind = events.OverrideUser
		}
		info.PermissionOverrides = append(info.PermissionOverrides, events.PermissionOverride{
			Type:     kind,
			TargetID: o.ID,
			Allowed:  o.Allow,
			Denied:   o.Deny,
		})
	}
	return info, nil
}

func (m *Mapper) channelDelete(ch *discordgo.Channel) ([]events.Event, error) {
	if ch == nil || !textual(ch.Type) || m.ignored(ch.ID) {
		return nil, nil
	}
	if err := checkIDs(ch.ID); err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}
	return []events.Event{&events.ChannelDeletion{ID: ch.ID, Server: ch.GuildID, Timestamp: m.now().UTC()}}, nil
}

// RoleInfo maps a role of a guild.
func RoleInfo(server string, r *discordgo.Role) *events.RoleInfo {
	return &events.RoleInfo{
		ID:          r.ID,
		Server:      server,
		Name:        r.Name,
		Color:       r.Color,
		Position:    r.Position,
		Permissions: r.Permissions,
	}
}

func (m *Mapper) role(gr *discordgo.GuildRole) ([]events.Event, error) {
	if gr == nil || gr.Role == nil {
		return nil, nil
	}
	if err := checkIDs(gr.Role.ID, gr.GuildID); err != nil {
		return nil, fmt.Errorf("role: %w", err)
	}
	return []events.Event{RoleInfo(gr.GuildID, gr.Role)}, nil
}

func (m *Mapper) roleDelete(ev *discordgo.GuildRoleDelete) ([]events.Event, error) {
	if err := checkIDs(ev.RoleID); err != nil {
		return nil, fmt.Errorf("role: %w", err)
	}
	return []events.Event{&events.RoleDeletion{ID: ev.RoleID, Server: ev.GuildID, Timestamp: m.now().UTC()}}, nil
}

// UserInfo maps a user. A nil user maps to the zero value.
func UserInfo(u *discordgo.User) events.UserInfo {
	if u == nil {
		return events.UserInfo{}
	}
	return events.UserInfo{
		ID:            u.ID,
		Name:          u.Username,
		Discriminator: u.Discriminator,
		Bot:           u.Bot,
	}
}

func (m *Mapper) user(u *discordgo.User) ([]events.Event, error) {
	if u == nil {
		return nil, nil
	}
	if err := checkIDs(u.ID); err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	info := UserInfo(u)
	return []events.Event{&info}, nil
}

func (m *Mapper) member(mem *discordgo.Member) ([]events.Event, error) {
	if mem == nil || mem.User == nil {
		return nil, nil
	}
	if err := checkIDs(mem.User.ID, mem.GuildID); err != nil {
		return nil, fmt.Errorf("member: %w", err)
	}
	if err := checkIDs(mem.Roles...); err != nil {
		return nil, fmt.Errorf("member role: %w", err)
	}

	info := &events.MemberInfo{
		Server: mem.GuildID,
		User:   UserInfo(mem.User),
		Roles:  append([]string{}, mem.Roles...),
	}
	if mem.Nick != "" {
		nick := mem.Nick
		info.Nickname = &nick
	}
	return []events.Event{info}, nil
}

// NewMessage maps a created message. serverName and channelName may be empty.
func NewMessage(msg *discordgo.Message, serverName, channelName string) (*events.NewMessage, error) {
	if err := checkIDs(msg.ID, msg.ChannelID, msg.GuildID); err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	if msg.Author == nil {
		return nil, fmt.Errorf("message %s: missing author", msg.ID)
	}

	ev := &events.NewMessage{
		ID:          msg.ID,
		Server:      msg.GuildID,
		ServerName:  serverName,
		Channel:     msg.ChannelID,
		ChannelName: channelName,
		Author:      UserInfo(msg.Author),
		CreatedAt:   msg.Timestamp.UTC(),
		Content:     msg.Content,
		Embeds:      Embeds(msg.Embeds),
		Attachments: Attachments(msg.Attachments),
	}
	if msg.WebhookID != "" {
		name := msg.Author.Username
		ev.WebhookName = &name
		ev.Author.Discriminator = events.WebhookDiscriminator
	}
	if ref := msg.MessageReference; ref != nil && ref.MessageID != "" {
		ev.ReferencedMessage = optional(ref.MessageID)
		ev.ReferencedChannel = optional(ref.ChannelID)
		ev.ReferencedServer = optional(ref.GuildID)
	}
	return ev, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (m *Mapper) messageCreate(msg *discordgo.Message) ([]events.Event, error) {
	if msg == nil || m.ignored(msg.ChannelID) {
		return nil, nil
	}
	// Direct messages have no server and are not captured.
	if msg.GuildID == "" {
		return nil, nil
	}
	ev, err := NewMessage(msg, m.serverName(msg.GuildID), m.channelName(msg.ChannelID))
	if err != nil {
		return nil, err
	}
	return []events.Event{ev}, nil
}

func (m *Mapper) messageUpdate(msg *discordgo.Message) ([]events.Event, error) {
	if msg == nil || m.ignored(msg.ChannelID) || msg.GuildID == "" {
		return nil, nil
	}
	if err := checkIDs(msg.ID, msg.ChannelID); err != nil {
		return nil, fmt.Errorf("message update: %w", err)
	}

	var out []events.Event
	if msg.EditedTimestamp != nil {
		out = append(out, &events.MessageEdit{
			ID:        msg.ID,
			Server:    msg.GuildID,
			Channel:   msg.ChannelID,
			Content:   msg.Content,
			Timestamp: msg.EditedTimestamp.UTC(),
		})
	}
	if msg.Embeds != nil {
		out = append(out, &events.MessageEmbedUpdate{
			ID:      msg.ID,
			Channel: msg.ChannelID,
			Embeds:  Embeds(msg.Embeds),
		})
	}
	return out, nil
}

func (m *Mapper) messageDelete(msg *discordgo.Message) ([]events.Event, error) {
	if msg == nil || m.ignored(msg.ChannelID) || msg.GuildID == "" {
		return nil, nil
	}
	if err := checkIDs(msg.ID, msg.ChannelID); err != nil {
		return nil, fmt.Errorf("message delete: %w", err)
	}
	return []events.Event{&events.MessageDeletion{ID: msg.ID, Channel: msg.ChannelID, Timestamp: m.now().UTC()}}, nil
}

func (m *Mapper) messageDeleteBulk(ev *discordgo.MessageDeleteBulk) ([]events.Event, error) {
	if m.ignored(ev.ChannelID) || ev.GuildID == "" {
		return nil, nil
	}
	if err := checkIDs(ev.ChannelID); err != nil {
		return nil, fmt.Errorf("bulk delete: %w", err)
	}
	now := m.now().UTC()
	out := make([]events.Event, 0, len(ev.Messages))
	for _, id := range ev.Messages {
		if err := checkIDs(id); err != nil {
			return nil, fmt.Errorf("bulk delete: %w", err)
		}
		out = append(out, &events.MessageDeletion{ID: id, Channel: ev.ChannelID, Timestamp: now})
	}
	return out, nil
}

func (m *Mapper) reactionAdd(ev *discordgo.MessageReactionAdd) ([]events.Event, error) {
	r := ev.MessageReaction
	if r == nil || m.ignored(r.ChannelID) || r.GuildID == "" {
		return nil, nil
	}
	if err := checkIDs(r.MessageID, r.ChannelID, r.UserID); err != nil {
		return nil, fmt.Errorf("reaction add: %w", err)
	}
	out := &events.ReactionAdd{
		Message:   r.MessageID,
		Channel:   r.ChannelID,
		UserID:    r.UserID,
		Type:      events.ReactionNormal,
		Emoji:     r.Emoji.Name,
		EmojiID:   r.Emoji.ID,
		Timestamp: m.now().UTC(),
	}
	if ev.Member != nil && ev.Member.User != nil {
		u := UserInfo(ev.Member.User)
		out.User = &u
	}
	return []events.Event{out}, nil
}

func (m *Mapper) reactionRemove(r *discordgo.MessageReaction) ([]events.Event, error) {
	if r == nil || m.ignored(r.ChannelID) || r.GuildID == "" {
		return nil, nil
	}
	if err := checkIDs(r.MessageID, r.ChannelID, r.UserID); err != nil {
		return nil, fmt.Errorf("reaction remove: %w", err)
	}
	return []events.Event{&events.ReactionRemove{
		Message:   r.MessageID,
		Channel:   r.ChannelID,
		UserID:    r.UserID,
		Type:      events.ReactionNormal,
		Emoji:     r.Emoji.Name,
		EmojiID:   r.Emoji.ID,
		Timestamp: m.now().UTC(),
	}}, nil
}

func (m *Mapper) reactionClear(r *discordgo.MessageReaction) ([]events.Event, error) {
	if r == nil || m.ignored(r.ChannelID) || r.GuildID == "" {
		return nil, nil
	}
	if err := checkIDs(r.MessageID, r.ChannelID); err != nil {
		return nil, fmt.Errorf("reaction clear: %w", err)
	}
	return []events.Event{&events.ReactionClear{Message: r.MessageID, Channel: r.ChannelID, Timestamp: m.now().UTC()}}, nil
}

// Embeds maps message embeds. Nil entries are skipped and a nil slice maps
// to an empty one.
func Embeds(in []*discordgo.MessageEmbed) []events.Embed {
	out := make([]events.Embed, 0, len(in))
	for _, e := range in {
		if e == nil {
			continue
		}
		embed := events.Embed{
			Type:        string(e.Type),
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
		}
		if e.Color != 0 {
			c := e.Color
			embed.Color = &c
		}
		if e.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
				ts = ts.UTC()
				embed.Timestamp = &ts
			}
		}
		if e.Footer != nil {
			embed.Footer = e.Footer.Text
		}
		if e.Image != nil {
			embed.ImageURL = e.Image.URL
		}
		if e.Thumbnail != nil {
			embed.ThumbnailURL = e.Thumbnail.URL
		}
		if e.Video != nil {
			embed.VideoURL = e.Video.URL
		}
		if e.Provider != nil {
			embed.ProviderName = e.Provider.Name
		}
		if e.Author != nil {
			embed.AuthorName = e.Author.Name
			embed.AuthorURL = e.Author.URL
		}
		for _, f := range e.Fields {
			if f == nil {
				continue
			}
			embed.Fields = append(embed.Fields, events.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, embed)
	}
	return out
}

// Attachments maps message attachments, skipping nil entries.
func Attachments(in []*discordgo.MessageAttachment) []events.Attachment {
	out := make([]events.Attachment, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		out = append(out, events.Attachment{
			ID:     a.ID,
			Name:   a.Filename,
			URL:    a.URL,
			Size:   int64(a.Size),
			Width:  a.Width,
			Height: a.Height,
		})
	}
	return out
}
