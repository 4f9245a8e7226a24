// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/chronicle/internal/capture"
	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/metrics"
	"github.com/tomtom215/chronicle/internal/relational"
)

// PageSize is the largest page the history endpoint returns.
const PageSize = 100

// ErrNotGuildChannel is returned for channels outside a server.
var ErrNotGuildChannel = errors.New("channel does not belong to a server")

// HistoryFetcher reads channel history. *discordgo.Session implements it.
type HistoryFetcher interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Store applies batches to the relational projection.
type Store interface {
	ApplyBackfillBatch(ctx context.Context, batch []relational.BackfillMessage) (relational.BackfillResult, error)
}

// Indexer receives the search side of a batch.
type Indexer interface {
	NewMessage(ctx context.Context, ev *events.NewMessage) error
	MessageEdit(ctx context.Context, ev *events.MessageEdit) error
}

// Report summarizes one run.
type Report struct {
	Channel   string
	Fetched   int
	Skipped   int
	Inserted  int
	Versioned int
	Unchanged int
	Batches   int
	Duration  time.Duration
}

// Reconciler merges fetched history into both projections.
type Reconciler struct {
	fetcher   HistoryFetcher
	store     Store
	index     Indexer
	limiter   *rate.Limiter
	batchSize int
	logger    zerolog.Logger
}

// NewReconciler creates a reconciler. index may be nil to skip search.
func NewReconciler(cfg config.BackfillConfig, fetcher HistoryFetcher, store Store, index Indexer) *Reconciler {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1000
	}
	return &Reconciler{
		fetcher:   fetcher,
		store:     store,
		index:     index,
		limiter:   rate.NewLimiter(limit, 1),
		batchSize: batchSize,
		logger:    logging.WithComponent("backfill"),
	}
}

// Run pages through the channel's history from newest to oldest, stopping
// at the first message created before since. A zero since reads the whole
// history.
func (r *Reconciler) Run(ctx context.Context, channelID string, since time.Time) (Report, error) {
	start := time.Now()
	report := Report{Channel: channelID}
	log := r.logger.With().Str("channel_id", channelID).Logger()

	ch, serverName, err := r.resolveChannel(ctx, channelID)
	if err != nil {
		return report, err
	}

	var pending []relational.BackfillMessage
	before := ""
	for done := false; !done; {
		if err := r.limiter.Wait(ctx); err != nil {
			return report, err
		}
		page, err := r.fetcher.ChannelMessages(channelID, PageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return report, fmt.Errorf("fetch history of %s before %q: %w", channelID, before, err)
		}
		if len(page) < PageSize {
			done = true
		}
		cursor := before

		for _, msg := range page {
			if msg == nil {
				continue
			}
			if !since.IsZero() && msg.Timestamp.Before(since) {
				done = true
				break
			}
			report.Fetched++
			before = msg.ID

			item, ok := r.convert(msg, ch, serverName, log)
			if !ok {
				report.Skipped++
				continue
			}
			pending = append(pending, item)
			if len(pending) >= r.batchSize {
				if err := r.flush(ctx, pending, &report); err != nil {
					return report, err
				}
				pending = nil
			}
		}
		if before == cursor {
			// No usable message on the page, so the cursor cannot advance.
			done = true
		}
	}

	if err := r.flush(ctx, pending, &report); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	metrics.RecordBackfill(report.Inserted, report.Versioned, report.Unchanged, report.Duration)
	log.Info().
		Int("fetched", report.Fetched).
		Int("inserted", report.Inserted).
		Int("versioned", report.Versioned).
		Int("unchanged", report.Unchanged).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Backfill complete")
	return report, nil
}

func (r *Reconciler) resolveChannel(ctx context.Context, channelID string) (*discordgo.Channel, string, error) {
	if _, err := events.ParseSnowflake(channelID); err != nil {
		return nil, "", err
	}
	ch, err := r.fetcher.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	if ch.GuildID == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrNotGuildChannel, channelID)
	}

	serverName := ""
	g, err := r.fetcher.Guild(ch.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		r.logger.Warn().Err(err).Str("server_id", ch.GuildID).Msg("Could not resolve server name")
	} else if g != nil {
		serverName = g.Name
	}
	return ch, serverName, nil
}

// convert maps a history message. History payloads carry no server id, so
// it is taken from the channel.
func (r *Reconciler) convert(msg *discordgo.Message, ch *discordgo.Channel, serverName string, log zerolog.Logger) (relational.BackfillMessage, bool) {
	if msg.GuildID == "" {
		msg.GuildID = ch.GuildID
	}
	if msg.ChannelID == "" {
		msg.ChannelID = ch.ID
	}
	ev, err := capture.NewMessage(msg, serverName, ch.Name)
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("Skipping unmappable history message")
		return relational.BackfillMessage{}, false
	}

	item := relational.BackfillMessage{Message: *ev}
	if msg.EditedTimestamp != nil {
		at := msg.EditedTimestamp.UTC()
		item.EditedAt = &at
	}
	return item, true
}

// flush applies one batch to the relational store, then feeds search with
// the messages that were created or changed.
func (r *Reconciler) flush(ctx context.Context, batch []relational.BackfillMessage, report *Report) error {
	if len(batch) == 0 {
		return nil
	}
	result, err := r.store.ApplyBackfillBatch(ctx, batch)
	if err != nil {
		return fmt.Errorf("apply backfill batch: %w", err)
	}
	report.Batches++

	for i := range batch {
		b := &batch[i]
		switch result.Outcomes[b.Message.ID] {
		case relational.Inserted:
			report.Inserted++
			if r.index != nil {
				if err := r.index.NewMessage(ctx, &b.Message); err != nil {
					return fmt.Errorf("index message %s: %w", b.Message.ID, err)
				}
			}
		case relational.Versioned:
			report.Versioned++
			if r.index != nil {
				edit := &events.MessageEdit{
					ID:        b.Message.ID,
					Server:    b.Message.Server,
					Channel:   b.Message.Channel,
					Content:   b.Message.Content,
					Timestamp: *b.EditedAt,
				}
				if err := r.index.MessageEdit(ctx, edit); err != nil {
					return fmt.Errorf("index edit %s: %w", b.Message.ID, err)
				}
			}
		default:
			report.Unchanged++
		}
	}

	r.logger.Debug().Int("size", len(batch)).Int("batch", report.Batches).Msg("Applied backfill batch")
	return nil
}
