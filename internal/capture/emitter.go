// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/metrics"
	"github.com/tomtom215/chronicle/internal/transport"
)

// Drop reasons reported to metrics.
const (
	DropQueueFull = "queue_full"
	DropMapping   = "mapping"
	DropPanic     = "panic"
	DropPublish   = "publish"
)

// Publisher appends events to the log.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Emitter turns gateway callbacks into published events. Payloads are
// mapped on submission and each event is queued into a lane picked by its
// entity key, so events about one entity are published in arrival order
// whichever payload carried them. Each lane is drained by one worker.
type Emitter struct {
	mapper *Mapper
	pub    Publisher
	lanes  []chan events.Event
	picker transport.Partitioner
	depth  atomic.Int64
	logger zerolog.Logger

	mu       sync.Mutex
	removers []func()
}

// NewEmitter creates an emitter with cfg.Workers lanes sharing
// cfg.QueueSize slots.
func NewEmitter(cfg config.CaptureConfig, mapper *Mapper, pub Publisher) *Emitter {
	workers := max(cfg.Workers, 1)
	perLane := max(cfg.QueueSize/workers, 1)

	lanes := make([]chan events.Event, workers)
	for i := range lanes {
		lanes[i] = make(chan events.Event, perLane)
	}
	return &Emitter{
		mapper: mapper,
		pub:    pub,
		lanes:  lanes,
		picker: transport.NewPartitioner("capture", workers),
		logger: logging.WithComponent("capture"),
	}
}

// Submit maps a gateway payload and queues its events without blocking.
// It returns false when the payload failed to map or any of its events was
// dropped because its lane was full.
func (e *Emitter) Submit(item any) bool {
	evs, ok := e.mapSafely(item)
	if !ok {
		return false
	}
	queued := true
	for _, ev := range evs {
		lane := e.lanes[e.picker.Partition(ev.Key())]
		select {
		case lane <- ev:
			metrics.SetCaptureQueueDepth(int(e.depth.Add(1)))
		default:
			queued = false
			metrics.RecordCaptureDrop(DropQueueFull)
			e.logger.Warn().
				Str("schema", ev.Schema()).
				Str("key", ev.Key()).
				Msg("Capture queue full, dropping event")
		}
	}
	return queued
}

// mapSafely runs the mapper, converting failures and panics into drops.
func (e *Emitter) mapSafely(item any) (evs []events.Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordCaptureDrop(DropPanic)
			e.logger.Error().
				Str("payload", fmt.Sprintf("%T", item)).
				Interface("panic", r).
				Msg("Recovered panic while mapping payload")
			evs, ok = nil, false
		}
	}()

	evs, err := e.mapper.Map(item)
	if err != nil {
		metrics.RecordCaptureDrop(DropMapping)
		e.logger.Warn().Err(err).Str("payload", fmt.Sprintf("%T", item)).Msg("Failed to map payload")
		return nil, false
	}
	return evs, true
}

// Pending returns the number of queued events.
func (e *Emitter) Pending() int {
	return int(e.depth.Load())
}

// Run drains the lanes until ctx is done.
func (e *Emitter) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, lane := range e.lanes {
		g.Go(func() error {
			e.work(gctx, lane)
			return nil
		})
	}
	err := g.Wait()
	if n := e.Pending(); n > 0 {
		e.logger.Warn().Int("pending", n).Msg("Emitter stopped with queued events")
	}
	return err
}

func (e *Emitter) work(ctx context.Context, lane <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-lane:
			metrics.SetCaptureQueueDepth(int(e.depth.Add(-1)))
			e.publish(ctx, ev)
		}
	}
}

// publish appends one event. Failures are logged and dropped.
func (e *Emitter) publish(ctx context.Context, ev events.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordCaptureDrop(DropPanic)
			e.logger.Error().
				Str("schema", ev.Schema()).
				Str("key", ev.Key()).
				Interface("panic", r).
				Msg("Recovered panic while publishing event")
		}
	}()

	if err := e.pub.Publish(ctx, ev); err != nil {
		metrics.RecordCaptureDrop(DropPublish)
		e.logger.Error().
			Err(err).
			Str("schema", ev.Schema()).
			Str("key", ev.Key()).
			Msg("Failed to publish event, dropping")
	}
}

// Attach registers gateway handlers on s. Detach removes them.
func (e *Emitter) Attach(s *discordgo.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.removers = append(e.removers,
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildCreate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildUpdate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildDelete) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.ChannelCreate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.ChannelUpdate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.ChannelDelete) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildRoleCreate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildRoleUpdate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildRoleDelete) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildMemberAdd) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildMemberUpdate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.UserUpdate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageCreate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageUpdate) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageDelete) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageDeleteBulk) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageReactionAdd) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageReactionRemove) { e.Submit(ev) }),
		s.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageReactionRemoveAll) { e.Submit(ev) }),
	)
}

// Detach removes the handlers registered by Attach.
func (e *Emitter) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, remove := range e.removers {
		remove()
	}
	e.removers = nil
}
