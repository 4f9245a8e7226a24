// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bwmarrin/discordgo"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/dispatch"
	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/relational"
	"github.com/tomtom215/chronicle/internal/search"
	"github.com/tomtom215/chronicle/internal/supervisor/services"
	"github.com/tomtom215/chronicle/internal/transport"
)

// transportConfig maps the NATS section onto the transport settings.
func transportConfig(c *config.Config) transport.Config {
	tc := transport.DefaultConfig()
	tc.URL = c.NATS.URL
	tc.MaxReconnects = c.NATS.MaxReconnects
	tc.ReconnectWait = c.NATS.ReconnectWait
	tc.Stream = c.NATS.Stream
	tc.SubjectPrefix = c.NATS.SubjectPrefix
	tc.Partitions = c.NATS.Partitions
	tc.MaxAge = c.NATS.MaxAge
	tc.DuplicateWindow = c.NATS.DuplicateWindow
	tc.AckWait = c.Dispatch.AckWait
	tc.CloseTimeout = c.Dispatch.CloseTimeout
	return tc
}

func breakerConfig(c *config.Config) transport.BreakerConfig {
	bc := transport.DefaultBreakerConfig()
	bc.MaxRequests = c.Breaker.MaxRequests
	bc.Interval = c.Breaker.Interval
	bc.Timeout = c.Breaker.Timeout
	bc.FailureThreshold = c.Breaker.FailureThreshold
	return bc
}

func dispatchConfig(c *config.Config, group string, partitions transport.Partitioner) dispatch.Config {
	dc := dispatch.DefaultConfig(group)
	dc.DeadLetter = c.Dispatch.DeadLetter
	dc.DeadLetterTopic = partitions.DeadLetterSubject(group)
	dc.Retries = c.Dispatch.Retries
	dc.RetryInterval = c.Dispatch.RetryInterval
	dc.CloseTimeout = c.Dispatch.CloseTimeout
	return dc
}

// gatewayIntents returns the intents capture needs. Message content is
// privileged and must also be enabled for the bot in the developer portal.
func gatewayIntents(messageContent bool) discordgo.Intent {
	intents := discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions
	if messageContent {
		intents |= discordgo.IntentMessageContent
	}
	return intents
}

// newSession creates a bot session. The state cache tracks servers and
// channels for name lookups only; messages are never cached.
func newSession(c *config.Config) (*discordgo.Session, error) {
	if err := c.ValidateCapture(); err != nil {
		return nil, err
	}
	s, err := discordgo.New("Bot " + c.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = gatewayIntents(c.Discord.MessageContent)
	s.StateEnabled = true
	s.State.MaxMessageCount = 0
	s.ShouldReconnectOnError = true
	// Handlers run on the gateway goroutine so Submit sees payloads in arrival order.
	s.SyncEvents = true
	return s, nil
}

// openStores opens both projection stores and brings the relational schema
// up to date.
func openStores(ctx context.Context, c *config.Config) (*relational.Store, *search.Store, error) {
	store, err := relational.Open(&c.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate relational store: %w", err)
	}
	index, err := search.Open(&c.Search)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, index, nil
}

func closeStores(store *relational.Store, index *search.Store) {
	if err := index.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing search store")
	}
	if err := store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing relational store")
	}
}

// groupConsumer closes the partition subscriptions together with the router.
type groupConsumer struct {
	*dispatch.Consumer
	subs []transport.Subscription
}

func (g *groupConsumer) Close() error {
	return errors.Join(g.Consumer.Close(), transport.CloseSubscriptions(g.subs))
}

// consumerFactory builds a fresh consumer for group on every supervisor
// (re)start so a failed router never reuses closed subscriptions.
func consumerFactory(admin *transport.Admin, dc dispatch.Config, registry *dispatch.Registry, families []events.Family, deadLetter message.Publisher, logger watermill.LoggerAdapter) services.RunnerFactory {
	return func() (services.Runner, error) {
		subs, err := admin.SubscribeGroup(dc.Group, families, logger)
		if err != nil {
			return nil, err
		}
		c, err := dispatch.NewConsumer(dc, registry, subs, deadLetter, logger)
		if err != nil {
			_ = transport.CloseSubscriptions(subs)
			return nil, err
		}
		return &groupConsumer{Consumer: c, subs: subs}, nil
	}
}
