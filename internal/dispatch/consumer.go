// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/metrics"
	"github.com/tomtom215/chronicle/internal/transport"
)

// Skip reasons reported in metrics.
const (
	SkipUnknownSchema  = "unknown_schema"
	SkipInvalidPayload = "invalid_payload"
	SkipNoMetadata     = "missing_metadata"
)

// Config configures a consumer group.
type Config struct {
	// Group names the consumer group; it prefixes durable names and the
	// dead-letter subject.
	Group string

	// DeadLetter republishes records whose handler failed to
	// DeadLetterTopic instead of dropping them. Both settle the record.
	DeadLetter      bool
	DeadLetterTopic string

	// Retries is the number of extra handler attempts before a failure is final.
	Retries       int
	RetryInterval time.Duration

	CloseTimeout time.Duration
}

// DefaultConfig returns defaults for group.
func DefaultConfig(group string) Config {
	return Config{
		Group:         group,
		Retries:       0,
		RetryInterval: 500 * time.Millisecond,
		CloseTimeout:  30 * time.Second,
	}
}

// Consumer runs a Watermill router with one handler per partition
// subscription. Records are settled after their handler returns, whatever
// the outcome, so one bad record never blocks its partition.
type Consumer struct {
	cfg      Config
	router   *message.Router
	registry *Registry
	logger   zerolog.Logger
}

// NewConsumer builds the router for subs. deadLetter is only used when
// cfg.DeadLetter is set.
func NewConsumer(cfg Config, registry *Registry, subs []transport.Subscription, deadLetter message.Publisher, logger watermill.LoggerAdapter) (*Consumer, error) {
	if len(subs) == 0 {
		return nil, ErrNoSubscriptions
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	c := &Consumer{
		cfg:      cfg,
		router:   router,
		registry: registry,
		logger:   logging.WithComponent("dispatch").With().Str("group", cfg.Group).Logger(),
	}

	// Outermost first: settle, report, retry, recover.
	if cfg.DeadLetter {
		if deadLetter == nil || cfg.DeadLetterTopic == "" {
			return nil, fmt.Errorf("dead-letter mode for %s needs a publisher and topic", cfg.Group)
		}
		poison, err := middleware.PoisonQueue(deadLetter, cfg.DeadLetterTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poison, c.countDeadLetter)
	} else {
		router.AddMiddleware(c.swallow)
	}
	router.AddMiddleware(c.report)
	if cfg.Retries > 0 {
		retry := middleware.Retry{
			MaxRetries:      cfg.Retries,
			InitialInterval: cfg.RetryInterval,
			MaxInterval:     10 * cfg.RetryInterval,
			Multiplier:      2.0,
			Logger:          logger,
		}
		router.AddMiddleware(retry.Middleware)
	}
	router.AddMiddleware(middleware.Recoverer)

	for _, sub := range subs {
		router.AddConsumerHandler(sub.Durable, sub.Topic, sub.Subscriber, c.handle)
	}

	return c, nil
}

// handle decodes and dispatches one record. Records that can never be
// handled are skipped and acked.
func (c *Consumer) handle(msg *message.Message) error {
	env, err := transport.EnvelopeFromMessage(msg)
	if err != nil {
		c.skip(msg, SkipNoMetadata, err)
		return nil
	}

	correlation := msg.UUID
	if correlation == "" {
		correlation = logging.GenerateCorrelationID()
	}
	ctx := logging.ContextWithLogger(msg.Context(), c.logger)
	ctx = logging.ContextWithCorrelationID(ctx, correlation)

	start := time.Now()
	err = c.registry.Dispatch(ctx, env)
	switch {
	case errors.Is(err, ErrUnknownSchema):
		c.skip(msg, SkipUnknownSchema, err)
		return nil
	case errors.Is(err, events.ErrInvalidPayload):
		c.skip(msg, SkipInvalidPayload, err)
		return nil
	}

	metrics.RecordConsumed(c.cfg.Group, env.SchemaName, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", env.SchemaName, env.Key, err)
	}
	return nil
}

func (c *Consumer) skip(msg *message.Message, reason string, err error) {
	metrics.RecordSkipped(c.cfg.Group, reason)
	c.logger.Warn().
		Err(err).
		Str("reason", reason).
		Str("message_uuid", msg.UUID).
		Str("key", msg.Metadata.Get(transport.MetadataKey)).
		Msg("Skipping record")
}

// report logs a failure once all retries are spent.
func (c *Consumer) report(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			c.logger.Error().
				Err(err).
				Str("message_uuid", msg.UUID).
				Str("schema", msg.Metadata.Get(transport.MetadataSchemaName)).
				Str("key", msg.Metadata.Get(transport.MetadataKey)).
				Msg("Projection failed")
		}
		return out, err
	}
}

// swallow settles failed records so the partition advances.
func (c *Consumer) swallow(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			return nil, nil
		}
		return out, nil
	}
}

// countDeadLetter runs inside the poison queue and counts what it will republish.
func (c *Consumer) countDeadLetter(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			metrics.RecordDeadLetter(c.cfg.Group)
		}
		return out, err
	}
}

// Run processes records until ctx is canceled or Close is called.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().
		Strs("schemas", c.registry.Schemas()).
		Bool("dead_letter", c.cfg.DeadLetter).
		Msg("Consumer starting")
	return c.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (c *Consumer) Running() <-chan struct{} {
	return c.router.Running()
}

// Close stops the router. In-flight handlers finish and settle their
// records within CloseTimeout.
func (c *Consumer) Close() error {
	return c.router.Close()
}

// String names the consumer for the supervisor.
func (c *Consumer) String() string {
	return "consumer-" + c.cfg.Group
}
