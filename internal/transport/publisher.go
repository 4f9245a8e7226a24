// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/metrics"
)

// Publisher appends domain events to the partitioned log.
type Publisher struct {
	publisher      message.Publisher
	partitions     Partitioner
	circuitBreaker *gobreaker.CircuitBreaker[any]
	now            func() time.Time
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher creates a JetStream publisher. The stream must already exist
// (see EnsureStream).
func NewPublisher(cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("chronicle-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(cfg.PublishRetries),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return NewPublisherWith(pub, NewPartitioner(cfg.SubjectPrefix, cfg.Partitions)), nil
}

// NewPublisherWith wraps an existing Watermill publisher. Tests use it with
// an in-process pub/sub.
func NewPublisherWith(pub message.Publisher, partitions Partitioner) *Publisher {
	return &Publisher{
		publisher:  pub,
		partitions: partitions,
		now:        time.Now,
	}
}

// SetCircuitBreaker guards publishes with cb.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[any]) {
	p.circuitBreaker = cb
}

// Publish serializes ev and appends it to the partition subject for its key.
func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	env, err := events.NewEnvelope(ev, p.now())
	if err != nil {
		return err
	}
	return p.PublishEnvelope(ctx, ev.Family(), env)
}

// PublishEnvelope appends an already serialized envelope.
func (p *Publisher) PublishEnvelope(ctx context.Context, family events.Family, env *events.Envelope) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	msg := NewMessage(env)
	msg.SetContext(ctx)
	topic := p.partitions.Subject(family, env.Key)

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (any, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}
	if err != nil {
		return fmt.Errorf("publish %s %s to %s: %w", env.SchemaName, env.Key, topic, err)
	}

	metrics.RecordPublish(env.SchemaName)
	return nil
}

// Partitions returns the partitioner used for subjects.
func (p *Publisher) Partitions() Partitioner {
	return p.partitions
}

// WatermillPublisher returns the underlying publisher, used for the
// poison-queue middleware.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}

// Close shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
