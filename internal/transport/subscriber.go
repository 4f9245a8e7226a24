// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/chronicle/internal/events"
)

// Subscription is one partition subject read by one durable consumer.
type Subscription struct {
	Topic      string
	Durable    string
	Subscriber message.Subscriber
}

// NewSubscriber creates a subscriber bound to an existing durable consumer
// (see Admin.EnsureConsumer). Delivery is strictly sequential: one
// subscriber goroutine and a consumer with at most one unacknowledged
// message, so the records of a partition are handled in log order. Binding
// rather than creating keeps the consumer, and its position, alive when the
// subscriber closes.
func NewSubscriber(cfg Config, durable string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("chronicle-" + durable),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, watermill.LogFields{"durable": durable})
			}
		}),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			AckAsync:      false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.Bind(cfg.Stream, durable),
				natsgo.ManualAck(),
			},
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber %s: %w", durable, err)
	}
	return sub, nil
}

// SubscribeGroup ensures a durable consumer per partition subject of each
// family for a consumer group and binds a subscriber to each. On error,
// subscribers created so far are closed.
func (a *Admin) SubscribeGroup(group string, families []events.Family, logger watermill.LoggerAdapter) ([]Subscription, error) {
	cfg := a.cfg
	partitions := NewPartitioner(cfg.SubjectPrefix, cfg.Partitions)

	var subs []Subscription
	for _, family := range families {
		for i, topic := range partitions.Subjects(family) {
			durable := DurableName(group, family, i)
			if err := a.EnsureConsumer(topic, durable); err != nil {
				_ = CloseSubscriptions(subs)
				return nil, err
			}
			sub, err := NewSubscriber(cfg, durable, logger)
			if err != nil {
				_ = CloseSubscriptions(subs)
				return nil, err
			}
			subs = append(subs, Subscription{Topic: topic, Durable: durable, Subscriber: sub})
		}
	}
	return subs, nil
}

// CloseSubscriptions closes every subscriber, returning the first error.
func CloseSubscriptions(subs []Subscription) error {
	var first error
	for _, s := range subs {
		if err := s.Subscriber.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
