// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream used for stream management.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamConfigFor returns the JetStream stream configuration for cfg.
func StreamConfigFor(cfg Config) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   NewPartitioner(cfg.SubjectPrefix, cfg.Partitions).StreamSubjects(),
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		MaxBytes:   cfg.MaxBytes,
		Duplicates: cfg.DuplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream, or updates it when it already exists.
// It is idempotent.
func EnsureStream(ctx context.Context, js JetStreamContext, cfg Config) (jetstream.Stream, error) {
	streamCfg := StreamConfigFor(cfg)

	_, err := js.Stream(ctx, cfg.Stream)
	if err == nil {
		stream, err := js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", cfg.Stream, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
		}
		return stream, nil
	}

	return nil, fmt.Errorf("check stream %s: %w", cfg.Stream, err)
}

// Admin holds a management connection for stream setup and health checks.
type Admin struct {
	nc     *natsgo.Conn
	js     jetstream.JetStream
	legacy natsgo.JetStreamContext
	cfg    Config
}

// Connect opens a management connection.
func Connect(cfg Config) (*Admin, error) {
	nc, err := natsgo.Connect(cfg.URL,
		natsgo.Name("chronicle-admin"),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	legacy, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &Admin{nc: nc, js: js, legacy: legacy, cfg: cfg}, nil
}

// EnsureStream creates or updates the configured stream.
func (a *Admin) EnsureStream(ctx context.Context) error {
	_, err := EnsureStream(ctx, a.js, a.cfg)
	return err
}

// ConsumerConfigFor returns the durable push consumer reading one partition
// subject from the start of the stream, one record at a time.
func ConsumerConfigFor(cfg Config, subject, durable string) *natsgo.ConsumerConfig {
	return &natsgo.ConsumerConfig{
		Durable:        durable,
		Description:    "chronicle projection consumer",
		DeliverSubject: natsgo.NewInbox(),
		FilterSubject:  subject,
		DeliverPolicy:  natsgo.DeliverAllPolicy,
		AckPolicy:      natsgo.AckExplicitPolicy,
		AckWait:        cfg.AckWait,
		MaxAckPending:  1,
		MaxDeliver:     -1,
	}
}

// EnsureConsumer creates the durable consumer for subject unless it exists.
// An existing consumer keeps its delivery position.
func (a *Admin) EnsureConsumer(subject, durable string) error {
	_, err := a.legacy.ConsumerInfo(a.cfg.Stream, durable)
	if err == nil {
		return nil
	}
	if !errors.Is(err, natsgo.ErrConsumerNotFound) {
		return fmt.Errorf("check consumer %s: %w", durable, err)
	}
	if _, err := a.legacy.AddConsumer(a.cfg.Stream, ConsumerConfigFor(a.cfg, subject, durable)); err != nil {
		return fmt.Errorf("create consumer %s: %w", durable, err)
	}
	return nil
}

// JetStream returns the management JetStream context.
func (a *Admin) JetStream() jetstream.JetStream {
	return a.js
}

// Healthy reports whether the connection is up and the stream is reachable.
func (a *Admin) Healthy(ctx context.Context) error {
	if !a.nc.IsConnected() {
		return fmt.Errorf("NATS connection is %s", a.nc.Status())
	}
	if _, err := a.js.Stream(ctx, a.cfg.Stream); err != nil {
		return fmt.Errorf("stream %s: %w", a.cfg.Stream, err)
	}
	return nil
}

// Close drains the management connection.
func (a *Admin) Close() {
	a.nc.Close()
}
