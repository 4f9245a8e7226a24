// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/transport"
)

type harness struct {
	pubsub     *gochannel.GoChannel
	publisher  *transport.Publisher
	partitions transport.Partitioner
	subs       []transport.Subscription
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })

	partitions := transport.NewPartitioner("chronicle", 1)
	var subs []transport.Subscription
	for _, family := range events.Families {
		subs = append(subs, transport.Subscription{
			Topic:      partitions.Subject(family, "1"),
			Durable:    transport.DurableName("test", family, 0),
			Subscriber: ps,
		})
	}
	return &harness{
		pubsub:     ps,
		publisher:  transport.NewPublisherWith(ps, partitions),
		partitions: partitions,
		subs:       subs,
	}
}

func (h *harness) run(t *testing.T, cfg Config, r *Registry) *Consumer {
	t.Helper()
	c, err := NewConsumer(cfg, r, h.subs, h.pubsub, nil)
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = c.Close()
		<-done
	})

	select {
	case <-c.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not start")
	}
	return c
}

func (h *harness) publish(t *testing.T, ev events.Event) {
	t.Helper()
	if err := h.publisher.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

// recorder collects handled edit contents.
type recorder struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
	want int
}

func newRecorder(want int) *recorder {
	return &recorder{done: make(chan struct{}), want: want}
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, s)
	if len(r.seen) == r.want {
		close(r.done)
	}
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		r.mu.Lock()
		defer r.mu.Unlock()
		t.Fatalf("handled %v, want %d records", r.seen, r.want)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func edit(content string) *events.MessageEdit {
	return &events.MessageEdit{ID: "1", Channel: "2", Content: content, Timestamp: time.Now().UTC()}
}

func TestConsumer_SkipsAndContinues(t *testing.T) {
	h := newHarness(t)
	rec := newRecorder(3)

	r := NewRegistry()
	Register(r, events.SchemaMessageEdit, func(_ context.Context, _ string, ev *events.MessageEdit) error {
		rec.add(ev.Content)
		if ev.Content == "fail" {
			return errors.New("constraint violation")
		}
		if ev.Content == "panic" {
			panic("boom")
		}
		return nil
	})

	h.publish(t, edit("first"))

	topic := h.partitions.Subject(events.FamilyMessages, "1")
	bad := message.NewMessage(watermill.NewUUID(), []byte(`{"id":`))
	bad.Metadata.Set(transport.MetadataSchemaName, events.SchemaMessageEdit)
	bad.Metadata.Set(transport.MetadataKey, "1")
	unknown := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	unknown.Metadata.Set(transport.MetadataSchemaName, "VoiceStateUpdate")
	bare := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	if err := h.pubsub.Publish(topic, bad, unknown, bare); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	h.publish(t, edit("fail"))
	h.publish(t, edit("panic"))

	h.run(t, DefaultConfig("test"), r)

	got := rec.wait(t)
	want := []string{"first", "fail", "panic"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("handled %v, want %v", got, want)
		}
	}
}

func TestConsumer_DeadLetter(t *testing.T) {
	h := newHarness(t)

	r := NewRegistry()
	Register(r, events.SchemaMessageDeletion, func(context.Context, string, *events.MessageDeletion) error {
		return errors.New("database is locked")
	})

	dlqTopic := h.partitions.DeadLetterSubject("test")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dlq, err := h.pubsub.Subscribe(ctx, dlqTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	cfg := DefaultConfig("test")
	cfg.DeadLetter = true
	cfg.DeadLetterTopic = dlqTopic
	h.run(t, cfg, r)

	h.publish(t, &events.MessageDeletion{ID: "9", Channel: "2", Timestamp: time.Now().UTC()})

	select {
	case msg := <-dlq:
		msg.Ack()
		if got := msg.Metadata.Get(transport.MetadataKey); got != "9" {
			t.Errorf("dead-lettered key = %q, want 9", got)
		}
	case <-ctx.Done():
		t.Fatal("failed record was not dead-lettered")
	}
}

func TestConsumer_Retries(t *testing.T) {
	h := newHarness(t)
	rec := newRecorder(3)

	r := NewRegistry()
	Register(r, events.SchemaMessageEdit, func(_ context.Context, _ string, ev *events.MessageEdit) error {
		rec.add(ev.Content)
		return errors.New("transient")
	})

	cfg := DefaultConfig("test")
	cfg.Retries = 2
	cfg.RetryInterval = time.Millisecond
	h.run(t, cfg, r)

	h.publish(t, edit("retry"))

	if got := rec.wait(t); len(got) != 3 {
		t.Errorf("handler attempts = %d, want 3", len(got))
	}
}

func TestNewConsumer_Validation(t *testing.T) {
	if _, err := NewConsumer(DefaultConfig("x"), NewRegistry(), nil, nil, nil); !errors.Is(err, ErrNoSubscriptions) {
		t.Errorf("NewConsumer() without subscriptions error = %v", err)
	}

	h := newHarness(t)
	cfg := DefaultConfig("x")
	cfg.DeadLetter = true
	if _, err := NewConsumer(cfg, NewRegistry(), h.subs, nil, nil); err == nil {
		t.Error("NewConsumer() in dead-letter mode without publisher succeeded")
	}
}
