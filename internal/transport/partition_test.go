// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"strings"
	"testing"

	"github.com/tomtom215/chronicle/internal/events"
)

func TestPartitioner_Deterministic(t *testing.T) {
	p := NewPartitioner("chronicle", 8)

	keys := []string{"1", "175928847299117063", "81384788765712384", ""}
	for _, key := range keys {
		first := p.Partition(key)
		for i := 0; i < 10; i++ {
			if got := p.Partition(key); got != first {
				t.Fatalf("Partition(%q) = %d, then %d", key, first, got)
			}
		}
		if first < 0 || first >= 8 {
			t.Errorf("Partition(%q) = %d, out of range", key, first)
		}
	}
}

func TestPartitioner_Subject(t *testing.T) {
	p := NewPartitioner("chronicle", 4)

	subject := p.Subject(events.FamilyMessages, "175928847299117063")
	if !strings.HasPrefix(subject, "chronicle.messages.p0") {
		t.Errorf("Subject() = %q, want chronicle.messages.p0N", subject)
	}

	subjects := p.Subjects(events.FamilyMetadata)
	want := []string{
		"chronicle.metadata.p00",
		"chronicle.metadata.p01",
		"chronicle.metadata.p02",
		"chronicle.metadata.p03",
	}
	if len(subjects) != len(want) {
		t.Fatalf("Subjects() len = %d, want %d", len(subjects), len(want))
	}
	for i := range want {
		if subjects[i] != want[i] {
			t.Errorf("Subjects()[%d] = %q, want %q", i, subjects[i], want[i])
		}
	}

	found := false
	for _, s := range subjects {
		if s == p.Subject(events.FamilyMetadata, "42") {
			found = true
		}
	}
	if !found {
		t.Error("Subject() is not one of Subjects()")
	}
}

func TestPartitioner_SingleAndInvalidCount(t *testing.T) {
	for _, n := range []int{0, -3, 1} {
		p := NewPartitioner("x", n)
		if got := p.Partition("12345"); got != 0 {
			t.Errorf("NewPartitioner(%d).Partition() = %d, want 0", n, got)
		}
	}
}

func TestPartitioner_Names(t *testing.T) {
	p := NewPartitioner("chronicle", 8)

	if got := p.StreamSubjects(); len(got) != 1 || got[0] != "chronicle.>" {
		t.Errorf("StreamSubjects() = %v", got)
	}
	if got := p.DeadLetterSubject("relational"); got != "chronicle.dlq.relational" {
		t.Errorf("DeadLetterSubject() = %q", got)
	}
	if got := DurableName("search", events.FamilyMessages, 3); got != "search-messages-p03" {
		t.Errorf("DurableName() = %q", got)
	}
}
