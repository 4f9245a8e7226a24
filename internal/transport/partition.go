// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package transport

import (
	"fmt"
	"hash/fnv"

	"github.com/tomtom215/chronicle/internal/events"
)

// Partitioner maps entity keys to partition subjects. All events for one
// key land on the same subject, which a single consumer reads in order.
//
// Subjects have the form <prefix>.<family>.pNN.
type Partitioner struct {
	prefix string
	n      int
}

// NewPartitioner returns a partitioner over n partitions per family.
func NewPartitioner(prefix string, n int) Partitioner {
	if n < 1 {
		n = 1
	}
	return Partitioner{prefix: prefix, n: n}
}

// Partition returns the partition index for key.
func (p Partitioner) Partition(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.n))
}

// Subject returns the subject an event with key is published on.
func (p Partitioner) Subject(family events.Family, key string) string {
	return p.subject(family, p.Partition(key))
}

// Subjects returns every partition subject of a family.
func (p Partitioner) Subjects(family events.Family) []string {
	out := make([]string, p.n)
	for i := range out {
		out[i] = p.subject(family, i)
	}
	return out
}

// StreamSubjects returns the wildcard subjects the stream captures.
func (p Partitioner) StreamSubjects() []string {
	return []string{p.prefix + ".>"}
}

// DeadLetterSubject returns the dead-letter subject for a consumer group.
func (p Partitioner) DeadLetterSubject(group string) string {
	return p.prefix + ".dlq." + group
}

func (p Partitioner) subject(family events.Family, i int) string {
	return fmt.Sprintf("%s.%s.p%02d", p.prefix, family, i)
}

// DurableName returns the JetStream durable consumer name for a consumer
// group reading one partition subject. Durable names cannot contain dots.
func DurableName(group string, family events.Family, partition int) string {
	return fmt.Sprintf("%s-%s-p%02d", group, family, partition)
}
