// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/logging"
)

const (
	docPrefix  = "doc/"
	srcPrefix  = "src/"
	chanPrefix = "chan/"

	gcDiscardRatio = 0.5
)

func docKey(id string) []byte { return []byte(docPrefix + id) }
func srcKey(id string) []byte { return []byte(srcPrefix + id) }

func chanKey(channel, id string) []byte {
	return []byte(chanPrefix + channel + "/" + id)
}

func chanScanPrefix(channel string) []byte {
	return []byte(chanPrefix + channel + "/")
}

// Store is the Badger-backed search document store.
type Store struct {
	db            *badger.DB
	linkTagParity bool

	mu     sync.RWMutex
	closed bool
}

// Open opens the store described by cfg.
func Open(cfg *config.SearchConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open search store: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("link_tag_parity", cfg.LinkTagParity).
		Msg("Opened search store")

	return New(db, cfg.LinkTagParity), nil
}

// New wraps an open Badger database.
func New(db *badger.DB, linkTagParity bool) *Store {
	return &Store{db: db, linkTagParity: linkTagParity}
}

// DB returns the underlying database.
func (s *Store) DB() *badger.DB {
	return s.db
}

// acquire holds the read lock until release is called, so Close waits for
// operations that are already running.
func (s *Store) acquire() (release func(), err error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	return s.mu.RUnlock, nil
}

// Get returns the document for a message id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	var doc *Document
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDocument(txn, id)
		return err
	})
	return doc, err
}

// GetProvenance returns the per-source tag sets for a message id.
func (s *Store) GetProvenance(ctx context.Context, id string) (*Provenance, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	var prov *Provenance
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		prov, err = readProvenance(txn, id)
		return err
	})
	return prov, err
}

// ChannelDocuments returns the ids of all documents in a channel.
func (s *Store) ChannelDocuments(ctx context.Context, channel string) ([]string, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	var ids []string
	err = s.db.View(func(txn *badger.Txn) error {
		ids = channelIDs(txn, channel)
		return nil
	})
	return ids, err
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	release, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	n := 0
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(docPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// RunGC reclaims value log space until nothing is left to rewrite. It is a
// no-op for in-memory stores.
func (s *Store) RunGC() error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	if s.db.Opts().InMemory {
		return nil
	}
	start := time.Now()
	runs := 0
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("run search GC: %w", err)
		}
		runs++
	}
	logging.Debug().Int("rewrites", runs).Dur("duration", time.Since(start)).Msg("Search store GC finished")
	return nil
}

// Close waits for running operations, then closes the database. It is
// safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func readDocument(txn *badger.Txn, id string) (*Document, error) {
	var doc Document
	if err := readJSON(txn, docKey(id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func readProvenance(txn *badger.Txn, id string) (*Provenance, error) {
	var prov Provenance
	if err := readJSON(txn, srcKey(id), &prov); err != nil {
		return nil, err
	}
	return &prov, nil
}

func readJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func writeJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func writeDocument(txn *badger.Txn, doc *Document, prov *Provenance) error {
	if err := writeJSON(txn, docKey(doc.ID), doc); err != nil {
		return err
	}
	if err := writeJSON(txn, srcKey(doc.ID), prov); err != nil {
		return err
	}
	return txn.Set(chanKey(doc.Channel.ID, doc.ID), nil)
}

func channelIDs(txn *badger.Txn, channel string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := chanScanPrefix(channel)
	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	return ids
}
