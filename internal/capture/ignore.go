// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/logging"
	"github.com/tomtom215/chronicle/internal/metrics"
)

// IgnoreList is the set of channel ids excluded from capture. Reads are
// lock-free; writers replace the whole set.
type IgnoreList struct {
	path string
	set  atomic.Pointer[map[string]struct{}]

	// mu serializes writers and file access.
	mu sync.Mutex
}

// NewIgnoreList returns an empty list persisted at path. An empty path
// keeps the list in memory only.
func NewIgnoreList(path string) *IgnoreList {
	l := &IgnoreList{path: path}
	empty := map[string]struct{}{}
	l.set.Store(&empty)
	return l
}

// LoadIgnoreList reads the list at path. A missing file is an empty list.
func LoadIgnoreList(path string) (*IgnoreList, error) {
	l := NewIgnoreList(path)
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Contains reports whether channel is ignored.
func (l *IgnoreList) Contains(channel string) bool {
	_, ok := (*l.set.Load())[channel]
	return ok
}

// List returns the ignored ids in sorted order.
func (l *IgnoreList) List() []string {
	set := *l.set.Load()
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of ignored channels.
func (l *IgnoreList) Len() int {
	return len(*l.set.Load())
}

// Add ignores channel and persists the list. It reports whether the id was new.
func (l *IgnoreList) Add(channel string) (bool, error) {
	if _, err := events.ParseSnowflake(channel); err != nil {
		return false, err
	}
	return l.update(func(set map[string]struct{}) bool {
		if _, ok := set[channel]; ok {
			return false
		}
		set[channel] = struct{}{}
		return true
	})
}

// Remove stops ignoring channel and persists the list. It reports whether
// the id was present.
func (l *IgnoreList) Remove(channel string) (bool, error) {
	return l.update(func(set map[string]struct{}) bool {
		if _, ok := set[channel]; !ok {
			return false
		}
		delete(set, channel)
		return true
	})
}

func (l *IgnoreList) update(fn func(map[string]struct{}) bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := *l.set.Load()
	next := make(map[string]struct{}, len(current)+1)
	for id := range current {
		next[id] = struct{}{}
	}
	if !fn(next) {
		return false, nil
	}
	if err := l.persist(next); err != nil {
		return false, err
	}
	l.store(next)
	return true, nil
}

func (l *IgnoreList) store(set map[string]struct{}) {
	l.set.Store(&set)
	metrics.SetIgnoredChannels(len(set))
}

// Reload replaces the list with the file contents.
func (l *IgnoreList) Reload() error {
	if l.path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	set, err := readIgnoreFile(l.path)
	if err != nil {
		return err
	}
	l.store(set)
	return nil
}

// Watch reloads the list whenever the file changes.
func (l *IgnoreList) Watch() error {
	if l.path == "" {
		return nil
	}
	return config.WatchFile(l.path, func(err error) {
		if err != nil {
			logging.Warn().Err(err).Str("path", l.path).Msg("Ignore list watcher error")
			return
		}
		if err := l.Reload(); err != nil {
			logging.Warn().Err(err).Str("path", l.path).Msg("Failed to reload ignore list")
			return
		}
		logging.Info().Int("channels", l.Len()).Msg("Reloaded ignore list")
	})
}

// readIgnoreFile parses one id per line. Blank lines and lines starting
// with # are skipped.
func readIgnoreFile(path string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ignore list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		id := strings.TrimSpace(scanner.Text())
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		if _, err := events.ParseSnowflake(id); err != nil {
			return nil, fmt.Errorf("ignore list %s:%d: %w", path, line, err)
		}
		set[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore list: %w", err)
	}
	return set, nil
}

func (l *IgnoreList) persist(set map[string]struct{}) error {
	if l.path == "" {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create ignore list directory: %w", err)
	}
	tmp := l.path + ".tmp"
	data := strings.Join(ids, "\n")
	if len(ids) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(tmp, []byte(data), 0o600); err != nil {
		return fmt.Errorf("write ignore list: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace ignore list: %w", err)
	}
	return nil
}
