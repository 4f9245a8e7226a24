// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/chronicle/internal/events"
)

func TestIgnoreList_MissingFileIsEmpty(t *testing.T) {
	l, err := LoadIgnoreList(filepath.Join(t.TempDir(), "ignore.txt"))
	if err != nil {
		t.Fatalf("LoadIgnoreList() error = %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestIgnoreList_LoadSkipsCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.txt")
	data := "# muted\n200\n\n  300  \n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	l, err := LoadIgnoreList(path)
	if err != nil {
		t.Fatalf("LoadIgnoreList() error = %v", err)
	}
	if got := l.List(); !equalStrings(got, []string{"200", "300"}) {
		t.Errorf("List() = %v", got)
	}
	if !l.Contains("300") || l.Contains("400") {
		t.Error("Contains() mismatch")
	}
}

func TestIgnoreList_LoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.txt")
	if err := os.WriteFile(path, []byte("200\ngeneral\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIgnoreList(path); !errors.Is(err, events.ErrInvalidSnowflake) {
		t.Errorf("LoadIgnoreList() error = %v, want ErrInvalidSnowflake", err)
	}
}

func TestIgnoreList_AddRemovePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ignore.txt")
	l := NewIgnoreList(path)

	added, err := l.Add("300")
	if err != nil || !added {
		t.Fatalf("Add(300) = %v, %v", added, err)
	}
	if added, _ := l.Add("300"); added {
		t.Error("second Add(300) reported new")
	}
	if _, err := l.Add("200"); err != nil {
		t.Fatalf("Add(200) error = %v", err)
	}
	if _, err := l.Add("abc"); !errors.Is(err, events.ErrInvalidSnowflake) {
		t.Errorf("Add(abc) error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "200\n300\n" {
		t.Errorf("file = %q", data)
	}

	removed, err := l.Remove("200")
	if err != nil || !removed {
		t.Fatalf("Remove(200) = %v, %v", removed, err)
	}
	if removed, _ := l.Remove("200"); removed {
		t.Error("second Remove(200) reported present")
	}

	reloaded, err := LoadIgnoreList(path)
	if err != nil {
		t.Fatalf("LoadIgnoreList() error = %v", err)
	}
	if got := reloaded.List(); !equalStrings(got, []string{"300"}) {
		t.Errorf("reloaded List() = %v", got)
	}
}

func TestIgnoreList_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.txt")
	l := NewIgnoreList(path)
	if err := os.WriteFile(path, []byte("500\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := l.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !l.Contains("500") {
		t.Error("Reload() did not pick up file contents")
	}
}
