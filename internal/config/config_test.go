// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.NATS.Partitions != 8 {
		t.Errorf("NATS.Partitions = %d, want 8", cfg.NATS.Partitions)
	}
	if cfg.Dispatch.DeadLetter {
		t.Error("dead-lettering should be off by default")
	}
	if cfg.Search.LinkTagParity {
		t.Error("link tag parity should be off by default")
	}
	if cfg.Backfill.BatchSize != 1000 {
		t.Errorf("Backfill.BatchSize = %d, want 1000", cfg.Backfill.BatchSize)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chronicle.yaml")
	yaml := `
nats:
  partitions: 4
  max_age: 48h
database:
  backend: duckdb
  path: /tmp/from-file.duckdb
search:
  link_tag_parity: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DB_PATH", "/tmp/from-env.duckdb")
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("DISPATCH_DEAD_LETTER", "true")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.NATS.Partitions != 4 {
		t.Errorf("Partitions = %d, want 4 (file)", cfg.NATS.Partitions)
	}
	if cfg.NATS.MaxAge != 48*time.Hour {
		t.Errorf("MaxAge = %v, want 48h (file)", cfg.NATS.MaxAge)
	}
	if cfg.Database.Path != "/tmp/from-env.duckdb" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if !cfg.Search.LinkTagParity {
		t.Error("LinkTagParity should come from file")
	}
	if !cfg.Dispatch.DeadLetter {
		t.Error("DeadLetter should come from env")
	}
	if cfg.Discord.Token != "secret" {
		t.Errorf("Discord.Token = %q, want secret", cfg.Discord.Token)
	}
	if cfg.Capture.Workers != 8 {
		t.Errorf("Capture.Workers = %d, want default 8", cfg.Capture.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero partitions", func(c *Config) { c.NATS.Partitions = 0 }, "nats.partitions"},
		{"dotted prefix", func(c *Config) { c.NATS.SubjectPrefix = "a.b" }, "subject_prefix"},
		{"unknown backend", func(c *Config) { c.Database.Backend = "mysql" }, "database.backend"},
		{"postgres without url", func(c *Config) { c.Database.Backend = "postgres" }, "database.url"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"no batch", func(c *Config) { c.Backfill.BatchSize = 0 }, "batch_size"},
		{"remote nats without url", func(c *Config) { c.NATS.Embedded = false; c.NATS.URL = "" }, "nats.url"},
		{"search path", func(c *Config) { c.Search.Path = "" }, "search.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCapture(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.ValidateCapture(); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	cfg.Discord.Token = "token"
	if err := cfg.ValidateCapture(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	if got := envTransformFunc("NATS_PARTITIONS"); got != "nats.partitions" {
		t.Errorf("NATS_PARTITIONS -> %q", got)
	}
	if got := envTransformFunc("HOME"); got != "" {
		t.Errorf("HOME should be ignored, got %q", got)
	}
}
