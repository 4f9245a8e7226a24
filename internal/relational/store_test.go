// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package relational

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/events"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := New(db, BackendDuckDB)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q error = %v", query, err)
	}
	return n
}

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newMessage(id, channel, content string) *events.NewMessage {
	return &events.NewMessage{
		ID:          id,
		Server:      "10",
		ServerName:  "guild",
		Channel:     channel,
		ChannelName: "general",
		Author:      events.UserInfo{ID: "500", Name: "alice", Discriminator: "0001"},
		CreatedAt:   t0,
		Content:     content,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations() error = %v", err)
	}
	if want := migrations[len(migrations)-1].Version; v != want {
		t.Errorf("SchemaVersion() = %d, want %d", v, want)
	}

	counts, err := s.TableCounts(ctx)
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	if len(counts) != len(Tables) {
		t.Errorf("TableCounts() has %d tables, want %d", len(counts), len(Tables))
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Backend: "sqlite"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open() error = %v, want ErrUnknownBackend", err)
	}
}

func TestOpen_DuckDBFile(t *testing.T) {
	path := t.TempDir() + "/nested/chronicle.duckdb"
	s, err := Open(&config.DatabaseConfig{Backend: BackendDuckDB, Path: path, Threads: 1, MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	s := New(db, BackendPostgres)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM user_nicknames").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = s.MemberInfo(context.Background(), &events.MemberInfo{
		Server: "10",
		User:   events.UserInfo{ID: "500", Name: "alice"},
	})
	if err == nil {
		t.Fatal("MemberInfo() succeeded, want error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithTx_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	s := New(db, BackendPostgres)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET deleted_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err = s.MessageDeletion(context.Background(), &events.MessageDeletion{ID: "1", Channel: "2", Timestamp: t0})
	if err == nil {
		t.Fatal("MessageDeletion() succeeded, want commit error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
