// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the conversation route for reload recovery.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when forgetting a session that was never
// recorded.
var ErrSessionNotFound = errors.New("session not found")

// currentSlot is the route row the client resumes from.
const currentSlot = "current"

const schema = `
CREATE TABLE IF NOT EXISTS routes (
	slot       TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	first_seen INTEGER NOT NULL,
	last_seen  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen DESC);
`

// =============================================================================
// SESSION RECORD TYPE
// =============================================================================

// SessionRecord is a session the client has been routed to.
type SessionRecord struct {
	SessionID string `db:"session_id"`
	Title     string `db:"title"`
	FirstSeen int64  `db:"first_seen"`
	LastSeen  int64  `db:"last_seen"`
}

// LastSeenTime returns when the session was last current.
func (r SessionRecord) LastSeenTime() time.Time {
	return time.UnixMilli(r.LastSeen)
}

// =============================================================================
// ROUTE STORE
// =============================================================================

// RouteStore keeps the current session route and the list of recent
// sessions in a local sqlite database.
type RouteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// DefaultPath returns ~/.lexchat/routes.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lexchat", "routes.db"), nil
}

// Open opens or creates the route database at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*RouteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &RouteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *RouteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// ROUTE OPERATIONS
// =============================================================================

// ReplaceRoute makes sessionID the current route without adding a new one,
// and records the session as recently used.
func (s *RouteStore) ReplaceRoute(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return s.ClearRoute(ctx)
	}
	now := s.now().UnixMilli()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Insert("routes").
		Columns("slot", "session_id", "updated_at").
		Values(currentSlot, sessionID, now).
		Suffix("ON CONFLICT(slot) DO UPDATE SET session_id = excluded.session_id, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to replace route: %w", err)
	}

	query, args, err = sq.Insert("sessions").
		Columns("session_id", "first_seen", "last_seen").
		Values(sessionID, now, now).
		Suffix("ON CONFLICT(session_id) DO UPDATE SET last_seen = excluded.last_seen").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	return tx.Commit()
}

// CurrentRoute returns the session id to resume, or "" when there is none.
func (s *RouteStore) CurrentRoute(ctx context.Context) (string, error) {
	query, args, err := sq.Select("session_id").
		From("routes").
		Where(sq.Eq{"slot": currentSlot}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build sql query: %w", err)
	}

	var sessionID string
	if err := s.db.GetContext(ctx, &sessionID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read route: %w", err)
	}
	return sessionID, nil
}

// ClearRoute forgets the current route, as for a new chat.
func (s *RouteStore) ClearRoute(ctx context.Context) error {
	query, args, err := sq.Delete("routes").
		Where(sq.Eq{"slot": currentSlot}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear route: %w", err)
	}
	return nil
}

// =============================================================================
// SESSION LISTING
// =============================================================================

// SetTitle records a human-readable title for a session. An existing title
// is kept.
func (s *RouteStore) SetTitle(ctx context.Context, sessionID, title string) error {
	query, args, err := sq.Update("sessions").
		Set("title", title).
		Where(sq.Eq{"session_id": sessionID, "title": ""}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	return nil
}

// RecentSessions lists sessions, most recently used first. A non-positive
// limit defaults to 20.
func (s *RouteStore) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := sq.Select("session_id", "title", "first_seen", "last_seen").
		From("sessions").
		OrderBy("last_seen DESC", "session_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %w", err)
	}

	var records []SessionRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return records, nil
}

// ForgetSession removes a session from the listing and clears the route if
// it pointed there.
func (s *RouteStore) ForgetSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var removed int64
	for _, b := range []sq.DeleteBuilder{
		sq.Delete("sessions").Where(sq.Eq{"session_id": sessionID}),
		sq.Delete("routes").Where(sq.Eq{"session_id": sessionID}),
	} {
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build sql query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to forget session: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += n
		}
	}
	if removed == 0 {
		return fmt.Errorf("forget %s: %w", sessionID, ErrSessionNotFound)
	}
	return tx.Commit()
}
