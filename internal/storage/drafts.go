/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fitplan/internal/domain"
	applog "fitplan/internal/log"
	"fitplan/internal/pin"
	"fitplan/internal/schema"
	"fitplan/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	DraftsFileName = "drafts.sqlite"

	// schemaVersion tracks the local SQLite schema of the draft store.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2

	// tsLayout is fixed-width so timestamps sort lexically.
	tsLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrDraftNotFound is returned when no draft exists for a session.
var ErrDraftNotFound = errors.New("storage: draft not found")

// Draft is the unsaved working state of one session.
type Draft struct {
	Session   domain.Session
	Pins      map[domain.SeedID]pin.State
	UpdatedAt time.Time
}

// DraftInfo summarises a stored draft without decoding its tree.
type DraftInfo struct {
	Session   domain.SeedID
	Name      string
	Nodes     int
	UpdatedAt time.Time
}

// DraftStore keeps drafts in a local SQLite database.
type DraftStore struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// DraftsPath returns the draft database path inside dir.
func DraftsPath(dir string) string { return filepath.Join(dir, DraftsFileName) }

// OpenDrafts opens (or creates) the draft database at path, enables WAL mode
// and brings the schema up to date.
func OpenDrafts(path string) (*DraftStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "drafts_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("draft database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create drafts dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create drafts dir: %w", err)
	}
	// Use a URI with a busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureDraftSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure draft schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("draft store ready")
	return &DraftStore{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at schema 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureDraftSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS drafts (
			session_seed TEXT PRIMARY KEY,
			name         TEXT    NOT NULL,
			nodes        INTEGER NOT NULL,
			tree_json    TEXT    NOT NULL,
			pins_json    TEXT    NOT NULL,
			updated_at   TEXT    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure draft schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	// Never downgrade.
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts(updated_at);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (ds *DraftStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := ds.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Save stores d, replacing any earlier draft of the same session.
func (ds *DraftStore) Save(ctx context.Context, d Draft) error {
	tree, err := json.Marshal(d.Session)
	if err != nil {
		return fmt.Errorf("marshal draft tree: %w", err)
	}
	pins := d.Pins
	if pins == nil {
		pins = map[domain.SeedID]pin.State{}
	}
	pj, err := json.Marshal(pins)
	if err != nil {
		return fmt.Errorf("marshal draft pins: %w", err)
	}
	ts := d.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = ds.db.ExecContext(ctx, `INSERT INTO drafts (session_seed, name, nodes, tree_json, pins_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_seed) DO UPDATE SET
			name=excluded.name, nodes=excluded.nodes, tree_json=excluded.tree_json,
			pins_json=excluded.pins_json, updated_at=excluded.updated_at`,
		string(d.Session.SeedID), d.Session.Name, d.Session.CountNodes(), string(tree), string(pj), ts.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("save draft %s: %w", d.Session.SeedID, err)
	}
	ds.log.Debug("draft saved", slog.String("session", string(d.Session.SeedID)))
	return nil
}

// Load returns the draft of session. The stored tree is validated like a
// session document before it is handed out.
func (ds *DraftStore) Load(ctx context.Context, session domain.SeedID) (Draft, error) {
	var tree, pj, ts string
	err := ds.db.QueryRowContext(ctx, `SELECT tree_json, pins_json, updated_at FROM drafts WHERE session_seed=?`, string(session)).Scan(&tree, &pj, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, fmt.Errorf("%w: %s", ErrDraftNotFound, session)
	}
	if err != nil {
		return Draft{}, fmt.Errorf("load draft %s: %w", session, err)
	}
	if err := schema.ValidateSession([]byte(tree)); err != nil {
		return Draft{}, fmt.Errorf("draft %s: %w", session, err)
	}
	var d Draft
	if err := json.Unmarshal([]byte(tree), &d.Session); err != nil {
		return Draft{}, fmt.Errorf("parse draft %s: %w", session, err)
	}
	if err := json.Unmarshal([]byte(pj), &d.Pins); err != nil {
		return Draft{}, fmt.Errorf("parse draft pins %s: %w", session, err)
	}
	d.UpdatedAt, _ = time.Parse(tsLayout, ts)
	return d, nil
}

// List returns all drafts, most recently updated first.
func (ds *DraftStore) List(ctx context.Context) ([]DraftInfo, error) {
	rows, err := ds.db.QueryContext(ctx, `SELECT session_seed, name, nodes, updated_at FROM drafts ORDER BY updated_at DESC, session_seed`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()
	var out []DraftInfo
	for rows.Next() {
		var (
			info DraftInfo
			seed string
			ts   string
		)
		if err := rows.Scan(&seed, &info.Name, &info.Nodes, &ts); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		info.Session = domain.SeedID(seed)
		info.UpdatedAt, _ = time.Parse(tsLayout, ts)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the draft of session. Deleting a missing draft is an error.
func (ds *DraftStore) Delete(ctx context.Context, session domain.SeedID) error {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM drafts WHERE session_seed=?`, string(session))
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", session, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, session)
	}
	return nil
}

// Check runs a quick integrity check of the database file.
func (ds *DraftStore) Check(ctx context.Context) error {
	var chk string
	if err := ds.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return fmt.Errorf("draft database corrupt: %s", chk)
	}
	return nil
}

func (ds *DraftStore) Path() string { return ds.path }

func (ds *DraftStore) Close() error { return ds.db.Close() }
