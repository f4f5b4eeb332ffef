// Package sqlite provides a single-file SessionStore backed by modernc.org/sqlite,
// with a journal of every persisted transition.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/aretw0/nutri/pkg/domain"
)

// Transition is one journal entry: a persisted change of a user's session.
type Transition struct {
	ID      string              `json:"id"`
	UserID  string              `json:"user_id"`
	Version int64               `json:"version"`
	Diff    *domain.SessionDiff `json:"diff"`
	At      time.Time           `json:"at"`
}

// Store implements ports.SessionStore using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id    TEXT PRIMARY KEY,
		step       TEXT NOT NULL,
		draft      TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		version    INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transitions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		version    INTEGER NOT NULL,
		diff       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_user ON transitions(user_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func newID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// Save persists the session if its version matches and journals the change.
func (s *Store) Save(ctx context.Context, userID string, session *domain.Session) error {
	now := s.now().UTC()
	draft, err := json.Marshal(session.Draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	previous, err := loadTx(ctx, tx, userID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		previous = nil
	case err != nil:
		return err
	}

	var currentVersion int64
	if previous != nil {
		currentVersion = previous.Version
	}
	if currentVersion != session.Version {
		return domain.ErrConflict
	}
	version := session.Version + 1

	if previous == nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (user_id, step, draft, category, version, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			userID, string(session.Step), string(draft), string(session.Category), version, now.Format(time.RFC3339Nano))
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			`UPDATE sessions SET step = ?, draft = ?, category = ?, version = ?, updated_at = ? WHERE user_id = ? AND version = ?`,
			string(session.Step), string(draft), string(session.Category), version, now.Format(time.RFC3339Nano), userID, session.Version)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				return domain.ErrConflict
			}
		}
	}
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	next := *session
	next.UserID = userID
	if diff := domain.Diff(previous, &next); diff != nil {
		data, err := json.Marshal(diff)
		if err != nil {
			return fmt.Errorf("marshal diff: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transitions (id, user_id, version, diff, created_at) VALUES (?, ?, ?, ?, ?)`,
			newID(now), userID, version, string(data), now.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("journal transition: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	session.UserID = userID
	session.Version = version
	session.UpdatedAt = now
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadTx(ctx context.Context, q querier, userID string) (*domain.Session, error) {
	var (
		step, draft, category, updated string
		version                        int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT step, draft, category, version, updated_at FROM sessions WHERE user_id = ?`, userID).
		Scan(&step, &draft, &category, &version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	session := &domain.Session{
		UserID:   userID,
		Step:     domain.Step(step),
		Category: domain.Category(category),
		Version:  version,
	}
	if err := json.Unmarshal([]byte(draft), &session.Draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	session.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return session, nil
}

// Load retrieves the session of a user.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	return loadTx(ctx, s.db, userID)
}

// Delete removes the session of a user and its journal.
func (s *Store) Delete(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transitions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete journal: %w", err)
	}
	return tx.Commit()
}

// List returns the ids of all users with a session.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM sessions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// History returns the journaled transitions of a user, oldest first.
// A limit <= 0 returns every entry.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]Transition, error) {
	query := `SELECT id, version, diff, created_at FROM transitions WHERE user_id = ? ORDER BY id`
	args := []any{userID}
	if limit > 0 {
		// Newest N, then back to chronological order.
		query = `SELECT * FROM (SELECT id, version, diff, created_at FROM transitions WHERE user_id = ? ORDER BY id DESC LIMIT ?) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t           = Transition{UserID: userID}
			diff, since string
		)
		if err := rows.Scan(&t.ID, &t.Version, &diff, &since); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(diff), &t.Diff); err != nil {
			return nil, fmt.Errorf("unmarshal diff: %w", err)
		}
		t.At, _ = time.Parse(time.RFC3339Nano, since)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
