package relay

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"huddle/internal/board"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS boards (
	id TEXT NOT NULL PRIMARY KEY,
	content_code TEXT NOT NULL DEFAULT '',
	content_notes TEXT NOT NULL DEFAULT '',
	content_tasks TEXT NOT NULL DEFAULT '[]',
	huddle_link TEXT NOT NULL DEFAULT '',
	team TEXT NOT NULL DEFAULT '[]',
	last_updated TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS boards_last_updated ON boards (last_updated);`

// SQLiteStore keeps boards in a single sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite serialises writers; one connection keeps flush and sweep from racing
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create boards table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (board.Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content_code, content_notes, content_tasks, huddle_link, team FROM boards WHERE id = ?`, id)
	var (
		snap        board.Snapshot
		tasks, team string
	)
	err := row.Scan(&snap.ID, &snap.ContentCode, &snap.ContentNotes, &tasks, &snap.HuddleLink, &team)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Snapshot{}, false, nil
	}
	if err != nil {
		return board.Snapshot{}, false, fmt.Errorf("load board %s: %w", id, err)
	}
	if err := decodeCollections(&snap, []byte(tasks), []byte(team)); err != nil {
		return board.Snapshot{}, false, fmt.Errorf("load board %s: %w", id, err)
	}
	return snap, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap board.Snapshot, at time.Time) error {
	tasks, team, err := encodeCollections(snap)
	if err != nil {
		return fmt.Errorf("save board %s: %w", snap.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO boards (id, content_code, content_notes, content_tasks, huddle_link, team, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.ContentCode, snap.ContentNotes, string(tasks), snap.HuddleLink, string(team), at.UTC())
	if err != nil {
		return fmt.Errorf("save board %s: %w", snap.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE last_updated < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep boards: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLiteStore) Close() error                   { return s.db.Close() }

func encodeCollections(snap board.Snapshot) (tasks, team []byte, err error) {
	if snap.ContentTasks == nil {
		snap.ContentTasks = []board.Task{}
	}
	if snap.Team == nil {
		snap.Team = []board.Member{}
	}
	if tasks, err = json.Marshal(snap.ContentTasks); err != nil {
		return nil, nil, err
	}
	if team, err = json.Marshal(snap.Team); err != nil {
		return nil, nil, err
	}
	return tasks, team, nil
}

func decodeCollections(snap *board.Snapshot, tasks, team []byte) error {
	if len(tasks) > 0 {
		if err := json.Unmarshal(tasks, &snap.ContentTasks); err != nil {
			return fmt.Errorf("decode tasks: %w", err)
		}
	}
	if len(team) > 0 {
		if err := json.Unmarshal(team, &snap.Team); err != nil {
			return fmt.Errorf("decode team: %w", err)
		}
	}
	return nil
}
