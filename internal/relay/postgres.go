package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle/internal/board"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS boards (
	id TEXT PRIMARY KEY,
	content_code TEXT NOT NULL DEFAULT '',
	content_notes TEXT NOT NULL DEFAULT '',
	content_tasks JSONB NOT NULL DEFAULT '[]',
	huddle_link TEXT NOT NULL DEFAULT '',
	team JSONB NOT NULL DEFAULT '[]',
	last_updated TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS boards_last_updated ON boards (last_updated);`

// PostgresStore shares boards between relay instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the boards table. It needs a reachable database, so it is
// run after Ping succeeds.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create boards table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (board.Snapshot, bool, error) {
	var (
		snap        board.Snapshot
		tasks, team []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, content_code, content_notes, content_tasks, huddle_link, team FROM boards WHERE id = $1`, id).
		Scan(&snap.ID, &snap.ContentCode, &snap.ContentNotes, &tasks, &snap.HuddleLink, &team)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.Snapshot{}, false, nil
	}
	if err != nil {
		return board.Snapshot{}, false, fmt.Errorf("load board %s: %w", id, err)
	}
	if err := decodeCollections(&snap, tasks, team); err != nil {
		return board.Snapshot{}, false, fmt.Errorf("load board %s: %w", id, err)
	}
	return snap, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap board.Snapshot, at time.Time) error {
	tasks, team, err := encodeCollections(snap)
	if err != nil {
		return fmt.Errorf("save board %s: %w", snap.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO boards (id, content_code, content_notes, content_tasks, huddle_link, team, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content_code = EXCLUDED.content_code,
			content_notes = EXCLUDED.content_notes,
			content_tasks = EXCLUDED.content_tasks,
			huddle_link = EXCLUDED.huddle_link,
			team = EXCLUDED.team,
			last_updated = EXCLUDED.last_updated`,
		snap.ID, snap.ContentCode, snap.ContentNotes, string(tasks), snap.HuddleLink, string(team), at)
	if err != nil {
		return fmt.Errorf("save board %s: %w", snap.ID, err)
	}
	return nil
}

func (s *PostgresStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM boards WHERE last_updated < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep boards: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
