package relay

import (
	"context"
	"sync"
	"time"

	"huddle/internal/board"
)

// Store persists board snapshots between sessions. Chat is never stored.
type Store interface {
	// Load returns the stored snapshot, or false when the board is unknown.
	Load(ctx context.Context, id string) (board.Snapshot, bool, error)
	Save(ctx context.Context, snap board.Snapshot, at time.Time) error
	// Sweep deletes boards last written before cutoff.
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

type storedBoard struct {
	snap    board.Snapshot
	updated time.Time
}

// MemoryStore keeps snapshots for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	boards map[string]storedBoard
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{boards: make(map[string]storedBoard)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (board.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return board.Snapshot{}, false, nil
	}
	return b.snap.Clone(), true, nil
}

func (m *MemoryStore) Save(_ context.Context, snap board.Snapshot, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[snap.ID] = storedBoard{snap: snap.Clone(), updated: at}
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.boards {
		if b.updated.Before(cutoff) {
			delete(m.boards, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
