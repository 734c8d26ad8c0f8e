package identity

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"huddle/internal/board"
)

var (
	profilesBucket = []byte("profiles")
	memberKey      = []byte("member")
)

// Store persists the local member between visits.
type Store interface {
	Load() (board.Member, bool, error)
	Save(board.Member) error
}

// BoltStore keeps one member record per profile in a bbolt file.
type BoltStore struct {
	db      *bolt.DB
	profile []byte
}

func OpenBoltStore(path, profile string) (*BoltStore, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open identity store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(profilesBucket)
		if err != nil {
			return err
		}
		_, err = root.CreateBucketIfNotExists([]byte(profile))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init identity store: %w", err)
	}
	return &BoltStore{db: db, profile: []byte(profile)}, nil
}

func (s *BoltStore) Load() (board.Member, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(profilesBucket).Bucket(s.profile)
		if b == nil {
			return nil
		}
		if v := b.Get(memberKey); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return board.Member{}, false, fmt.Errorf("load identity: %w", err)
	}
	if raw == nil {
		return board.Member{}, false, nil
	}
	var m board.Member
	if err := json.Unmarshal(raw, &m); err != nil {
		return board.Member{}, false, fmt.Errorf("decode identity: %w", err)
	}
	return m, true, nil
}

func (s *BoltStore) Save(m board.Member) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(profilesBucket).CreateBucketIfNotExists(s.profile)
		if err != nil {
			return err
		}
		return b.Put(memberKey, raw)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// MemoryStore is a Store that forgets everything on exit.
type MemoryStore struct {
	mu     sync.Mutex
	member *board.Member
}

func (s *MemoryStore) Load() (board.Member, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member == nil {
		return board.Member{}, false, nil
	}
	return *s.member, true, nil
}

func (s *MemoryStore) Save(m board.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.member = &m
	return nil
}
