// Package identity derives and persists who the local participant is.
package identity

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"huddle/internal/board"
)

var (
	ErrNoIdentity = errors.New("identity: not established")
	ErrEmptyName  = errors.New("identity: display name is empty")
)

// Prompter asks the user for a display name.
type Prompter func() (string, error)

type Manager struct {
	store   Store
	palette []string
	rng     *rand.Rand
	log     zerolog.Logger

	mu     sync.Mutex
	member board.Member
	ready  bool
}

func NewManager(store Store, rng *rand.Rand, log zerolog.Logger) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Manager{
		store:   store,
		palette: board.Palette,
		rng:     rng,
		log:     log.With().Str("component", "identity").Logger(),
	}
}

// Ensure loads the stored member, or prompts for a name on first use and
// persists a new member with a random palette color. A stored member is reused
// without prompting.
func (m *Manager) Ensure(prompt Prompter) (board.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return m.member, nil
	}
	stored, ok, err := m.store.Load()
	if err != nil {
		return board.Member{}, err
	}
	if ok && strings.TrimSpace(stored.Name) != "" {
		if stored.Color == "" {
			stored.Color = m.pickColor()
		}
		m.member, m.ready = stored, true
		m.log.Debug().Str("name", stored.Name).Msg("reusing stored identity")
		return stored, nil
	}
	if prompt == nil {
		return board.Member{}, ErrNoIdentity
	}
	name, err := prompt()
	if err != nil {
		return board.Member{}, fmt.Errorf("prompt for name: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return board.Member{}, ErrEmptyName
	}
	member := board.Member{Name: name, Color: m.pickColor()}
	if err := m.store.Save(member); err != nil {
		return board.Member{}, fmt.Errorf("persist identity: %w", err)
	}
	m.member, m.ready = member, true
	m.log.Info().Str("name", name).Str("color", member.Color).Msg("created identity")
	return member, nil
}

// Assign adopts the id handed out by the relay in INITIAL_STATE.
func (m *Manager) Assign(id string) (board.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return board.Member{}, ErrNoIdentity
	}
	if m.member.ID == id {
		return m.member, nil
	}
	m.member.ID = id
	if err := m.store.Save(m.member); err != nil {
		m.log.Warn().Err(err).Msg("persist assigned id")
	}
	return m.member, nil
}

// Rename updates and persists the display name.
func (m *Manager) Rename(name string) (board.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return board.Member{}, ErrEmptyName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return board.Member{}, ErrNoIdentity
	}
	next := m.member
	next.Name = name
	if err := m.store.Save(next); err != nil {
		return board.Member{}, fmt.Errorf("persist identity: %w", err)
	}
	m.member = next
	return next, nil
}

// Self returns the current member and whether it has been established.
func (m *Manager) Self() (board.Member, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.member, m.ready
}

func (m *Manager) pickColor() string {
	return m.palette[m.rng.Intn(len(m.palette))]
}
