// Package echo keeps remotely applied updates from being re-broadcast as if
// they were local edits.
package echo

import (
	"sync"
	"time"
)

// DefaultGrace is how long the guard stays raised after a remote apply.
const DefaultGrace = 50 * time.Millisecond

// Guard is raised while a remote update is being applied and for a grace
// window afterwards. Change hooks that observe an edit while the guard is up
// must treat it as remote.
//
// On top of the timed window the guard remembers the last value applied
// remotely for each key and the local origin id, so a hook or an inbound
// envelope can be matched against them regardless of timing.
type Guard struct {
	grace time.Duration
	post  func(func())

	mu       sync.Mutex
	raised   bool
	gen      uint64
	timer    *time.Timer
	stopped  bool
	origin   string
	lastSeen map[string]string
}

// New returns a lowered guard. post, when non-nil, receives the clear callback
// so it runs on the owner's goroutine.
func New(grace time.Duration, post func(func())) *Guard {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Guard{
		grace:    grace,
		post:     post,
		lastSeen: make(map[string]string),
	}
}

// Apply raises the guard, runs fn, and lowers the guard one grace period after
// the most recent Apply returns.
func (g *Guard) Apply(fn func()) {
	g.mu.Lock()
	g.raised = true
	g.gen++
	g.mu.Unlock()

	fn()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	gen := g.gen
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.grace, func() {
		if g.post != nil {
			g.post(func() { g.lower(gen) })
			return
		}
		g.lower(gen)
	})
}

func (g *Guard) lower(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen == g.gen {
		g.raised = false
	}
}

// Suppressed reports whether a change observed now must not be emitted.
func (g *Guard) Suppressed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.raised
}

// Remember records v as the value most recently applied remotely for key.
func (g *Guard) Remember(key, v string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSeen[key] = v
}

// IsEcho reports whether v is exactly what was last applied remotely for key.
func (g *Guard) IsEcho(key, v string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen, ok := g.lastSeen[key]
	return ok && seen == v
}

// Forget drops the remembered remote value for key, typically after a local
// edit has been emitted.
func (g *Guard) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.lastSeen, key)
}

// SetOrigin records the local client id used to tag outbound envelopes.
func (g *Guard) SetOrigin(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.origin = id
}

func (g *Guard) Origin() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.origin
}

// SelfOriginated reports whether an envelope tagged with clientID was sent by
// this client.
func (g *Guard) SelfOriginated(clientID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.origin != "" && clientID == g.origin
}

// Stop cancels the pending clear and lowers the guard.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	g.raised = false
	if g.timer != nil {
		g.timer.Stop()
	}
}
