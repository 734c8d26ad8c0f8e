// Package debounce coalesces bursts of calls per key into one trailing call.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a field update is transmitted.
const DefaultDelay = 500 * time.Millisecond

// Emitter runs the most recently scheduled function for a key once no new
// call for that key has arrived for the configured delay. Keys are independent.
type Emitter struct {
	delay time.Duration
	post  func(func())

	mu      sync.Mutex
	timers  map[string]*time.Timer
	gen     map[string]uint64
	stopped bool
}

// New returns an Emitter. post, when non-nil, receives each due function so
// the owner can run it on its own goroutine; otherwise it runs on the timer's.
func New(delay time.Duration, post func(func())) *Emitter {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Emitter{
		delay:  delay,
		post:   post,
		timers: make(map[string]*time.Timer),
		gen:    make(map[string]uint64),
	}
}

func (e *Emitter) Delay() time.Duration { return e.delay }

// Schedule (re)starts the quiet period for key. fire reads whatever value is
// current when it runs.
func (e *Emitter) Schedule(key string, fire func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if t, ok := e.timers[key]; ok {
		t.Stop()
	}
	e.gen[key]++
	gen := e.gen[key]
	e.timers[key] = time.AfterFunc(e.delay, func() {
		run := func() {
			if e.claim(key, gen) {
				fire()
			}
		}
		if e.post != nil {
			e.post(run)
			return
		}
		run()
	})
}

// claim consumes the pending slot for key if gen is still the latest schedule.
func (e *Emitter) claim(key string, gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || e.gen[key] != gen {
		return false
	}
	delete(e.timers, key)
	return true
}

// Pending reports whether key has an armed timer.
func (e *Emitter) Pending(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[key]
	return ok
}

func (e *Emitter) Cancel(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[key]; ok {
		t.Stop()
		delete(e.timers, key)
	}
	e.gen[key]++
}

// Stop discards every pending call. Later Schedule calls are ignored.
func (e *Emitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for key, t := range e.timers {
		t.Stop()
		delete(e.timers, key)
	}
}
