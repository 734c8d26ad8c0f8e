// Package widget adapts the opaque UI components (code editor, video call) to
// the session engine.
package widget

import (
	"errors"
	"strings"
	"sync"
)

// ErrUnavailable means a widget has not finished loading. It is transient and
// the user may retry.
var ErrUnavailable = errors.New("widget is not available yet")

// Editor is the code editing widget.
type Editor interface {
	GetValue() string
	SetValue(text string)
	// OnChange registers the content-changed hook. It fires for every change,
	// programmatic or typed.
	OnChange(func())
	SetLanguageHint(hint string)
}

// Buffered wraps an Editor that may not be initialised yet. SetValue and
// SetLanguageHint calls made before Ready are queued and replayed in arrival
// order when Ready is called.
type Buffered struct {
	inner Editor

	mu      sync.Mutex
	ready   bool
	pending []func()
	value   string
	readyCh chan struct{}
}

func NewBuffered(inner Editor) *Buffered {
	return &Buffered{inner: inner, readyCh: make(chan struct{})}
}

// Ready signals that the underlying editor is initialised and flushes queued
// calls. Only the first call has any effect.
func (b *Buffered) Ready() {
	b.mu.Lock()
	if b.ready {
		b.mu.Unlock()
		return
	}
	queued := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, fn := range queued {
		fn()
	}

	b.mu.Lock()
	// calls that raced with the flush
	for len(b.pending) > 0 {
		more := b.pending
		b.pending = nil
		b.mu.Unlock()
		for _, fn := range more {
			fn()
		}
		b.mu.Lock()
	}
	b.ready = true
	close(b.readyCh)
	b.mu.Unlock()
}

func (b *Buffered) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Done is closed once Ready has run.
func (b *Buffered) Done() <-chan struct{} { return b.readyCh }

// GetValue returns the editor value, or the latest buffered value before the
// editor is ready.
func (b *Buffered) GetValue() string {
	b.mu.Lock()
	if !b.ready {
		v := b.value
		b.mu.Unlock()
		return v
	}
	b.mu.Unlock()
	return b.inner.GetValue()
}

func (b *Buffered) SetValue(text string) {
	b.mu.Lock()
	if !b.ready {
		b.pending = append(b.pending, func() { b.inner.SetValue(text) })
		b.value = text
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.inner.SetValue(text)
}

func (b *Buffered) SetLanguageHint(hint string) {
	if b.enqueue(func() { b.inner.SetLanguageHint(hint) }) {
		return
	}
	b.inner.SetLanguageHint(hint)
}

// OnChange registers directly; hooks only fire once the editor is live.
func (b *Buffered) OnChange(fn func()) {
	b.inner.OnChange(fn)
}

func (b *Buffered) enqueue(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return false
	}
	b.pending = append(b.pending, fn)
	return true
}

// LanguageHint guesses the editor language from buffer content.
func LanguageHint(code string) string {
	trimmed := strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return "json"
	case strings.Contains(code, "package main"):
		return "go"
	default:
		return "javascript"
	}
}

// MemoryEditor is an Editor backed by a string. It fires change hooks
// synchronously on SetValue, as browser editors do.
type MemoryEditor struct {
	mu    sync.Mutex
	value string
	lang  string
	hooks []func()
}

func (e *MemoryEditor) GetValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *MemoryEditor) SetValue(text string) {
	e.mu.Lock()
	changed := e.value != text
	e.value = text
	hooks := append([]func(){}, e.hooks...)
	e.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range hooks {
		fn()
	}
}

// Type simulates a user edit.
func (e *MemoryEditor) Type(text string) { e.SetValue(text) }

func (e *MemoryEditor) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

func (e *MemoryEditor) SetLanguageHint(hint string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lang = hint
}

func (e *MemoryEditor) Language() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lang
}
