// Package engine runs one client's synchronization session for a board.
//
// A Session owns the store, echo guard, debouncer and reconciler for the
// lifetime of one connection. Everything that touches board state runs on the
// session's event loop: inbound envelopes, timer expirations, editor change
// hooks and user operations are all posted to it as closures and executed in
// arrival order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"huddle/internal/board"
	"huddle/internal/debounce"
	"huddle/internal/echo"
	"huddle/internal/envelope"
	"huddle/internal/identity"
	"huddle/internal/reconcile"
	"huddle/internal/widget"
)

var (
	ErrClosed       = errors.New("session closed")
	ErrEmptyMessage = errors.New("chat message is empty")
	ErrRunning      = errors.New("session already running")
)

// Channel is the connection to the relay.
type Channel interface {
	Send(envelope.Envelope)
	Inbound() <-chan envelope.Envelope
	Done() <-chan struct{}
	Err() error
	Close() error
}

type Options struct {
	BoardID   string
	Debounce  time.Duration
	EchoGrace time.Duration
	Focus     reconcile.Focus
	Video     widget.Video
	Assistant Assistant
	// OnUpdate receives a fresh view after every state change. It runs on
	// the event loop and must not call back into the session synchronously.
	OnUpdate func(board.View)
	Now      func() time.Time
}

type Session struct {
	opts   Options
	log    zerolog.Logger
	conn   Channel
	store  *board.Store
	editor *widget.Buffered
	guard  *echo.Guard
	emit   *debounce.Emitter
	rec    *reconcile.Reconciler
	ident  *identity.Manager

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	closing bool
	running atomic.Bool
}

func New(conn Channel, editor widget.Editor, ident *identity.Manager, opts Options, log zerolog.Logger) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		opts:   opts,
		log:    log.With().Str("component", "session").Str("board", opts.BoardID).Logger(),
		conn:   conn,
		store:  board.NewStore(opts.BoardID),
		editor: widget.NewBuffered(editor),
		ident:  ident,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	post := func(fn func()) { s.post(fn) }
	s.guard = echo.New(opts.EchoGrace, post)
	s.emit = debounce.New(opts.Debounce, post)
	s.rec = reconcile.New(s.store, s.editor, opts.Focus, ident, s.guard, senderFunc(s.send), s.log)
	s.editor.OnChange(func() { s.post(s.codeChanged) })
	return s
}

type senderFunc func(envelope.Envelope)

func (f senderFunc) Send(env envelope.Envelope) { f(env) }

// Editor is the buffered editor the session drives. UI code calls Ready on it
// once the underlying widget is initialised.
func (s *Session) Editor() *widget.Buffered { return s.editor }

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run processes events until ctx is cancelled or the channel ends. On return
// all pending timers are discarded and the channel is closed. A lost
// connection is returned as an error; cancellation returns nil.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer s.teardown()

	inbound := s.conn.Inbound()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("leaving board")
			return nil
		case <-s.wake:
			s.drain()
		case env, ok := <-inbound:
			if !ok {
				err := s.conn.Err()
				s.log.Warn().Err(err).Msg("relay connection ended")
				if err == nil {
					err = ErrClosed
				}
				return fmt.Errorf("board %s: %w", s.opts.BoardID, err)
			}
			if s.rec.Apply(env) {
				s.render()
			}
		}
	}
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.closing = true
	s.queue = nil
	s.mu.Unlock()
	s.emit.Stop()
	s.guard.Stop()
	_ = s.conn.Close()
	close(s.done)
}

// post queues fn for the event loop. It reports false once the session is
// shutting down.
func (s *Session) post(fn func()) bool {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Session) drain() {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// call runs fn on the event loop and waits for its result.
func (s *Session) call(fn func() error) error {
	reply := make(chan error, 1)
	if !s.post(func() { reply <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// send tags env with our client id and hands it to the channel.
func (s *Session) send(env envelope.Envelope) {
	env.ClientID = s.guard.Origin()
	s.conn.Send(env)
}

func (s *Session) render() {
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(s.store.View())
	}
}

// View returns a copy of the current board state.
func (s *Session) View() (board.View, error) {
	var v board.View
	err := s.call(func() error {
		v = s.store.View()
		return nil
	})
	return v, err
}
