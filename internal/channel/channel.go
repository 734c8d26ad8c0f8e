// Package channel owns the single websocket connection between a board client
// and the relay.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"huddle/internal/envelope"
)

const (
	writeWait    = 10 * time.Second
	sendQueue    = 256
	inboundQueue = 64
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// ErrClosed reports a connection closed by the local side.
var ErrClosed = errors.New("channel closed")

// ConnectionError means the transport to the relay could not be established.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

type Conn struct {
	ws  *websocket.Conn
	url string
	log zerolog.Logger

	send    chan []byte
	inbound chan envelope.Envelope
	done    chan struct{}
	state   atomic.Int32

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// URL turns a relay address (host:port, http(s):// or ws(s)://) into the
// board's websocket endpoint.
func URL(relay, boardID string) (string, error) {
	relay = strings.TrimSpace(relay)
	boardID = strings.TrimSpace(boardID)
	if relay == "" {
		return "", errors.New("relay address is empty")
	}
	if boardID == "" {
		return "", errors.New("board id is empty")
	}
	if !strings.Contains(relay, "://") {
		relay = "ws://" + relay
	}
	u, err := url.Parse(relay)
	if err != nil {
		return "", fmt.Errorf("parse relay address: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	return u.JoinPath("ws", boardID).String(), nil
}

// Dial connects to the relay for boardID. Failures are *ConnectionError.
func Dial(ctx context.Context, relay, boardID string, log zerolog.Logger) (*Conn, error) {
	target, err := URL(relay, boardID)
	if err != nil {
		return nil, &ConnectionError{URL: relay, Err: err}
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, &ConnectionError{URL: target, Err: err}
	}
	c := newConn(ws, target, log)
	go c.readPump()
	go c.writePump()
	return c, nil
}

func newConn(ws *websocket.Conn, target string, log zerolog.Logger) *Conn {
	c := &Conn{
		ws:      ws,
		url:     target,
		log:     log.With().Str("component", "channel").Str("url", target).Logger(),
		send:    make(chan []byte, sendQueue),
		inbound: make(chan envelope.Envelope, inboundQueue),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(StateOpen))
	return c
}

func (c *Conn) State() State { return State(c.state.Load()) }

// Send queues env for transmission. It never blocks and never fails: when the
// channel is not open, or the queue is full, the envelope is dropped.
func (c *Conn) Send(env envelope.Envelope) {
	if c.State() != StateOpen {
		return
	}
	data, err := envelope.Encode(env)
	if err != nil {
		c.log.Debug().Err(err).Str("type", string(env.Type)).Msg("drop unencodable envelope")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.log.Warn().Str("type", string(env.Type)).Msg("send queue full, dropping envelope")
	}
}

// Inbound delivers decoded envelopes in transport order. It is closed when the
// connection ends.
func (c *Conn) Inbound() <-chan envelope.Envelope { return c.inbound }

// Done is closed when the connection has ended for any reason.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended: ErrClosed after Close, the transport
// error otherwise, nil while open.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()
		close(c.done)

		if errors.Is(cause, ErrClosed) {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		} else {
			c.log.Warn().Err(cause).Msg("connection lost")
		}
		c.ws.Close()
		c.state.Store(int32(StateClosed))
	})
}

func (c *Conn) readPump() {
	defer close(c.inbound)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Info().Msg("relay closed the connection")
				}
				c.shutdown(err)
			}
			return
		}
		env, err := envelope.Decode(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("drop inbound frame")
			continue
		}
		select {
		case c.inbound <- env:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.shutdown(err)
				return
			}
		case <-c.done:
			return
		}
	}
}
