// Package relay is the board relay: it greets each client with the board's
// full state, folds client updates into that state, fans every update out to
// the board's other members and persists boards between sessions.
package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"huddle/internal/board"
	"huddle/internal/envelope"
	"huddle/internal/observability"
)

const storeTimeout = 10 * time.Second

type HubOptions struct {
	FlushInterval time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
	SendQueue     int
	Now           func() time.Time
}

func (o *HubOptions) defaults() {
	if o.FlushInterval <= 0 {
		o.FlushInterval = 5 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Hour
	}
	if o.Retention <= 0 {
		o.Retention = 24 * time.Hour
	}
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// liveBoard is a board with at least one connected client on this relay.
type liveBoard struct {
	snap    board.Snapshot
	clients map[*client]struct{}
	dirty   bool
}

// Hub owns every live board. All board state is touched only by Run.
type Hub struct {
	store  Store
	broker Broker
	opts   HubOptions
	log    zerolog.Logger

	boards     map[string]*liveBoard
	register   chan *client
	unregister chan *client
	deliveries chan Message
	stopped    chan struct{}
}

func NewHub(store Store, broker Broker, opts HubOptions, log zerolog.Logger) (*Hub, error) {
	opts.defaults()
	h := &Hub{
		store:      store,
		broker:     broker,
		opts:       opts,
		log:        log.With().Str("component", "hub").Logger(),
		boards:     make(map[string]*liveBoard),
		register:   make(chan *client),
		unregister: make(chan *client),
		deliveries: make(chan Message, 64),
		stopped:    make(chan struct{}),
	}
	if err := broker.Subscribe(h.deliver); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hub) deliver(m Message) {
	select {
	case h.deliveries <- m:
	case <-h.stopped:
	}
}

// Run serves the hub until ctx is cancelled, then flushes dirty boards and
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)
	flush := time.NewTicker(h.opts.FlushInterval)
	defer flush.Stop()
	sweep := time.NewTicker(h.opts.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case c := <-h.register:
			h.join(c)
		case c := <-h.unregister:
			if b, ok := h.boards[c.boardID]; ok {
				h.detach(b, c)
			}
		case m := <-h.deliveries:
			h.fanOut(m)
		case <-flush.C:
			h.flushDirty()
		case <-sweep.C:
			h.sweep()
		}
	}
}

func (h *Hub) join(c *client) {
	b, err := h.board(c.boardID)
	if err != nil {
		c.log.Error().Err(err).Msg("could not load board")
		close(c.send)
		return
	}
	data, err := envelope.Encode(envelope.Initial(b.snap, c.id))
	if err != nil {
		c.log.Error().Err(err).Msg("encode initial state")
		close(c.send)
		return
	}
	b.clients[c] = struct{}{}
	c.send <- data
	c.log.Info().Int("clients", len(b.clients)).Msg("client joined")
}

// board returns the live board, loading it from the store or creating it.
func (h *Hub) board(id string) (*liveBoard, error) {
	if b, ok := h.boards[id]; ok {
		return b, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	snap, found, err := h.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	b := &liveBoard{snap: snap, clients: make(map[*client]struct{})}
	if !found {
		b.snap = newSnapshot(id)
		b.dirty = true
		h.log.Info().Str("board", id).Msg("created board")
	}
	h.boards[id] = b
	observability.SetBoards(len(h.boards))
	return b, nil
}

// detach removes c from b. The last client out evicts the board after
// writing it back.
func (h *Hub) detach(b *liveBoard, c *client) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.send)
	c.log.Info().Int("clients", len(b.clients)).Msg("client left")
	if len(b.clients) > 0 {
		return
	}
	h.persist(b)
	delete(h.boards, b.snap.ID)
	observability.SetBoards(len(h.boards))
	h.log.Info().Str("board", b.snap.ID).Msg("evicted idle board")
}

func (h *Hub) fanOut(m Message) {
	b, ok := h.boards[m.Board]
	if !ok {
		return
	}
	env, err := envelope.Decode(m.Data)
	if err != nil {
		observability.RecordDrop("malformed")
		h.log.Warn().Err(err).Str("board", m.Board).Msg("drop undecodable broker message")
		return
	}
	changed, err := apply(&b.snap, env)
	if err != nil {
		observability.RecordDrop("malformed")
		h.log.Warn().Err(err).Str("board", m.Board).Msg("drop malformed update")
		return
	}
	if changed {
		b.dirty = true
	}
	for c := range b.clients {
		if c.id == m.Sender {
			continue
		}
		select {
		case c.send <- m.Data:
		default:
			observability.RecordDrop("slow_client")
			c.log.Warn().Msg("send queue full, disconnecting")
			h.detach(b, c)
		}
	}
}

func (h *Hub) persist(b *liveBoard) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	err := h.store.Save(ctx, b.snap, h.opts.Now())
	observability.RecordFlush(err)
	if err != nil {
		h.log.Error().Err(err).Str("board", b.snap.ID).Msg("persist board")
		return
	}
	b.dirty = false
}

func (h *Hub) flushDirty() {
	for _, b := range h.boards {
		if b.dirty {
			h.persist(b)
		}
	}
}

func (h *Hub) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	cutoff := h.opts.Now().Add(-h.opts.Retention)
	n, err := h.store.Sweep(ctx, cutoff)
	if err != nil {
		h.log.Error().Err(err).Msg("sweep old boards")
		return
	}
	if n > 0 {
		h.log.Info().Int64("boards", n).Msg("swept old boards")
	}
}

func (h *Hub) shutdown() {
	for id, b := range h.boards {
		if b.dirty {
			h.persist(b)
		}
		for c := range b.clients {
			close(c.send)
		}
		delete(h.boards, id)
	}
	observability.SetBoards(0)
	h.log.Info().Msg("hub stopped")
}
