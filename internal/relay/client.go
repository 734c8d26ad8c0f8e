package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"huddle/internal/envelope"
	"huddle/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	publishTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one websocket connection joined to one board.
type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	boardID string
	id      string
	log     zerolog.Logger
}

func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("board", boardID).Msg("websocket upgrade failed")
		return
	}
	id := uuid.New().String()
	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.opts.SendQueue),
		boardID: boardID,
		id:      id,
		log:     h.log.With().Str("board", boardID).Str("client", id).Logger(),
	}
	select {
	case h.register <- c:
	case <-h.stopped:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	observability.ConnectionOpened()
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		_ = c.conn.Close()
		observability.ConnectionClosed()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("unexpected close")
			}
			return
		}
		env, err := envelope.Decode(data)
		if err == nil {
			err = validate(env)
		}
		if err != nil {
			observability.RecordDrop("malformed")
			c.log.Debug().Err(err).Msg("drop inbound frame")
			continue
		}
		observability.RecordEnvelope(string(env.Type))
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = c.hub.broker.Publish(ctx, Message{Board: c.boardID, Sender: c.id, Data: data})
		cancel()
		if err != nil {
			observability.RecordBrokerError()
			c.log.Error().Err(err).Str("type", string(env.Type)).Msg("publish failed")
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
