package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"huddle/internal/observability"
)

const (
	channelPrefix  = "huddle:board:"
	channelPattern = channelPrefix + "*"
)

// RedisBroker fans out over redis pub/sub so several relays can serve the same
// board. Each board has its own channel.
type RedisBroker struct {
	rdb *redis.Client
	log zerolog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroker(rdb *redis.Client, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log.With().Str("component", "broker").Logger(), done: make(chan struct{})}
}

type redisEnvelope struct {
	Sender string          `json:"sender"`
	Data   json.RawMessage `json:"data"`
}

func boardChannel(boardID string) string { return channelPrefix + boardID }

func boardFromChannel(ch string) (string, bool) {
	id, ok := strings.CutPrefix(ch, channelPrefix)
	return id, ok && id != ""
}

func encodeMessage(m Message) ([]byte, error) {
	return json.Marshal(redisEnvelope{Sender: m.Sender, Data: m.Data})
}

func decodeMessage(channel, payload string) (Message, error) {
	id, ok := boardFromChannel(channel)
	if !ok {
		return Message{}, fmt.Errorf("unexpected channel %q", channel)
	}
	var raw redisEnvelope
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Message{}, fmt.Errorf("decode broker message: %w", err)
	}
	return Message{Board: id, Sender: raw.Sender, Data: raw.Data}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, m Message) error {
	payload, err := encodeMessage(m)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, boardChannel(m.Board), payload).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(deliver func(Message)) error {
	ctx := context.Background()
	ps := b.rdb.PSubscribe(ctx, channelPattern)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", channelPattern, err)
	}
	b.mu.Lock()
	b.pubsub = ps
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		for msg := range ps.Channel() {
			m, err := decodeMessage(msg.Channel, msg.Payload)
			if err != nil {
				observability.RecordBrokerError()
				b.log.Warn().Err(err).Msg("drop broker message")
				continue
			}
			deliver(m)
		}
	}()
	return nil
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	ps := b.pubsub
	b.mu.Unlock()
	var err error
	if ps != nil {
		err = ps.Close()
		<-b.done
	}
	return errors.Join(err, b.rdb.Close())
}
