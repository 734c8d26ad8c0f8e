package relay

import (
	"context"
	"errors"
	"sync"
)

var ErrBrokerClosed = errors.New("broker closed")

// Message is one client frame in flight between relay instances.
type Message struct {
	Board  string
	Sender string
	Data   []byte
}

// Broker fans messages out to every relay instance, including the publisher.
type Broker interface {
	Publish(ctx context.Context, m Message) error
	// Subscribe installs the delivery callback. It must be called once,
	// before the first Publish.
	Subscribe(deliver func(Message)) error
	Close() error
}

// LocalBroker delivers in process, for a single relay instance.
type LocalBroker struct {
	mu      sync.RWMutex
	deliver func(Message)
	closed  bool
}

func NewLocalBroker() *LocalBroker { return &LocalBroker{} }

func (b *LocalBroker) Subscribe(deliver func(Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	b.deliver = deliver
	return nil
}

func (b *LocalBroker) Publish(_ context.Context, m Message) error {
	b.mu.RLock()
	deliver, closed := b.deliver, b.closed
	b.mu.RUnlock()
	if closed || deliver == nil {
		return ErrBrokerClosed
	}
	deliver(m)
	return nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.deliver = nil
	return nil
}
