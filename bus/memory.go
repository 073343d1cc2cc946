package bus

import (
	"context"
	"sync"
	"time"

	"github.com/c360/eventgraph/errors"
)

// MemoryBroker delivers messages within one process. Handlers run synchronously
// inside Publish, in subscription order.
type MemoryBroker struct {
	mu            sync.RWMutex
	published     map[string]uint64
	subscriptions map[string][]func(context.Context, []byte)
	closed        bool
}

// NewMemoryBroker creates an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		published:     make(map[string]uint64),
		subscriptions: make(map[string][]func(context.Context, []byte)),
	}
}

// Connect is a no-op unless the broker was closed.
func (m *MemoryBroker) Connect(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.ErrShuttingDown
	}
	return nil
}

// Publish hands data to every handler subscribed to subject. Nothing is kept
// once the handlers return, so a later subscriber sees only later messages.
func (m *MemoryBroker) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.ErrNoConnection
	}

	m.published[subject]++

	handlers := make([]func(context.Context, []byte), len(m.subscriptions[subject]))
	copy(handlers, m.subscriptions[subject])
	m.mu.Unlock()

	for _, handler := range handlers {
		msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		handler(msgCtx, data)
		cancel()
	}
	return nil
}

// Subscribe registers handler for subject.
func (m *MemoryBroker) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.ErrNoConnection
	}
	m.subscriptions[subject] = append(m.subscriptions[subject], handler)
	return nil
}

// Close drops all subscriptions; later calls fail.
func (m *MemoryBroker) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.subscriptions = make(map[string][]func(context.Context, []byte))
	return nil
}

// Published reports how many messages have been published to subject.
func (m *MemoryBroker) Published(subject string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.published[subject]
}
