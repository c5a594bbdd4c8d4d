package messaging

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// DefaultMemoryBuffer is the per-group queue size of the in-process broker.
const DefaultMemoryBuffer = 256

// Memory is an in-process broker. Each consumer group receives every message
// published to its topic once; consumers sharing a group split the deliveries.
type Memory struct {
	buffer int

	mu     sync.RWMutex
	groups map[string]map[string]*memoryGroup
	closed bool
	done   chan struct{}

	seq atomic.Uint64
}

type memoryGroup struct {
	queue   chan Message
	members int
}

// NewMemory returns an in-process broker with buffer slots per consumer group.
func NewMemory(buffer int) *Memory {
	if buffer < 1 {
		buffer = DefaultMemoryBuffer
	}
	return &Memory{
		buffer: buffer,
		groups: make(map[string]map[string]*memoryGroup),
		done:   make(chan struct{}),
	}
}

// Publish fans msg out to every consumer group of destination. It blocks while
// a group queue is full, until ctx is done or the broker closes. Messages to a
// topic without consumers are discarded.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if destination == "" {
		return ErrDestinationRequired
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*memoryGroup, 0, len(m.groups[destination]))
	for _, g := range m.groups[destination] {
		targets = append(targets, g)
	}
	m.mu.RUnlock()

	out := Message{
		ID:        strconv.FormatUint(m.seq.Inc(), 10),
		Topic:     destination,
		Body:      append([]byte(nil), msg.Body...),
		Headers:   maps.Clone(msg.Headers),
		Timestamp: time.Now(),
		Attempts:  1,
	}

	for _, g := range targets {
		select {
		case g.queue <- out:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		}
	}

	return nil
}

// Consume delivers messages of source to handler until ctx is done or Close.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	group := co.group
	if group == "" {
		group = "anonymous-" + strconv.FormatUint(m.seq.Inc(), 10)
	}

	g, err := m.join(source, group)
	if err != nil {
		return err
	}
	defer m.leave(source, group)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case msg := <-g.queue:
					m.deliver(ctx, g, handler, msg, co.maxAttempts)
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) deliver(ctx context.Context, g *memoryGroup, handler Handler, msg Message, maxAttempts int) {
	err := safeHandle(ctx, "memory", handler, msg)
	if err == nil {
		return
	}

	if msg.Attempts >= maxAttempts {
		slog.ErrorContext(ctx, "memory broker dropped message after failed attempts", "topic", msg.Topic, "id", msg.ID, "attempts", msg.Attempts, "error", err)
		return
	}

	msg.Attempts++
	select {
	case g.queue <- msg:
	default:
		slog.ErrorContext(ctx, "memory broker queue full, message dropped", "topic", msg.Topic, "id", msg.ID, "error", err)
	}
}

func (m *Memory) join(topic, group string) (*memoryGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	groups, ok := m.groups[topic]
	if !ok {
		groups = make(map[string]*memoryGroup)
		m.groups[topic] = groups
	}

	g, ok := groups[group]
	if !ok {
		g = &memoryGroup{queue: make(chan Message, m.buffer)}
		groups[group] = g
	}
	g.members++

	return g, nil
}

func (m *Memory) leave(topic, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[topic][group]
	if !ok {
		return
	}
	g.members--
	if g.members == 0 {
		delete(m.groups[topic], group)
	}
}

// Groups reports how many consumer groups currently receive topic.
func (m *Memory) Groups(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups[topic])
}

// Close stops all consumers. Undelivered messages are discarded.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
