package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrClosed is returned by operations on a closed broker.
	ErrClosed = errors.New("messaging: broker is closed")
	// ErrDestinationRequired is returned when a topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
)

// Broker is a connected messaging client.
type Broker interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
}

// Consumer consumes messages from a source.
type Consumer interface {
	// Consume blocks delivering messages to handler until ctx is done or the
	// broker is closed. A handler error asks the broker to redeliver when the
	// driver supports it.
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// Headers carry string metadata alongside the body, such as the correlation id.
type Headers map[string]string

// OutgoingMessage is a message to publish.
type OutgoingMessage struct {
	Body    []byte
	Headers Headers
}

// Message is a received message.
type Message struct {
	ID        string
	Topic     string
	Body      []byte
	Headers   Headers
	Timestamp time.Time
	// Attempts counts deliveries of this message, starting at 1.
	Attempts int
}
