package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

// ErrPubSubProjectIDRequired is returned when neither a client nor a project id is configured.
var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

// PubSubConfig configures the Google Pub/Sub implementation. PUBSUB_EMULATOR_HOST
// is honoured by the client library.
type PubSubConfig struct {
	ProjectID string
	// Client provides an existing client; ProjectID and ClientOptions are then ignored.
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
}

// PubSub is a broker backed by Google Pub/Sub. Headers travel as message
// attributes. Consume reads the subscription named by WithGroup, or the source
// itself when no group is given.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// NewPubSub constructs a Pub/Sub client.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.Client != nil {
		return &PubSub{client: cfg.Client, publishers: map[string]*pubsub.Publisher{}}, nil
	}
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
	}

	return &PubSub{client: c, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Publish sends msg to the destination topic and waits for the server id.
func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	pub, err := p.publisher(destination)
	if err != nil {
		return err
	}

	res := pub.Publish(ctx, toPubSub(msg))
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("messaging: pubsub publish: %w", err)
	}
	return nil
}

// Consume receives from the subscription until ctx is done. A message whose
// handler keeps failing is acked after the configured attempts.
func (p *PubSub) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if p.isClosed() {
		return ErrClosed
	}

	co := newConsumeOptions(opts...)
	subscription := source
	if co.group != "" {
		subscription = co.group
	}

	sub := p.client.Subscriber(subscription)
	sub.ReceiveSettings.NumGoroutines = co.concurrency
	sub.ReceiveSettings.MaxOutstandingMessages = co.concurrency

	err := sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		first := 1
		if m.DeliveryAttempt != nil {
			first = *m.DeliveryAttempt
		}

		for attempt := first; attempt <= max(first, co.maxAttempts); attempt++ {
			herr := safeHandle(ctx, "pubsub", handler, fromPubSub(source, m, attempt))
			if herr == nil {
				break
			}
			if ctx.Err() != nil {
				m.Nack()
				return
			}
			slog.ErrorContext(ctx, "pubsub handler failed",
				"subscription", subscription, "id", m.ID, "attempt", attempt, "error", herr)
		}
		m.Ack()
	})
	if err != nil {
		return fmt.Errorf("messaging: pubsub receive: %w", err)
	}

	// Receive returns nil once ctx is done.
	return ctx.Err()
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub, nil
}

func (p *PubSub) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close flushes publishers and closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pubs := make([]*pubsub.Publisher, 0, len(p.publishers))
	for _, pub := range p.publishers {
		pubs = append(pubs, pub)
	}
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	return p.client.Close()
}
