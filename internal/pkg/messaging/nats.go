package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS implementation.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a broker backed by core NATS. Delivery is at most once, so handler
// errors are logged and not redelivered.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	closed bool
}

// NewNATS connects to the NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Publish sends msg to the destination subject, with headers as NATS headers.
func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for k, v := range msg.Headers {
		nmsg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}

	return nil
}

// Consume subscribes to source, in the queue group named by WithGroup if any.
func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return ErrClosed
	}

	co := newConsumeOptions(opts...)
	msgCh := make(chan *nats.Msg, co.concurrency)

	sub, err := n.conn.QueueSubscribe(source, co.group, func(m *nats.Msg) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-msgCh:
					msg := fromNATS(m)
					if err := safeHandle(ctx, "nats", handler, msg); err != nil {
						slog.ErrorContext(ctx, "nats handler failed", "subject", msg.Topic, "error", err)
					}
				}
			}
		})
	}

	if err := n.conn.FlushWithContext(ctx); err != nil {
		slog.WarnContext(ctx, "nats flush after subscribe failed", "subject", source, "error", err)
	}

	<-ctx.Done()

	derr := sub.Unsubscribe()
	if errors.Is(derr, nats.ErrConnectionClosed) || errors.Is(derr, nats.ErrBadSubscription) {
		derr = nil
	}
	wg.Wait()

	return errors.Join(ctx.Err(), derr)
}

func fromNATS(m *nats.Msg) Message {
	var headers Headers
	if len(m.Header) > 0 {
		headers = make(Headers, len(m.Header))
		for k := range m.Header {
			headers[k] = m.Header.Get(k)
		}
	}

	return Message{
		Topic:     m.Subject,
		Body:      m.Data,
		Headers:   headers,
		Timestamp: time.Now(),
		Attempts:  1,
	}
}

// Close drains the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	err := n.conn.Drain()
	n.conn.Close()
	return err
}
