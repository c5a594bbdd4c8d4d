package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var (
	// ErrNSQProducerAddrRequired is returned when Publish is used without an nsqd address.
	ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")
	// ErrNSQConsumerAddrsRequired is returned when no nsqd/lookupd consumer addresses are configured.
	ErrNSQConsumerAddrsRequired = errors.New("messaging: nsq consumer nsqd/lookupd addresses are required")
)

// DefaultNSQChannel is the channel used when Consume gets no group.
const DefaultNSQChannel = "default"

// NSQConfig configures the NSQ implementation.
type NSQConfig struct {
	// ProducerAddr is the nsqd TCP address used for publishing.
	ProducerAddr string
	// ConsumerNSQDAddrs lists nsqd addresses; ignored when lookupd addresses are set.
	ConsumerNSQDAddrs    []string
	ConsumerLookupdAddrs []string
}

// NSQ is a broker backed by NSQ. Failed handlers are requeued by nsqd up to the
// configured attempts.
type NSQ struct {
	producer *nsq.Producer
	nsqd     []string
	lookupd  []string

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

// NewNSQ constructs an NSQ client. The producer connects lazily on first publish.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	n := &NSQ{
		nsqd:    append([]string(nil), cfg.ConsumerNSQDAddrs...),
		lookupd: append([]string(nil), cfg.ConsumerLookupdAddrs...),
	}

	if cfg.ProducerAddr != "" {
		p, err := nsq.NewProducer(cfg.ProducerAddr, nsq.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
		}
		p.SetLoggerLevel(nsq.LogLevelError)
		n.producer = p
	}

	return n, nil
}

// Publish sends msg to the destination topic wrapped in an envelope.
func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if n.producer == nil {
		return ErrNSQProducerAddrRequired
	}

	body, err := encodeEnvelope(msg)
	if err != nil {
		return err
	}

	if err := n.producer.Publish(destination, body); err != nil {
		return fmt.Errorf("messaging: nsq publish: %w", err)
	}
	return nil
}

// Consume reads source on the channel named by WithGroup.
func (n *NSQ) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if len(n.nsqd) == 0 && len(n.lookupd) == 0 {
		return ErrNSQConsumerAddrsRequired
	}

	co := newConsumeOptions(opts...)
	channel := co.group
	if channel == "" {
		channel = DefaultNSQChannel
	}

	cfg := nsq.NewConfig()
	cfg.MaxInFlight = co.concurrency
	cfg.MaxAttempts = uint16(min(co.maxAttempts, 65535))

	consumer, err := nsq.NewConsumer(source, channel, cfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		return safeHandle(ctx, "nsq", handler, fromNSQ(source, m))
	}), co.concurrency)

	if err := n.track(consumer); err != nil {
		return err
	}

	if len(n.lookupd) > 0 {
		err = consumer.ConnectToNSQLookupds(n.lookupd)
	} else {
		err = consumer.ConnectToNSQDs(n.nsqd)
	}
	if err != nil {
		consumer.Stop()
		<-consumer.StopChan
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		consumer.Stop()
		<-consumer.StopChan
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func (n *NSQ) track(c *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	n.consumers = append(n.consumers, c)
	return nil
}

func fromNSQ(topic string, m *nsq.Message) Message {
	headers, body := decodeEnvelope(m.Body)
	return Message{
		ID:        string(m.ID[:]),
		Topic:     topic,
		Body:      body,
		Headers:   headers,
		Timestamp: time.Unix(0, m.Timestamp),
		Attempts:  int(m.Attempts),
	}
}

// Close stops consumers and the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.mu.Unlock()

	for _, c := range consumers {
		c.Stop()
		<-c.StopChan
	}
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}
