package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
	ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")
	// ErrKafkaGroupRequired is returned when Consume gets no consumer group.
	ErrKafkaGroupRequired = errors.New("messaging: kafka consumer group is required")
)

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	// Brokers lists Kafka broker addresses.
	Brokers []string
	// Dialer configures broker connections; nil uses the kafka-go default.
	Dialer *kafka.Dialer
}

// Kafka is a broker backed by kafka-go. A message whose handler keeps failing
// is retried in place up to the configured attempts and then committed, so one
// poison message cannot stall its partition.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers []*kafka.Reader
	closed  bool
}

// NewKafka constructs a Kafka client. Connections are opened lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: append([]string(nil), cfg.Brokers...),
		dialer:  cfg.Dialer,
		writers: map[string]*kafka.Writer{},
	}, nil
}

// Publish writes msg to the destination topic with headers as Kafka headers.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	writer, err := k.writer(destination)
	if err != nil {
		return err
	}

	if err := writer.WriteMessages(ctx, toKafka(msg, time.Now())); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}
	return nil
}

// Consume reads source as the consumer group named by WithGroup.
func (k *Kafka) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrKafkaGroupRequired
	}

	reader, err := k.reader(source, co.group)
	if err != nil {
		return err
	}
	defer k.dropReader(reader)

	msgCh := make(chan kafka.Message)
	errCh := make(chan error, 1)

	go func() {
		defer close(msgCh)
		for {
			m, err := reader.FetchMessage(ctx)
			if err != nil {
				errCh <- err
				return
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				k.deliver(ctx, reader, handler, m, co.maxAttempts)
			}
		})
	}

	wg.Wait()
	ferr := <-errCh

	if errors.Is(ferr, context.Canceled) || errors.Is(ferr, context.DeadlineExceeded) {
		return ferr
	}
	if k.isClosed() {
		return ErrClosed
	}
	return fmt.Errorf("messaging: kafka consume: %w", ferr)
}

func (k *Kafka) deliver(ctx context.Context, reader *kafka.Reader, handler Handler, m kafka.Message, maxAttempts int) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := safeHandle(ctx, "kafka", handler, fromKafka(m, attempt))
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			// Left uncommitted; the group redelivers it after a restart.
			return
		}
		slog.ErrorContext(ctx, "kafka handler failed",
			"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "attempt", attempt, "error", err)
	}

	if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "kafka commit failed", "topic", m.Topic, "offset", m.Offset, "error", err)
	}
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  k.brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		Dialer:   k.dialer,
	})
	k.writers[topic] = w
	return w, nil
}

func (k *Kafka) reader(topic, group string) (*kafka.Reader, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  group,
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   k.dialer,
	})
	k.readers = append(k.readers, r)
	return r, nil
}

func (k *Kafka) dropReader(r *kafka.Reader) {
	k.mu.Lock()
	for i := range k.readers {
		if k.readers[i] == r {
			k.readers = append(k.readers[:i], k.readers[i+1:]...)
			break
		}
	}
	k.mu.Unlock()

	_ = r.Close()
}

func (k *Kafka) isClosed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}

// Close shuts down all readers and writers. Running consumers return ErrClosed.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	writers := make([]*kafka.Writer, 0, len(k.writers))
	for _, w := range k.writers {
		writers = append(writers, w)
	}
	k.writers = nil
	readers := append([]*kafka.Reader(nil), k.readers...)
	k.mu.Unlock()

	var closeErr error
	for _, r := range readers {
		closeErr = errors.Join(closeErr, r.Close())
	}
	for _, w := range writers {
		closeErr = errors.Join(closeErr, w.Close())
	}
	return closeErr
}
