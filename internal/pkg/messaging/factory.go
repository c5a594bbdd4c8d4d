package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverMemory selects the in-process backend.
	DriverMemory = "memory"
	// DriverNSQ selects the NSQ backend.
	DriverNSQ = "nsq"
	// DriverNATS selects the NATS backend.
	DriverNATS = "nats"
	// DriverKafka selects the Kafka backend.
	DriverKafka = "kafka"
	// DriverGooglePubSub selects the Google Pub/Sub backend.
	DriverGooglePubSub = "google-pubsub"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions groups config for supported messaging backends.
type FactoryOptions struct {
	// MemoryBuffer sizes each in-process consumer queue.
	MemoryBuffer int
	NSQ          NSQConfig
	NATS         NATSConfig
	Kafka        KafkaConfig
	PubSub       PubSubConfig
}

// NewFromDriver constructs a Broker by driver name. An empty driver selects memory.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Broker, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemory(opts.MemoryBuffer), nil
	case DriverNSQ:
		return NewNSQ(opts.NSQ)
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverKafka:
		return NewKafka(opts.Kafka)
	case DriverGooglePubSub:
		return NewPubSub(ctx, opts.PubSub)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
