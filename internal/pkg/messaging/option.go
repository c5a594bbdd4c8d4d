package messaging

type consumeOptions struct {
	// group shares deliveries between consumers of the same name: a NATS queue
	// group, an NSQ channel, or an in-process subscription group.
	group       string
	concurrency int
	maxAttempts int
}

// ConsumeOption configures consumer behavior.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1, maxAttempts: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency < 1 {
		co.concurrency = 1
	}
	if co.maxAttempts < 1 {
		co.maxAttempts = 1
	}
	return co
}

// WithGroup names the consumer group.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithConcurrency sets how many handler goroutines process messages in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithMaxAttempts bounds deliveries of a message whose handler keeps failing.
func WithMaxAttempts(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxAttempts = n }
}
