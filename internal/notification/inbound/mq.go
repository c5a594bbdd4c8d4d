package inbound

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type consumerSpec struct {
	name    string
	topic   string // destination where publisher sent message
	handler messaging.Handler
}

// RegisterMQConsumer starts the enabled consumers as long-running jobs on
// routine. Each job returns when ctx is done or the broker closes. It fails
// without starting anything when routine has fewer free workers than enabled
// consumers.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Pool,
	consumer messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) error {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.concurrency")
	maxAttempts := cfg.GetInt("modules.notification.max_attempts")

	consumers := []consumerSpec{
		{
			name:    event.OTPChallengeRequestedConsumerNotification,
			topic:   event.OTPChallengeRequestedDestination,
			handler: mqHandler.OTPChallengeNotification,
		},
	}

	active := lo.Filter(consumers, func(c consumerSpec, _ int) bool {
		if !lo.Contains(enabled, c.name) {
			slog.WarnContext(ctx, "consumer disabled by config", "consumer", c.name)
			return false
		}
		return true
	})

	// Every consumer holds a worker until shutdown.
	if err := routine.Reserve(len(active)); err != nil {
		return err
	}

	for _, c := range active {
		err := routine.Submit(ctx, c.name, func(pCtx context.Context) error {
			slog.InfoContext(pCtx, "Running job for handling consumer", "consumer", c.name)
			err := consumer.Consume(pCtx, c.topic, c.handler,
				messaging.WithGroup(c.name),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxAttempts(maxAttempts),
			)
			if errors.Is(err, context.Canceled) || errors.Is(err, messaging.ErrClosed) {
				return nil
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
