package notifier

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type submitter interface {
	Submit(ctx context.Context, name string, job goroutine.Job) error
}

// Notifier hands challenge notifications to the worker pool, which publishes
// them for the notification module.
type Notifier struct {
	pool      submitter
	publisher messaging.Publisher
	ins       instrument.Instrumentation
}

func New(pool submitter, publisher messaging.Publisher, ins instrument.Instrumentation) *Notifier {
	return &Notifier{pool: pool, publisher: publisher, ins: ins}
}

// NotifyChallenge returns once the job is queued. Failures are only logged.
func (n *Notifier) NotifyChallenge(ctx context.Context, in usecase.ChallengeNotification) {
	ctx, span := n.ins.Tracer("otp.outbound.notifier").Start(ctx, "NotifyChallenge")
	defer span.End()

	jobCtx := context.WithoutCancel(ctx)
	err := n.pool.Submit(jobCtx, "otp.notify_challenge", func(ctx context.Context) error {
		return n.publish(ctx, in)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to queue otp notification", "email", in.Email, "error", err)
	}
}

func (n *Notifier) publish(ctx context.Context, in usecase.ChallengeNotification) error {
	ctx, span := n.ins.Tracer("otp.outbound.notifier").Start(ctx, "PublishChallengeRequested")
	defer span.End()

	body, err := json.Marshal(event.OTPChallengeRequestedMessage{
		Email:         in.Email,
		Code:          in.Code,
		ExpiryMinutes: in.ExpiryMinutes,
		Host:          in.Host,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to encode otp challenge event", "email", in.Email, "error", err)
		return err
	}

	if err := n.publisher.Publish(ctx, event.OTPChallengeRequestedDestination, messaging.OutgoingMessage{
		Body:    body,
		Headers: messaging.Headers{event.HeaderCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to publish otp challenge event", "email", in.Email, "error", err)
		return err
	}

	return nil
}
