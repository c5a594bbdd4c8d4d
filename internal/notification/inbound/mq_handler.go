package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers messaging.Headers) context.Context {
	if cID := headers[event.HeaderCorrelationID]; cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) OTPChallengeNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPChallengeNotification")
	defer span.End()

	slog.InfoContext(ctx, "consume: otp challenge notification", "msg_id", msg.ID, "attempts", msg.Attempts)

	var payload event.OTPChallengeRequestedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp challenge notification", "msg_id", msg.ID, "error", err)
		return nil
	}

	if err := h.uc.ConsumeOTPChallenge(ctx, usecase.ConsumeOTPChallengeInput{
		Email:         payload.Email,
		Code:          payload.Code,
		ExpiryMinutes: payload.ExpiryMinutes,
		Host:          payload.Host,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp challenge", "msg_id", msg.ID, "email", payload.Email, "error", err)
		return err
	}

	return nil
}
