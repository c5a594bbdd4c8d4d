package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
)

type ConsumeOTPChallengeInput struct {
	Email         string `validate:"required,email"`
	Code          string `validate:"required,numeric"`
	ExpiryMinutes int    `validate:"gte=0"`
	Host          string
}

type otpEmailData struct {
	Code          string
	ExpiryMinutes int
	Host          string
	AppName       string
}

// OTPSubject is the subject line of the code email.
func OTPSubject(host string) string {
	return fmt.Sprintf("Your One-Time Password (OTP) for %s", host)
}

// ConsumeOTPChallenge renders and sends the code email. An invalid payload is
// dropped; a send failure is returned so the broker may redeliver.
func (s *Usecase) ConsumeOTPChallenge(ctx context.Context, in ConsumeOTPChallengeInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPChallenge")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "email", in.Email, "error", err)
		return nil
	}

	host := in.Host
	if host == "" {
		host = s.cfg.GetString("app.name")
	}

	data := otpEmailData{
		Code:          in.Code,
		ExpiryMinutes: in.ExpiryMinutes,
		Host:          host,
		AppName:       s.cfg.GetString("app.name"),
	}

	htmlBody, err := render(s.otpHTML, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email html body", "error", err)
		return goerror.NewServer(err)
	}
	textBody, err := render(s.otpText, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email text body", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMail.Send(ctx, mail.Message{
		To:       []string{in.Email},
		Subject:  OTPSubject(host),
		TextBody: textBody,
		HTMLBody: htmlBody,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "email", in.Email, "error", err)
		return err
	}

	slog.InfoContext(ctx, "otp email sent", "email", in.Email)
	return nil
}
