package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type RequestChallengeInput struct {
	Email string `json:"email" validate:"required,email"`
	// Host names the site in the email subject.
	Host string `json:"-"`
}

type RequestChallengeOutput struct {
	Email         string
	ExpiresAt     time.Time
	ExpiryMinutes int
}

// RequestChallenge issues a new code for the email, replacing any pending one,
// and queues its delivery.
func (s *Usecase) RequestChallenge(ctx context.Context, in RequestChallengeInput) (*RequestChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestChallenge")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	code, err := s.generator.Generate(s.cfg.CodeLength)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "length", s.cfg.CodeLength, "error", err)
		return nil, goerror.NewServer(err)
	}

	digest, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	ch := entity.Challenge{
		Email:     in.Email,
		Digest:    string(digest),
		ExpiresAt: s.clock.Now().Add(s.cfg.Expiration),
	}
	if err := s.repoSession.BeginChallenge(ctx, ch); err != nil {
		slog.ErrorContext(ctx, "failed to repo begin challenge", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.notifier.NotifyChallenge(ctx, ChallengeNotification{
		Email:         in.Email,
		Code:          code,
		ExpiryMinutes: s.expiryMinutes(),
		Host:          in.Host,
	})

	slog.InfoContext(ctx, "otp challenge issued", "email", in.Email, "expires_at", ch.ExpiresAt)

	return &RequestChallengeOutput{
		Email:         ch.Email,
		ExpiresAt:     ch.ExpiresAt,
		ExpiryMinutes: s.expiryMinutes(),
	}, nil
}
