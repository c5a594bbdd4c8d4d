package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type VerifyChallengeInput struct {
	Code string
}

type VerifyChallengeOutput struct {
	Email string
}

// VerifyChallenge redeems the pending challenge with code. The checks and the
// consume run under the session lock, so two attempts cannot both succeed.
func (s *Usecase) VerifyChallenge(ctx context.Context, in VerifyChallengeInput) (*VerifyChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyChallenge")
	defer span.End()

	var email string
	result := "error"
	err := s.repoSession.RedeemChallenge(ctx, func(ch *entity.Challenge) (bool, error) {
		if ch == nil {
			result = "no_challenge"
			return false, entity.ErrNoPendingChallenge
		}

		tag := fmt.Sprintf("required,otpcode=%d", s.cfg.CodeLength)
		if err := s.validator.ValidateVar("otp", in.Code, tag); err != nil {
			result = "invalid"
			return false, goerror.NewInvalidInput(err)
		}

		if ch.Expired(s.clock.Now()) {
			result = "expired"
			return true, entity.ErrChallengeExpired
		}

		if !s.hmac.Verify(ch.Digest, in.Code) {
			result = "mismatch"
			return false, entity.ErrCodeMismatch
		}

		email = ch.Email
		result = "success"
		return true, nil
	})
	if err == nil {
		if err = s.repoSession.EstablishPrincipal(ctx, entity.Principal{Email: email, Authenticated: true}); err != nil {
			result = "error"
		}
	}
	s.countVerification(ctx, result)

	switch {
	case err == nil:
		slog.InfoContext(ctx, "otp challenge verified", "email", email)
		return &VerifyChallengeOutput{Email: email}, nil

	case errors.Is(err, entity.ErrNoPendingChallenge):
		slog.WarnContext(ctx, "otp verify without pending challenge")
		return nil, goerror.NewBusinessCause(err, "Please request an OTP first.", goerror.CodeConflict, "next", RequestEntryPoint)

	case errors.Is(err, entity.ErrChallengeExpired):
		slog.WarnContext(ctx, "otp challenge expired")
		return nil, goerror.NewBusinessCause(err, "The OTP has expired. Please request a new one.", goerror.CodeGone, "next", RequestEntryPoint)

	case errors.Is(err, entity.ErrCodeMismatch):
		slog.WarnContext(ctx, "otp code mismatch")
		return nil, goerror.NewBusinessCause(err, "Incorrect OTP. Please try again.", goerror.CodeUnauthorized)

	case result == "invalid":
		return nil, err

	default:
		slog.ErrorContext(ctx, "failed to verify otp challenge", "error", err)
		return nil, goerror.NewServer(err)
	}
}
