package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
)

type uc interface {
	ConsumeOTPChallenge(ctx context.Context, in usecase.ConsumeOTPChallengeInput) error
}
