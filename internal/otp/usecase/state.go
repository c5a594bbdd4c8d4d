package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type PendingChallengeOutput struct {
	Email string
}

// PendingChallenge reports the address of the pending challenge. An expired
// challenge is still pending until a verification attempt observes it.
func (s *Usecase) PendingChallenge(ctx context.Context) (*PendingChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "PendingChallenge")
	defer span.End()

	ch, err := s.repoSession.PeekChallenge(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo peek challenge", "error", err)
		return nil, goerror.NewServer(err)
	}

	if ch == nil {
		return nil, goerror.NewBusinessCause(entity.ErrNoPendingChallenge,
			"Please request an OTP first.", goerror.CodeConflict, "next", RequestEntryPoint)
	}

	return &PendingChallengeOutput{Email: ch.Email}, nil
}

type StateOutput struct {
	State entity.State
	// Email is the viewer when authenticated, else the pending address.
	Email string
}

// State reports where the session is in the login flow.
func (s *Usecase) State(ctx context.Context) (*StateOutput, error) {
	ctx, span := s.startSpan(ctx, "State")
	defer span.End()

	p, err := s.repoSession.GetPrincipal(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get principal", "error", err)
		return nil, goerror.NewServer(err)
	}
	if p != nil && p.Authenticated {
		return &StateOutput{State: entity.StateAuthenticated, Email: p.Email}, nil
	}

	ch, err := s.repoSession.PeekChallenge(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo peek challenge", "error", err)
		return nil, goerror.NewServer(err)
	}
	if ch != nil {
		return &StateOutput{State: entity.StateChallengePending, Email: ch.Email}, nil
	}

	return &StateOutput{State: entity.StateNoChallenge}, nil
}
