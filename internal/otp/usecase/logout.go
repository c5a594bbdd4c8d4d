package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// Logout drops the principal and any leftover challenge. Logging out an
// anonymous session succeeds as well.
func (s *Usecase) Logout(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if err := s.repoSession.ClearPrincipal(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to repo clear principal", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoSession.ConsumeChallenge(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to repo consume challenge", "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
