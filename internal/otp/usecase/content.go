package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type ContentOutput struct {
	ViewerEmail string
}

// Content is the gated resource; it is readable only when authenticated.
func (s *Usecase) Content(ctx context.Context) (*ContentOutput, error) {
	ctx, span := s.startSpan(ctx, "Content")
	defer span.End()

	p, err := s.repoSession.GetPrincipal(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get principal", "error", err)
		return nil, goerror.NewServer(err)
	}

	if p == nil || !p.Authenticated {
		return nil, goerror.NewBusinessCause(entity.ErrNotAuthenticated,
			"You must log in to access this content.", goerror.CodeUnauthorized, "next", RequestEntryPoint)
	}

	return &ContentOutput{ViewerEmail: p.Email}, nil
}
