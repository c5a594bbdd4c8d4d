package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	RequestChallenge(ctx context.Context, in usecase.RequestChallengeInput) (*usecase.RequestChallengeOutput, error)
	PendingChallenge(ctx context.Context) (*usecase.PendingChallengeOutput, error)
	VerifyChallenge(ctx context.Context, in usecase.VerifyChallengeInput) (*usecase.VerifyChallengeOutput, error)
	State(ctx context.Context) (*usecase.StateOutput, error)
	Content(ctx context.Context) (*usecase.ContentOutput, error)
	Logout(ctx context.Context) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/otp/request", end.RequestChallenge)
	r.GET("/api/v1/otp/verify", end.PendingChallenge)
	r.POST("/api/v1/otp/verify", end.VerifyChallenge)
	r.GET("/api/v1/otp/state", end.State)
	r.POST("/api/v1/otp/logout", end.Logout)

	// Gated (need authenticated session)
	r.GET("/api/v1/otp/content", end.Content)
}
