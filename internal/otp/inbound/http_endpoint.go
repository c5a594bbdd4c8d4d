package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

const (
	nextVerify  = "/api/v1/otp/verify"
	nextContent = "/api/v1/otp/content"
)

// HTTPEndpoint exposes the OTP login flow over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// RequestChallenge sends a one-time password to an email address.
func (h *HTTPEndpoint) RequestChallenge(r *router.Request) (any, error) {
	var req RequestChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestChallenge(r.Context(), usecase.RequestChallengeInput{
		Email: req.Email,
		Host:  r.Host,
	})
	if err != nil {
		return nil, err
	}

	return RequestChallengeResponse{
		Email:         resp.Email,
		ExpiresAt:     resp.ExpiresAt,
		ExpiryMinutes: resp.ExpiryMinutes,
		Next:          nextVerify,
	}, nil
}

// PendingChallenge returns the address a code was sent to.
func (h *HTTPEndpoint) PendingChallenge(r *router.Request) (any, error) {
	resp, err := h.uc.PendingChallenge(r.Context())
	if err != nil {
		return nil, err
	}

	return PendingChallengeResponse{Email: resp.Email}, nil
}

// VerifyChallenge exchanges the emailed code for an authenticated session.
func (h *HTTPEndpoint) VerifyChallenge(r *router.Request) (any, error) {
	var req VerifyChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyChallenge(r.Context(), usecase.VerifyChallengeInput{Code: req.OTP})
	if err != nil {
		return nil, err
	}

	return VerifyChallengeResponse{Email: resp.Email, Next: nextContent}, nil
}

// State reports the login state of the session.
func (h *HTTPEndpoint) State(r *router.Request) (any, error) {
	resp, err := h.uc.State(r.Context())
	if err != nil {
		return nil, err
	}

	return StateResponse{State: resp.State.String(), Email: resp.Email}, nil
}

// Content is the resource behind the login.
func (h *HTTPEndpoint) Content(r *router.Request) (any, error) {
	resp, err := h.uc.Content(r.Context())
	if err != nil {
		return nil, err
	}

	return ContentResponse{ViewerEmail: resp.ViewerEmail}, nil
}

// Logout clears the login and any pending code.
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	if err := h.uc.Logout(r.Context()); err != nil {
		return nil, err
	}

	return LogoutResponse{Next: usecase.RequestEntryPoint}, nil
}
