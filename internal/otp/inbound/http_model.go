package inbound

import (
	"fmt"
	"net/http"
	"time"
)

type RequestChallengeRequest struct {
	Email string `json:"email"`
}

type RequestChallengeResponse struct {
	Email         string    `json:"email"`
	ExpiresAt     time.Time `json:"expires_at"`
	ExpiryMinutes int       `json:"expiry_minutes"`
	Next          string    `json:"next"`
}

func (RequestChallengeResponse) StatusCode() int {
	return http.StatusCreated
}

func (r RequestChallengeResponse) Message() string {
	return fmt.Sprintf("A One-Time Password has been sent to %s. Please check your inbox and enter it below.", r.Email)
}

type PendingChallengeResponse struct {
	Email string `json:"email"`
}

type VerifyChallengeRequest struct {
	OTP string `json:"otp"`
}

type VerifyChallengeResponse struct {
	Email string `json:"email"`
	Next  string `json:"next"`
}

func (VerifyChallengeResponse) Message() string {
	return "OTP verified successfully! You are logged in."
}

type StateResponse struct {
	State string `json:"state"`
	Email string `json:"email,omitempty"`
}

type ContentResponse struct {
	ViewerEmail string `json:"viewer_email"`
}

type LogoutResponse struct {
	Next string `json:"next"`
}

func (LogoutResponse) Message() string {
	return "You have been logged out."
}
