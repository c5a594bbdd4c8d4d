package event

const OTPChallengeRequestedDestination string = "otp_challenge_requested"
const OTPChallengeRequestedConsumerNotification string = "otp_challenge_requested_notification"

// HeaderCorrelationID carries the request correlation id across the broker.
const HeaderCorrelationID string = "cID"

type OTPChallengeRequestedMessage struct {
	Email         string `json:"email"`
	Code          string `json:"code"`
	ExpiryMinutes int    `json:"expiry_minutes"`
	Host          string `json:"host"`
}
