package entity

// State is the position of a client session in the OTP login flow.
type State int8

const (
	// StateNoChallenge means nothing is pending and nobody is logged in.
	StateNoChallenge State = 0

	// StateChallengePending means a code was sent and awaits verification.
	StateChallengePending State = 1

	// StateAuthenticated means a code was verified and a principal is attached.
	StateAuthenticated State = 2
)

func (s State) String() string {
	switch s {
	case StateChallengePending:
		return "ChallengePending"
	case StateAuthenticated:
		return "Authenticated"
	default:
		return "NoChallenge"
	}
}
