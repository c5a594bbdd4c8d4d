package sessionstore

import (
	"context"
	"strconv"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/trace"
)

// Session keys. They are shared with any other reader of the client session.
const (
	KeyCode        = "otp"
	KeyEmail       = "otp_email"
	KeyExpiration  = "otp_expiration"
	KeyViewerEmail = "viewer_email"
	KeyLoggedIn    = "logged_in"
)

var (
	challengeKeys = []string{KeyCode, KeyEmail, KeyExpiration}
	principalKeys = []string{KeyLoggedIn, KeyViewerEmail}
)

// sessions is the slice of scs.SessionManager used here. Every call expects
// the session loaded by session.Manager.Middleware in ctx.
type sessions interface {
	Put(ctx context.Context, key string, val any)
	GetString(ctx context.Context, key string) string
	Exists(ctx context.Context, key string) bool
	Remove(ctx context.Context, key string)
	RenewToken(ctx context.Context) error
}

// SessionStore keeps the challenge and the principal in the client session
// attached to the request context.
type SessionStore struct {
	sessions sessions
	ins      instrument.Instrumentation
}

func New(sessions sessions, ins instrument.Instrumentation) *SessionStore {
	return &SessionStore{sessions: sessions, ins: ins}
}

func (s *SessionStore) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.outbound.sessionstore").Start(ctx, name)
}

// BeginChallenge replaces any challenge of the session with ch.
func (s *SessionStore) BeginChallenge(ctx context.Context, ch entity.Challenge) error {
	ctx, span := s.startSpan(ctx, "BeginChallenge")
	defer span.End()

	s.sessions.Put(ctx, KeyCode, ch.Digest)
	s.sessions.Put(ctx, KeyEmail, ch.Email)
	s.sessions.Put(ctx, KeyExpiration, strconv.FormatInt(ch.ExpiresAt.UnixMilli(), 10))
	return nil
}

// PeekChallenge returns the current challenge, or nil when there is none.
func (s *SessionStore) PeekChallenge(ctx context.Context) (*entity.Challenge, error) {
	ctx, span := s.startSpan(ctx, "PeekChallenge")
	defer span.End()

	return s.readChallenge(ctx), nil
}

// ConsumeChallenge deletes the challenge fields. It is a no-op without a challenge.
func (s *SessionStore) ConsumeChallenge(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "ConsumeChallenge")
	defer span.End()

	s.remove(ctx, challengeKeys)
	return nil
}

// RedeemChallenge calls fn with the current challenge (nil when absent) and
// deletes the challenge when fn reports consume, whatever error fn returns.
// The read and the delete are atomic for the session because the request holds
// the session lock from load to commit.
func (s *SessionStore) RedeemChallenge(ctx context.Context, fn func(ch *entity.Challenge) (consume bool, err error)) error {
	ctx, span := s.startSpan(ctx, "RedeemChallenge")
	defer span.End()

	consume, err := fn(s.readChallenge(ctx))
	if consume {
		s.remove(ctx, challengeKeys)
	}
	return err
}

// EstablishPrincipal attaches p to the session and rotates the session token.
func (s *SessionStore) EstablishPrincipal(ctx context.Context, p entity.Principal) error {
	ctx, span := s.startSpan(ctx, "EstablishPrincipal")
	defer span.End()

	s.sessions.Put(ctx, KeyViewerEmail, p.Email)
	s.sessions.Put(ctx, KeyLoggedIn, strconv.FormatBool(p.Authenticated))

	if err := s.sessions.RenewToken(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// GetPrincipal returns the authenticated principal, or nil when logged out.
func (s *SessionStore) GetPrincipal(ctx context.Context) (*entity.Principal, error) {
	ctx, span := s.startSpan(ctx, "GetPrincipal")
	defer span.End()

	if s.sessions.GetString(ctx, KeyLoggedIn) != "true" {
		return nil, nil
	}
	return &entity.Principal{Email: s.sessions.GetString(ctx, KeyViewerEmail), Authenticated: true}, nil
}

// ClearPrincipal removes the principal from the session.
func (s *SessionStore) ClearPrincipal(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "ClearPrincipal")
	defer span.End()

	s.remove(ctx, principalKeys)
	return nil
}

// remove leaves a session without any of keys unmodified, so it gets no cookie.
func (s *SessionStore) remove(ctx context.Context, keys []string) {
	for _, k := range keys {
		s.sessions.Remove(ctx, k)
	}
}

// readChallenge treats a record with a missing or unparsable field as absent.
func (s *SessionStore) readChallenge(ctx context.Context) *entity.Challenge {
	for _, k := range challengeKeys {
		if !s.sessions.Exists(ctx, k) {
			return nil
		}
	}

	digest := s.sessions.GetString(ctx, KeyCode)
	if digest == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s.sessions.GetString(ctx, KeyExpiration), 10, 64)
	if err != nil {
		return nil
	}

	return &entity.Challenge{
		Email:     s.sessions.GetString(ctx, KeyEmail),
		Digest:    digest,
		ExpiresAt: time.UnixMilli(ms),
	}
}
