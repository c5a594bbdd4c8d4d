package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RequestEntryPoint is where callers are sent to start over.
const RequestEntryPoint = "/api/v1/otp/request"

// ChallengeNotification is the content handed to the notifier.
type ChallengeNotification struct {
	Email         string
	Code          string
	ExpiryMinutes int
	Host          string
}

type notifier interface {
	// NotifyChallenge must not block on delivery and reports nothing back.
	NotifyChallenge(ctx context.Context, in ChallengeNotification)
}

type repoSession interface {
	BeginChallenge(ctx context.Context, ch entity.Challenge) error
	PeekChallenge(ctx context.Context) (*entity.Challenge, error)
	RedeemChallenge(ctx context.Context, fn func(ch *entity.Challenge) (consume bool, err error)) error
	ConsumeChallenge(ctx context.Context) error

	EstablishPrincipal(ctx context.Context, p entity.Principal) error
	GetPrincipal(ctx context.Context) (*entity.Principal, error)
	ClearPrincipal(ctx context.Context) error
}

// Config holds the OTP policy.
type Config struct {
	// CodeLength is the number of digits per code.
	CodeLength int
	// Expiration is how long a code stays valid after it is issued.
	Expiration time.Duration
}

type Usecase struct {
	cfg         Config
	repoSession repoSession
	notifier    notifier
	generator   otp.Generator
	hmac        hash.Hash
	clock       clock.Clocker
	validator   validator.Validator
	ins         instrument.Instrumentation

	verifications metric.Int64Counter
}

type Dependency struct {
	Config      Config
	RepoSession repoSession
	Notifier    notifier
	Generator   otp.Generator
	HMAC        hash.Hash
	Clock       clock.Clocker
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	verifications, err := dep.Instrument.Meter("otp.usecase").Int64Counter("otp.verifications",
		metric.WithDescription("OTP verification attempts by result"))
	if err != nil {
		slog.Error("failed to create otp verification counter", "error", err)
	}

	return &Usecase{
		cfg:           dep.Config,
		repoSession:   dep.RepoSession,
		notifier:      dep.Notifier,
		generator:     dep.Generator,
		hmac:          dep.HMAC,
		clock:         dep.Clock,
		validator:     dep.Validator,
		ins:           dep.Instrument,
		verifications: verifications,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

func (s *Usecase) countVerification(ctx context.Context, result string) {
	if s.verifications == nil {
		return
	}
	s.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// expiryMinutes truncates like integer division of the seconds.
func (s *Usecase) expiryMinutes() int {
	return int(s.cfg.Expiration / time.Minute)
}
