package otp

import (
	"errors"

	"github.com/shandysiswandi/otpgate/internal/otp/inbound"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/notifier"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/sessionstore"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	pkgotp "github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

var (
	ErrInvalidCodeLength = errors.New("otp: otp.length must be at least 1")
	ErrInvalidExpiration = errors.New("otp: otp.expiration_seconds must be positive")
)

type Dependency struct {
	Config     config.Config              `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Sessions   *session.Manager           `validate:"required"`
	Pool       *goroutine.Pool            `validate:"required"`
	Publisher  messaging.Publisher        `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	cfg := usecase.Config{
		CodeLength: dep.Config.GetInt("otp.length"),
		Expiration: dep.Config.GetSecond("otp.expiration_seconds"),
	}
	if cfg.CodeLength < 1 {
		return ErrInvalidCodeLength
	}
	if cfg.Expiration <= 0 {
		return ErrInvalidExpiration
	}

	uc := usecase.New(usecase.Dependency{
		Config:      cfg,
		RepoSession: sessionstore.New(dep.Sessions, dep.Instrument),
		Notifier:    notifier.New(dep.Pool, dep.Publisher, dep.Instrument),
		Generator:   pkgotp.NewNumeric(),
		HMAC:        dep.HMAC,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
