package notification

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/notification/inbound"
	"github.com/shandysiswandi/otpgate/internal/notification/outbound/email"
	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

type Dependency struct {
	// Ctx bounds the consumers; they stop when it is done.
	Ctx        context.Context            `validate:"required"`
	Consumer   messaging.Consumer         `validate:"required"`
	Consumers  *goroutine.Pool            `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc, err := usecase.New(usecase.Dependency{
		Config:     dep.Config,
		Validator:  dep.Validator,
		RepoMail:   email.New(dep.Mail, dep.Instrument),
		Instrument: dep.Instrument,
	})
	if err != nil {
		return err
	}

	return inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Consumers, dep.Consumer, dep.UUID, uc, dep.Instrument)
}
