package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpgate/internal/notification"
	"github.com/shandysiswandi/otpgate/internal/otp"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.otp.enabled") {
		if err := otp.New(otp.Dependency{
			Config:     a.config,
			Router:     a.router,
			Sessions:   a.sessions,
			Pool:       a.goroutine,
			Publisher:  a.messaging,
			HMAC:       a.hmac,
			Clock:      a.clock,
			Validator:  a.validator,
			Instrument: a.ins,
		}); err != nil {
			slog.Error("failed to init module otp", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			Consumer:   a.messaging,
			Consumers:  a.consumers,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Validator:  a.validator,
			Mail:       a.mail,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
