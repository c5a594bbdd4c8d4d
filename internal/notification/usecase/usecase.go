package usecase

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Usecase struct {
	cfg       config.Config
	validator validator.Validator
	repoMail  repoMail
	ins       instrument.Instrumentation

	otpHTML *htmltemplate.Template
	otpText *texttemplate.Template
}

type Dependency struct {
	Config     config.Config
	Validator  validator.Validator
	RepoMail   repoMail
	Instrument instrument.Instrumentation
}

func New(dep Dependency) (*Usecase, error) {
	otpHTML, err := htmltemplate.ParseFS(templateFS, "templates/otp_email.html.tmpl")
	if err != nil {
		return nil, err
	}
	otpText, err := texttemplate.ParseFS(templateFS, "templates/otp_email.txt.tmpl")
	if err != nil {
		return nil, err
	}

	return &Usecase{
		cfg:       dep.Config,
		validator: dep.Validator,
		repoMail:  dep.RepoMail,
		ins:       dep.Instrument,
		otpHTML:   otpHTML.Option("missingkey=zero"),
		otpText:   otpText.Option("missingkey=zero"),
	}, nil
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

// executor is satisfied by both html/template and text/template.
type executor interface {
	Execute(wr io.Writer, data any) error
}

func render(t executor, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
