package mail

import (
	"context"
	"io"
)

// Message represents an email payload.
type Message struct {
	// From is an optional explicit sender; implementations fall back to their default.
	From string
	To   []string
	Cc   []string
	Bcc  []string

	Subject  string
	TextBody string
	// HTMLBody is optional; when both bodies are set the message is multipart/alternative.
	HTMLBody string
}

// Recipients returns To, Cc and Bcc in one slice.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	Send(ctx context.Context, msg Message) error
}
