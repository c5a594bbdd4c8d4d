package mail

import (
	"context"
	"log/slog"
)

// Log is a Mail that records messages in the application log instead of
// delivering them.
type Log struct {
	from string
}

// NewLog returns a log-only sender using from as the default sender.
func NewLog(from string) *Log {
	return &Log{from: from}
}

// Send logs the message envelope and bodies.
func (l *Log) Send(ctx context.Context, msg Message) error {
	if len(msg.Recipients()) == 0 {
		return ErrSMTPNoRecipients
	}

	from := msg.From
	if from == "" {
		from = l.from
	}

	slog.InfoContext(ctx, "mail sending suppressed",
		"from", from,
		"to", msg.To,
		"subject", msg.Subject,
		"text_body", msg.TextBody,
		"html_bytes", len(msg.HTMLBody),
	)
	return nil
}

// Close implements io.Closer.
func (l *Log) Close() error {
	return nil
}
