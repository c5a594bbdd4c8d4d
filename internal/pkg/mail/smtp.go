package mail

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("smtp host and port are required")
	// ErrSMTPNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrSMTPNoRecipients = errors.New("no recipients provided")
	// ErrSMTPNoSender is returned when both Message.From and the configured default From are empty.
	ErrSMTPNoSender = errors.New("no sender provided")
	// ErrSMTPStartTLSUnsupported is returned when UseTLS is set and the server lacks STARTTLS.
	ErrSMTPStartTLSUnsupported = errors.New("smtp server does not support STARTTLS")
)

// SMTPConfig configures the SMTP implementation.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender when Message.From is empty.
	From string
	// UseTLS upgrades the plain connection with STARTTLS.
	UseTLS bool
	// UseSSL dials with implicit TLS (usually port 465). It takes precedence over UseTLS.
	UseSSL bool
	// DialTimeout bounds connection setup; 10s when zero.
	DialTimeout time.Duration
	// TLSConfig overrides the client TLS settings; ServerName defaults to Host.
	TLSConfig *tls.Config
}

// SMTP is a Mail implementation backed by net/smtp.
type SMTP struct {
	cfg  SMTPConfig
	addr string
}

// NewSMTP constructs an SMTP mail sender.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	return &SMTP{cfg: cfg, addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}, nil
}

// Send delivers a message over SMTP. ctx bounds the whole exchange.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrSMTPNoRecipients
	}

	from := msg.From
	if from == "" {
		from = s.cfg.From
	}
	if from == "" {
		return ErrSMTPNoSender
	}
	msg.From = from

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", s.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if err := s.handshake(c); err != nil {
		return err
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildRaw(msg)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.Quit()
}

func (s *SMTP) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: s.cfg.DialTimeout}
	if s.cfg.UseSSL {
		td := &tls.Dialer{NetDialer: d, Config: s.tlsConfig()}
		return td.DialContext(ctx, "tcp", s.addr)
	}
	return d.DialContext(ctx, "tcp", s.addr)
}

func (s *SMTP) handshake(c *smtp.Client) error {
	if err := c.Hello("localhost"); err != nil {
		return err
	}

	if s.cfg.UseTLS && !s.cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return ErrSMTPStartTLSUnsupported
		}
		if err := c.StartTLS(s.tlsConfig()); err != nil {
			return err
		}
	}

	if s.cfg.Username == "" || s.cfg.Password == "" {
		return nil
	}
	if ok, _ := c.Extension("AUTH"); !ok {
		return nil
	}
	return c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host))
}

func (s *SMTP) tlsConfig() *tls.Config {
	if s.cfg.TLSConfig != nil {
		cfg := s.cfg.TLSConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = s.cfg.Host
		}
		return cfg
	}
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

// Close implements io.Closer for interface compatibility.
func (s *SMTP) Close() error {
	return nil
}

func buildRaw(msg Message) []byte {
	headers := []string{
		"From: " + msg.From,
		"To: " + strings.Join(msg.To, ", "),
	}
	if len(msg.Cc) > 0 {
		headers = append(headers, "Cc: "+strings.Join(msg.Cc, ", "))
	}
	headers = append(headers,
		"Subject: "+msg.Subject,
		"Date: "+time.Now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
	)

	body, contentType := buildBody(msg)
	headers = append(headers, "Content-Type: "+contentType)

	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

func buildBody(msg Message) (body string, contentType string) {
	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		boundary := multipartBoundary()
		var sb strings.Builder
		writePart := func(ct, content string) {
			fmt.Fprintf(&sb, "--%s\r\nContent-Type: %s; charset=UTF-8\r\n\r\n%s\r\n", boundary, ct, content)
		}
		writePart("text/plain", msg.TextBody)
		writePart("text/html", msg.HTMLBody)
		fmt.Fprintf(&sb, "--%s--", boundary)
		return sb.String(), "multipart/alternative; boundary=" + boundary
	case msg.HTMLBody != "":
		return msg.HTMLBody, "text/html; charset=UTF-8"
	default:
		return msg.TextBody, "text/plain; charset=UTF-8"
	}
}

func multipartBoundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "otpgate-boundary"
	}
	return "otpgate-" + hex.EncodeToString(b[:])
}
