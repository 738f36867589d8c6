package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Options struct {
	From         string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

// New picks a transport: resend when an API key is set, SMTP when a host
// is set, otherwise messages are only logged.
func New(opts Options, log *zap.SugaredLogger) Sender {
	switch {
	case opts.ResendAPIKey != "":
		return &ResendSender{client: resend.NewClient(opts.ResendAPIKey), from: opts.From, log: log}
	case opts.SMTPHost != "":
		return &SMTPSender{
			addr: net.JoinHostPort(opts.SMTPHost, opts.SMTPPort),
			host: opts.SMTPHost,
			user: opts.SMTPUser,
			pass: opts.SMTPPassword,
			from: opts.From,
		}
	default:
		log.Warn("RESEND_API_KEY and SMTP_HOST not set, emails will only be logged")
		return &LogSender{log: log}
	}
}

type ResendSender struct {
	client *resend.Client
	from   string
	log    *zap.SugaredLogger
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.log.Infow("email sent", "id", sent.Id, "subject", msg.Subject)
	return nil
}

type SMTPSender struct {
	addr string
	host string
	user string
	pass string
	from string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- smtp.SendMail(s.addr, auth, envelopeAddress(s.from), []string{msg.To}, buildMIME(s.from, msg))
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender is the development transport.
type LogSender struct {
	log *zap.SugaredLogger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Infow("[dev mode] email not sent", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return from
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTML != "" {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.HTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.Text)
	}
	return []byte(b.String())
}
