package email

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wneessen/go-mail"
)

// smtpClient is the part of the go-mail client the sender uses.
type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	client    smtpClient
	fromEmail string
}

// NewSMTPSender creates a sender for host:port. STARTTLS is used when the
// server offers it; auth is skipped when no username is configured.
func NewSMTPSender(host string, port int, username, password, fromEmail string) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(20 * time.Second),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, fromEmail: fromEmail}, nil
}

// SendEmail sends msg; with both bodies set it goes out as multipart/alternative.
func (s *SMTPSender) SendEmail(ctx context.Context, msg Message) error {
	from := msg.From
	if from == "" {
		from = s.fromEmail
	}

	m, err := buildMessage(from, msg)
	if err != nil {
		return fmt.Errorf("smtp build message: %w", err)
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		log.Printf("Failed to send email via SMTP: %v", err)
		return err
	}

	log.Printf("Successfully sent email to %s via SMTP", msg.To)
	return nil
}

func buildMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("from %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}
