package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages to administrators. Implementations must honor the
// context deadline.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	addr    string
	from    string
	timeout time.Duration
}

// NewSMTPSender builds an SMTP-backed sender.
func NewSMTPSender(addr, from string, timeout time.Duration) *SMTPSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SMTPSender{addr: addr, from: from, timeout: timeout}
}

// Send delivers the message, bounded by the configured timeout. A deadline
// overrun is reported as a typed timeout error so callers can distinguish a
// slow relay from a refused one.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "message has no recipients")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, strings.Join(msg.To, ", "), msg.Subject, msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, nil, s.from, msg.To, []byte(payload))
	}()

	select {
	case <-ctx.Done():
		return appErrors.Wrap(ctx.Err(), appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "email send timed out")
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail via %s: %w", s.addr, err)
		}
		return nil
	}
}
