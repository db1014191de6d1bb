// Package notify delivers the collection reminder digest. The branch admin
// triggers a send and the whole overdue batch goes out as one email to the
// collections inbox.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gopkg.in/gomail.v2"

	"hulugan/backend/internal/domain"
)

type Sender interface {
	SendDigest(ctx context.Context, reminders []domain.Reminder) error
}

// NoopSender is used when SMTP is not configured. It logs the batch size so
// operators can tell reminders were requested but not mailed.
type NoopSender struct{}

func (NoopSender) SendDigest(_ context.Context, reminders []domain.Reminder) error {
	log.Printf("reminder digest skipped, no SMTP configured (%d reminders)", len(reminders))
	return nil
}

type SMTPSender struct {
	dialer    *gomail.Dialer
	from      string
	recipient string
}

func NewSMTPSender(host string, port int, username string, password string, from string, recipient string) *SMTPSender {
	return &SMTPSender{
		dialer:    gomail.NewDialer(host, port, username, password),
		from:      from,
		recipient: recipient,
	}
}

func (s *SMTPSender) SendDigest(_ context.Context, reminders []domain.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.recipient)
	m.SetHeader("Subject", fmt.Sprintf("Collection reminders (%d accounts)", len(reminders)))
	m.SetBody("text/plain", digestBody(reminders))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send reminder digest: %w", err)
	}
	log.Printf("reminder digest sent to %s (%d reminders)", s.recipient, len(reminders))
	return nil
}

func digestBody(reminders []domain.Reminder) string {
	var b strings.Builder
	for _, reminder := range reminders {
		fmt.Fprintf(&b, "%s", reminder.CustomerName)
		if reminder.Phone != "" {
			fmt.Fprintf(&b, " (%s)", reminder.Phone)
		}
		if reminder.OverdueDays > 0 {
			fmt.Fprintf(&b, " - %d day(s) overdue", reminder.OverdueDays)
		}
		fmt.Fprintf(&b, "\n%s\n\n", reminder.Message)
	}
	return b.String()
}
