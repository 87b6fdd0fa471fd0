package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunSender is an alternative MailSender for accounts that route outbound
// mail through a Mailgun domain instead of the user's own mailbox. Auth is
// the domain API key, so the per-user access token is ignored.
type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
}

func NewMailgunSender(domain, apiKey, from string) *MailgunSender {
	return &MailgunSender{
		mg:   mailgun.NewMailgun(domain, apiKey),
		from: from,
	}
}

func (s *MailgunSender) Send(ctx context.Context, _ string, from, to, subject, body string) (SendResult, error) {
	if from == "" {
		from = s.from
	}

	msg := s.mg.NewMessage(from, subject, body, to)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, id, err := s.mg.Send(ctx, msg)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: mailgun: %v", ErrSendFailed, err)
	}

	// Mailgun has no thread grouping; the message id doubles as the thread
	// key so each send starts its own conversation.
	return SendResult{MessageID: id, ThreadID: id}, nil
}
