package notifier

import (
	"context"
	"fmt"

	"CatalogSync/internal/model"
)

// Notifier reports run progress to humans. Callers treat every error as
// non-fatal.
type Notifier interface {
	NotifyStarted(ctx context.Context, count int) error
	NotifyError(ctx context.Context, title string, err error, details string) error
	Send(ctx context.Context, msg Message) (Summary, error)
}

// Message is a plain-text email with an optional HTML alternative. Empty
// recipient lists fall back to the configured defaults.
type Message struct {
	Subject string
	Body    string
	HTML    string
	ReplyTo string
	To      []string
	Cc      []string
	Bcc     []string
}

// Summary describes a delivered message.
type Summary struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Cc      []string `json:"cc"`
	Bcc     []string `json:"bcc"`
	Subject string   `json:"subject"`
	Sent    bool     `json:"sent"`
}

// Noop is used when SMTP is not configured.
type Noop struct{}

func (Noop) NotifyStarted(context.Context, int) error { return nil }

func (Noop) NotifyError(context.Context, string, error, string) error { return nil }

func (Noop) Send(context.Context, Message) (Summary, error) {
	return Summary{}, fmt.Errorf("%w: email notifications are not configured (SMTP host is empty)", model.ErrConfiguration)
}
