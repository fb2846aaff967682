package notifier

import (
	"context"
	"fmt"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP settings and default recipients.
type EmailConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	UseSSL          bool
	From            string
	To              []string
	Cc              []string
	Bcc             []string
	IntegrationName string
}

// Validate checks the settings needed to send anything at all.
func (c EmailConfig) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: SMTP host is not set", model.ErrConfiguration)
	case c.Port <= 0:
		return fmt.Errorf("%w: SMTP port must be positive", model.ErrConfiguration)
	case c.From == "":
		return fmt.Errorf("%w: sender address is not set", model.ErrConfiguration)
	}
	return nil
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends notifications over SMTP. Without UseSSL, STARTTLS is
// used when the server offers it.
type EmailNotifier struct {
	cfg    EmailConfig
	sender sender
	log    *logger.Logger
}

func NewEmailNotifier(cfg EmailConfig, log *logger.Logger) *EmailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.UseSSL
	return &EmailNotifier{cfg: cfg, sender: d, log: log.With("notifier")}
}

func (n *EmailNotifier) NotifyStarted(ctx context.Context, count int) error {
	_, err := n.Send(ctx, StartedMessage(n.cfg.IntegrationName, count))
	return err
}

func (n *EmailNotifier) NotifyError(ctx context.Context, title string, err error, details string) error {
	_, sendErr := n.Send(ctx, ErrorMessage(n.cfg.IntegrationName, title, err, details))
	return sendErr
}

// Send delivers msg. Bcc recipients receive the mail but are never written
// into the headers.
func (n *EmailNotifier) Send(ctx context.Context, msg Message) (Summary, error) {
	if err := n.cfg.Validate(); err != nil {
		return Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	to, cc, bcc := msg.To, msg.Cc, msg.Bcc
	if len(to) == 0 {
		to = n.cfg.To
	}
	if len(cc) == 0 {
		cc = n.cfg.Cc
	}
	if len(bcc) == 0 {
		bcc = n.cfg.Bcc
	}
	if len(to)+len(cc)+len(bcc) == 0 {
		return Summary{}, fmt.Errorf("%w: no recipients specified", model.ErrConfiguration)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("Subject", msg.Subject)
	setList(m, "To", to)
	setList(m, "Cc", cc)
	setList(m, "Bcc", bcc)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	n.log.Info().Str("subject", msg.Subject).Int("recipients", len(to)+len(cc)+len(bcc)).Msg("sending email")
	if err := n.sender.DialAndSend(m); err != nil {
		return Summary{}, fmt.Errorf("send email %q: %w", msg.Subject, err)
	}

	return Summary{From: n.cfg.From, To: to, Cc: cc, Bcc: bcc, Subject: msg.Subject, Sent: true}, nil
}

func setList(m *gomail.Message, field string, addrs []string) {
	if len(addrs) > 0 {
		m.SetHeader(field, addrs...)
	}
}
