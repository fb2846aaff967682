package notifier

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func newTestNotifier(cfg EmailConfig) (*EmailNotifier, *fakeSender) {
	n := NewEmailNotifier(cfg, logger.Nop())
	fake := &fakeSender{}
	n.sender = fake
	return n, fake
}

func baseConfig() EmailConfig {
	return EmailConfig{
		Host:            "smtp.example.com",
		Port:            587,
		From:            "bot@example.com",
		To:              []string{"ops@example.com"},
		Bcc:             []string{"audit@example.com"},
		IntegrationName: "Supplier Sync",
	}
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestNotifyStarted(t *testing.T) {
	n, fake := newTestNotifier(baseConfig())

	require.NoError(t, n.NotifyStarted(context.Background(), 42))
	require.Len(t, fake.sent, 1)

	m := fake.sent[0]
	assert.Equal(t, []string{"Supplier Sync started: 42 products"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"ops@example.com"}, m.GetHeader("To"))

	raw := render(t, m)
	assert.Contains(t, raw, "Total products to process: 42")
	assert.NotContains(t, raw, "audit@example.com")
}

func TestNotifyError_IncludesDetails(t *testing.T) {
	n, fake := newTestNotifier(baseConfig())

	err := n.NotifyError(context.Background(), "Staging failed", errors.New("connection reset"), "stage=staging")
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	assert.Equal(t, []string{"Supplier Sync error: Staging failed"}, fake.sent[0].GetHeader("Subject"))
	raw := render(t, fake.sent[0])
	assert.Contains(t, raw, "connection reset")
	assert.Contains(t, raw, "Details:")
}

func TestSend_ExplicitRecipientsOverrideDefaults(t *testing.T) {
	n, fake := newTestNotifier(baseConfig())

	summary, err := n.Send(context.Background(), TestMessage("Supplier Sync", []string{"me@example.com"}))
	require.NoError(t, err)
	assert.True(t, summary.Sent)
	assert.Equal(t, []string{"me@example.com"}, summary.To)
	assert.Equal(t, []string{"audit@example.com"}, summary.Bcc)
	assert.Equal(t, []string{"me@example.com"}, fake.sent[0].GetHeader("To"))
}

func TestSend_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EmailConfig)
	}{
		{"no host", func(c *EmailConfig) { c.Host = "" }},
		{"bad port", func(c *EmailConfig) { c.Port = 0 }},
		{"no recipients", func(c *EmailConfig) { c.To, c.Cc, c.Bcc = nil, nil, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			n, fake := newTestNotifier(cfg)

			_, err := n.Send(context.Background(), Message{Subject: "x", Body: "y"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrConfiguration))
			assert.Empty(t, fake.sent)
		})
	}
}

func TestSend_TransportFailure(t *testing.T) {
	n, fake := newTestNotifier(baseConfig())
	fake.err = errors.New("dial tcp: timeout")

	_, err := n.Send(context.Background(), Message{Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.NotifyStarted(context.Background(), 1))
	assert.NoError(t, n.NotifyError(context.Background(), "t", errors.New("e"), ""))
	_, err := n.Send(context.Background(), Message{})
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}
