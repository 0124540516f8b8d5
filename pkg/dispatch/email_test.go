package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/revenuekit/pkg/health"
)

type fakePostmark struct {
	sent []postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(_ context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.sent = append(f.sent, email)
	return f.resp, f.err
}

func testEmailConfig() EmailConfig {
	return EmailConfig{
		ServerToken: "server-token",
		SenderEmail: "alerts@revenuekit.example",
		Recipients:  []string{"oncall@revenuekit.example", "finance@revenuekit.example"},
	}
}

func TestEmailDispatcherSends(t *testing.T) {
	fake := &fakePostmark{}
	d := &EmailDispatcher{client: fake, cfg: testEmailConfig()}

	msg := Message{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Kind:       KindHealthAlert,
		Severity:   health.SeverityCritical,
		Subject:    "payment API unreachable",
		Body:       "external payment API probe failed: connection refused",
		OccurredAt: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, d.Dispatch(context.Background(), msg))

	require.Len(t, fake.sent, 1)
	email := fake.sent[0]
	assert.Equal(t, "alerts@revenuekit.example", email.From)
	assert.Equal(t, "oncall@revenuekit.example,finance@revenuekit.example", email.To)
	assert.Equal(t, msg.Subject, email.Subject)
	assert.Equal(t, string(KindHealthAlert), email.Tag)
	assert.Contains(t, email.HTMLBody, "payment API unreachable")
	assert.Contains(t, email.HTMLBody, "critical")
	assert.Equal(t, msg.Body, email.TextBody)
}

func TestEmailDispatcherPostmarkError(t *testing.T) {
	fake := &fakePostmark{resp: postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}}
	d := &EmailDispatcher{client: fake, cfg: testEmailConfig()}

	err := d.Dispatch(context.Background(), Message{Kind: KindHighChurn, Subject: "churn"})
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "inactive recipient")
}

func TestEmailDispatcherTransportError(t *testing.T) {
	fake := &fakePostmark{err: errors.New("network unreachable")}
	d := &EmailDispatcher{client: fake, cfg: testEmailConfig()}

	err := d.Dispatch(context.Background(), Message{Kind: KindHighChurn, Subject: "churn"})
	require.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestNewEmailDispatcherValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EmailConfig)
	}{
		{"missing token", func(c *EmailConfig) { c.ServerToken = "" }},
		{"missing sender", func(c *EmailConfig) { c.SenderEmail = "" }},
		{"no recipients", func(c *EmailConfig) { c.Recipients = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testEmailConfig()
			tc.mutate(&cfg)
			_, err := NewEmailDispatcher(cfg)
			require.ErrorIs(t, err, ErrInvalidEmailConfig)
		})
	}
}

func TestRenderAlertHTMLEscapes(t *testing.T) {
	out := renderAlertHTML(Message{
		Subject: "alert <script>",
		Body:    "a & b",
	})
	assert.Contains(t, out, "alert &lt;script&gt;")
	assert.Contains(t, out, "a &amp; b")
	assert.NotContains(t, out, "<script>")
}
