package dispatch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/mrz1836/postmark"
)

// ErrInvalidEmailConfig rejects incomplete email channel configuration.
var ErrInvalidEmailConfig = errors.New("dispatch: invalid email configuration")

// EmailConfig configures the Postmark alert channel.
type EmailConfig struct {
	ServerToken  string   `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string   `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string   `env:"ALERT_SENDER_EMAIL"`
	Recipients   []string `env:"ALERT_RECIPIENTS"`
	// MessageStream selects the Postmark stream; transactional alerts use
	// the outbound default.
	MessageStream string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
}

// postmarkSender is the subset of the Postmark client the dispatcher needs,
// narrowed for test doubles.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailDispatcher delivers alert messages to the on-call recipient list via
// Postmark transactional email.
type EmailDispatcher struct {
	client postmarkSender
	cfg    EmailConfig
}

// NewEmailDispatcher creates a Postmark-backed alert channel.
// Configuration must be complete: silently dropping alerts because a token
// was missing is worse than refusing to start.
func NewEmailDispatcher(cfg EmailConfig) (*EmailDispatcher, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidEmailConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidEmailConfig)
	}
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidEmailConfig)
	}
	return &EmailDispatcher{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
	}, nil
}

func (d *EmailDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := d.client.SendEmail(ctx, postmark.Email{
		From:          d.cfg.SenderEmail,
		To:            strings.Join(d.cfg.Recipients, ","),
		Subject:       msg.Subject,
		Tag:           string(msg.Kind),
		HTMLBody:      renderAlertHTML(msg),
		TextBody:      msg.Body,
		MessageStream: d.cfg.MessageStream,
	})
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrDeliveryFailed,
			fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

func renderAlertHTML(msg Message) string {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(msg.Subject))
	b.WriteString("</h2><p>")
	b.WriteString(html.EscapeString(msg.Body))
	b.WriteString("</p><p><small>severity: ")
	b.WriteString(html.EscapeString(string(msg.Severity)))
	b.WriteString(" · tenant: ")
	b.WriteString(html.EscapeString(tenantLabel(msg.TenantID)))
	b.WriteString(" · ")
	b.WriteString(msg.OccurredAt.UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString("</small></p>")
	return b.String()
}
