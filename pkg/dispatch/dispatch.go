package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/revenuekit/pkg/churn"
	"github.com/dmitrymomot/revenuekit/pkg/health"
)

var (
	// ErrDeliveryFailed wraps channel-level delivery errors.
	ErrDeliveryFailed = errors.New("dispatch: delivery failed")
	// ErrInvalidMessage rejects messages without a kind or subject.
	ErrInvalidMessage = errors.New("dispatch: invalid message")
)

// Kind names the alert category a message carries.
type Kind string

const (
	KindHealthAlert  Kind = "health_alert"
	KindHealthReport Kind = "health_report"
	KindHighChurn    Kind = "high_churn"
)

// Message is one alert or report ready for delivery. The same message fans
// out to every configured channel; channels render it however their medium
// requires.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	Kind       Kind            `json:"kind"`
	Severity   health.Severity `json:"severity"`
	Subject    string          `json:"subject"`
	Body       string          `json:"body"`
	Payload    any             `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Validate rejects structurally incomplete messages before delivery.
func (m Message) Validate() error {
	if m.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidMessage)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	return nil
}

func tenantLabel(id uuid.UUID) string {
	if id == uuid.Nil {
		return "platform"
	}
	return id.String()
}

// FromHealthReport converts a report's dispatchable alerts (high and
// critical) into messages. A clean report produces nothing.
func FromHealthReport(report *health.Report) []Message {
	alerts := report.DispatchableAlerts()
	if len(alerts) == 0 {
		return nil
	}

	messages := make([]Message, 0, len(alerts))
	for _, a := range alerts {
		messages = append(messages, Message{
			ID:       uuid.New(),
			TenantID: report.TenantID,
			Kind:     KindHealthAlert,
			Severity: a.Severity,
			Subject: fmt.Sprintf("[%s] %s health alert: %s",
				strings.ToUpper(string(a.Severity)), tenantLabel(report.TenantID), a.Metric),
			Body:       a.Message,
			Payload:    a,
			OccurredAt: report.GeneratedAt,
		})
	}
	return messages
}

// FromChurnAlert converts a high-churn alert into a message. Churn alerts
// dispatch at high severity; they indicate a revenue trend, not an outage.
func FromChurnAlert(alert *churn.HighChurnAlert) Message {
	return Message{
		ID:       uuid.New(),
		TenantID: alert.TenantID,
		Kind:     KindHighChurn,
		Severity: health.SeverityHigh,
		Subject: fmt.Sprintf("[HIGH] %s churn alert: %.1f%% exceeds %.1f%%",
			tenantLabel(alert.TenantID), alert.ChurnRate, alert.Threshold),
		Body: fmt.Sprintf("%d customers churned in %s, a churn rate of %.1f%% against a %.1f%% threshold",
			alert.ChurnedCustomers, alert.Period.Format("2006-01"), alert.ChurnRate, alert.Threshold),
		Payload:    alert,
		OccurredAt: alert.Period,
	}
}
