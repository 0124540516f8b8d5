package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a subscription lifecycle transition.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription_created"
	EventPlanUpgraded         EventType = "plan_upgraded"
	EventPlanDowngraded       EventType = "plan_downgraded"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventTrialExpired         EventType = "trial_expired"
)

// Valid reports whether the event type is one of the known lifecycle kinds.
func (t EventType) Valid() bool {
	switch t {
	case EventSubscriptionCreated, EventPlanUpgraded, EventPlanDowngraded,
		EventSubscriptionCanceled, EventTrialExpired:
		return true
	}
	return false
}

// Event is one row of the append-only subscription lifecycle ledger.
// Events are immutable once written and retained indefinitely for replay.
//
// Invariant: the sum of MRRChange for a customer up to time T equals that
// customer's MRR contribution at T.
type Event struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	Type       EventType
	OccurredAt time.Time
	MRRChange  int64 // signed delta in currency minor units

	// Reason carries the cancellation reason code for subscription_canceled
	// events and is empty otherwise. The churn calculator uses it to split
	// voluntary from involuntary churn.
	Reason string
}
