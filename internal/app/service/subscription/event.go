package subscription

import (
	"github.com/taskbench/backend/pkg/types"
)

// EventKind mirrors the processor's webhook event names.
type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment.succeeded"
	EventPaymentCanceled  EventKind = "payment.canceled"
)

// Event is a parsed payment processor notification. Correlation to a
// subscription happens strictly through SubscriptionID, taken from the
// metadata this service attached to the original charge request; the
// processor's own payment id is never used for routing.
type Event struct {
	Kind           EventKind
	PaymentID      string
	SubscriptionID string
	PaymentType    types.PaymentType
	// MethodSaved and SavedMethodID carry the processor's saved payment
	// method token when the payer allowed off-session renewals.
	MethodSaved   bool
	SavedMethodID string
}
