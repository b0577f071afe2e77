package subscription

import "errors"

var (
	// ErrNoSubscription is returned when an operation expects the user to
	// have a subscription and none exists.
	ErrNoSubscription = errors.New("user has no subscription")

	// ErrPaymentGateway wraps failures of the payment processor call path.
	ErrPaymentGateway = errors.New("payment gateway request failed")

	// Webhook rejection sentinels. Events carrying these are acknowledged to
	// the processor (retries cannot fix a permanent mismatch) but never
	// mutate any subscription.
	ErrUnknownSubscription = errors.New("event references unknown subscription")
	ErrUnknownEventKind    = errors.New("unrecognized event type")
	ErrUnknownPaymentType  = errors.New("unrecognized payment type")
)

// IsRejection reports whether err marks a webhook event that is permanently
// unprocessable, as opposed to a transient failure worth a redelivery.
func IsRejection(err error) bool {
	return errors.Is(err, ErrUnknownSubscription) ||
		errors.Is(err, ErrUnknownEventKind) ||
		errors.Is(err, ErrUnknownPaymentType)
}
