package types

// PaymentType distinguishes the first user-confirmed charge of a
// subscription from automatic renewals. It is written into processor
// metadata on outgoing requests and read back from webhook events.
type PaymentType string

const (
	PaymentTypeInitial PaymentType = "initial"
	PaymentTypeRenewal PaymentType = "renewal"
)

func (t PaymentType) Known() bool {
	return t == PaymentTypeInitial || t == PaymentTypeRenewal
}

// Metadata keys attached to every charge request so that webhook events
// can be correlated back to a subscription without relying on the
// processor's own payment id.
const (
	MetadataSubscriptionID = "subscription_internal_id"
	MetadataPaymentType    = "payment_type"
)
