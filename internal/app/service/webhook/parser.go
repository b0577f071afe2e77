package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	subsvc "github.com/taskbench/backend/internal/app/service/subscription"
	"github.com/taskbench/backend/pkg/types"
)

// ErrMalformedPayload marks a body that is not valid structured data. This is
// the only parse outcome surfaced to the transport layer as a client error;
// everything recognizable is acknowledged and judged downstream.
var ErrMalformedPayload = errors.New("malformed webhook payload")

type wirePaymentMethod struct {
	ID    string `json:"id"`
	Saved bool   `json:"saved"`
}

type wireObject struct {
	ID            string             `json:"id"`
	Status        string             `json:"status"`
	Metadata      map[string]string  `json:"metadata"`
	PaymentMethod *wirePaymentMethod `json:"payment_method"`
}

type wireNotification struct {
	Event  string     `json:"event"`
	Object wireObject `json:"object"`
}

// Parse decodes a raw processor notification into a typed event. Missing or
// unknown fields survive parsing; the service rejects them with no state
// change while the delivery still gets acknowledged.
func Parse(raw []byte) (*subsvc.Event, error) {
	var n wireNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	ev := &subsvc.Event{
		Kind:           subsvc.EventKind(n.Event),
		PaymentID:      n.Object.ID,
		SubscriptionID: n.Object.Metadata[types.MetadataSubscriptionID],
		PaymentType:    types.PaymentType(n.Object.Metadata[types.MetadataPaymentType]),
	}
	if pm := n.Object.PaymentMethod; pm != nil {
		ev.MethodSaved = pm.Saved
		ev.SavedMethodID = pm.ID
	}
	return ev, nil
}
