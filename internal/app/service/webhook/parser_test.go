package webhook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subsvc "github.com/taskbench/backend/internal/app/service/subscription"
	"github.com/taskbench/backend/pkg/types"
)

func TestParse_SucceededWithSavedMethod(t *testing.T) {
	raw := []byte(`{
		"event": "payment.succeeded",
		"object": {
			"id": "pay_123",
			"status": "succeeded",
			"metadata": {
				"subscription_internal_id": "sub_abc",
				"payment_type": "initial"
			},
			"payment_method": {"id": "pm_9", "saved": true}
		}
	}`)

	ev, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, subsvc.EventPaymentSucceeded, ev.Kind)
	assert.Equal(t, "pay_123", ev.PaymentID)
	assert.Equal(t, "sub_abc", ev.SubscriptionID)
	assert.Equal(t, types.PaymentTypeInitial, ev.PaymentType)
	assert.True(t, ev.MethodSaved)
	assert.Equal(t, "pm_9", ev.SavedMethodID)
}

func TestParse_CanceledWithoutPaymentMethod(t *testing.T) {
	raw := []byte(`{
		"event": "payment.canceled",
		"object": {
			"id": "pay_123",
			"status": "canceled",
			"metadata": {"subscription_internal_id": "sub_abc", "payment_type": "renewal"}
		}
	}`)

	ev, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, subsvc.EventPaymentCanceled, ev.Kind)
	assert.Equal(t, types.PaymentTypeRenewal, ev.PaymentType)
	assert.False(t, ev.MethodSaved)
	assert.Empty(t, ev.SavedMethodID)
}

func TestParse_MissingMetadataStillParses(t *testing.T) {
	raw := []byte(`{"event": "payment.succeeded", "object": {"id": "pay_123", "status": "succeeded"}}`)

	ev, err := Parse(raw)
	require.NoError(t, err)
	assert.Empty(t, ev.SubscriptionID)
	assert.Empty(t, string(ev.PaymentType))
}

func TestParse_MalformedPayload(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"event": [}`} {
		_, err := Parse([]byte(raw))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedPayload))
	}
}
