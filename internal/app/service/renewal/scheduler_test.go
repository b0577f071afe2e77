package renewal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskbench/backend/internal/models"
	"github.com/taskbench/backend/internal/platform/payment"
	"github.com/taskbench/backend/internal/repository"
	"github.com/taskbench/backend/pkg/config"
	"github.com/taskbench/backend/pkg/types"
)

var testNow = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

type fakeGateway struct {
	charges   []*payment.OffsessionChargeRequest
	chargeErr error
}

func (f *fakeGateway) CreatePaymentIntent(_ context.Context, _ *payment.CreateIntentRequest) (*payment.PaymentIntent, error) {
	return &payment.PaymentIntent{ID: "pay-intent", Status: "pending"}, nil
}

func (f *fakeGateway) CreateOffsessionCharge(_ context.Context, req *payment.OffsessionChargeRequest) (*payment.Charge, error) {
	f.charges = append(f.charges, req)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return &payment.Charge{ID: "pay-renewal", Status: "pending"}, nil
}

type fakeLocker struct {
	busy     bool
	acquired int
}

func (f *fakeLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(), bool) {
	if f.busy {
		return nil, false
	}
	f.acquired++
	return func() {}, true
}

func newTestScheduler(store repository.SubscriptionStore, gw payment.Gateway, locker Locker) *Scheduler {
	cfg := &config.Config{}
	cfg.Payment.Price = "299.00"
	cfg.Payment.Currency = "RUB"
	cfg.Renewal.LockTTLSeconds = 300
	sched := NewScheduler(cfg, store, gw, locker, zap.NewNop().Sugar())
	sched.now = func() time.Time { return testNow }
	return sched
}

func seedSubscription(t *testing.T, store *repository.MemoryStore, mutate func(sub *models.Subscription)) *models.Subscription {
	t.Helper()
	end := testNow.Add(-2 * time.Hour)
	sub := &models.Subscription{
		UserID:          "user-1",
		StartDate:       testNow.AddDate(0, -1, 0),
		EndDate:         &end,
		IsActive:        true,
		LatestPaymentID: "pay-initial",
		PaymentMethodID: "pm-1",
	}
	mutate(sub)
	require.NoError(t, store.Create(context.Background(), sub))
	return sub
}

func TestRunOnceChargesDueSubscription(t *testing.T) {
	store := repository.NewMemoryStore()
	gw := &fakeGateway{}
	sched := newTestScheduler(store, gw, &fakeLocker{})
	sub := seedSubscription(t, store, func(*models.Subscription) {})

	require.NoError(t, sched.RunOnce(context.Background()))

	require.Len(t, gw.charges, 1)
	req := gw.charges[0]
	assert.Equal(t, "pm-1", req.PaymentMethodID)
	assert.Equal(t, "299.00", req.Amount)
	assert.Equal(t, sub.ID, req.Metadata[types.MetadataSubscriptionID])
	assert.Equal(t, string(types.PaymentTypeRenewal), req.Metadata[types.MetadataPaymentType])
	assert.NotEmpty(t, req.IdempotencyKey)

	// The period is extended by the webhook, never by the scan itself.
	got, err := store.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, "pay-initial", got.LatestPaymentID)
	assert.True(t, got.EndDate.Equal(*sub.EndDate))
}

func TestRunOnceDeactivatesOnChargeFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	gw := &fakeGateway{chargeErr: errors.New("saved method revoked")}
	sched := newTestScheduler(store, gw, &fakeLocker{})
	sub := seedSubscription(t, store, func(*models.Subscription) {})

	require.NoError(t, sched.RunOnce(context.Background()))

	got, err := store.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestRunOnceSkipsWhenLockBusy(t *testing.T) {
	store := repository.NewMemoryStore()
	gw := &fakeGateway{}
	sched := newTestScheduler(store, gw, &fakeLocker{busy: true})
	seedSubscription(t, store, func(*models.Subscription) {})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, gw.charges)
}

func TestRunOnceSkipsCanceledSubscription(t *testing.T) {
	store := repository.NewMemoryStore()
	gw := &fakeGateway{}
	sched := newTestScheduler(store, gw, &fakeLocker{})
	seedSubscription(t, store, func(sub *models.Subscription) {
		sub.IsActive = false
	})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, gw.charges)
}

func TestRunOnceRecheckCatchesLateCancel(t *testing.T) {
	store := repository.NewMemoryStore()
	gw := &fakeGateway{}
	sched := newTestScheduler(store, gw, &fakeLocker{})
	sub := seedSubscription(t, store, func(*models.Subscription) {})

	// Cancel lands between the due query and the charge.
	sched.store = &cancelOnRead{SubscriptionStore: store, id: sub.ID}

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, gw.charges)
}

func TestRunOnceSkipsNotYetExpired(t *testing.T) {
	store := repository.NewMemoryStore()
	gw := &fakeGateway{}
	sched := newTestScheduler(store, gw, &fakeLocker{})
	seedSubscription(t, store, func(sub *models.Subscription) {
		end := testNow.Add(24 * time.Hour)
		sub.EndDate = &end
	})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, gw.charges)
}

// cancelOnRead simulates a concurrent cancel by flipping is_active off on the
// pre-charge re-read.
type cancelOnRead struct {
	repository.SubscriptionStore
	id string
}

func (c *cancelOnRead) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := c.SubscriptionStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == c.id {
		sub.Deactivate()
	}
	return sub, nil
}
