package renewal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskbench/backend/internal/models"
	"github.com/taskbench/backend/internal/platform/payment"
	"github.com/taskbench/backend/internal/repository"
	"github.com/taskbench/backend/pkg/config"
	"github.com/taskbench/backend/pkg/metrics"
	"github.com/taskbench/backend/pkg/tool"
	"github.com/taskbench/backend/pkg/types"
)

const scanLockName = "renewal:scan"

// Locker guards the renewal scan so it runs on exactly one worker at a time
// cluster-wide. Satisfied by the redsync-backed implementation.
type Locker interface {
	// Acquire takes the named lock with a single try. ok is false when
	// another holder has it; release must be called when ok is true.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool)
}

// Scheduler scans for subscriptions whose paid period has lapsed while
// auto-renewal stayed on, and asks the processor to charge the saved payment
// method. The paid period is extended only by the resulting webhook; a
// synchronously failed charge request deactivates the subscription instead
// of leaving it in limbo.
type Scheduler struct {
	cfg    *config.Config
	store  repository.SubscriptionStore
	gw     payment.Gateway
	locker Locker
	log    *zap.SugaredLogger

	now func() time.Time
}

func NewScheduler(cfg *config.Config, store repository.SubscriptionStore, gw payment.Gateway, locker Locker, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{cfg: cfg, store: store, gw: gw, locker: locker, log: log, now: time.Now}
}

// RunOnce executes a single scan tick.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	release, ok := s.locker.Acquire(ctx, scanLockName, s.cfg.Renewal.LockTTL())
	if !ok {
		s.log.Infow("renewal scan already running elsewhere, skipping tick")
		return nil
	}
	defer release()

	now := s.now()
	due, err := s.store.ListDueForRenewal(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	metrics.RenewalScanDue.Set(float64(len(due)))
	s.log.Infow("renewal scan started", "due", len(due))

	for _, sub := range due {
		s.chargeOne(ctx, sub, now)
	}
	return nil
}

func (s *Scheduler) chargeOne(ctx context.Context, sub *models.Subscription, now time.Time) {
	// Re-read right before charging: an explicit cancel is the authoritative
	// do-not-renew signal and may have landed since the scan query.
	cur, err := s.store.GetByID(ctx, sub.ID)
	if err != nil {
		s.log.Errorw("failed to re-read subscription before charge",
			"subscription_id", sub.ID, "error", err)
		return
	}
	if !cur.IsActive || cur.PaymentMethodID == "" || !cur.Expired(now) {
		s.log.Infow("subscription no longer due, skipping charge", "subscription_id", sub.ID)
		return
	}

	charge, err := s.gw.CreateOffsessionCharge(ctx, &payment.OffsessionChargeRequest{
		Amount:          s.cfg.Payment.Price,
		Currency:        s.cfg.Payment.Currency,
		PaymentMethodID: cur.PaymentMethodID,
		Description:     fmt.Sprintf("Monthly subscription renewal for user %s", cur.UserID),
		Metadata: map[string]string{
			types.MetadataSubscriptionID: cur.ID,
			types.MetadataPaymentType:    string(types.PaymentTypeRenewal),
		},
		IdempotencyKey: tool.NewIdempotencyKey(),
	})
	if err != nil {
		metrics.PaymentsInitiated.WithLabelValues(string(types.PaymentTypeRenewal), "error").Inc()
		s.log.Errorw("renewal charge request failed, deactivating subscription",
			"subscription_id", cur.ID, "error", err)
		s.deactivate(ctx, cur.ID)
		return
	}
	metrics.PaymentsInitiated.WithLabelValues(string(types.PaymentTypeRenewal), "ok").Inc()
	// Leave the row untouched: the succeeded/canceled webhook decides.
	s.log.Infow("renewal charge initiated",
		"subscription_id", cur.ID, "payment_id", charge.ID)
}

func (s *Scheduler) deactivate(ctx context.Context, id string) {
	err := s.store.Mutate(ctx, id, func(sub *models.Subscription) (repository.MutateResult, error) {
		if !sub.IsActive {
			return repository.MutateNoop, nil
		}
		sub.Deactivate()
		return repository.MutateSave, nil
	})
	if err != nil {
		s.log.Errorw("failed to deactivate subscription", "subscription_id", id, "error", err)
	}
}
