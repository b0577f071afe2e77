package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskbench/backend/internal/models"
	"github.com/taskbench/backend/internal/platform/payment"
	"github.com/taskbench/backend/internal/repository"
	"github.com/taskbench/backend/pkg/config"
	"github.com/taskbench/backend/pkg/logctx"
	"github.com/taskbench/backend/pkg/metrics"
	"github.com/taskbench/backend/pkg/tool"
	"github.com/taskbench/backend/pkg/types"
)

// Service owns the subscription lifecycle state machine: it initiates
// first-time and renewal payments against the processor and applies
// webhook-driven transitions to the store.
type Service struct {
	cfg   *config.Config
	store repository.SubscriptionStore
	gw    payment.Gateway
	log   *zap.SugaredLogger

	now func() time.Time
}

func NewService(cfg *config.Config, store repository.SubscriptionStore, gw payment.Gateway, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: store, gw: gw, log: log, now: time.Now}
}

// Status is the caller-facing view of a user's paid-access state.
// IsSubscribed stays true after cancellation until the paid period lapses.
type Status struct {
	IsSubscribed bool
	Subscription *models.Subscription
}

// StartResult reports what StartOrResume did. ConfirmationURL is empty when
// an off-session renewal charge was issued instead of a redirect intent.
type StartResult struct {
	Subscription    *models.Subscription
	PaymentID       string
	ConfirmationURL string
}

// GetStatus reports whether the user's paid period covers now. Absence of
// any subscription is a valid not-subscribed result, not an error.
func (s *Service) GetStatus(ctx context.Context, userID string) (*Status, error) {
	sub, err := s.store.FindCurrentByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub == nil {
		return &Status{}, nil
	}
	return &Status{IsSubscribed: sub.PaidThrough(s.now()), Subscription: sub}, nil
}

// StartOrResume begins a subscription for the user or resumes an existing
// one. A user with no record gets a fresh pending subscription plus a
// payment intent to confirm. An unexpired record is reused for a new intent
// rather than duplicated. An expired record with a saved payment method is
// renewed off-session without any redirect.
func (s *Service) StartOrResume(ctx context.Context, userID string) (*StartResult, error) {
	now := s.now()

	sub, err := s.store.FindCurrentByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	if sub == nil {
		return s.startNew(ctx, userID, now)
	}

	if sub.Expired(now) && sub.PaymentMethodID != "" {
		return s.renewOffsession(ctx, sub)
	}

	// Pending, still paid, or expired without a saved method: issue a fresh
	// intent for the same record instead of creating another row.
	return s.createIntentFor(ctx, sub)
}

func (s *Service) startNew(ctx context.Context, userID string, now time.Time) (*StartResult, error) {
	sub := &models.Subscription{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		StartDate: now,
		IsActive:  false,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create pending subscription: %w", err)
	}

	res, err := s.createIntentFor(ctx, sub)
	if err != nil {
		// Do not leave an orphaned pending row behind a failed intent.
		if delErr := s.store.Delete(ctx, sub.ID); delErr != nil && !errors.Is(delErr, repository.ErrNotFound) {
			logctx.FromCtx(ctx, s.log).Errorw("failed to roll back pending subscription",
				"subscription_id", sub.ID, "error", delErr)
		}
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("pending subscription created",
		"subscription_id", sub.ID, "user_id", userID)
	return res, nil
}

func (s *Service) createIntentFor(ctx context.Context, sub *models.Subscription) (*StartResult, error) {
	intent, err := s.gw.CreatePaymentIntent(ctx, &payment.CreateIntentRequest{
		Amount:      s.cfg.Payment.Price,
		Currency:    s.cfg.Payment.Currency,
		ReturnURL:   s.cfg.Payment.ReturnURL,
		Description: fmt.Sprintf("Monthly subscription for user %s", sub.UserID),
		Metadata: map[string]string{
			types.MetadataSubscriptionID: sub.ID,
			types.MetadataPaymentType:    string(types.PaymentTypeInitial),
		},
		IdempotencyKey: tool.NewIdempotencyKey(),
	})
	if err != nil {
		metrics.PaymentsInitiated.WithLabelValues(string(types.PaymentTypeInitial), "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	metrics.PaymentsInitiated.WithLabelValues(string(types.PaymentTypeInitial), "ok").Inc()

	logctx.FromCtx(ctx, s.log).Infow("payment intent created",
		"subscription_id", sub.ID, "payment_id", intent.ID)
	return &StartResult{
		Subscription:    sub,
		PaymentID:       intent.ID,
		ConfirmationURL: intent.ConfirmationURL,
	}, nil
}

func (s *Service) renewOffsession(ctx context.Context, sub *models.Subscription) (*StartResult, error) {
	charge, err := s.gw.CreateOffsessionCharge(ctx, &payment.OffsessionChargeRequest{
		Amount:          s.cfg.Payment.Price,
		Currency:        s.cfg.Payment.Currency,
		PaymentMethodID: sub.PaymentMethodID,
		Description:     fmt.Sprintf("Monthly subscription renewal for user %s", sub.UserID),
		Metadata: map[string]string{
			types.MetadataSubscriptionID: sub.ID,
			types.MetadataPaymentType:    string(types.PaymentTypeRenewal),
		},
		IdempotencyKey: tool.NewIdempotencyKey(),
	})
	if err != nil {
		metrics.PaymentsInitiated.WithLabelValues(string(types.PaymentTypeRenewal), "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	metrics.PaymentsInitiated.WithLabelValues(string(types.PaymentTypeRenewal), "ok").Inc()

	logctx.FromCtx(ctx, s.log).Infow("off-session renewal charge issued",
		"subscription_id", sub.ID, "payment_id", charge.ID)
	// The paid period is extended only when the corresponding webhook lands.
	return &StartResult{Subscription: sub, PaymentID: charge.ID}, nil
}

// Cancel turns off auto-renewal for the user's current subscription. The
// record is kept and the end date stands, so access survives until natural
// expiry. Cancel is the authoritative do-not-renew signal the renewal
// scheduler consults before charging.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	sub, err := s.store.FindCurrentByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub == nil {
		return ErrNoSubscription
	}

	err = s.store.Mutate(ctx, sub.ID, func(cur *models.Subscription) (repository.MutateResult, error) {
		if !cur.IsActive {
			return repository.MutateNoop, nil
		}
		cur.Deactivate()
		return repository.MutateSave, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoSubscription
		}
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription canceled",
		"subscription_id", sub.ID, "user_id", userID)
	return nil
}

// ApplyWebhookEvent runs one processor notification through the state
// machine. The whole transition executes under the store's per-row lock, so
// two concurrent deliveries for one subscription serialize and an exact
// re-delivery (same payment reference) degrades to a no-op.
func (s *Service) ApplyWebhookEvent(ctx context.Context, ev *Event) error {
	if ev.SubscriptionID == "" {
		return fmt.Errorf("%w: empty subscription id in metadata", ErrUnknownSubscription)
	}
	if ev.Kind != EventPaymentSucceeded && ev.Kind != EventPaymentCanceled {
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, ev.Kind)
	}
	if !ev.PaymentType.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownPaymentType, ev.PaymentType)
	}

	log := logctx.FromCtx(ctx, s.log)

	err := s.store.Mutate(ctx, ev.SubscriptionID, func(sub *models.Subscription) (repository.MutateResult, error) {
		if ev.Kind == EventPaymentSucceeded && ev.PaymentID != "" && sub.LatestPaymentID == ev.PaymentID {
			log.Infow("duplicate payment notification ignored",
				"subscription_id", sub.ID, "payment_id", ev.PaymentID)
			return repository.MutateNoop, nil
		}
		return s.applyTransition(log, sub, ev)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownSubscription, ev.SubscriptionID)
		}
		return err
	}
	return nil
}

func (s *Service) applyTransition(log *zap.SugaredLogger, sub *models.Subscription, ev *Event) (repository.MutateResult, error) {
	now := s.now()

	switch {
	case ev.Kind == EventPaymentSucceeded && ev.PaymentType == types.PaymentTypeInitial:
		if sub.IsActive {
			// Re-delivered activation must not reset the paid period.
			log.Infow("subscription already active, activation skipped",
				"subscription_id", sub.ID, "payment_id", ev.PaymentID)
			return repository.MutateNoop, nil
		}
		saved := ""
		if ev.MethodSaved {
			saved = ev.SavedMethodID
		}
		sub.Activate(ev.PaymentID, saved, now)
		log.Infow("subscription activated",
			"subscription_id", sub.ID, "payment_id", ev.PaymentID, "end_date", sub.EndDate)
		return repository.MutateSave, nil

	case ev.Kind == EventPaymentSucceeded && ev.PaymentType == types.PaymentTypeRenewal:
		sub.Renew(ev.PaymentID, now)
		if ev.MethodSaved && ev.SavedMethodID != "" {
			sub.PaymentMethodID = ev.SavedMethodID
		}
		log.Infow("subscription renewed",
			"subscription_id", sub.ID, "payment_id", ev.PaymentID, "end_date", sub.EndDate)
		return repository.MutateSave, nil

	case ev.Kind == EventPaymentCanceled && ev.PaymentType == types.PaymentTypeInitial:
		if !sub.Pending() {
			// A stale cancellation for a subscription that activated since.
			log.Warnw("initial payment canceled for non-pending subscription, ignored",
				"subscription_id", sub.ID, "payment_id", ev.PaymentID)
			return repository.MutateNoop, nil
		}
		log.Infow("pending subscription deleted, initial payment canceled",
			"subscription_id", sub.ID, "payment_id", ev.PaymentID)
		return repository.MutateDelete, nil

	case ev.Kind == EventPaymentCanceled && ev.PaymentType == types.PaymentTypeRenewal:
		sub.Deactivate()
		log.Infow("subscription deactivated, renewal payment canceled",
			"subscription_id", sub.ID, "payment_id", ev.PaymentID)
		return repository.MutateSave, nil
	}

	return repository.MutateNoop, fmt.Errorf("%w: %s/%s", ErrUnknownEventKind, ev.Kind, ev.PaymentType)
}
