package webhook

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	subsvc "github.com/taskbench/backend/internal/app/service/subscription"
	"github.com/taskbench/backend/internal/models"
	"github.com/taskbench/backend/pkg/logctx"
	"github.com/taskbench/backend/pkg/metrics"

	"github.com/samber/lo"
)

// AuditLog persists inbound notification records. Satisfied by the
// notification_log service.
type AuditLog interface {
	Save(ctx context.Context, entry *models.PaymentNotificationLog)
}

// Reconciler turns opaque processor payloads into typed events and runs them
// through the subscription service. Business failures are swallowed here:
// the processor retries non-2xx deliveries indefinitely, and a retry cannot
// fix a permanent mismatch.
type Reconciler struct {
	subSvc *subsvc.Service
	audit  AuditLog
	log    *zap.SugaredLogger
}

func NewReconciler(subSvc *subsvc.Service, audit AuditLog, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{subSvc: subSvc, audit: audit, log: log}
}

// Handle processes one inbound delivery. The returned error is
// ErrMalformedPayload (the caller answers 400) or nil; every parseable
// delivery is acknowledged regardless of what the state machine decided.
func (r *Reconciler) Handle(ctx context.Context, raw []byte) error {
	log := logctx.FromCtx(ctx, r.log)

	ev, err := Parse(raw)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		log.Warnw("unparsable webhook payload", "error", err.Error())
		return err
	}

	traceID, _ := ctx.Value("traceID").(string)
	r.audit.Save(ctx, &models.PaymentNotificationLog{
		Event:          string(ev.Kind),
		PaymentID:      ev.PaymentID,
		SubscriptionID: subscriptionIDPtr(ev),
		TraceID:        traceID,
		Data:           datatypes.JSON(raw),
		Status:         models.PaymentNotificationLogStatusReceived,
	})

	applyErr := r.subSvc.ApplyWebhookEvent(ctx, ev)

	status := models.PaymentNotificationLogStatusHandled
	var result map[string]any
	switch {
	case applyErr == nil:
		metrics.WebhookEvents.WithLabelValues("applied").Inc()
		log.Infow("webhook event applied",
			"event", ev.Kind, "payment_id", ev.PaymentID, "subscription_id", ev.SubscriptionID)
	case subsvc.IsRejection(applyErr):
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		status = models.PaymentNotificationLogStatusHandleFailed
		result = map[string]any{"error": applyErr.Error()}
		log.Warnw("webhook event rejected",
			"event", ev.Kind, "payment_id", ev.PaymentID, "error", applyErr.Error())
	default:
		// Transient failure (store unavailable and the like). Still ack: the
		// audit row keeps the payload for replay and the processor's next
		// delivery of a fresh event is not blocked on this one.
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		status = models.PaymentNotificationLogStatusHandleFailed
		result = map[string]any{"error": applyErr.Error()}
		log.Errorw("webhook event processing failed",
			"event", ev.Kind, "payment_id", ev.PaymentID, "error", applyErr.Error())
	}

	r.audit.Save(ctx, &models.PaymentNotificationLog{
		Event:          string(ev.Kind),
		PaymentID:      ev.PaymentID,
		SubscriptionID: subscriptionIDPtr(ev),
		TraceID:        traceID,
		Data:           datatypes.JSON(raw),
		Result:         resultJSON(result),
		Status:         status,
	})
	return nil
}

func subscriptionIDPtr(ev *subsvc.Event) *string {
	if ev.SubscriptionID == "" {
		return nil
	}
	return lo.ToPtr(ev.SubscriptionID)
}

func resultJSON(result map[string]any) *datatypes.JSON {
	if result == nil {
		return nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	return lo.ToPtr(datatypes.JSON(b))
}
