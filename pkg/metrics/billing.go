package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Billing counters shared by the API and worker processes.
var (
	// PaymentsInitiated counts outgoing processor requests by payment type
	// ("initial", "renewal") and outcome ("ok", "error").
	PaymentsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "payments_initiated_total",
		Help:      "Charge requests sent to the payment processor.",
	}, []string{"payment_type", "outcome"})

	// WebhookEvents counts inbound processor notifications by outcome
	// ("applied", "rejected", "malformed", "error").
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Payment processor webhook events by processing outcome.",
	}, []string{"outcome"})

	// RenewalScanDue reports how many subscriptions the last scheduler tick
	// found due for renewal.
	RenewalScanDue = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "billing",
		Name:      "renewal_scan_due",
		Help:      "Subscriptions found due for renewal in the last scan.",
	})
)
