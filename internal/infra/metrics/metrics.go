package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_outbox_published_total",
		Help: "Outbox records successfully published to the broker.",
	})

	OutboxFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_outbox_failed_total",
		Help: "Publish attempts that failed and were scheduled for retry.",
	})

	OutboxDead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_outbox_dead_total",
		Help: "Outbox records that exhausted their attempts.",
	})

	OutboxSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_outbox_swept_total",
		Help: "Completed outbox records removed by the retention sweep.",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_events_total",
		Help: "Canonical events produced from provider webhooks.",
	}, []string{"provider", "kind"})

	WebhookRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_rejected_total",
		Help: "Webhook calls rejected before normalization completed.",
	}, []string{"provider", "reason"})

	WebhookDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_dropped_total",
		Help: "Webhook calls that produced no canonical events: unknown instance, unchanged state, or an unhandled event type.",
	}, []string{"provider"})

	StatusRepaired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_status_repaired_total",
		Help: "Instance states corrected by the reconciler after a missed webhook.",
	}, []string{"provider"})

	BrokerHealth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_broker_healthy",
		Help: "1 while the broker connection is believed healthy.",
	})
)
