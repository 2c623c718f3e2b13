package usecase

import (
	"context"
	"encoding/json"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/messaging"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/metrics"
	"github.com/Lucas-Zerino/grows-gateway/internal/webhook"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// InboundRouter handles one provider webhook call end to end: normalize,
// apply local side effects, republish to the tenant's inbound topic. Local
// side effects are best-effort; only normalization failures abort the call.
type InboundRouter struct {
	normalizers *webhook.Registry
	instances   repository.InstanceRepository
	messages    repository.MessageRepository
	publisher   messaging.Publisher
	broker      config.Broker
	log         *logrus.Logger
}

func NewInboundRouter(
	normalizers *webhook.Registry,
	instances repository.InstanceRepository,
	messages repository.MessageRepository,
	publisher messaging.Publisher,
	broker config.Broker,
	log *logrus.Logger,
) *InboundRouter {
	return &InboundRouter{
		normalizers: normalizers,
		instances:   instances,
		messages:    messages,
		publisher:   publisher,
		broker:      broker,
		log:         log,
	}
}

// Handle returns the events that were republished. Unauthorized, BadPayload
// and ConfigNotFound errors propagate for the transport layer to map onto
// status codes; everything past normalization is log-and-continue, because a
// non-2xx would make the provider redeliver the whole batch and duplicate
// the siblings that already succeeded.
func (r *InboundRouter) Handle(ctx context.Context, req webhook.Request) ([]event.Event, error) {
	normalizer, err := r.normalizers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	events, err := normalizer.Normalize(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		metrics.WebhookDropped.WithLabelValues(req.Provider).Inc()
		return nil, nil
	}

	published := make([]event.Event, 0, len(events))
	for _, ev := range events {
		r.applySideEffects(ctx, ev)

		if err := r.republish(ctx, ev); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"provider": req.Provider,
				"kind":     ev.Kind,
				"company":  ev.CompanyID,
			}).Error("inbound: republish failed")
			continue
		}
		metrics.WebhookEvents.WithLabelValues(req.Provider, string(ev.Kind)).Inc()
		published = append(published, ev)
	}
	return published, nil
}

func (r *InboundRouter) applySideEffects(ctx context.Context, ev event.Event) {
	switch ev.Kind {
	case event.KindStateChange:
		changed, err := r.instances.UpdateStatusIfChanged(ctx, ev.InstanceID, ev.State.State)
		if err != nil {
			r.log.WithError(err).WithField("instance", ev.InstanceID).
				Warn("inbound: instance status write failed, forwarding anyway")
			return
		}
		if changed {
			r.log.WithFields(logrus.Fields{
				"instance": ev.InstanceID,
				"state":    ev.State.State,
				"raw":      ev.State.RawState,
			}).Info("inbound: instance state updated")
		}
	case event.KindAck:
		matched, err := r.messages.UpdateAckStatus(ctx, ev.InstanceID, ev.Ack.ProviderMessageID, string(ev.Ack.Stage))
		if err != nil {
			r.log.WithError(err).WithField("instance", ev.InstanceID).
				Warn("inbound: ack correlation write failed, forwarding anyway")
			return
		}
		if !matched && ev.Ack.ProviderMessageID != "" {
			r.log.WithFields(logrus.Fields{
				"instance":   ev.InstanceID,
				"message_id": ev.Ack.ProviderMessageID,
			}).Debug("inbound: ack for untracked message")
		}
	}
}

func (r *InboundRouter) republish(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pubCtx := ctx
	if r.broker.PublishTimeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, r.broker.PublishTimeout)
		defer cancel()
	}
	return r.publisher.Publish(pubCtx, r.broker.InboundExchange, InboundRoutingKey(ev.CompanyID), payload, uuid.NewString())
}
