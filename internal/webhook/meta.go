package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/provider"
	"github.com/sirupsen/logrus"
)

// MetaNormalizer handles both Graph API providers. Webhooks arrive signed
// with X-Hub-Signature-256 and batch several entries per call; each entry
// resolves independently through the linked page/user id, and one malformed
// entry never aborts its siblings.
type MetaNormalizer struct {
	name      string
	instances repository.InstanceRepository
	log       *logrus.Logger
}

func NewMessengerNormalizer(instances repository.InstanceRepository, log *logrus.Logger) *MetaNormalizer {
	return &MetaNormalizer{name: provider.NameMessenger, instances: instances, log: log}
}

func NewInstagramNormalizer(instances repository.InstanceRepository, log *logrus.Logger) *MetaNormalizer {
	return &MetaNormalizer{name: provider.NameInstagram, instances: instances, log: log}
}

func (n *MetaNormalizer) Provider() string { return n.name }

type metaEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string            `json:"id"`
		Time      int64             `json:"time"`
		Messaging []json.RawMessage `json:"messaging"`
	} `json:"entry"`
}

type metaMessaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64 `json:"timestamp"`
	Message   *struct {
		MID         string `json:"mid"`
		Text        string `json:"text"`
		IsEcho      bool   `json:"is_echo"`
		Attachments []struct {
			Type    string `json:"type"`
			Payload struct {
				URL string `json:"url"`
			} `json:"payload"`
		} `json:"attachments"`
	} `json:"message"`
	Delivery *struct {
		MIDs []string `json:"mids"`
	} `json:"delivery"`
	Read *struct {
		Watermark int64 `json:"watermark"`
	} `json:"read"`
}

func (n *MetaNormalizer) Normalize(ctx context.Context, req Request) ([]event.Event, error) {
	cfg, err := n.instances.GetByID(ctx, req.PathID)
	if err != nil {
		if errors.Is(err, repository.ErrInstanceNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	if !VerifySignature(cfg.WebhookSecret, req.Body, req.Headers.Get("X-Hub-Signature-256")) {
		return nil, ErrUnauthorized
	}

	var env metaEnvelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if env.Object == "" || len(env.Entry) == 0 {
		return nil, fmt.Errorf("%w: missing object or entry", ErrBadPayload)
	}

	var events []event.Event
	for _, entry := range env.Entry {
		inst, err := n.instances.GetByPlatformUserID(ctx, n.name, entry.ID)
		if err != nil {
			if errors.Is(err, repository.ErrInstanceNotFound) {
				n.log.WithFields(logrus.Fields{"platform_id": entry.ID, "provider": n.name}).
					Warn("meta: webhook entry for unknown instance dropped")
				continue
			}
			return nil, err
		}
		for _, raw := range entry.Messaging {
			ev, ok := n.messagingEvent(inst, raw)
			if !ok {
				continue
			}
			events = append(events, ev...)
		}
	}
	return events, nil
}

func (n *MetaNormalizer) messagingEvent(inst entity.Instance, raw json.RawMessage) ([]event.Event, bool) {
	var item metaMessaging
	if err := json.Unmarshal(raw, &item); err != nil {
		n.log.WithError(err).WithField("provider", n.name).
			Warn("meta: skipping malformed messaging item")
		return nil, false
	}

	switch {
	case item.Message != nil:
		ev := newEvent(event.KindMessage, inst)
		ev.Device = inst.PlatformUserID
		ev.Timestamp = epochMillis(item.Timestamp)
		msgType := event.MessageTypeText
		mediaURL := ""
		if len(item.Message.Attachments) > 0 {
			att := item.Message.Attachments[0]
			msgType = metaAttachmentType(att.Type)
			mediaURL = att.Payload.URL
		}
		ev.Message = &event.MessagePayload{
			ProviderMessageID: item.Message.MID,
			Sender:            item.Sender.ID,
			Recipient:         item.Recipient.ID,
			Direction:         directionFor(item.Message.IsEcho),
			Type:              msgType,
			Content:           item.Message.Text,
			MediaURL:          mediaURL,
		}
		return []event.Event{ev}, true

	case item.Delivery != nil:
		events := make([]event.Event, 0, len(item.Delivery.MIDs))
		for _, mid := range item.Delivery.MIDs {
			ev := newEvent(event.KindAck, inst)
			ev.Device = inst.PlatformUserID
			ev.Timestamp = epochMillis(item.Timestamp)
			ev.Ack = &event.AckPayload{ProviderMessageID: mid, Stage: event.AckDelivered}
			events = append(events, ev)
		}
		return events, len(events) > 0

	case item.Read != nil:
		// Read receipts carry a watermark, not message ids, so there is
		// nothing to correlate locally; still forwarded downstream.
		ev := newEvent(event.KindAck, inst)
		ev.Device = inst.PlatformUserID
		ev.Timestamp = epochMillis(item.Timestamp)
		ev.Ack = &event.AckPayload{Stage: event.AckRead}
		return []event.Event{ev}, true

	default:
		n.log.WithField("provider", n.name).Debug("meta: unhandled messaging item")
		return nil, false
	}
}

func metaAttachmentType(t string) event.MessageType {
	switch t {
	case "image":
		return event.MessageTypeImage
	case "video":
		return event.MessageTypeVideo
	case "audio":
		return event.MessageTypeAudio
	case "file":
		return event.MessageTypeDocument
	case "location":
		return event.MessageTypeLocation
	default:
		return event.MessageTypeText
	}
}
