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

type WAHANormalizer struct {
	instances repository.InstanceRepository
	log       *logrus.Logger
}

func NewWAHANormalizer(instances repository.InstanceRepository, log *logrus.Logger) *WAHANormalizer {
	return &WAHANormalizer{instances: instances, log: log}
}

func (n *WAHANormalizer) Provider() string { return provider.NameWAHA }

type wahaEnvelope struct {
	Event   string          `json:"event"`
	Session string          `json:"session"`
	Payload json.RawMessage `json:"payload"`
}

type wahaMessage struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Body        string `json:"body"`
	Timestamp   int64  `json:"timestamp"`
	FromMe      bool   `json:"fromMe"`
	Participant string `json:"participant"`
}

type wahaAck struct {
	ID  string `json:"id"`
	Ack int    `json:"ack"`
}

type wahaState struct {
	Status string `json:"status"`
}

func (n *WAHANormalizer) Normalize(ctx context.Context, req Request) ([]event.Event, error) {
	// The HMAC secret lives on the instance, so the body must parse and the
	// instance must resolve before the signature can be checked. Bodies that
	// do not parse at all fail as bad payloads; there is no secret to check
	// them against. Every other validation waits until after the signature.
	var env wahaEnvelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	inst, err := n.resolve(ctx, req, env.Session)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, nil
	}

	if !VerifySignature(inst.WebhookSecret, req.Body, req.Headers.Get("X-Webhook-Hmac")) {
		return nil, ErrUnauthorized
	}

	if env.Event == "" || len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing event or payload", ErrBadPayload)
	}

	switch env.Event {
	case "message":
		ev, err := n.messageEvent(*inst, env.Payload)
		if err != nil {
			return nil, err
		}
		return []event.Event{ev}, nil
	case "message.ack":
		var ack wahaAck
		if err := json.Unmarshal(env.Payload, &ack); err != nil || ack.ID == "" {
			return nil, fmt.Errorf("%w: ack payload", ErrBadPayload)
		}
		ev := newEvent(event.KindAck, *inst)
		ev.Ack = &event.AckPayload{ProviderMessageID: ack.ID, Stage: mapAckCode(ack.Ack)}
		return []event.Event{ev}, nil
	case "state.change":
		var st wahaState
		if err := json.Unmarshal(env.Payload, &st); err != nil {
			return nil, fmt.Errorf("%w: state payload", ErrBadPayload)
		}
		canonical := provider.MapStatus(provider.NameWAHA, st.Status)
		if canonical == inst.Status {
			n.log.WithFields(logrus.Fields{"instance": inst.ID, "state": canonical}).
				Debug("waha: state unchanged, suppressing event")
			return nil, nil
		}
		ev := newEvent(event.KindStateChange, *inst)
		ev.State = &event.StatePayload{State: canonical, RawState: st.Status}
		return []event.Event{ev}, nil
	default:
		n.log.WithFields(logrus.Fields{"event": env.Event, "instance": inst.ID}).
			Debug("waha: unhandled event type")
		return nil, nil
	}
}

func (n *WAHANormalizer) messageEvent(inst entity.Instance, payload json.RawMessage) (event.Event, error) {
	var msg wahaMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.ID == "" {
		return event.Event{}, fmt.Errorf("%w: message payload", ErrBadPayload)
	}
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(payload, &fields)

	sender, isGroup, isLinked := splitJID(msg.From)
	recipient, _, _ := splitJID(msg.To)
	participant, _, _ := splitJID(msg.Participant)

	msgType, media := detectMedia(fields)

	ev := newEvent(event.KindMessage, inst)
	ev.Timestamp = epochMillis(msg.Timestamp)
	ev.Message = &event.MessagePayload{
		ProviderMessageID: msg.ID,
		Sender:            sender,
		Recipient:         recipient,
		Direction:         directionFor(msg.FromMe),
		IsGroup:           isGroup,
		Participant:       participant,
		Type:              msgType,
		Content:           msg.Body,
		MediaURL:          media.URL,
		MimeType:          media.MimeType,
	}
	if isLinked {
		ev.Message.LinkedID = sender
	}
	return ev, nil
}

// resolve finds the owning instance: by the session name carried in the
// body when present, otherwise by the path id the webhook was registered
// under. A session that no longer maps to an instance is dropped, not an
// error; stale subscriptions keep firing after instances are deleted.
func (n *WAHANormalizer) resolve(ctx context.Context, req Request, session string) (*entity.Instance, error) {
	var (
		inst entity.Instance
		err  error
	)
	if session != "" {
		inst, err = n.instances.GetByExternalID(ctx, provider.NameWAHA, session)
	} else {
		inst, err = n.instances.GetByID(ctx, req.PathID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrInstanceNotFound) {
			n.log.WithFields(logrus.Fields{"session": session, "path_id": req.PathID}).
				Warn("waha: webhook for unknown instance dropped")
			return nil, nil
		}
		return nil, err
	}
	return &inst, nil
}

func newEvent(kind event.Kind, inst entity.Instance) event.Event {
	return event.Event{
		Kind:               kind,
		CompanyID:          inst.CompanyID,
		InstanceID:         inst.ID,
		ExternalInstanceID: inst.ExternalInstanceID,
		Device:             inst.ExternalInstanceID,
		Source:             inst.Provider,
		Timestamp:          event.Now(),
	}
}
