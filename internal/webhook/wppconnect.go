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

// WPPConnect posts its message fields at the top level of the body rather
// than under a payload envelope, and uses its own event names.
type WPPConnectNormalizer struct {
	instances repository.InstanceRepository
	log       *logrus.Logger
}

func NewWPPConnectNormalizer(instances repository.InstanceRepository, log *logrus.Logger) *WPPConnectNormalizer {
	return &WPPConnectNormalizer{instances: instances, log: log}
}

func (n *WPPConnectNormalizer) Provider() string { return provider.NameWPPConnect }

type wppEnvelope struct {
	Event   string `json:"event"`
	Session string `json:"session"`

	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Content     string `json:"content"`
	Body        string `json:"body"`
	Timestamp   int64  `json:"timestamp"`
	FromMe      bool   `json:"fromMe"`
	Participant string `json:"author"`
	Ack         int    `json:"ack"`
	Status      string `json:"status"`
}

func (n *WPPConnectNormalizer) Normalize(ctx context.Context, req Request) ([]event.Event, error) {
	// As with the other session bridge, the per-instance secret forces the
	// parse and instance lookup to run first; all remaining validation waits
	// until the signature has been checked.
	var env wppEnvelope
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

	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrBadPayload)
	}

	switch env.Event {
	case "onmessage":
		ev, err := n.messageEvent(*inst, env, req.Body)
		if err != nil {
			return nil, err
		}
		return []event.Event{ev}, nil
	case "onack":
		if env.ID == "" {
			return nil, fmt.Errorf("%w: ack without message id", ErrBadPayload)
		}
		ev := newEvent(event.KindAck, *inst)
		ev.Ack = &event.AckPayload{ProviderMessageID: env.ID, Stage: mapAckCode(env.Ack)}
		return []event.Event{ev}, nil
	case "status-find":
		canonical := provider.MapStatus(provider.NameWPPConnect, env.Status)
		if canonical == inst.Status {
			n.log.WithFields(logrus.Fields{"instance": inst.ID, "state": canonical}).
				Debug("wppconnect: state unchanged, suppressing event")
			return nil, nil
		}
		ev := newEvent(event.KindStateChange, *inst)
		ev.State = &event.StatePayload{State: canonical, RawState: env.Status}
		return []event.Event{ev}, nil
	case "onpresencechanged":
		ev := newEvent(event.KindGeneric, *inst)
		ev.Generic = &event.GenericPayload{EventType: env.Event, Raw: req.Body}
		return []event.Event{ev}, nil
	default:
		n.log.WithFields(logrus.Fields{"event": env.Event, "instance": inst.ID}).
			Debug("wppconnect: unhandled event type")
		return nil, nil
	}
}

func (n *WPPConnectNormalizer) messageEvent(inst entity.Instance, env wppEnvelope, body []byte) (event.Event, error) {
	if env.ID == "" || env.From == "" {
		return event.Event{}, fmt.Errorf("%w: message fields", ErrBadPayload)
	}
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(body, &fields)

	sender, isGroup, isLinked := splitJID(env.From)
	recipient, _, _ := splitJID(env.To)
	participant, _, _ := splitJID(env.Participant)

	content := env.Content
	if content == "" {
		content = env.Body
	}
	msgType, media := detectMedia(fields)

	ev := newEvent(event.KindMessage, inst)
	ev.Timestamp = epochMillis(env.Timestamp)
	ev.Message = &event.MessagePayload{
		ProviderMessageID: env.ID,
		Sender:            sender,
		Recipient:         recipient,
		Direction:         directionFor(env.FromMe),
		IsGroup:           isGroup,
		Participant:       participant,
		Type:              msgType,
		Content:           content,
		MediaURL:          media.URL,
		MimeType:          media.MimeType,
	}
	if isLinked {
		ev.Message.LinkedID = sender
	}
	return ev, nil
}

func (n *WPPConnectNormalizer) resolve(ctx context.Context, req Request, session string) (*entity.Instance, error) {
	var (
		inst entity.Instance
		err  error
	)
	if session != "" {
		inst, err = n.instances.GetByExternalID(ctx, provider.NameWPPConnect, session)
	} else {
		inst, err = n.instances.GetByID(ctx, req.PathID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrInstanceNotFound) {
			n.log.WithFields(logrus.Fields{"session": session, "path_id": req.PathID}).
				Warn("wppconnect: webhook for unknown instance dropped")
			return nil, nil
		}
		return nil, err
	}
	return &inst, nil
}
