package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrInvalidRecipient = errors.New("invalid recipient")

// OutboundSender accepts send requests and persists the message row together
// with its outbox record in one transaction. The caller gets a 2xx as soon
// as that commit lands; delivery happens asynchronously through the
// dispatcher.
type OutboundSender struct {
	messages repository.MessageRepository
	outbox   repository.OutboxRepository
	broker   config.Broker
	log      *logrus.Logger
}

func NewOutboundSender(messages repository.MessageRepository, outbox repository.OutboxRepository, broker config.Broker, log *logrus.Logger) *OutboundSender {
	return &OutboundSender{messages: messages, outbox: outbox, broker: broker, log: log}
}

type SendMessageInput struct {
	Instance    entity.Instance
	Recipient   string
	Type        event.MessageType
	Content     string
	MediaURL    string
	Caption     string
	Priority    int
	MaxAttempts int

	IdempotencyKey string
	RequestHash    string
}

// outboundCommand is the payload the provider worker consumes off the broker.
type outboundCommand struct {
	MessageID  uuid.UUID         `json:"message_id"`
	CompanyID  uuid.UUID         `json:"company_id"`
	InstanceID uuid.UUID         `json:"instance_id"`
	Provider   string            `json:"provider"`
	Type       event.MessageType `json:"type"`
	Recipient  string            `json:"recipient"`
	Content    string            `json:"content"`
	MediaURL   string            `json:"media_url,omitempty"`
	Caption    string            `json:"caption,omitempty"`
	Priority   int               `json:"priority"`
}

func (s *OutboundSender) Send(ctx context.Context, in SendMessageInput) (entity.Message, bool, error) {
	recipient, err := normalizeRecipient(in.Instance.Provider, in.Recipient)
	if err != nil {
		return entity.Message{}, false, err
	}
	if in.Type == "" {
		in.Type = event.MessageTypeText
	}

	content, err := json.Marshal(map[string]string{
		"text":      in.Content,
		"media_url": in.MediaURL,
		"caption":   in.Caption,
	})
	if err != nil {
		return entity.Message{}, false, err
	}

	msg := entity.Message{
		CompanyID:  in.Instance.CompanyID,
		InstanceID: in.Instance.ID,
		Direction:  event.DirectionOutbound,
		Recipient:  recipient,
		Type:       in.Type,
		Content:    content,
		Priority:   in.Priority,
	}

	enqueue := func(txCtx context.Context, created entity.Message) error {
		cmd := outboundCommand{
			MessageID:  created.ID,
			CompanyID:  created.CompanyID,
			InstanceID: created.InstanceID,
			Provider:   in.Instance.Provider,
			Type:       created.Type,
			Recipient:  created.Recipient,
			Content:    in.Content,
			MediaURL:   in.MediaURL,
			Caption:    in.Caption,
			Priority:   created.Priority,
		}
		payload, err := json.Marshal(cmd)
		if err != nil {
			return err
		}
		key := OutboundRoutingKey(created.CompanyID, created.Priority)
		_, err = s.outbox.Enqueue(txCtx, s.broker.OutboundExchange, key, payload, in.MaxAttempts)
		return err
	}

	var (
		created      entity.Message
		alreadyExist bool
	)
	if in.IdempotencyKey != "" {
		created, alreadyExist, err = s.messages.CreateIdempotent(ctx, msg, in.IdempotencyKey, in.RequestHash, enqueue)
	} else {
		created, err = s.messages.Create(ctx, msg, enqueue)
	}
	if err != nil {
		s.log.WithError(err).Error("outbound: enqueue failed")
		return entity.Message{}, false, err
	}
	return created, alreadyExist, nil
}

func (s *OutboundSender) GetMessage(ctx context.Context, id uuid.UUID) (entity.Message, error) {
	return s.messages.GetByID(ctx, id)
}

// normalizeRecipient is the pass/fail gate in front of provider addressing.
// Session bridges take bare phone-like identifiers; graph providers take
// opaque platform-scoped ids that only need to be non-empty.
func normalizeRecipient(providerName, recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", ErrInvalidRecipient
	}
	switch providerName {
	case "wppconnect", "waha":
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, recipient)
		if len(cleaned) < 8 || len(cleaned) > 15 {
			return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, recipient)
		}
		return cleaned, nil
	default:
		return recipient, nil
	}
}
