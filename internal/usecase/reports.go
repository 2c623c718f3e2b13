package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// deliveryReport is what a provider worker publishes back after performing
// the real send for an outbound command.
type deliveryReport struct {
	MessageID         uuid.UUID `json:"message_id"`
	ProviderMessageID string    `json:"provider_message_id"`
	Status            string    `json:"status"`
	Error             string    `json:"error,omitempty"`
}

// ReportProcessor closes the outbound loop: the provider message id a worker
// reports is what later ack webhooks correlate against.
type ReportProcessor struct {
	messages repository.MessageRepository
	log      *logrus.Logger
}

func NewReportProcessor(messages repository.MessageRepository, log *logrus.Logger) *ReportProcessor {
	return &ReportProcessor{messages: messages, log: log}
}

// Handle processes one report payload. Malformed reports and reports for
// unknown messages are dropped, not redelivered; only store errors propagate
// so the broker retries them.
func (p *ReportProcessor) Handle(ctx context.Context, payload []byte) error {
	var rep deliveryReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		p.log.WithError(err).Warn("reports: malformed payload dropped")
		return nil
	}
	if rep.MessageID == uuid.Nil {
		p.log.Warn("reports: payload without message id dropped")
		return nil
	}

	if rep.ProviderMessageID != "" {
		err := p.messages.SetProviderMessageID(ctx, rep.MessageID, rep.ProviderMessageID)
		switch {
		case errors.Is(err, repository.ErrMessageNotFound):
			p.log.WithField("message", rep.MessageID).
				Debug("reports: report for unknown message dropped")
			return nil
		case err != nil:
			return err
		}
	}

	if rep.Error != "" {
		p.log.WithFields(logrus.Fields{
			"message": rep.MessageID,
			"status":  rep.Status,
			"reason":  rep.Error,
		}).Warn("reports: worker reported a failed send")
	}
	return nil
}
