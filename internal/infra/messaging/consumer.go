package messaging

import (
	"context"
	"fmt"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/sirupsen/logrus"
)

// reportsBinding matches the per-tenant delivery report routing keys
// (tenant.<companyID>.reports) that provider workers publish to.
const reportsBinding = "tenant.*.reports"

// ReportHandler processes one delivery report payload. A nil return
// acknowledges the message; an error leaves it queued for redelivery.
type ReportHandler func(ctx context.Context, payload []byte) error

// Consumer reads provider worker delivery reports off the broker.
type Consumer interface {
	ConsumeReports(ctx context.Context, handler ReportHandler) error
	Close()
}

// NewConsumer builds the configured consumer with the same driver selection
// as New.
func NewConsumer(ctx context.Context, cfg config.Broker, log *logrus.Logger) (Consumer, error) {
	switch cfg.Driver {
	case "amqp":
		return NewAMQP(cfg, log)
	case "nats":
		return NewNATS(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("messaging: unknown broker driver %q", cfg.Driver)
	}
}
