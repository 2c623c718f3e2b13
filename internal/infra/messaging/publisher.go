package messaging

import (
	"context"
	"fmt"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/sirupsen/logrus"
)

// Publisher is the producer-side broker contract. Publish must block until
// the broker positively acknowledges the message or the context expires; a
// timeout is a failure, never a silent success.
type Publisher interface {
	Publish(ctx context.Context, destination, routingKey string, payload []byte, msgID string) error
	Healthy() bool
	Close()
}

// New builds the configured publisher. AMQP uses real topic exchanges;
// JetStream approximates them by using routing keys as subjects.
func New(ctx context.Context, cfg config.Broker, log *logrus.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "amqp":
		return NewAMQP(cfg, log)
	case "nats":
		return NewNATS(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("messaging: unknown broker driver %q", cfg.Driver)
	}
}
