package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/metrics"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient publishes through JetStream. Routing keys map directly onto
// subjects (tenant.<id>.priority.<bucket> is a valid subject), so one stream
// with a tenant wildcard covers all traffic.
type NATSClient struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	cfg  config.Broker
	log  *logrus.Logger
}

func NewNATS(ctx context.Context, cfg config.Broker, log *logrus.Logger) (*NATSClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats: url is required")
	}
	if cfg.Stream == "" {
		return nil, errors.New("nats: stream is required")
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("grows-gateway"))
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	metrics.BrokerHealth.Set(1)
	log.WithField("url", cfg.URL).Info("nats: connected")
	return &NATSClient{conn: conn, js: js, cfg: cfg, log: log}, nil
}

func (c *NATSClient) Publish(ctx context.Context, destination, routingKey string, payload []byte, msgID string) error {
	if c.js == nil {
		return errors.New("nats: jetstream not initialized")
	}
	msg := nats.NewMsg(routingKey)
	msg.Data = payload
	if msgID != "" {
		msg.Header.Set(nats.MsgIdHdr, msgID)
	}
	if destination != "" {
		msg.Header.Set("Gateway-Destination", destination)
	}
	_, err := c.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// ConsumeReports pull-subscribes the reports durable and blocks until ctx
// is done. Handler errors NAK for redelivery; the report processor swallows
// malformed payloads itself.
func (c *NATSClient) ConsumeReports(ctx context.Context, handler ReportHandler) error {
	durable := c.cfg.ReportsQueue
	if durable == "" {
		durable = "gateway-reports"
	}
	sub, err := c.js.PullSubscribe(reportsBinding, durable, nats.BindStream(c.cfg.Stream))
	if err != nil {
		return fmt.Errorf("nats: subscribe reports: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := sub.Fetch(50, nats.MaxWait(2*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.WithError(err).Warn("nats: report fetch failed")
			continue
		}
		for _, msg := range msgs {
			if err := handler(ctx, msg.Data); err != nil {
				c.log.WithError(err).Warn("nats: delivery report redelivered")
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (c *NATSClient) Healthy() bool {
	return c.conn != nil && c.conn.IsConnected()
}

func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func ensureStream(ctx context.Context, js nats.JetStreamContext, cfg config.Broker) error {
	subjects := []string{"tenant.>"}

	info, err := js.StreamInfo(cfg.Stream, nats.Context(ctx))
	if err == nil {
		if !sameSubjects(info.Config.Subjects, subjects) {
			info.Config.Subjects = subjects
			_, err = js.UpdateStream(&info.Config, nats.Context(ctx))
		}
		return err
	}

	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  subjects,
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
		}, nats.Context(ctx))
		if err != nil {
			return fmt.Errorf("nats: create stream: %w", err)
		}
		return nil
	}
	return err
}

func sameSubjects(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		if seen[s] == 0 {
			return false
		}
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}
