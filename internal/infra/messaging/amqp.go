package messaging

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQPClient publishes to topic exchanges with publisher confirms enabled,
// so a successful Publish means the broker has the message.
type AMQPClient struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	cfg        config.Broker
	log        *logrus.Logger
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
	closeOnce  sync.Once
	healthy    atomic.Bool
	done       chan struct{}
}

func NewAMQP(cfg config.Broker, log *logrus.Logger) (*AMQPClient, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}

	for _, exchange := range []string{cfg.OutboundExchange, cfg.InboundExchange} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("amqp: declare exchange %s: %w", exchange, err)
		}
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp: enable confirms: %w", err)
	}

	client := &AMQPClient{
		conn:       conn,
		channel:    ch,
		cfg:        cfg,
		log:        log,
		connClosed: make(chan *amqp.Error, 1),
		chanClosed: make(chan *amqp.Error, 1),
		done:       make(chan struct{}),
	}
	client.healthy.Store(true)
	metrics.BrokerHealth.Set(1)

	conn.NotifyClose(client.connClosed)
	ch.NotifyClose(client.chanClosed)

	go func() {
		select {
		case err := <-client.connClosed:
			client.healthy.Store(false)
			metrics.BrokerHealth.Set(0)
			log.WithError(err).Warn("amqp: connection closed")
		case err := <-client.chanClosed:
			client.healthy.Store(false)
			metrics.BrokerHealth.Set(0)
			log.WithError(err).Warn("amqp: channel closed")
		case <-client.done:
		}
	}()

	log.WithField("url", cfg.URL).Info("amqp: connected")
	return client, nil
}

func (c *AMQPClient) Publish(ctx context.Context, destination, routingKey string, payload []byte, msgID string) error {
	if !c.Healthy() {
		return fmt.Errorf("amqp: connection is closed")
	}

	deferred, err := c.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		destination,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msgID,
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp: publish: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deferred.Done():
		if !deferred.Acked() {
			return fmt.Errorf("amqp: broker NACK, message not persisted")
		}
		return nil
	}
}

// ConsumeReports binds the reports queue to the inbound exchange and blocks
// feeding deliveries to handler. Handler errors requeue the delivery; the
// report processor swallows malformed payloads itself, so an error here
// means a transient store failure worth retrying.
func (c *AMQPClient) ConsumeReports(ctx context.Context, handler ReportHandler) error {
	queue := c.cfg.ReportsQueue
	if queue == "" {
		queue = "gateway-reports"
	}
	if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare queue %s: %w", queue, err)
	}
	if err := c.channel.QueueBind(queue, reportsBinding, c.cfg.InboundExchange, false, nil); err != nil {
		return fmt.Errorf("amqp: bind queue %s: %w", queue, err)
	}

	deliveries, err := c.channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp: consume %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("amqp: report channel closed")
			}
			if err := handler(ctx, d.Body); err != nil {
				c.log.WithError(err).Warn("amqp: delivery report requeued")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AMQPClient) Healthy() bool {
	return c.healthy.Load()
}

func (c *AMQPClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.channel != nil {
			c.channel.Close()
		}
		if c.conn != nil {
			c.conn.Close()
		}
	})
}
