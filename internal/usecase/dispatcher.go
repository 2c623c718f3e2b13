package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/messaging"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/metrics"
	"github.com/sirupsen/logrus"
)

// Dispatcher drains the outbox into the broker. Workers are stateless
// between iterations; the store is the only source of truth, so any number
// of dispatcher processes can run against it.
type Dispatcher struct {
	outbox    repository.OutboxRepository
	publisher messaging.Publisher
	cfg       config.Outbox
	broker    config.Broker
	log       *logrus.Logger
}

func NewDispatcher(outbox repository.OutboxRepository, publisher messaging.Publisher, cfg config.Outbox, broker config.Broker, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{outbox: outbox, publisher: publisher, cfg: cfg, broker: broker, log: log}
}

// Run blocks until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	workers := d.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.runWorker(ctx, id)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.runSweeper(ctx)
	}()

	wg.Wait()
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	interval := d.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.log.WithFields(logrus.Fields{"worker": id, "batch": d.cfg.BatchSize, "interval": interval}).
		Info("dispatcher: worker started")

	for {
		if err := d.ProcessBatch(ctx); err != nil {
			d.log.WithError(err).WithField("worker", id).Warn("dispatcher: batch failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch claims ready records and publishes each one. A record is
// completed only on a positive broker acknowledgment; timeouts and NACKs go
// back through the backoff ladder.
func (d *Dispatcher) ProcessBatch(ctx context.Context) error {
	records, err := d.outbox.ClaimReady(ctx, d.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := d.publish(ctx, rec); err != nil {
			metrics.OutboxFailed.Inc()
			if rec.Attempts >= rec.MaxAttempts {
				metrics.OutboxDead.Inc()
				d.log.WithError(err).WithFields(logrus.Fields{
					"record":   rec.ID,
					"attempts": rec.Attempts,
				}).Error("dispatcher: record exhausted attempts")
			}
			if err := d.outbox.MarkFailed(ctx, rec.ID, err.Error()); err != nil {
				d.log.WithError(err).WithField("record", rec.ID).Warn("dispatcher: mark failed")
			}
			continue
		}
		metrics.OutboxPublished.Inc()
		if err := d.outbox.MarkCompleted(ctx, rec.ID); err != nil {
			d.log.WithError(err).WithField("record", rec.ID).Warn("dispatcher: mark completed")
		}
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, rec entity.OutboxRecord) error {
	timeout := d.broker.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pubCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.publisher.Publish(pubCtx, rec.Destination, rec.RoutingKey, rec.Payload, rec.ID.String())
}

func (d *Dispatcher) runSweeper(ctx context.Context) {
	interval := d.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := d.outbox.SweepCompleted(ctx)
			if err != nil {
				d.log.WithError(err).Warn("dispatcher: retention sweep failed")
				continue
			}
			if removed > 0 {
				metrics.OutboxSwept.Add(float64(removed))
				d.log.WithField("removed", removed).Info("dispatcher: retention sweep")
			}
		}
	}
}
