package usecase

import (
	"context"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/metrics"
	"github.com/Lucas-Zerino/grows-gateway/internal/provider"
	"github.com/sirupsen/logrus"
)

// StatusReconciler polls the provider APIs for the true session state and
// repairs the local cache. Webhooks remain the primary state source; the
// reconciler only catches transitions whose webhook was lost.
type StatusReconciler struct {
	instances repository.InstanceRepository
	gateways  *provider.Registry
	interval  time.Duration
	log       *logrus.Logger
}

func NewStatusReconciler(instances repository.InstanceRepository, gateways *provider.Registry, interval time.Duration, log *logrus.Logger) *StatusReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StatusReconciler{instances: instances, gateways: gateways, interval: interval, log: log}
}

// Run blocks until ctx is done.
func (r *StatusReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.WithField("interval", r.interval).Info("reconciler: started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileAll(ctx)
		}
	}
}

// ReconcileAll checks every instance once. Provider errors are per-instance;
// one unreachable bridge never blocks the rest of the sweep.
func (r *StatusReconciler) ReconcileAll(ctx context.Context) {
	instances, err := r.instances.ListAll(ctx)
	if err != nil {
		r.log.WithError(err).Warn("reconciler: instance listing failed")
		return
	}

	for _, inst := range instances {
		gw, err := r.gateways.Get(inst.Provider)
		if err != nil {
			r.log.WithFields(logrus.Fields{"instance": inst.ID, "provider": inst.Provider}).
				Debug("reconciler: no gateway configured")
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		state, raw, err := gw.GetStatus(callCtx, inst)
		cancel()
		if err != nil {
			r.log.WithError(err).WithField("instance", inst.ID).Warn("reconciler: status check failed")
			continue
		}

		changed, err := r.instances.UpdateStatusIfChanged(ctx, inst.ID, state)
		if err != nil {
			r.log.WithError(err).WithField("instance", inst.ID).Warn("reconciler: status write failed")
			continue
		}
		if changed {
			metrics.StatusRepaired.WithLabelValues(inst.Provider).Inc()
			r.log.WithFields(logrus.Fields{
				"instance": inst.ID,
				"state":    state,
				"raw":      raw,
			}).Info("reconciler: instance state repaired")
		}
	}
}
