package reconcileworker

import (
	"context"
	"time"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/observability/metrics"
	"github.com/carebook/carebook-platform/pkg/logging"
)

type candidateStore interface {
	ListReconcileCandidates(ctx context.Context, limit int) ([]appointments.Appointment, error)
}

type confirmer interface {
	ConfirmPaid(ctx context.Context, appt *appointments.Appointment) error
}

// Worker sweeps appointments whose payment settled but whose confirm write has
// not landed yet (payment=paid, status=pending) and retries the transition.
// The rows themselves are the queue; there is no separate outbox to drain.
type Worker struct {
	store      candidateStore
	reconciler confirmer
	logger     *logging.Logger
	metrics    *metrics.PaymentMetrics
	interval   time.Duration
	batchSize  int
}

func NewWorker(store candidateStore, reconciler confirmer, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		interval:   30 * time.Second,
		batchSize:  50,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

func (w *Worker) WithMetrics(m *metrics.PaymentMetrics) *Worker {
	w.metrics = m
	return w
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if w.store == nil || w.reconciler == nil {
		return
	}
	candidates, err := w.store.ListReconcileCandidates(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("reconcile fetch failed", "error", err)
		return
	}
	for i := range candidates {
		appt := &candidates[i]
		w.metrics.ObserveReconcileRetry()
		if err := w.reconciler.ConfirmPaid(ctx, appt); err != nil {
			// Left in place; the next sweep picks it up again.
			w.logger.Warn("reconcile attempt failed",
				"error", err,
				"appointment_id", appt.ID,
				"payment_ref", appt.PaymentRef,
			)
		}
	}
}
