package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/notify"
	"github.com/carebook/carebook-platform/internal/observability/metrics"
	"github.com/carebook/carebook-platform/pkg/logging"
)

var reconcilerTracer = otel.Tracer("carebook.internal.payments.reconciler")

// reconcilerStore applies the lifecycle transition.
type reconcilerStore interface {
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)
}

// Reconciler maps payment outcomes onto the appointment lifecycle and emits
// status events.
//
// The external charge and the local confirm write are not transactional: once
// the processor says "paid", the local write must be retried until it lands.
// A failed confirm write therefore yields ErrReconciliationPending, never a
// payment failure, and the appointment row (payment=paid, status=pending)
// stays queued for the background worker.
type Reconciler struct {
	store    reconcilerStore
	notifier notify.Notifier
	logger   *logging.Logger
	metrics  *metrics.PaymentMetrics
}

func NewReconciler(store reconcilerStore, notifier notify.Notifier, logger *logging.Logger) *Reconciler {
	if store == nil {
		panic("payments: reconciler store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{store: store, notifier: notifier, logger: logger}
}

// WithMetrics attaches flow metrics.
func (r *Reconciler) WithMetrics(m *metrics.PaymentMetrics) *Reconciler {
	r.metrics = m
	return r
}

// ConfirmPaid moves a paid appointment to confirmed and notifies. Calling it
// again for an already-confirmed appointment is a silent no-op, which is what
// makes duplicate confirmations and worker retries safe.
func (r *Reconciler) ConfirmPaid(ctx context.Context, appt *appointments.Appointment) error {
	ctx, span := reconcilerTracer.Start(ctx, "payments.reconcile_confirm")
	defer span.End()
	span.SetAttributes(attribute.String("carebook.appointment_id", appt.ID.String()))

	applied, err := r.store.Confirm(ctx, appt.ID)
	if err != nil {
		span.RecordError(err)
		r.logger.Error("confirm write failed after settled payment",
			"error", err,
			"appointment_id", appt.ID,
			"payment_ref", appt.PaymentRef,
		)
		r.publish(ctx, appt, appointments.StatusPending, "reconciliation_pending")
		return fmt.Errorf("%w: %v", ErrReconciliationPending, err)
	}
	if !applied {
		// Already confirmed by an earlier delivery, or moved to a terminal
		// state by an administrative action. Either way there is nothing to
		// reconcile and no notification to repeat.
		r.logger.Debug("confirm skipped, transition not applicable", "appointment_id", appt.ID)
		return nil
	}

	r.logger.Info("appointment confirmed",
		"appointment_id", appt.ID,
		"payment_ref", appt.PaymentRef,
		"amount_cents", appt.AmountCents,
	)
	r.publish(ctx, appt, appointments.StatusConfirmed, "confirmed")
	return nil
}

// RecordFailure notifies about a failed payment. The lifecycle stays pending;
// only the payment status moved (to failed), and only via the store's CAS.
func (r *Reconciler) RecordFailure(ctx context.Context, appt *appointments.Appointment) {
	r.logger.Info("payment failed, appointment stays pending",
		"appointment_id", appt.ID,
		"payment_ref", appt.PaymentRef,
	)
	r.publish(ctx, appt, appt.Status, "payment_failed")
}

func (r *Reconciler) publish(ctx context.Context, appt *appointments.Appointment, status appointments.Status, outcome string) {
	if r.notifier == nil {
		return
	}
	occurredAt := time.Now().UTC()
	if appt.PaidAt != nil {
		occurredAt = *appt.PaidAt
	}
	evt := notify.StatusEvent{
		AppointmentID: appt.ID.String(),
		PatientID:     appt.PatientID.String(),
		Status:        string(status),
		PaymentStatus: string(appt.PaymentStatus),
		Outcome:       outcome,
		AmountCents:   appt.AmountCents,
		OccurredAt:    occurredAt,
	}
	// Notification delivery is best effort; reconciliation state never
	// depends on it.
	if err := r.notifier.PublishStatus(ctx, evt); err != nil {
		r.logger.Warn("status notification failed", "error", err, "appointment_id", appt.ID)
	}
}
