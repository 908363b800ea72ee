package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/observability/metrics"
	"github.com/carebook/carebook-platform/internal/practitioners"
	"github.com/carebook/carebook-platform/pkg/logging"
)

var issuerTracer = otel.Tracer("carebook.internal.payments")

// appointmentIntentStore is the persistence surface the issuer needs.
type appointmentIntentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
	SetPaymentIntent(ctx context.Context, id uuid.UUID, ref string, amountCents int64) (bool, error)
}

// checkoutCreator obtains a hosted checkout session from the processor.
type checkoutCreator interface {
	CreateSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// feeDirectory resolves a practitioner's consultation fee.
type feeDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*practitioners.Practitioner, error)
}

// Issuer obtains payment handles for pending appointments.
//
// The external call happens before any local write, so a failed or timed-out
// processor call leaves the appointment untouched and the request can simply
// be retried with the same appointment identifier.
type Issuer struct {
	store         appointmentIntentStore
	checkout      checkoutCreator
	directory     feeDirectory
	logger        *logging.Logger
	metrics       *metrics.PaymentMetrics
	currency      string
	defaultAmount int64
}

func NewIssuer(store appointmentIntentStore, checkout checkoutCreator, directory feeDirectory, logger *logging.Logger) *Issuer {
	if store == nil {
		panic("payments: appointment store required")
	}
	if checkout == nil {
		panic("payments: checkout client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Issuer{
		store:     store,
		checkout:  checkout,
		directory: directory,
		logger:    logger,
		currency:  "usd",
	}
}

// WithCurrency sets the charge currency.
func (i *Issuer) WithCurrency(currency string) *Issuer {
	if currency != "" {
		i.currency = currency
	}
	return i
}

// WithDefaultAmount sets the fallback fee when neither the request nor the
// practitioner carries one.
func (i *Issuer) WithDefaultAmount(cents int64) *Issuer {
	if cents > 0 {
		i.defaultAmount = cents
	}
	return i
}

// WithMetrics attaches flow metrics.
func (i *Issuer) WithMetrics(m *metrics.PaymentMetrics) *Issuer {
	i.metrics = m
	return i
}

// CreateCheckout issues a payment handle for the appointment. amountCents <= 0
// means "use the practitioner's consultation fee".
func (i *Issuer) CreateCheckout(ctx context.Context, appointmentID uuid.UUID, amountCents int64) (*CheckoutSession, error) {
	ctx, span := issuerTracer.Start(ctx, "payments.create_checkout")
	defer span.End()
	span.SetAttributes(attribute.String("carebook.appointment_id", appointmentID.String()))

	appt, err := i.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PaymentStatus == appointments.PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if appt.Terminal() {
		return nil, fmt.Errorf("%w: appointment is %s", appointments.ErrInvalidTransition, appt.Status)
	}

	if amountCents <= 0 {
		amountCents = i.resolveFee(ctx, appt)
	}

	session, err := i.checkout.CreateSession(ctx, CheckoutParams{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID.String(),
		AmountCents:   amountCents,
		Currency:      i.currency,
		Description:   "Consultation fee",
	})
	if err != nil {
		span.RecordError(err)
		i.metrics.ObserveCheckout("provider_error")
		// No local state was written; the caller may retry as-is.
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	applied, err := i.store.SetPaymentIntent(ctx, appt.ID, session.Ref, amountCents)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A confirmation landed between our read and this write.
		i.metrics.ObserveCheckout("conflict")
		return nil, ErrAlreadyPaid
	}

	i.metrics.ObserveCheckout("created")
	i.logger.Info("checkout session created",
		"appointment_id", appt.ID,
		"payment_ref", session.Ref,
		"amount_cents", amountCents,
	)
	return session, nil
}

func (i *Issuer) resolveFee(ctx context.Context, appt *appointments.Appointment) int64 {
	if i.directory != nil {
		if p, err := i.directory.GetByID(ctx, appt.PractitionerID); err == nil && p.ConsultationFeeCents > 0 {
			return p.ConsultationFeeCents
		}
	}
	return i.defaultAmount
}
