package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks the consultation fee settlement.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

var (
	ErrNotFound          = errors.New("appointments: not found")
	ErrNoRequester       = errors.New("appointments: requester identity required")
	ErrSymptomsRequired  = errors.New("appointments: symptom description is required")
	ErrInvalidSchedule   = errors.New("appointments: scheduled time outside booking window")
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
)

// Appointment links a requester to a practitioner at a scheduled time and
// carries the payment state for the consultation fee.
//
// Lifecycle status reaches "confirmed" only after payment status becomes
// "paid". Payment status moves only pending→paid or pending→failed; a failed
// payment leaves the lifecycle at "pending" so the requester can retry.
type Appointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	ScheduledFor   time.Time
	Symptoms       string
	Notes          string
	Status         Status
	PaymentStatus  PaymentStatus
	PaymentRef     string
	AmountCents    int64
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal reports whether the lifecycle can no longer change.
func (a *Appointment) Terminal() bool {
	return a.Status == StatusCancelled || a.Status == StatusCompleted
}

// CanCancel reports whether an administrative cancel is allowed.
// Completed appointments cannot be cancelled.
func (a *Appointment) CanCancel() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// CanComplete reports whether an administrative complete is allowed.
func (a *Appointment) CanComplete() bool {
	return a.Status == StatusConfirmed
}

// Outcome summarizes the booking/payment state for status polling. The
// external processor's verdict drives the message: a paid appointment whose
// confirm write has not landed yet reads as reconciliation, never as failure.
func (a *Appointment) Outcome() string {
	switch {
	case a.Status == StatusCancelled:
		return "cancelled"
	case a.Status == StatusCompleted:
		return "completed"
	case a.Status == StatusConfirmed:
		return "confirmed"
	case a.PaymentStatus == PaymentPaid:
		return "reconciliation_pending"
	case a.PaymentStatus == PaymentFailed:
		return "payment_failed"
	default:
		return "awaiting_payment"
	}
}
