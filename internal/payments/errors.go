package payments

import "errors"

var (
	// ErrAlreadyPaid means the appointment's consultation fee has settled;
	// issuing another checkout would risk a duplicate charge.
	ErrAlreadyPaid = errors.New("payments: appointment already paid")

	// ErrExternalService wraps processor failures. The appointment is left
	// unchanged, so callers may retry the same request safely.
	ErrExternalService = errors.New("payments: payment provider unavailable")

	// ErrReconciliationPending means the external charge succeeded but the
	// local confirm write has not landed. It must be retried until durable
	// and never surfaced as a payment failure.
	ErrReconciliationPending = errors.New("payments: payment recorded, confirmation pending")
)
