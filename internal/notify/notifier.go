package notify

import (
	"context"
	"errors"
	"time"

	"github.com/carebook/carebook-platform/pkg/logging"
)

// StatusEvent is the record the reconciliation core emits when an
// appointment's payment or lifecycle state changes. Delivery transports
// (pub/sub push, email, client polling) render it; the core never formats
// user-facing copy.
type StatusEvent struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Outcome       string    `json:"outcome"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier delivers appointment status events.
type Notifier interface {
	PublishStatus(ctx context.Context, evt StatusEvent) error
}

// Fanout delivers an event to every configured transport and aggregates
// failures. A failed transport never blocks the others.
type Fanout struct {
	targets []Notifier
	logger  *logging.Logger
}

func NewFanout(logger *logging.Logger, targets ...Notifier) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	out := make([]Notifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return &Fanout{targets: out, logger: logger}
}

func (f *Fanout) PublishStatus(ctx context.Context, evt StatusEvent) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.PublishStatus(ctx, evt); err != nil {
			f.logger.Error("status notification failed",
				"error", err,
				"appointment_id", evt.AppointmentID,
				"outcome", evt.Outcome,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
