package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebook/carebook-platform/internal/practitioners"
	"github.com/carebook/carebook-platform/pkg/logging"
)

var intakeTracer = otel.Tracer("carebook.internal.appointments")

// Store is the persistence surface the intake service needs.
type Store interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	Complete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Directory supplies practitioner existence lookups.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*practitioners.Practitioner, error)
}

// BookingWindow bounds how far in the future an appointment may be scheduled.
type BookingWindow struct {
	MinLead  time.Duration
	MaxAhead time.Duration
}

// Service implements appointment intake and lifecycle queries.
type Service struct {
	store     Store
	directory Directory
	window    BookingWindow
	logger    *logging.Logger
	now       func() time.Time
}

func NewService(store Store, directory Directory, window BookingWindow, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		window:    window,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source (for tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// BookRequest is a validated-on-entry booking submission.
type BookRequest struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	ScheduledFor   time.Time
	Symptoms       string
	Notes          string
}

// Book creates an appointment in (pending, pending). It performs no external
// calls; the payment handle is attached later by the issuer.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ctx, span := intakeTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("carebook.practitioner_id", req.PractitionerID.String()),
	)

	if req.PatientID == uuid.Nil {
		return nil, ErrNoRequester
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		return nil, ErrSymptomsRequired
	}

	now := s.now().UTC()
	scheduled := req.ScheduledFor.UTC()
	if !scheduled.After(now.Add(s.window.MinLead)) {
		return nil, ErrInvalidSchedule
	}
	if s.window.MaxAhead > 0 && scheduled.After(now.Add(s.window.MaxAhead)) {
		return nil, ErrInvalidSchedule
	}

	if _, err := s.directory.GetByID(ctx, req.PractitionerID); err != nil {
		return nil, err
	}

	a := &Appointment{
		ID:             uuid.New(),
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		ScheduledFor:   scheduled,
		Symptoms:       strings.TrimSpace(req.Symptoms),
		Notes:          strings.TrimSpace(req.Notes),
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment booked",
		"appointment_id", a.ID,
		"practitioner_id", a.PractitionerID,
		"patient_id", a.PatientID,
		"scheduled_for", a.ScheduledFor,
	)
	return a, nil
}

// Get loads an appointment scoped to its requester.
func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Requesters only see their own bookings.
	if patientID != uuid.Nil && a.PatientID != patientID {
		return nil, ErrNotFound
	}
	return a, nil
}

// Cancel applies the administrative cancel transition.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !a.CanCancel() {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, a.Status)
	}
	applied, err := s.store.Cancel(ctx, id)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, a.Status)
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	return nil
}

// Complete applies the administrative complete transition.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !a.CanComplete() {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, a.Status)
	}
	applied, err := s.store.Complete(ctx, id)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, a.Status)
	}
	s.logger.Info("appointment completed", "appointment_id", id)
	return nil
}
