package payments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/notify"
	"github.com/carebook/carebook-platform/internal/practitioners"
)

// fakeAppointmentStore is an in-memory webhookStore + appointmentIntentStore
// + reconcilerStore honoring the same CAS semantics as the pgx repository.
type fakeAppointmentStore struct {
	byID map[uuid.UUID]*appointments.Appointment

	confirmErr  error
	intentCalls int
}

func newFakeAppointmentStore(appts ...*appointments.Appointment) *fakeAppointmentStore {
	s := &fakeAppointmentStore{byID: map[uuid.UUID]*appointments.Appointment{}}
	for _, a := range appts {
		s.byID[a.ID] = a
	}
	return s
}

func (s *fakeAppointmentStore) GetByID(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error) {
	if a, ok := s.byID[id]; ok {
		return a, nil
	}
	return nil, appointments.ErrNotFound
}

func (s *fakeAppointmentStore) GetByPaymentRef(ctx context.Context, ref string) (*appointments.Appointment, error) {
	for _, a := range s.byID {
		if a.PaymentRef == ref {
			return a, nil
		}
	}
	return nil, appointments.ErrNotFound
}

func (s *fakeAppointmentStore) SetPaymentIntent(ctx context.Context, id uuid.UUID, ref string, amountCents int64) (bool, error) {
	s.intentCalls++
	a, ok := s.byID[id]
	if !ok || a.Status != appointments.StatusPending || a.PaymentStatus == appointments.PaymentPaid {
		return false, nil
	}
	a.PaymentRef = ref
	a.AmountCents = amountCents
	a.PaymentStatus = appointments.PaymentPending
	return true, nil
}

func (s *fakeAppointmentStore) MarkPaid(ctx context.Context, ref string, amountCents int64, paidAt time.Time) (*appointments.Appointment, bool, error) {
	for _, a := range s.byID {
		if a.PaymentRef == ref && a.PaymentStatus == appointments.PaymentPending {
			a.PaymentStatus = appointments.PaymentPaid
			a.AmountCents = amountCents
			a.PaidAt = &paidAt
			return a, true, nil
		}
	}
	return nil, false, nil
}

func (s *fakeAppointmentStore) MarkFailed(ctx context.Context, ref string) (*appointments.Appointment, bool, error) {
	for _, a := range s.byID {
		if a.PaymentRef == ref && a.PaymentStatus == appointments.PaymentPending {
			a.PaymentStatus = appointments.PaymentFailed
			return a, true, nil
		}
	}
	return nil, false, nil
}

func (s *fakeAppointmentStore) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.confirmErr != nil {
		return false, s.confirmErr
	}
	a, ok := s.byID[id]
	if !ok || a.Status != appointments.StatusPending || a.PaymentStatus != appointments.PaymentPaid {
		return false, nil
	}
	a.Status = appointments.StatusConfirmed
	return true, nil
}

type fakeDirectory struct {
	byID map[uuid.UUID]*practitioners.Practitioner
}

func (d *fakeDirectory) GetByID(ctx context.Context, id uuid.UUID) (*practitioners.Practitioner, error) {
	if p, ok := d.byID[id]; ok {
		return p, nil
	}
	return nil, practitioners.ErrNotFound
}

type fakeNotifier struct {
	events []notify.StatusEvent
}

func (n *fakeNotifier) PublishStatus(ctx context.Context, evt notify.StatusEvent) error {
	n.events = append(n.events, evt)
	return nil
}

type memoryTracker struct {
	seen map[string]bool
}

func newMemoryTracker() *memoryTracker {
	return &memoryTracker{seen: map[string]bool{}}
}

func (t *memoryTracker) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	return t.seen[provider+":"+eventID], nil
}

func (t *memoryTracker) MarkProcessed(ctx context.Context, provider, eventID string) error {
	t.seen[provider+":"+eventID] = true
	return nil
}

func pendingAppointment(ref string) *appointments.Appointment {
	return &appointments.Appointment{
		ID:             uuid.New(),
		PractitionerID: uuid.New(),
		PatientID:      uuid.New(),
		ScheduledFor:   time.Now().Add(48 * time.Hour).UTC(),
		Symptoms:       "headache for 3 days",
		Status:         appointments.StatusPending,
		PaymentStatus:  appointments.PaymentPending,
		PaymentRef:     ref,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
}
