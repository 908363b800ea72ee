package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/practitioners"
	"github.com/carebook/carebook-platform/pkg/logging"
)

type scriptedCheckout struct {
	session *CheckoutSession
	err     error
	calls   int
}

func (c *scriptedCheckout) CreateSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func TestCreateCheckoutStoresHandleAndAmount(t *testing.T) {
	appt := pendingAppointment("")
	store := newFakeAppointmentStore(appt)
	checkout := &scriptedCheckout{session: &CheckoutSession{URL: "https://checkout.test/s1", Ref: "cs_test_1"}}

	issuer := NewIssuer(store, checkout, nil, logging.Default()).WithDefaultAmount(2990)
	session, err := issuer.CreateCheckout(context.Background(), appt.ID, 2990)
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if session.Ref != "cs_test_1" {
		t.Fatalf("unexpected ref %q", session.Ref)
	}
	if appt.PaymentRef != "cs_test_1" || appt.AmountCents != 2990 {
		t.Fatalf("expected handle and amount stored, got ref=%q amount=%d", appt.PaymentRef, appt.AmountCents)
	}
	if appt.Status != appointments.StatusPending || appt.PaymentStatus != appointments.PaymentPending {
		t.Fatalf("expected status unchanged (pending, pending), got (%s, %s)", appt.Status, appt.PaymentStatus)
	}
}

func TestCreateCheckoutConflictsWhenAlreadyPaid(t *testing.T) {
	appt := pendingAppointment("cs_old")
	appt.PaymentStatus = appointments.PaymentPaid
	store := newFakeAppointmentStore(appt)
	checkout := &scriptedCheckout{session: &CheckoutSession{URL: "u", Ref: "r"}}

	issuer := NewIssuer(store, checkout, nil, logging.Default())
	_, err := issuer.CreateCheckout(context.Background(), appt.ID, 1000)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
	if checkout.calls != 0 {
		t.Fatal("no charge attempt may be made for a settled appointment")
	}
}

func TestCreateCheckoutLeavesStateOnProviderError(t *testing.T) {
	appt := pendingAppointment("")
	store := newFakeAppointmentStore(appt)
	checkout := &scriptedCheckout{err: errors.New("connection reset")}

	issuer := NewIssuer(store, checkout, nil, logging.Default())
	_, err := issuer.CreateCheckout(context.Background(), appt.ID, 2990)
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if appt.PaymentRef != "" || appt.AmountCents != 0 {
		t.Fatal("appointment must be unchanged after a provider failure")
	}
	if store.intentCalls != 0 {
		t.Fatal("no local write may happen before the provider call succeeds")
	}

	// Retrying the same appointment succeeds.
	checkout.err = nil
	checkout.session = &CheckoutSession{URL: "https://checkout.test/s2", Ref: "cs_retry"}
	if _, err := issuer.CreateCheckout(context.Background(), appt.ID, 2990); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if appt.PaymentRef != "cs_retry" {
		t.Fatalf("expected retry to store new handle, got %q", appt.PaymentRef)
	}
}

func TestCreateCheckoutUnknownAppointment(t *testing.T) {
	store := newFakeAppointmentStore()
	issuer := NewIssuer(store, &scriptedCheckout{}, nil, logging.Default())
	_, err := issuer.CreateCheckout(context.Background(), uuid.New(), 1000)
	if !errors.Is(err, appointments.ErrNotFound) {
		t.Fatalf("expected appointments.ErrNotFound, got %v", err)
	}
}

func TestCreateCheckoutResolvesPractitionerFee(t *testing.T) {
	appt := pendingAppointment("")
	store := newFakeAppointmentStore(appt)
	dir := &fakeDirectory{byID: map[uuid.UUID]*practitioners.Practitioner{
		appt.PractitionerID: {ID: appt.PractitionerID, ConsultationFeeCents: 4500},
	}}
	checkout := &scriptedCheckout{session: &CheckoutSession{URL: "u", Ref: "cs_fee"}}

	issuer := NewIssuer(store, checkout, dir, logging.Default()).WithDefaultAmount(2990)
	if _, err := issuer.CreateCheckout(context.Background(), appt.ID, 0); err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if appt.AmountCents != 4500 {
		t.Fatalf("expected practitioner fee 4500, got %d", appt.AmountCents)
	}
}

func TestCreateCheckoutFallsBackToDefaultAmount(t *testing.T) {
	appt := pendingAppointment("")
	store := newFakeAppointmentStore(appt)
	checkout := &scriptedCheckout{session: &CheckoutSession{URL: "u", Ref: "cs_default"}}

	issuer := NewIssuer(store, checkout, &fakeDirectory{}, logging.Default()).WithDefaultAmount(2990)
	if _, err := issuer.CreateCheckout(context.Background(), appt.ID, 0); err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if appt.AmountCents != 2990 {
		t.Fatalf("expected default fee 2990, got %d", appt.AmountCents)
	}
}
