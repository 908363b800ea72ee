package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments. All state transitions are single-statement
// conditional updates so concurrent writers (duplicate webhook deliveries,
// admin actions) cannot produce lost updates or illegal transitions.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mocked pgx interface for tests.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

const appointmentColumns = `id, practitioner_id, patient_id, scheduled_for, symptoms, notes,
	status, payment_status, payment_ref, amount_cents, paid_at, created_at, updated_at`

// Create inserts a new appointment row.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO appointments
		 (id, practitioner_id, patient_id, scheduled_for, symptoms, notes,
		  status, payment_status, amount_cents, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.PractitionerID, a.PatientID, a.ScheduledFor, a.Symptoms, a.Notes,
		a.Status, a.PaymentStatus, a.AmountCents, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// GetByID loads one appointment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

// GetByPaymentRef loads the appointment holding a processor transaction handle.
func (r *Repository) GetByPaymentRef(ctx context.Context, ref string) (*Appointment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE payment_ref = $1`, ref)
	return scanAppointment(row)
}

// SetPaymentIntent stores the processor handle and amount obtained for this
// appointment. It only applies while the booking is still payable: lifecycle
// pending and payment not yet settled. Re-issuing after a failed attempt is a
// requester-initiated retry, so "failed" moves back to "pending" here; a paid
// appointment never matches, which is what makes Issuer retries safe.
func (r *Repository) SetPaymentIntent(ctx context.Context, id uuid.UUID, ref string, amountCents int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments
		 SET payment_ref = $2, amount_cents = $3, payment_status = 'pending', updated_at = now()
		 WHERE id = $1 AND status = 'pending' AND payment_status IN ('pending', 'failed')`,
		id, ref, amountCents)
	if err != nil {
		return false, fmt.Errorf("appointments: set payment intent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaid applies the pending→paid transition for the appointment holding the
// given transaction handle. The WHERE guard makes duplicate confirmations
// no-ops: the second delivery matches zero rows and returns applied=false.
func (r *Repository) MarkPaid(ctx context.Context, ref string, amountCents int64, paidAt time.Time) (*Appointment, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE appointments
		 SET payment_status = 'paid', amount_cents = $2, paid_at = $3, updated_at = now()
		 WHERE payment_ref = $1 AND payment_status = 'pending'
		 RETURNING `+appointmentColumns,
		ref, amountCents, paidAt)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return a, true, nil
}

// MarkFailed applies the pending→failed transition. Lifecycle status is left
// untouched so the requester can retry payment.
func (r *Repository) MarkFailed(ctx context.Context, ref string) (*Appointment, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE appointments
		 SET payment_status = 'failed', updated_at = now()
		 WHERE payment_ref = $1 AND payment_status = 'pending'
		 RETURNING `+appointmentColumns,
		ref)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return a, true, nil
}

// Confirm applies the pending→confirmed lifecycle transition. The guard on
// payment_status enforces the invariant that only paid appointments confirm.
func (r *Repository) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments
		 SET status = 'confirmed', updated_at = now()
		 WHERE id = $1 AND status = 'pending' AND payment_status = 'paid'`,
		id)
	if err != nil {
		return false, fmt.Errorf("appointments: confirm: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel applies the administrative cancel. Completed appointments never match.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments
		 SET status = 'cancelled', updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'confirmed')`,
		id)
	if err != nil {
		return false, fmt.Errorf("appointments: cancel: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete marks a confirmed appointment as held.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments
		 SET status = 'completed', updated_at = now()
		 WHERE id = $1 AND status = 'confirmed'`,
		id)
	if err != nil {
		return false, fmt.Errorf("appointments: complete: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListReconcileCandidates returns appointments whose payment settled but whose
// confirm write has not landed yet. These rows are the reconciliation queue.
func (r *Repository) ListReconcileCandidates(ctx context.Context, limit int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE payment_status = 'paid' AND status = 'pending'
		 ORDER BY updated_at
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list reconcile candidates: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointmentValues(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	a, err := scanAppointmentValues(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAppointmentValues(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var paymentRef *string
	var paidAt *time.Time
	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.PatientID,
		&a.ScheduledFor,
		&a.Symptoms,
		&a.Notes,
		&a.Status,
		&a.PaymentStatus,
		&paymentRef,
		&a.AmountCents,
		&paidAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentRef != nil {
		a.PaymentRef = *paymentRef
	}
	a.PaidAt = paidAt
	return &a, nil
}
