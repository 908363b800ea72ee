package practitioners

import (
	"context"
	"errors"
	"fmt"

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

// Repository provides read access to the practitioner directory.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("practitioners: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mocked pgx interface for tests.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

const practitionerColumns = `id, name, specialty, consultation_fee_cents, active, created_at, updated_at`

// GetByID loads one practitioner. Inactive practitioners are still returned;
// callers decide whether inactive entries are bookable.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+practitionerColumns+` FROM practitioners WHERE id = $1`, id)
	return scanPractitioner(row)
}

// ListActive returns the bookable directory, cheapest first.
func (r *Repository) ListActive(ctx context.Context) ([]Practitioner, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+practitionerColumns+` FROM practitioners
		 WHERE active ORDER BY consultation_fee_cents, name`)
	if err != nil {
		return nil, fmt.Errorf("practitioners: list: %w", err)
	}
	defer rows.Close()

	var out []Practitioner
	for rows.Next() {
		var p Practitioner
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.ConsultationFeeCents, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("practitioners: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("practitioners: rows: %w", err)
	}
	return out, nil
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.ConsultationFeeCents, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("practitioners: load: %w", err)
	}
	return &p, nil
}
