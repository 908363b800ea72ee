package practitioners

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var repoColumns = []string{
	"id", "name", "specialty", "consultation_fee_cents", "active", "created_at", "updated_at",
}

func practitionerRow(p *Practitioner) *pgxmock.Rows {
	return pgxmock.NewRows(repoColumns).AddRow(
		p.ID, p.Name, p.Specialty, p.ConsultationFeeCents, p.Active, p.CreatedAt, p.UpdatedAt,
	)
}

func TestGetByIDLoadsPractitioner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	p := &Practitioner{
		ID:                   uuid.New(),
		Name:                 "Dr. Okafor",
		Specialty:            "dermatology",
		ConsultationFeeCents: 4500,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	mock.ExpectQuery("SELECT (.+) FROM practitioners WHERE id").
		WithArgs(p.ID).
		WillReturnRows(practitionerRow(p))

	repo := NewRepositoryWithDB(mock)
	got, err := repo.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.Name != p.Name || got.ConsultationFeeCents != p.ConsultationFeeCents {
		t.Fatalf("unexpected practitioner: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDUnknownIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM practitioners WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(repoColumns))

	repo := NewRepositoryWithDB(mock)
	_, err = repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveReturnsDirectory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(repoColumns).
		AddRow(uuid.New(), "Dr. Lee", "gp", int64(2990), true, now, now).
		AddRow(uuid.New(), "Dr. Okafor", "dermatology", int64(4500), true, now, now)

	mock.ExpectQuery("SELECT (.+) FROM practitioners").
		WillReturnRows(rows)

	repo := NewRepositoryWithDB(mock)
	items, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 practitioners, got %d", len(items))
	}
}

func TestHandlerGetUnknownPractitioner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM practitioners WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(repoColumns))

	h := NewHandler(NewRepositoryWithDB(mock), nil)
	r := chi.NewRouter()
	r.Get("/api/practitioners/{practitionerID}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/api/practitioners/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
