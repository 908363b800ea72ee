package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebook/carebook-platform/internal/auth"
	"github.com/carebook/carebook-platform/internal/practitioners"
	"github.com/carebook/carebook-platform/pkg/logging"
)

// Handler exposes booking intake and the status poll endpoint.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type bookRequest struct {
	PractitionerID string `json:"practitioner_id"`
	ScheduledFor   string `json:"scheduled_for"`
	Symptoms       string `json:"symptoms"`
	Notes          string `json:"notes,omitempty"`
}

type appointmentResponse struct {
	ID             string     `json:"id"`
	PractitionerID string     `json:"practitioner_id"`
	ScheduledFor   time.Time  `json:"scheduled_for"`
	Status         string     `json:"status"`
	PaymentStatus  string     `json:"payment_status"`
	AmountCents    int64      `json:"amount_cents,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	Outcome        string     `json:"outcome"`
}

func toResponse(a *Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID.String(),
		PractitionerID: a.PractitionerID.String(),
		ScheduledFor:   a.ScheduledFor,
		Status:         string(a.Status),
		PaymentStatus:  string(a.PaymentStatus),
		AmountCents:    a.AmountCents,
		PaidAt:         a.PaidAt,
		Outcome:        a.Outcome(),
	}
}

// Create handles POST /api/appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	patientID, ok := auth.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing requester identity", http.StatusUnauthorized)
		return
	}
	patientUUID, err := uuid.Parse(patientID)
	if err != nil {
		http.Error(w, "invalid requester identity", http.StatusUnauthorized)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		http.Error(w, "invalid practitioner_id", http.StatusBadRequest)
		return
	}
	scheduledFor, err := time.Parse(time.RFC3339, req.ScheduledFor)
	if err != nil {
		http.Error(w, "invalid scheduled_for format", http.StatusBadRequest)
		return
	}

	a, err := h.svc.Book(r.Context(), BookRequest{
		PatientID:      patientUUID,
		PractitionerID: practitionerID,
		ScheduledFor:   scheduledFor,
		Symptoms:       req.Symptoms,
		Notes:          req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoRequester):
			http.Error(w, "missing requester identity", http.StatusUnauthorized)
		case errors.Is(err, ErrSymptomsRequired), errors.Is(err, ErrInvalidSchedule):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, practitioners.ErrNotFound):
			http.Error(w, "practitioner not found", http.StatusNotFound)
		default:
			h.logger.Error("booking failed", "error", err)
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toResponse(a))
}

// Get handles GET /api/appointments/{appointmentID}. This is the pull
// transport for status notifications: clients poll it after returning from
// the payment processor.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	patientID, ok := auth.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing requester identity", http.StatusUnauthorized)
		return
	}
	patientUUID, err := uuid.Parse(patientID)
	if err != nil {
		http.Error(w, "invalid requester identity", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	a, err := h.svc.Get(r.Context(), patientUUID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("appointment lookup failed", "error", err, "appointment_id", id)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(a))
}

// Cancel handles POST /admin/appointments/{appointmentID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

// Complete handles POST /admin/appointments/{appointmentID}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Complete)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID) error) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	if err := apply(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("lifecycle transition failed", "error", err, "appointment_id", id)
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
