package practitioners

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebook/carebook-platform/pkg/logging"
)

// Handler exposes the read-only directory endpoints.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

type practitionerResponse struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Specialty            string `json:"specialty"`
	ConsultationFeeCents int64  `json:"consultation_fee_cents"`
}

func toResponse(p *Practitioner) practitionerResponse {
	return practitionerResponse{
		ID:                   p.ID.String(),
		Name:                 p.Name,
		Specialty:            p.Specialty,
		ConsultationFeeCents: p.ConsultationFeeCents,
	}
}

// List handles GET /api/practitioners.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListActive(r.Context())
	if err != nil {
		h.logger.Error("practitioner list failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	out := make([]practitionerResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// Get handles GET /api/practitioners/{practitionerID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "practitionerID"))
	if err != nil {
		http.Error(w, "invalid practitioner id", http.StatusBadRequest)
		return
	}
	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "practitioner not found", http.StatusNotFound)
			return
		}
		h.logger.Error("practitioner lookup failed", "error", err, "practitioner_id", id)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(p))
}
