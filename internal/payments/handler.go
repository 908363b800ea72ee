package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/auth"
	"github.com/carebook/carebook-platform/pkg/logging"
)

// CheckoutHandler exposes the payment-intent issuing endpoint.
type CheckoutHandler struct {
	issuer *Issuer
	logger *logging.Logger
}

func NewCheckoutHandler(issuer *Issuer, logger *logging.Logger) *CheckoutHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutHandler{issuer: issuer, logger: logger}
}

type checkoutRequest struct {
	AppointmentID string `json:"appointment_id"`
	AmountCents   int64  `json:"amount_cents,omitempty"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	PaymentRef  string `json:"payment_ref"`
	Provider    string `json:"provider"`
}

// CreateCheckout handles POST /api/payments/checkout.
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PatientIDFromContext(r.Context()); !ok {
		http.Error(w, "missing requester identity", http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		http.Error(w, "invalid appointment_id", http.StatusBadRequest)
		return
	}

	session, err := h.issuer.CreateCheckout(r.Context(), appointmentID, req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadyPaid), errors.Is(err, appointments.ErrInvalidTransition):
			http.Error(w, "payment already settled", http.StatusConflict)
		case errors.Is(err, ErrExternalService):
			h.logger.Error("checkout creation failed at provider", "error", err, "appointment_id", appointmentID)
			http.Error(w, "payment provider unavailable, please retry", http.StatusBadGateway)
		default:
			h.logger.Error("checkout creation failed", "error", err, "appointment_id", appointmentID)
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(checkoutResponse{
		CheckoutURL: session.URL,
		PaymentRef:  session.Ref,
		Provider:    webhookProvider,
	})
}
