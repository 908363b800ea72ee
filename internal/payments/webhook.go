package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/observability/metrics"
	"github.com/carebook/carebook-platform/pkg/logging"
)

const webhookProvider = "stripe"

// webhookStore is the persistence surface the confirmation receiver needs.
type webhookStore interface {
	MarkPaid(ctx context.Context, ref string, amountCents int64, paidAt time.Time) (*appointments.Appointment, bool, error)
	MarkFailed(ctx context.Context, ref string) (*appointments.Appointment, bool, error)
	GetByPaymentRef(ctx context.Context, ref string) (*appointments.Appointment, error)
}

// WebhookHandler receives payment confirmations pushed by the processor and
// applies them to the owning appointment.
type WebhookHandler struct {
	secret     string
	store      webhookStore
	reconciler *Reconciler
	processed  ProcessedTracker
	logger     *logging.Logger
	metrics    *metrics.PaymentMetrics
}

func NewWebhookHandler(secret string, store webhookStore, reconciler *Reconciler, processed ProcessedTracker, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		secret:     secret,
		store:      store,
		reconciler: reconciler,
		processed:  processed,
		logger:     logger,
	}
}

// WithMetrics attaches flow metrics.
func (h *WebhookHandler) WithMetrics(m *metrics.PaymentMetrics) *WebhookHandler {
	h.metrics = m
	return h
}

// Handle processes incoming payment webhook events.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if !verifyWebhookSignature(h.secret, payload, sigHeader) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode webhook event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	var success bool
	switch evt.Type {
	case "checkout.session.completed":
		success = true
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		success = false
	default:
		// Not a settlement verdict; acknowledge and move on.
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.processed != nil {
		if done, err := h.processed.AlreadyProcessed(r.Context(), webhookProvider, evt.ID); err != nil {
			h.logger.Error("processed lookup failed", "error", err)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		} else if done {
			h.metrics.ObserveWebhook(evt.Type, "duplicate")
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	ref := evt.Data.Object.ID
	if ref == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	if success {
		h.handleSuccess(w, r, &evt, ref)
	} else {
		h.handleFailure(w, r, &evt, ref)
	}

	h.metrics.ObserveWebhookLatency(evt.Type, time.Since(started).Seconds())
}

func (h *WebhookHandler) handleSuccess(w http.ResponseWriter, r *http.Request, evt *webhookEvent, ref string) {
	paidAt := time.Unix(evt.Created, 0).UTC()
	amount := evt.Data.Object.AmountTotal

	appt, applied, err := h.store.MarkPaid(r.Context(), ref, amount, paidAt)
	if err != nil {
		h.logger.Error("failed to record payment", "error", err, "payment_ref", ref)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !applied {
		// Either the handle is unknown or the transition already happened.
		// The processor is the source of truth for the charge, so neither
		// case is an error worth a retry storm.
		existing, lookupErr := h.store.GetByPaymentRef(r.Context(), ref)
		switch {
		case errors.Is(lookupErr, appointments.ErrNotFound):
			h.logger.Warn("confirmation for unknown transaction handle",
				"event_id", evt.ID, "payment_ref", ref)
			h.metrics.ObserveWebhook(evt.Type, "unmatched")
		case lookupErr != nil:
			h.logger.Error("payment ref lookup failed", "error", lookupErr, "payment_ref", ref)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		default:
			h.logger.Info("payment already settled, skipping",
				"event_id", evt.ID, "appointment_id", existing.ID)
			h.metrics.ObserveWebhook(evt.Type, "duplicate")
		}
		h.markProcessed(r, evt.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.metrics.ObserveWebhook(evt.Type, "paid")

	if err := h.reconciler.ConfirmPaid(r.Context(), appt); err != nil {
		// Payment is durably recorded; the confirm write will be retried by
		// the reconcile worker. Acknowledge the webhook so the processor
		// does not re-deliver what is already applied.
		h.logger.Error("reconciliation pending after settled payment",
			"error", err, "appointment_id", appt.ID)
		h.metrics.ObserveWebhook(evt.Type, "reconciliation_pending")
	}

	h.markProcessed(r, evt.ID)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleFailure(w http.ResponseWriter, r *http.Request, evt *webhookEvent, ref string) {
	appt, applied, err := h.store.MarkFailed(r.Context(), ref)
	if err != nil {
		h.logger.Error("failed to record payment failure", "error", err, "payment_ref", ref)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !applied {
		h.logger.Warn("failure event without a pending payment", "event_id", evt.ID, "payment_ref", ref)
		h.metrics.ObserveWebhook(evt.Type, "unmatched")
		h.markProcessed(r, evt.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.metrics.ObserveWebhook(evt.Type, "failed")
	h.reconciler.RecordFailure(r.Context(), appt)
	h.markProcessed(r, evt.ID)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) markProcessed(r *http.Request, eventID string) {
	if h.processed == nil {
		return
	}
	if err := h.processed.MarkProcessed(r.Context(), webhookProvider, eventID); err != nil {
		h.logger.Error("failed to record processed event", "error", err, "event_id", eventID)
	}
}

// webhookEvent is the processor's event envelope.
type webhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object webhookSessionObject `json:"object"`
	} `json:"data"`
}

// webhookSessionObject is the checkout.session object from the webhook.
type webhookSessionObject struct {
	ID          string `json:"id"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// verifyWebhookSignature verifies a Stripe-style webhook signature:
// HMAC-SHA256 over "timestamp.payload", delivered as
// t=<timestamp>,v1=<signature>[,v1=<rotated_signature>].
func verifyWebhookSignature(secret string, payload []byte, header string) bool {
	if secret == "" {
		return true // bypass for development
	}
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	// 5 minute tolerance against replay.
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(time.Now().Unix()-ts) > 300 {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
