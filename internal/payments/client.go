package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebook/carebook-platform/pkg/logging"
)

var stripeTracer = otel.Tracer("carebook.internal.payments.stripe")

// CheckoutParams describes one consultation-fee checkout.
type CheckoutParams struct {
	AppointmentID uuid.UUID
	PatientID     string
	AmountCents   int64
	Currency      string
	Description   string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the processor's answer: a hosted payment page and an
// opaque transaction handle to match the confirmation against.
type CheckoutSession struct {
	URL string
	Ref string
}

// StripeCheckoutClient creates Stripe Checkout Sessions for consultation fees.
// The Stripe API is called directly over HTTP with form-encoded bodies.
type StripeCheckoutClient struct {
	secretKey  string
	successURL string
	cancelURL  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

// NewStripeCheckoutClient creates a new Stripe checkout client.
func NewStripeCheckoutClient(secretKey, successURL, cancelURL string, logger *logging.Logger) *StripeCheckoutClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeCheckoutClient{
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (c *StripeCheckoutClient) WithBaseURL(baseURL string) *StripeCheckoutClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithDryRun enables dry-run mode (returns fake URLs without calling Stripe).
func (c *StripeCheckoutClient) WithDryRun(enabled bool) *StripeCheckoutClient {
	c.dryRun = enabled
	return c
}

// CreateSession obtains a checkout session for the given amount and currency.
func (c *StripeCheckoutClient) CreateSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("carebook.appointment_id", params.AppointmentID.String()),
		attribute.Int64("carebook.amount_cents", params.AmountCents),
	)

	if c.dryRun {
		fakeID := "cs_dryrun_" + uuid.New().String()[:8]
		c.logger.Info("stripe dry run: skipping checkout session creation",
			"appointment_id", params.AppointmentID, "amount_cents", params.AmountCents)
		return &CheckoutSession{
			URL: fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID),
			Ref: fakeID,
		}, nil
	}

	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}
	description := strings.TrimSpace(params.Description)
	if description == "" {
		description = "Consultation fee"
	}
	successURL := params.SuccessURL
	if successURL == "" {
		successURL = c.successURL
	}
	cancelURL := params.CancelURL
	if cancelURL == "" {
		cancelURL = c.cancelURL
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", params.AmountCents))
	form.Set("line_items[0][price_data][product_data][name]", description)
	form.Set("line_items[0][quantity]", "1")
	if successURL != "" {
		form.Set("success_url", successURL)
	}
	if cancelURL != "" {
		form.Set("cancel_url", cancelURL)
	}

	// Metadata for webhook processing.
	form.Set("metadata[appointment_id]", params.AppointmentID.String())
	if params.PatientID != "" {
		form.Set("metadata[patient_id]", params.PatientID)
	}
	form.Set("payment_intent_data[metadata][appointment_id]", params.AppointmentID.String())

	apiURL := c.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: stripe decode: %w", err)
	}
	if parsed.URL == "" {
		return nil, fmt.Errorf("payments: stripe response missing checkout url")
	}

	// The session ID is the transaction handle: it is known at creation time
	// and echoed back on every webhook, unlike the payment intent which only
	// materializes at completion.
	return &CheckoutSession{URL: parsed.URL, Ref: parsed.ID}, nil
}

// stripeCheckoutSession is the subset of Stripe's Checkout Session we need.
type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
