package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apimiddleware "github.com/carebook/carebook-platform/internal/api/middleware"
	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/auth"
	"github.com/carebook/carebook-platform/internal/payments"
	"github.com/carebook/carebook-platform/internal/practitioners"
	"github.com/carebook/carebook-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	AppointmentsHandler  *appointments.Handler
	PractitionersHandler *practitioners.Handler
	CheckoutHandler      *payments.CheckoutHandler
	StripeWebhook        *payments.WebhookHandler
	MetricsHandler       http.Handler
	AuthJWTSecret        string
	AdminJWTSecret       string
	CORSAllowedOrigins   []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(apimiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks, practitioner directory)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.StripeWebhook != nil {
			public.Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.PractitionersHandler != nil {
			public.Route("/api/practitioners", func(r chi.Router) {
				r.Get("/", cfg.PractitionersHandler.List)
				r.Get("/{practitionerID}", cfg.PractitionersHandler.Get)
			})
		}
	})

	// Patient endpoints (protected by the session JWT)
	r.Group(func(patient chi.Router) {
		patient.Use(auth.RequirePatient(cfg.AuthJWTSecret))
		if cfg.AppointmentsHandler != nil {
			patient.Post("/api/appointments", cfg.AppointmentsHandler.Create)
			patient.Get("/api/appointments/{appointmentID}", cfg.AppointmentsHandler.Get)
		}
		if cfg.CheckoutHandler != nil {
			patient.Post("/api/payments/checkout", cfg.CheckoutHandler.CreateCheckout)
		}
	})

	// Admin lifecycle endpoints
	if cfg.AdminJWTSecret != "" && cfg.AppointmentsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(apimiddleware.AdminJWT(cfg.AdminJWTSecret))
			admin.Post("/appointments/{appointmentID}/cancel", cfg.AppointmentsHandler.Cancel)
			admin.Post("/appointments/{appointmentID}/complete", cfg.AppointmentsHandler.Complete)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
