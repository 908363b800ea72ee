package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/carebook/carebook-platform/pkg/logging"
)

// EmailSender sends emails. Implementations can be swapped without changing
// callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one email to deliver.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a SendGrid email sender, or nil when no API key
// is configured (callers treat a nil sender as email disabled).
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Carebook"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

// EmailNotifier renders a short operations email for settled or failed
// payments. Awaiting/reconciling states are not emailed; the reconcile worker
// owns those.
type EmailNotifier struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

func NewEmailNotifier(sender EmailSender, recipient string, logger *logging.Logger) *EmailNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailNotifier{sender: sender, recipient: recipient, logger: logger}
}

func (n *EmailNotifier) PublishStatus(ctx context.Context, evt StatusEvent) error {
	if n.sender == nil || n.recipient == "" {
		return nil
	}

	var subject, body string
	switch evt.Outcome {
	case "confirmed":
		subject = "Appointment confirmed: payment received"
		body = fmt.Sprintf(
			"Appointment %s is confirmed.\n\nAmount: $%.2f\nPaid at: %s\n",
			evt.AppointmentID, float64(evt.AmountCents)/100, evt.OccurredAt.Format("January 2, 2006 at 3:04 PM"))
	case "payment_failed":
		subject = "Appointment payment failed"
		body = fmt.Sprintf(
			"Payment for appointment %s did not complete. The booking remains pending so the patient can retry.\n",
			evt.AppointmentID)
	default:
		return nil
	}

	err := n.sender.Send(ctx, EmailMessage{To: n.recipient, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	n.logger.Info("status email sent", "to", n.recipient, "appointment_id", evt.AppointmentID, "outcome", evt.Outcome)
	return nil
}
