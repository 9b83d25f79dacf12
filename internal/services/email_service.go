package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/quartermaster/booking-backend/internal/config"
	"github.com/quartermaster/booking-backend/internal/models"
)

// EmailService sends booking notification emails over SMTP. Sending is
// best-effort; callers log failures but never fail the booking operation.
type EmailService struct {
	config *config.EmailConfig
	base   string
	logger *logrus.Logger
	dialer *gomail.Dialer
}

// NewEmailService creates a new EmailService
func NewEmailService(cfg *config.EmailConfig, publicBaseURL string, logger *logrus.Logger) *EmailService {
	var dialer *gomail.Dialer
	if cfg.Enabled {
		dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return &EmailService{
		config: cfg,
		base:   publicBaseURL,
		logger: logger,
		dialer: dialer,
	}
}

// SendBookingConfirmation emails the customer their confirmation code and a
// link to the booking page. localDeparture, when non-empty, is the trip
// departure already rendered in the launch location's timezone.
func (s *EmailService) SendBookingConfirmation(booking *models.Booking, localDeparture string) error {
	if !s.config.Enabled {
		s.logger.WithField("confirmation_code", booking.ConfirmationCode).
			Debug("Email disabled, skipping booking confirmation")
		return nil
	}

	subject := fmt.Sprintf("Your launch viewing booking %s", booking.ConfirmationCode)
	link := fmt.Sprintf("%s/bookings/%s", s.base, booking.ConfirmationCode)
	departureLine := ""
	if localDeparture != "" {
		departureLine = fmt.Sprintf("Departure: %s\n", localDeparture)
	}
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your booking is confirmed.\n\n"+
			"Confirmation code: %s\n"+
			"%s"+
			"Total: $%.2f\n\n"+
			"View your booking: %s\n\n"+
			"Bring your confirmation code or QR code to check-in.\n",
		booking.CustomerName, booking.ConfirmationCode, departureLine,
		float64(booking.TotalCents)/100, link)

	return s.send(booking.CustomerEmail, subject, body)
}

// SendCancellationNotice emails the customer that their booking was
// cancelled.
func (s *EmailService) SendCancellationNotice(booking *models.Booking) error {
	if !s.config.Enabled {
		return nil
	}

	subject := fmt.Sprintf("Booking %s cancelled", booking.ConfirmationCode)
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your booking %s has been cancelled.\n"+
			"If you believe this is a mistake, reply to this email and we will help.\n",
		booking.CustomerName, booking.ConfirmationCode)

	return s.send(booking.CustomerEmail, subject, body)
}

// SendRefundNotification emails the customer about a processed refund.
func (s *EmailService) SendRefundNotification(booking *models.Booking, amountCents int64) error {
	if !s.config.Enabled {
		return nil
	}

	subject := fmt.Sprintf("Refund processed for booking %s", booking.ConfirmationCode)
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"A refund of $%.2f has been processed for booking %s.\n"+
			"Refunds typically appear within 5-10 business days.\n",
		booking.CustomerName, float64(amountCents)/100, booking.ConfirmationCode)

	return s.send(booking.CustomerEmail, subject, body)
}

func (s *EmailService) send(to, subject, body string) error {
	message := gomail.NewMessage()
	message.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(message); err != nil {
		s.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).WithError(err).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.WithField("to", to).Info("Email sent")
	return nil
}
