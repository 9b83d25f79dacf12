package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/quartermaster/booking-backend/internal/config"
	"github.com/quartermaster/booking-backend/internal/models"
)

func TestEmailDisabledShortCircuits(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: false}, "https://example.com", logrus.New())
	booking := &models.Booking{
		ConfirmationCode: "LV-A1B2C3D4",
		CustomerName:     "Sam Rivera",
		CustomerEmail:    "sam@example.com",
	}

	assert.NoError(t, svc.SendBookingConfirmation(booking, ""))
	assert.NoError(t, svc.SendRefundNotification(booking, 500))
	assert.NoError(t, svc.SendCancellationNotice(booking))
}
