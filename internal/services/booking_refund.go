package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/models"
)

// RefundBooking processes a refund against a booking. The amount defaults
// to everything still refundable and may never exceed it. When a payment
// intent is on file the Stripe refund runs first; its failure aborts the
// whole operation. Reason and notes are stamped on the booking and every
// item regardless of refund depth.
func (s *BookingService) RefundBooking(bookingID string, req *models.RefundBookingRequest) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	switch booking.BookingStatus {
	case models.BookingStatusConfirmed, models.BookingStatusCheckedIn, models.BookingStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: cannot refund a %s booking", models.ErrInvalidState, booking.BookingStatus)
	}

	remaining := booking.RemainingRefundableCents()
	amount := remaining
	if req.AmountCents != nil {
		amount = *req.AmountCents
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", models.ErrValidation)
	}
	if amount > remaining {
		return nil, fmt.Errorf("%w: refund amount %d exceeds refundable balance %d",
			models.ErrValidation, amount, remaining)
	}

	if booking.PaymentIntentID != nil && s.stripe.Enabled() {
		if _, err := s.stripe.RefundPayment(*booking.PaymentIntentID, amount); err != nil {
			return nil, err
		}
	}

	booking.RefundedAmountCents += amount
	booking.RefundReason = &req.Reason
	booking.RefundNotes = req.Notes

	full := booking.RefundedAmountCents >= booking.TotalCents
	if full {
		booking.BookingStatus = models.BookingStatusCancelled
		refunded := models.PaymentStatusRefunded
		booking.PaymentStatus = &refunded
	} else {
		partial := models.PaymentStatusPartiallyRefunded
		booking.PaymentStatus = &partial
	}

	if err := s.bookingRepo.ApplyRefund(booking, full); err != nil {
		return nil, err
	}

	if err := s.email.SendRefundNotification(booking, amount); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to send refund email")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"amount_cents": amount,
		"full":         full,
	}).Info("Refund processed")

	return s.bookingRepo.GetByID(booking.ID)
}
