package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
)

// UpdateBooking applies an admin PATCH: plain field edits, item quantity
// changes and status transitions. Field edits are gated by the per-state
// allow-list; checked-in bookings reject all edits.
func (s *BookingService) UpdateBooking(bookingID string, req *models.UpdateBookingRequest, asOf time.Time) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.applyFieldEdits(booking, req); err != nil {
		return nil, err
	}

	// Status transitions ride along with field edits but follow the
	// transition table, not the allow-list.
	var transitionTo *models.BookingStatus
	if req.BookingStatus != nil && *req.BookingStatus != booking.BookingStatus {
		if !models.CanTransition(booking.BookingStatus, *req.BookingStatus) {
			return nil, fmt.Errorf("%w: cannot move booking from %s to %s",
				models.ErrInvalidState, booking.BookingStatus, *req.BookingStatus)
		}
		transitionTo = req.BookingStatus
	}

	if len(req.ItemQuantities) > 0 {
		if !models.FieldMutable(booking.BookingStatus, "item_quantities") {
			return nil, fmt.Errorf("%w: items cannot be changed while booking is %s",
				models.ErrInvalidState, booking.BookingStatus)
		}
		updated, err := s.applyQuantityChanges(booking, req.ItemQuantities)
		if err != nil {
			return nil, err
		}
		// A status transition in the same PATCH applies on top of the
		// quantity changes.
		if transitionTo != nil {
			return s.applyTransition(updated, *transitionTo)
		}
		return updated, nil
	}

	if transitionTo != nil {
		return s.applyTransition(booking, *transitionTo)
	}

	if err := s.bookingRepo.UpdateFields(booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// applyFieldEdits copies requested plain-field changes onto the booking,
// enforcing the per-state allow-list.
func (s *BookingService) applyFieldEdits(booking *models.Booking, req *models.UpdateBookingRequest) error {
	type edit struct {
		field string
		set   func()
	}
	var edits []edit
	if req.CustomerName != nil {
		edits = append(edits, edit{"customer_name", func() { booking.CustomerName = *req.CustomerName }})
	}
	if req.CustomerEmail != nil {
		edits = append(edits, edit{"customer_email", func() { booking.CustomerEmail = *req.CustomerEmail }})
	}
	if req.CustomerPhone != nil {
		edits = append(edits, edit{"customer_phone", func() { booking.CustomerPhone = req.CustomerPhone }})
	}
	if req.BillingAddress != nil {
		edits = append(edits, edit{"billing_address", func() { booking.BillingAddress = req.BillingAddress }})
	}
	if req.SpecialRequests != nil {
		edits = append(edits, edit{"special_requests", func() { booking.SpecialRequests = req.SpecialRequests }})
	}
	if req.AdminNotes != nil {
		edits = append(edits, edit{"admin_notes", func() { booking.AdminNotes = req.AdminNotes }})
	}
	if req.LaunchUpdatesPref != nil {
		edits = append(edits, edit{"launch_updates_pref", func() { booking.LaunchUpdatesPref = *req.LaunchUpdatesPref }})
	}
	if req.PaymentStatus != nil {
		edits = append(edits, edit{"payment_status", func() { booking.PaymentStatus = req.PaymentStatus }})
	}
	if req.PaymentIntentID != nil {
		edits = append(edits, edit{"payment_intent_id", func() { booking.PaymentIntentID = req.PaymentIntentID }})
	}
	if req.TipCents != nil {
		edits = append(edits, edit{"tip_cents", func() {
			booking.TipCents = *req.TipCents
			booking.TotalCents = booking.SubtotalCents - booking.DiscountCents + booking.TaxCents + booking.TipCents
		}})
	}

	for _, e := range edits {
		if !models.FieldMutable(booking.BookingStatus, e.field) {
			return fmt.Errorf("%w: field %s cannot be changed while booking is %s",
				models.ErrInvalidState, e.field, booking.BookingStatus)
		}
		e.set()
	}
	return nil
}

// applyTransition persists a validated status change with its side effects.
func (s *BookingService) applyTransition(booking *models.Booking, to models.BookingStatus) (*models.Booking, error) {
	from := booking.BookingStatus
	booking.BookingStatus = to

	switch to {
	case models.BookingStatusCancelled:
		paymentRefunded := booking.PaymentStatus != nil &&
			(*booking.PaymentStatus == models.PaymentStatusRefunded ||
				*booking.PaymentStatus == models.PaymentStatusPartiallyRefunded)
		if !paymentRefunded {
			failed := models.PaymentStatusFailed
			booking.PaymentStatus = &failed
		}
		// Items follow the money: refunded payments free the inventory,
		// anything else keeps the items active for bookkeeping.
		if err := s.bookingRepo.Cancel(booking, paymentRefunded, paymentRefunded); err != nil {
			return nil, err
		}
		if err := s.email.SendCancellationNotice(booking); err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to send cancellation email")
		}

	case models.BookingStatusCheckedIn:
		if err := s.bookingRepo.CheckIn(booking); err != nil {
			return nil, err
		}
		for i := range booking.Items {
			if booking.Items[i].Status == models.BookingItemStatusActive {
				booking.Items[i].Status = models.BookingItemStatusFulfilled
			}
		}

	default:
		if err := s.bookingRepo.UpdateFields(booking); err != nil {
			return nil, err
		}
	}

	if from == models.BookingStatusDraft && to == models.BookingStatusConfirmed {
		s.sendConfirmation(booking)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"from":       from,
		"to":         to,
	}).Info("Booking status changed")

	return booking, nil
}

// applyQuantityChanges re-verifies capacity for the post-change item set
// (excluding this booking's own seats), recomputes totals and persists
// everything atomically. A quantity of zero removes the item and releases
// its inventory.
func (s *BookingService) applyQuantityChanges(booking *models.Booking, quantities map[string]int) (*models.Booking, error) {
	changes := make([]database.ItemQuantityChange, 0, len(quantities))
	var stockReqs []database.StockRequirement

	// Project the booking's items into their post-change state.
	projected := make([]models.BookingItem, 0, len(booking.Items))
	byID := make(map[string]*models.BookingItem, len(booking.Items))
	for i := range booking.Items {
		byID[booking.Items[i].ID] = &booking.Items[i]
	}
	for itemID, newQty := range quantities {
		item, found := byID[itemID]
		if !found {
			return nil, fmt.Errorf("%w: booking item %s", models.ErrNotFound, itemID)
		}
		if newQty < 0 {
			return nil, fmt.Errorf("%w: quantity must not be negative", models.ErrValidation)
		}
		changes = append(changes, database.ItemQuantityChange{ItemID: itemID, NewQuantity: newQty})

		if item.MerchandiseVariationID != nil && newQty > item.Quantity {
			offer, err := s.merchRepo.GetTripOffer(*item.TripMerchandiseID)
			if err != nil {
				return nil, err
			}
			stockReqs = append(stockReqs, database.StockRequirement{
				VariationID:       *item.MerchandiseVariationID,
				TripMerchandiseID: offer.ID,
				Quantity:          newQty - item.Quantity,
				OverrideCap:       offer.QuantityAvailableOverride,
			})
		}
	}
	for i := range booking.Items {
		item := booking.Items[i]
		if newQty, changed := quantities[item.ID]; changed {
			if newQty == 0 {
				continue
			}
			item.Quantity = newQty
		}
		projected = append(projected, item)
	}

	seatReqs, err := s.seatRequirementsFor(projected)
	if err != nil {
		return nil, err
	}

	if err := s.recomputeTotals(booking, projected); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.ApplyItemChanges(booking, changes, seatReqs, stockReqs); err != nil {
		return nil, err
	}
	return s.bookingRepo.GetByID(booking.ID)
}

// UpdateBookingItem changes a ticket item's type and/or boat within the
// same trip. The unit price is re-resolved from effective pricing and the
// booking's totals are recomputed.
func (s *BookingService) UpdateBookingItem(bookingID, itemID string, req *models.UpdateBookingItemRequest) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if !models.FieldMutable(booking.BookingStatus, "item_quantities") {
		return nil, fmt.Errorf("%w: items cannot be changed while booking is %s",
			models.ErrInvalidState, booking.BookingStatus)
	}

	var item *models.BookingItem
	for i := range booking.Items {
		if booking.Items[i].ID == itemID {
			item = &booking.Items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("%w: booking item %s", models.ErrNotFound, itemID)
	}
	if !item.IsTicket() {
		return nil, fmt.Errorf("%w: only ticket items can change type or boat", models.ErrValidation)
	}

	newType := item.ItemType
	if req.ItemType != nil {
		newType = *req.ItemType
	}
	newBoatID := *item.BoatID
	if req.BoatID != nil {
		newBoatID = *req.BoatID
	}
	if newType == item.ItemType && newBoatID == *item.BoatID {
		return booking, nil
	}

	cache := make(map[string]*tripBoatPricing)
	pricing, err := s.pricingFor(cache, item.TripID, newBoatID)
	if err != nil {
		return nil, err
	}
	priced, found := FindTicketType(pricing.items, newType)
	if !found {
		return nil, fmt.Errorf("%w: ticket type %q is not offered on this boat", models.ErrNotFound, newType)
	}

	item.ItemType = priced.TicketType
	item.BoatID = &newBoatID
	item.PricePerUnitCents = priced.PriceCents

	seatReqs, err := s.seatRequirementsWithCache(booking.Items, cache)
	if err != nil {
		return nil, err
	}

	if err := s.recomputeTotals(booking, booking.Items); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.UpdateItem(booking, item, seatReqs); err != nil {
		return nil, err
	}
	return s.bookingRepo.GetByID(booking.ID)
}

// CheckIn marks a booking checked in by confirmation code. Repeat check-ins
// are idempotent and never double-count fulfillment. An optional trip or
// boat context must match one of the booking's items.
func (s *BookingService) CheckIn(confirmationCode string, req *models.CheckInRequest) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByConfirmationCode(confirmationCode)
	if err != nil {
		return nil, err
	}

	if req != nil && (req.TripID != nil || req.BoatID != nil) {
		matched := false
		for _, item := range booking.Items {
			if req.TripID != nil && item.TripID != *req.TripID {
				continue
			}
			if req.BoatID != nil && (item.BoatID == nil || *item.BoatID != *req.BoatID) {
				continue
			}
			matched = true
			break
		}
		if !matched {
			return nil, fmt.Errorf("%w: booking has no items for the given trip or boat", models.ErrValidation)
		}
	}

	switch booking.BookingStatus {
	case models.BookingStatusCheckedIn:
		return booking, nil
	case models.BookingStatusConfirmed:
	default:
		return nil, fmt.Errorf("%w: booking is %s, only confirmed bookings can check in",
			models.ErrInvalidState, booking.BookingStatus)
	}

	booking.BookingStatus = models.BookingStatusCheckedIn
	if err := s.bookingRepo.CheckIn(booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"confirmation_code": booking.ConfirmationCode,
	}).Info("Booking checked in")

	return s.bookingRepo.GetByID(booking.ID)
}

// RevertCheckIn returns a checked-in booking to confirmed, unwinding item
// fulfillment exactly.
func (s *BookingService) RevertCheckIn(confirmationCode string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByConfirmationCode(confirmationCode)
	if err != nil {
		return nil, err
	}
	if booking.BookingStatus != models.BookingStatusCheckedIn {
		return nil, fmt.Errorf("%w: booking is %s, only checked-in bookings can be reverted",
			models.ErrInvalidState, booking.BookingStatus)
	}

	booking.BookingStatus = models.BookingStatusConfirmed
	if err := s.bookingRepo.RevertCheckIn(booking); err != nil {
		return nil, err
	}
	return s.bookingRepo.GetByID(booking.ID)
}

// DeleteBooking removes a booking entirely, releasing its merchandise
// reservations. Admin only; cancellation is the customer-facing path.
func (s *BookingService) DeleteBooking(bookingID string) error {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if err := s.bookingRepo.Delete(booking); err != nil {
		return err
	}
	s.logger.WithField("booking_id", bookingID).Info("Booking deleted")
	return nil
}

// ResendConfirmationEmail re-sends the confirmation email for a live
// booking.
func (s *BookingService) ResendConfirmationEmail(bookingID string) error {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return err
	}
	switch booking.BookingStatus {
	case models.BookingStatusConfirmed, models.BookingStatusCheckedIn, models.BookingStatusCompleted:
	default:
		return fmt.Errorf("%w: cannot email a %s booking", models.ErrInvalidState, booking.BookingStatus)
	}
	s.sendConfirmation(booking)
	return nil
}

func (s *BookingService) sendConfirmation(booking *models.Booking) {
	if err := s.email.SendBookingConfirmation(booking, s.localDepartureTime(booking)); err != nil {
		return
	}
	if err := s.bookingRepo.MarkEmailSent(booking.ID, time.Now()); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to stamp email timestamp")
	}
}

// localDepartureTime renders the booking's trip departure in the launch
// location's timezone for the confirmation email. Best-effort; an empty
// string omits the line.
func (s *BookingService) localDepartureTime(booking *models.Booking) string {
	item := booking.FirstDisplayItem()
	if item == nil || !item.IsTicket() {
		return ""
	}
	trip, err := s.tripRepo.GetByID(item.TripID)
	if err != nil || trip.DepartureTime == nil {
		return ""
	}
	tz, err := s.missionRepo.GetTimezoneForTrip(item.TripID)
	if err != nil {
		return trip.DepartureTime.Format("Monday, Jan 2 2006 at 3:04 PM")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return trip.DepartureTime.Format("Monday, Jan 2 2006 at 3:04 PM")
	}
	return trip.DepartureTime.In(loc).Format("Monday, Jan 2 2006 at 3:04 PM MST")
}

// recomputeTotals rebuilds the booking's money columns from the given item
// set. With no surviving items, tax and total drop to zero while the stored
// discount is kept for bookkeeping.
func (s *BookingService) recomputeTotals(booking *models.Booking, items []models.BookingItem) error {
	subtotal := ComputeSubtotal(items)
	if subtotal == 0 {
		booking.SubtotalCents = 0
		booking.TaxCents = 0
		booking.TotalCents = 0
		return nil
	}

	taxRate, err := s.missionRepo.GetSalesTaxRateForTrip(items[0].TripID)
	if err != nil {
		return err
	}
	ApplyTotals(booking, ComputeTotals(subtotal, booking.DiscountCents, booking.TipCents, taxRate))
	return nil
}

// seatRequirementsFor groups a booking's ticket items into per-type and
// whole-boat capacity requirements with freshly resolved capacities.
func (s *BookingService) seatRequirementsFor(items []models.BookingItem) ([]database.SeatRequirement, error) {
	return s.seatRequirementsWithCache(items, make(map[string]*tripBoatPricing))
}

func (s *BookingService) seatRequirementsWithCache(
	items []models.BookingItem,
	cache map[string]*tripBoatPricing,
) ([]database.SeatRequirement, error) {
	byType := make(map[string]*database.SeatRequirement)
	total := make(map[string]*database.SeatRequirement)

	for _, item := range items {
		if !item.IsTicket() || item.Status == models.BookingItemStatusRefunded {
			continue
		}
		pricing, err := s.pricingFor(cache, item.TripID, *item.BoatID)
		if err != nil {
			return nil, err
		}
		priced, found := FindTicketType(pricing.items, item.ItemType)
		if !found {
			return nil, fmt.Errorf("%w: ticket type %q is not offered on this boat",
				models.ErrValidation, item.ItemType)
		}
		typeCapacity := priced.Capacity

		typeKey := models.TicketTypeKey(item.ItemType)
		seatKey := item.TripID + "/" + *item.BoatID
		if existing, ok := byType[seatKey+"/"+typeKey]; ok {
			existing.Quantity += item.Quantity
		} else {
			byType[seatKey+"/"+typeKey] = &database.SeatRequirement{
				TripID:   item.TripID,
				BoatID:   *item.BoatID,
				TypeKey:  typeKey,
				Quantity: item.Quantity,
				Capacity: typeCapacity,
			}
		}
		if existing, ok := total[seatKey]; ok {
			existing.Quantity += item.Quantity
		} else {
			total[seatKey] = &database.SeatRequirement{
				TripID:   item.TripID,
				BoatID:   *item.BoatID,
				Quantity: item.Quantity,
				Capacity: pricing.capacity,
			}
		}
	}

	reqs := make([]database.SeatRequirement, 0, len(byType)+len(total))
	for _, req := range byType {
		reqs = append(reqs, *req)
	}
	for _, req := range total {
		reqs = append(reqs, *req)
	}
	return reqs, nil
}
