package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
)

// RescheduleBooking moves all of a booking's ticket items to another trip
// of the same mission. The destination boat is auto-selected when the trip
// has exactly one; otherwise it must be named and assigned to the trip.
// Unit prices are kept as purchased; merchandise items stay where they are.
func (s *BookingService) RescheduleBooking(bookingID string, req *models.RescheduleBookingRequest) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	switch booking.BookingStatus {
	case models.BookingStatusDraft, models.BookingStatusConfirmed:
	default:
		return nil, fmt.Errorf("%w: cannot reschedule a %s booking", models.ErrInvalidState, booking.BookingStatus)
	}

	var ticketItems []models.BookingItem
	for _, item := range booking.Items {
		if item.IsTicket() && item.Status != models.BookingItemStatusRefunded {
			ticketItems = append(ticketItems, item)
		}
	}
	if len(ticketItems) == 0 {
		return nil, fmt.Errorf("%w: booking has no ticket items to reschedule", models.ErrValidation)
	}

	currentMission, err := s.missionRepo.GetForTrip(ticketItems[0].TripID)
	if err != nil {
		return nil, err
	}

	targetTrip, err := s.tripRepo.GetByID(req.TripID)
	if err != nil {
		return nil, err
	}
	if !targetTrip.Active {
		return nil, fmt.Errorf("%w: trip %s is not active", models.ErrValidation, targetTrip.ID)
	}
	if targetTrip.MissionID != currentMission.ID {
		return nil, fmt.Errorf("%w: bookings can only be rescheduled within the same mission", models.ErrValidation)
	}

	targetBoatID, err := s.resolveTargetBoat(targetTrip.ID, req.BoatID)
	if err != nil {
		return nil, err
	}

	// Destination capacity must fit the booking's full ticket set on top of
	// the seats already taken there. The booking's own seats are excluded
	// inside the transactional re-check, which covers moves onto the same
	// trip-boat.
	cache := make(map[string]*tripBoatPricing)
	pricing, err := s.pricingFor(cache, targetTrip.ID, targetBoatID)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]*database.SeatRequirement)
	totalQty := 0
	itemIDs := make([]string, 0, len(ticketItems))
	for _, item := range ticketItems {
		itemIDs = append(itemIDs, item.ID)
		totalQty += item.Quantity

		priced, found := FindTicketType(pricing.items, item.ItemType)
		if !found {
			return nil, fmt.Errorf("%w: ticket type %q is not offered at the destination",
				models.ErrNotFound, item.ItemType)
		}
		typeKey := models.TicketTypeKey(item.ItemType)
		if existing, ok := byType[typeKey]; ok {
			existing.Quantity += item.Quantity
		} else {
			byType[typeKey] = &database.SeatRequirement{
				TripID:   targetTrip.ID,
				BoatID:   targetBoatID,
				TypeKey:  typeKey,
				Quantity: item.Quantity,
				Capacity: priced.Capacity,
			}
		}
	}

	seatReqs := make([]database.SeatRequirement, 0, len(byType)+1)
	for _, r := range byType {
		seatReqs = append(seatReqs, *r)
	}
	seatReqs = append(seatReqs, database.SeatRequirement{
		TripID:   targetTrip.ID,
		BoatID:   targetBoatID,
		Quantity: totalQty,
		Capacity: pricing.capacity,
	})

	if err := s.bookingRepo.MoveTickets(booking, itemIDs, targetTrip.ID, targetBoatID, seatReqs); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"trip_id":    targetTrip.ID,
		"boat_id":    targetBoatID,
		"tickets":    totalQty,
	}).Info("Booking rescheduled")

	return s.bookingRepo.GetByID(booking.ID)
}

func (s *BookingService) resolveTargetBoat(tripID string, boatID *string) (string, error) {
	if boatID != nil && *boatID != "" {
		tripBoat, err := s.tripRepo.GetTripBoat(tripID, *boatID)
		if err != nil {
			return "", err
		}
		return tripBoat.BoatID, nil
	}

	tripBoats, err := s.tripRepo.ListTripBoats(tripID)
	if err != nil {
		return "", err
	}
	switch len(tripBoats) {
	case 0:
		return "", fmt.Errorf("%w: trip %s has no boats", models.ErrValidation, tripID)
	case 1:
		return tripBoats[0].BoatID, nil
	default:
		return "", fmt.Errorf("%w: trip %s has multiple boats, boat_id is required", models.ErrValidation, tripID)
	}
}

// ReassignPassengers moves every paid ticket on one boat of a trip to
// another boat on the same trip, after verifying the destination can absorb
// them per type and in total. Returns the number of items moved.
func (s *BookingService) ReassignPassengers(tripID string, req *models.ReassignPassengersRequest) (int, error) {
	if req.FromBoatID == req.ToBoatID {
		return 0, fmt.Errorf("%w: source and destination boats are the same", models.ErrValidation)
	}
	if _, err := s.tripRepo.GetTripBoat(tripID, req.FromBoatID); err != nil {
		return 0, err
	}

	cache := make(map[string]*tripBoatPricing)
	pricing, err := s.pricingFor(cache, tripID, req.ToBoatID)
	if err != nil {
		return 0, err
	}

	moving, err := s.bookingRepo.PaidTicketCountsByType(tripID, req.FromBoatID)
	if err != nil {
		return 0, err
	}

	var seatReqs []database.SeatRequirement
	totalQty := 0
	for typeKey, qty := range moving {
		totalQty += qty
		priced, found := FindTicketType(pricing.items, typeKey)
		if !found {
			return 0, fmt.Errorf("%w: ticket type %q is not offered on the destination boat",
				models.ErrValidation, typeKey)
		}
		capacity := priced.Capacity
		seatReqs = append(seatReqs, database.SeatRequirement{
			TripID:   tripID,
			BoatID:   req.ToBoatID,
			TypeKey:  typeKey,
			Quantity: qty,
			Capacity: capacity,
		})
	}
	if totalQty == 0 {
		return 0, nil
	}
	seatReqs = append(seatReqs, database.SeatRequirement{
		TripID:   tripID,
		BoatID:   req.ToBoatID,
		Quantity: totalQty,
		Capacity: pricing.capacity,
	})

	moved, err := s.bookingRepo.ReassignTickets(tripID, req.FromBoatID, req.ToBoatID, seatReqs)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":   tripID,
		"from_boat": req.FromBoatID,
		"to_boat":   req.ToBoatID,
		"moved":     moved,
	}).Info("Passengers reassigned")

	return moved, nil
}
