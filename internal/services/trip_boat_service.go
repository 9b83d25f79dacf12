package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
)

// TripBoatService manages boat assignments and pricing on trips. Capacity
// mutations are guarded so the configured limits never drop below the
// seats already sold.
type TripBoatService struct {
	tripRepo    *database.TripRepository
	boatRepo    *database.BoatRepository
	bookingRepo *database.BookingRepository
	pricing     *PricingService
	logger      *logrus.Logger
}

// NewTripBoatService creates a new TripBoatService
func NewTripBoatService(
	tripRepo *database.TripRepository,
	boatRepo *database.BoatRepository,
	bookingRepo *database.BookingRepository,
	pricing *PricingService,
	logger *logrus.Logger,
) *TripBoatService {
	return &TripBoatService{
		tripRepo:    tripRepo,
		boatRepo:    boatRepo,
		bookingRepo: bookingRepo,
		pricing:     pricing,
		logger:      logger,
	}
}

// AvailabilityForTrip returns every boat on a trip with live capacity,
// per-type usage and resolved pricing.
func (s *TripBoatService) AvailabilityForTrip(tripID string) ([]models.TripBoatAvailability, error) {
	if _, err := s.tripRepo.GetByID(tripID); err != nil {
		return nil, err
	}
	tripBoats, err := s.tripRepo.ListTripBoats(tripID)
	if err != nil {
		return nil, err
	}

	result := make([]models.TripBoatAvailability, 0, len(tripBoats))
	for i := range tripBoats {
		tripBoat := &tripBoats[i]
		boat, err := s.boatRepo.GetByID(tripBoat.BoatID)
		if err != nil {
			return nil, err
		}
		capacity := tripBoat.EffectiveCapacity(boat.Capacity)

		taken, err := s.bookingRepo.PaidTicketCount(tripID, tripBoat.BoatID, nil)
		if err != nil {
			return nil, err
		}
		usedPerType, err := s.bookingRepo.PaidTicketCountsByType(tripID, tripBoat.BoatID)
		if err != nil {
			return nil, err
		}
		pricing, err := s.pricing.ResolveForTripBoat(tripID, tripBoat.BoatID)
		if err != nil {
			return nil, err
		}

		remaining := capacity - taken
		if remaining < 0 {
			remaining = 0
		}
		result = append(result, models.TripBoatAvailability{
			TripBoatID:        tripBoat.ID,
			BoatID:            tripBoat.BoatID,
			BoatName:          boat.Name,
			EffectiveCapacity: capacity,
			SeatsTaken:        taken,
			Remaining:         remaining,
			Pricing:           pricing,
			UsedPerTicketType: usedPerType,
		})
	}
	return result, nil
}

// CreateTripBoat assigns a boat to a trip
func (s *TripBoatService) CreateTripBoat(tripID string, req *models.CreateTripBoatRequest) (*models.TripBoat, error) {
	if _, err := s.tripRepo.GetByID(tripID); err != nil {
		return nil, err
	}
	if _, err := s.boatRepo.GetByID(req.BoatID); err != nil {
		return nil, err
	}
	if req.MaxCapacity != nil && *req.MaxCapacity < 0 {
		return nil, fmt.Errorf("%w: max_capacity must not be negative", models.ErrValidation)
	}

	tripBoat := &models.TripBoat{
		TripID:             tripID,
		BoatID:             req.BoatID,
		MaxCapacity:        req.MaxCapacity,
		UseOnlyTripPricing: req.UseOnlyTripPricing,
	}
	if err := s.tripRepo.CreateTripBoat(tripBoat); err != nil {
		return nil, err
	}
	return tripBoat, nil
}

// UpdateTripBoat updates an assignment. Shrinking the capacity override
// below the seats already sold is rejected.
func (s *TripBoatService) UpdateTripBoat(tripBoatID string, req *models.UpdateTripBoatRequest) (*models.TripBoat, error) {
	tripBoat, err := s.tripRepo.GetTripBoatByID(tripBoatID)
	if err != nil {
		return nil, err
	}

	if req.MaxCapacity != nil {
		if *req.MaxCapacity < 0 {
			return nil, fmt.Errorf("%w: max_capacity must not be negative", models.ErrValidation)
		}
		taken, err := s.bookingRepo.PaidTicketCount(tripBoat.TripID, tripBoat.BoatID, nil)
		if err != nil {
			return nil, err
		}
		if *req.MaxCapacity < taken {
			return nil, fmt.Errorf("%w: %d seats are already sold, capacity cannot drop to %d",
				models.ErrConflict, taken, *req.MaxCapacity)
		}
		tripBoat.MaxCapacity = req.MaxCapacity
	} else if req.ClearMaxCapacity {
		tripBoat.MaxCapacity = nil
	}
	if req.UseOnlyTripPricing != nil {
		tripBoat.UseOnlyTripPricing = *req.UseOnlyTripPricing
	}

	if err := s.tripRepo.UpdateTripBoat(tripBoat); err != nil {
		return nil, err
	}
	return tripBoat, nil
}

// DeleteTripBoat removes an assignment unless ticket items reference it
func (s *TripBoatService) DeleteTripBoat(tripBoatID string) error {
	tripBoat, err := s.tripRepo.GetTripBoatByID(tripBoatID)
	if err != nil {
		return err
	}
	count, err := s.bookingRepo.TicketItemCount(tripBoat.TripID, tripBoat.BoatID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d booking items reference this boat assignment", models.ErrConflict, count)
	}
	return s.tripRepo.DeleteTripBoat(tripBoatID)
}

// UpsertTripBoatPricing creates or updates one ticket-type override.
// Setting a restricted capacity below the seats already sold for that type
// is rejected.
func (s *TripBoatService) UpsertTripBoatPricing(tripBoatID string, req *models.TripBoatPricingRequest) (*models.TripBoatPricing, error) {
	tripBoat, err := s.tripRepo.GetTripBoatByID(tripBoatID)
	if err != nil {
		return nil, err
	}
	if req.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price_cents must not be negative", models.ErrValidation)
	}
	if req.Capacity != nil && *req.Capacity > 0 {
		typeKey := models.TicketTypeKey(req.TicketType)
		taken, err := s.bookingRepo.PaidTicketCountForType(tripBoat.TripID, tripBoat.BoatID, typeKey, nil)
		if err != nil {
			return nil, err
		}
		if *req.Capacity < taken {
			return nil, fmt.Errorf("%w: %d %q tickets are already sold, capacity cannot drop to %d",
				models.ErrConflict, taken, req.TicketType, *req.Capacity)
		}
	}

	pricing := &models.TripBoatPricing{
		TripBoatID: tripBoatID,
		TicketType: req.TicketType,
		PriceCents: req.PriceCents,
		Capacity:   req.Capacity,
	}
	if err := s.tripRepo.UpsertTripBoatPricing(pricing); err != nil {
		return nil, err
	}
	return pricing, nil
}

// DeleteTripBoatPricing removes one ticket-type override
func (s *TripBoatService) DeleteTripBoatPricing(tripBoatID, ticketType string) error {
	return s.tripRepo.DeleteTripBoatPricing(tripBoatID, ticketType)
}

// UpsertBoatPricing creates or updates a boat-level pricing row. The
// capacity applies to every trip using the boat's defaults, so a restricted
// capacity may not drop below the busiest trip's paid count for that type.
func (s *TripBoatService) UpsertBoatPricing(boatID string, req *models.CreateBoatPricingRequest) (*models.BoatPricing, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if _, err := s.boatRepo.GetByID(boatID); err != nil {
		return nil, err
	}
	if req.Capacity > 0 {
		typeKey := models.TicketTypeKey(req.TicketType)
		taken, err := s.bookingRepo.MaxPaidTicketsForBoatType(boatID, typeKey)
		if err != nil {
			return nil, err
		}
		if req.Capacity < taken {
			return nil, fmt.Errorf("%w: %d %q tickets are already sold, capacity cannot drop to %d",
				models.ErrConflict, taken, req.TicketType, req.Capacity)
		}
	}
	return s.boatRepo.UpsertPricing(boatID, req)
}

// DeleteBoatPricing removes a boat-level pricing row
func (s *TripBoatService) DeleteBoatPricing(boatID, ticketType string) error {
	return s.boatRepo.DeletePricing(boatID, ticketType)
}

// RenameTicketType renames a boat's ticket type and cascades the rename to
// trip overrides and booked items.
func (s *TripBoatService) RenameTicketType(boatID, oldType, newType string) error {
	if oldType == "" || newType == "" {
		return fmt.Errorf("%w: both old and new ticket types are required", models.ErrValidation)
	}
	if err := s.boatRepo.RenameTicketType(boatID, oldType, newType); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"boat_id": boatID,
		"old":     oldType,
		"new":     newType,
	}).Info("Ticket type renamed")
	return nil
}
