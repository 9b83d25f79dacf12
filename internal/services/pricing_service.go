package services

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
)

// PricingService resolves the effective ticket pricing and capacity for a
// trip-boat assignment by layering boat defaults, trip overrides and the
// live seat ledger.
type PricingService struct {
	tripRepo    *database.TripRepository
	boatRepo    *database.BoatRepository
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(
	tripRepo *database.TripRepository,
	boatRepo *database.BoatRepository,
	bookingRepo *database.BookingRepository,
	logger *logrus.Logger,
) *PricingService {
	return &PricingService{
		tripRepo:    tripRepo,
		boatRepo:    boatRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// MergeEffectivePricing layers trip-level overrides on top of boat-level
// defaults. When the assignment is flagged use_only_trip_pricing the boat
// layer is skipped entirely. Override capacity semantics: nil inherits the
// boat-level capacity for the type, an explicit 0 means unrestricted.
// Remaining is left at 0 here; ApplyRemaining fills it from the ledger.
func MergeEffectivePricing(
	tripBoat *models.TripBoat,
	boatPricing []models.BoatPricing,
	overrides []models.TripBoatPricing,
) []models.EffectivePricingItem {
	merged := make(map[string]*models.EffectivePricingItem)

	if !tripBoat.UseOnlyTripPricing {
		for _, bp := range boatPricing {
			merged[bp.TicketType] = &models.EffectivePricingItem{
				TicketType: bp.TicketType,
				PriceCents: bp.PriceCents,
				Capacity:   bp.Capacity,
			}
		}
	}

	for _, ov := range overrides {
		item, exists := merged[ov.TicketType]
		if !exists {
			item = &models.EffectivePricingItem{TicketType: ov.TicketType}
			merged[ov.TicketType] = item
		}
		item.PriceCents = ov.PriceCents
		if ov.Capacity != nil {
			item.Capacity = *ov.Capacity
		}
		// nil capacity keeps the boat-level value already in item.Capacity,
		// which is 0 (unrestricted) when the type only exists at trip level.
	}

	result := make([]models.EffectivePricingItem, 0, len(merged))
	for _, item := range merged {
		result = append(result, *item)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].TicketType < result[b].TicketType
	})
	return result
}

// ApplyRemaining fills each item's Remaining from the paid seat counts,
// keyed by normalized ticket type. Unrestricted types get -1.
func ApplyRemaining(items []models.EffectivePricingItem, paidByType map[string]int) {
	for i := range items {
		if items[i].Unrestricted() {
			items[i].Remaining = -1
			continue
		}
		remaining := items[i].Capacity - paidByType[models.TicketTypeKey(items[i].TicketType)]
		if remaining < 0 {
			remaining = 0
		}
		items[i].Remaining = remaining
	}
}

// FindTicketType locates a resolved pricing item for a requested type,
// first by exact name, then by normalized key so legacy "_ticket" suffixed
// names still match.
func FindTicketType(items []models.EffectivePricingItem, requested string) (*models.EffectivePricingItem, bool) {
	for i := range items {
		if items[i].TicketType == requested {
			return &items[i], true
		}
	}
	key := models.TicketTypeKey(requested)
	for i := range items {
		if models.TicketTypeKey(items[i].TicketType) == key {
			return &items[i], true
		}
	}
	return nil, false
}

// ResolveForTripBoat returns the full effective pricing for a trip-boat
// assignment with live remaining counts.
func (s *PricingService) ResolveForTripBoat(tripID, boatID string) ([]models.EffectivePricingItem, error) {
	tripBoat, err := s.tripRepo.GetTripBoat(tripID, boatID)
	if err != nil {
		return nil, err
	}
	return s.resolve(tripBoat)
}

func (s *PricingService) resolve(tripBoat *models.TripBoat) ([]models.EffectivePricingItem, error) {
	boatPricing, err := s.boatRepo.ListPricing(tripBoat.BoatID)
	if err != nil {
		return nil, err
	}
	overrides, err := s.tripRepo.ListTripBoatPricing(tripBoat.ID)
	if err != nil {
		return nil, err
	}

	items := MergeEffectivePricing(tripBoat, boatPricing, overrides)

	paidByType, err := s.bookingRepo.PaidTicketCountsByType(tripBoat.TripID, tripBoat.BoatID)
	if err != nil {
		return nil, err
	}
	ApplyRemaining(items, paidByType)

	s.logger.WithFields(logrus.Fields{
		"trip_id": tripBoat.TripID,
		"boat_id": tripBoat.BoatID,
		"types":   len(items),
	}).Debug("Resolved effective pricing")

	return items, nil
}

// EffectiveCapacity returns the total seat limit for a trip-boat assignment
func (s *PricingService) EffectiveCapacity(tripBoat *models.TripBoat) (int, error) {
	boat, err := s.boatRepo.GetByID(tripBoat.BoatID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve boat capacity: %w", err)
	}
	return tripBoat.EffectiveCapacity(boat.Capacity), nil
}
