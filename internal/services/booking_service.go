package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/config"
	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
	"github.com/quartermaster/booking-backend/pkg/qrcode"
)

// BookingService implements booking admission and lifecycle operations.
// Every mutation is committed in a single repository transaction; capacity
// and stock conditions are re-verified there under row locks.
type BookingService struct {
	bookingRepo  *database.BookingRepository
	tripRepo     *database.TripRepository
	boatRepo     *database.BoatRepository
	missionRepo  *database.MissionRepository
	merchRepo    *database.MerchandiseRepository
	discountRepo *database.DiscountRepository
	pricing      *PricingService
	stripe       *StripeService
	email        *EmailService
	config       *config.BookingConfig
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	tripRepo *database.TripRepository,
	boatRepo *database.BoatRepository,
	missionRepo *database.MissionRepository,
	merchRepo *database.MerchandiseRepository,
	discountRepo *database.DiscountRepository,
	pricing *PricingService,
	stripe *StripeService,
	email *EmailService,
	cfg *config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		tripRepo:     tripRepo,
		boatRepo:     boatRepo,
		missionRepo:  missionRepo,
		merchRepo:    merchRepo,
		discountRepo: discountRepo,
		pricing:      pricing,
		stripe:       stripe,
		email:        email,
		config:       cfg,
		logger:       logger,
	}
}

// tripBoatPricing caches the resolved pricing and capacity of one trip-boat
// assignment during admission.
type tripBoatPricing struct {
	tripBoat *models.TripBoat
	items    []models.EffectivePricingItem
	capacity int
}

// CreateBooking runs the admission pipeline and atomically persists the
// booking as a draft. The actor is the authenticated admin, or nil for
// public requests; asOf is the instant booking-mode windows are evaluated
// against.
func (s *BookingService) CreateBooking(
	req *models.CreateBookingRequest,
	actor *models.AdminUser,
	asOf time.Time,
) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	trips, mission, err := s.resolveTripsAndMission(req.Items)
	if err != nil {
		return nil, err
	}

	if err := s.checkBookingAccess(trips, mission, req.AccessCode, actor, asOf); err != nil {
		return nil, err
	}

	items, seatReqs, stockReqs, err := s.buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := ComputeSubtotal(items)

	var discountCodeID *string
	var discountCents int64
	if req.DiscountCode != nil && *req.DiscountCode != "" {
		code, err := s.discountRepo.GetByCode(*req.DiscountCode)
		if err != nil {
			return nil, err
		}
		if !code.UsableAt(asOf) {
			return nil, fmt.Errorf("%w: discount code %q is not usable", models.ErrValidation, code.Code)
		}
		discountCents = code.DiscountCents(subtotal)
		discountCodeID = &code.ID
	}

	taxRate, err := s.missionRepo.GetSalesTaxRateForTrip(req.Items[0].TripID)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(subtotal, discountCents, req.TipCents, taxRate)

	code, err := s.resolveConfirmationCode(req)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ConfirmationCode:  code,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     req.CustomerPhone,
		BillingAddress:    req.BillingAddress,
		SpecialRequests:   req.SpecialRequests,
		LaunchUpdatesPref: req.LaunchUpdatesPref,
		DiscountCodeID:    discountCodeID,
		BookingStatus:     models.BookingStatusDraft,
	}
	ApplyTotals(booking, totals)

	qr, err := qrcode.GenerateBase64PNG(s.qrPayload(code), 0)
	if err != nil {
		// QR generation is best-effort; the code itself is authoritative.
		s.logger.WithError(err).WithField("confirmation_code", code).Warn("Failed to generate QR code")
	} else {
		booking.QRCodeBase64 = &qr
	}

	if err := s.bookingRepo.Create(booking, items, seatReqs, stockReqs); err != nil {
		return nil, err
	}

	if discountCodeID != nil {
		if err := s.discountRepo.IncrementUsage(*discountCodeID); err != nil {
			s.logger.WithError(err).Warn("Failed to increment discount usage")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"confirmation_code": booking.ConfirmationCode,
		"items":             len(booking.Items),
		"total_cents":       booking.TotalCents,
	}).Info("Booking admitted")

	return booking, nil
}

// DuplicateBooking re-admits a copy of an existing booking with a fresh
// confirmation code, re-running the full admission pipeline against current
// capacity. Admin only.
func (s *BookingService) DuplicateBooking(bookingID string, actor *models.AdminUser, asOf time.Time) (*models.Booking, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: duplicating bookings requires an admin", models.ErrAccessDenied)
	}
	source, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	req := &models.CreateBookingRequest{
		CustomerName:      source.CustomerName,
		CustomerEmail:     source.CustomerEmail,
		CustomerPhone:     source.CustomerPhone,
		BillingAddress:    source.BillingAddress,
		SpecialRequests:   source.SpecialRequests,
		LaunchUpdatesPref: source.LaunchUpdatesPref,
		TipCents:          source.TipCents,
	}
	for _, item := range source.Items {
		req.Items = append(req.Items, models.BookingItemRequest{
			TripID:                 item.TripID,
			BoatID:                 item.BoatID,
			TripMerchandiseID:      item.TripMerchandiseID,
			MerchandiseVariationID: item.MerchandiseVariationID,
			ItemType:               item.ItemType,
			Quantity:               item.Quantity,
			PricePerUnitCents:      item.PricePerUnitCents,
			VariantOption:          item.VariantOption,
		})
	}
	return s.CreateBooking(req, actor, asOf)
}

// resolveTripsAndMission loads the trips referenced by the items, checks
// they are active, and verifies they all belong to one active mission.
func (s *BookingService) resolveTripsAndMission(items []models.BookingItemRequest) (map[string]*models.Trip, *models.Mission, error) {
	tripIDs := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		if !seen[item.TripID] {
			seen[item.TripID] = true
			tripIDs = append(tripIDs, item.TripID)
		}
	}

	trips, err := s.tripRepo.GetByIDs(tripIDs)
	if err != nil {
		return nil, nil, err
	}

	var missionID string
	for _, tripID := range tripIDs {
		trip, found := trips[tripID]
		if !found {
			return nil, nil, fmt.Errorf("%w: trip %s", models.ErrNotFound, tripID)
		}
		if !trip.Active {
			return nil, nil, fmt.Errorf("%w: trip %s is not active", models.ErrValidation, tripID)
		}
		if missionID == "" {
			missionID = trip.MissionID
		} else if trip.MissionID != missionID {
			return nil, nil, fmt.Errorf("%w: all items must belong to a single mission", models.ErrValidation)
		}
	}

	mission, err := s.missionRepo.GetByID(missionID)
	if err != nil {
		return nil, nil, err
	}
	if !mission.Active {
		return nil, nil, fmt.Errorf("%w: mission %s is not active", models.ErrValidation, mission.ID)
	}
	return trips, mission, nil
}

// checkBookingAccess enforces each trip's effective booking mode. Admins
// bypass both gates; early-bird trips require a valid access code scoped to
// the mission.
func (s *BookingService) checkBookingAccess(
	trips map[string]*models.Trip,
	mission *models.Mission,
	accessCode *string,
	actor *models.AdminUser,
	asOf time.Time,
) error {
	if actor != nil {
		return nil
	}
	for _, trip := range trips {
		switch trip.EffectiveBookingMode(asOf) {
		case models.BookingModePrivate:
			return fmt.Errorf("%w: trip %s is private", models.ErrAccessDenied, trip.ID)
		case models.BookingModeEarlyBird:
			if accessCode == nil || *accessCode == "" {
				return fmt.Errorf("%w: trip %s requires an access code", models.ErrAccessDenied, trip.ID)
			}
			code, err := s.discountRepo.GetByCode(*accessCode)
			if err != nil {
				return fmt.Errorf("%w: invalid access code", models.ErrAccessDenied)
			}
			if !code.GrantsAccessTo(mission.ID, asOf) {
				return fmt.Errorf("%w: access code does not grant access to this mission", models.ErrAccessDenied)
			}
		}
	}
	return nil
}

// buildItems validates every requested line against effective pricing and
// inventory, and produces the persisted items plus the capacity and stock
// requirements to re-verify at commit time.
func (s *BookingService) buildItems(reqs []models.BookingItemRequest) (
	[]models.BookingItem,
	[]database.SeatRequirement,
	[]database.StockRequirement,
	error,
) {
	pricingCache := make(map[string]*tripBoatPricing)
	items := make([]models.BookingItem, 0, len(reqs))
	var stockReqs []database.StockRequirement

	ticketsByType := make(map[string]*database.SeatRequirement)
	ticketsTotal := make(map[string]*database.SeatRequirement)

	for _, req := range reqs {
		if req.IsTicket() {
			pricing, err := s.pricingFor(pricingCache, req.TripID, *req.BoatID)
			if err != nil {
				return nil, nil, nil, err
			}
			priced, found := FindTicketType(pricing.items, req.ItemType)
			if !found {
				return nil, nil, nil, fmt.Errorf("%w: ticket type %q is not offered on this boat",
					models.ErrNotFound, req.ItemType)
			}
			if priced.PriceCents != req.PricePerUnitCents {
				return nil, nil, nil, fmt.Errorf("%w: ticket type %q costs %d cents, request says %d",
					models.ErrPriceMismatch, req.ItemType, priced.PriceCents, req.PricePerUnitCents)
			}

			typeKey := models.TicketTypeKey(req.ItemType)
			seatKey := req.TripID + "/" + *req.BoatID
			if existing, ok := ticketsByType[seatKey+"/"+typeKey]; ok {
				existing.Quantity += req.Quantity
			} else {
				ticketsByType[seatKey+"/"+typeKey] = &database.SeatRequirement{
					TripID:   req.TripID,
					BoatID:   *req.BoatID,
					TypeKey:  typeKey,
					Quantity: req.Quantity,
					Capacity: priced.Capacity,
				}
			}
			if existing, ok := ticketsTotal[seatKey]; ok {
				existing.Quantity += req.Quantity
			} else {
				ticketsTotal[seatKey] = &database.SeatRequirement{
					TripID:   req.TripID,
					BoatID:   *req.BoatID,
					Quantity: req.Quantity,
					Capacity: pricing.capacity,
				}
			}

			items = append(items, models.BookingItem{
				TripID:            req.TripID,
				BoatID:            req.BoatID,
				ItemType:          req.ItemType,
				Quantity:          req.Quantity,
				PricePerUnitCents: req.PricePerUnitCents,
				Status:            models.BookingItemStatusActive,
			})
			continue
		}

		item, stockReq, err := s.buildMerchandiseItem(&req)
		if err != nil {
			return nil, nil, nil, err
		}
		items = append(items, *item)
		stockReqs = append(stockReqs, *stockReq)
	}

	seatReqs := make([]database.SeatRequirement, 0, len(ticketsByType)+len(ticketsTotal))
	for _, req := range ticketsByType {
		seatReqs = append(seatReqs, *req)
	}
	for _, req := range ticketsTotal {
		seatReqs = append(seatReqs, *req)
	}
	return items, seatReqs, stockReqs, nil
}

// buildMerchandiseItem validates one merchandise line: the offer must be on
// the item's trip, the price must match exactly, and the variant must be
// given or resolvable from the option text.
func (s *BookingService) buildMerchandiseItem(req *models.BookingItemRequest) (*models.BookingItem, *database.StockRequirement, error) {
	offer, err := s.merchRepo.GetTripOffer(*req.TripMerchandiseID)
	if err != nil {
		return nil, nil, err
	}
	if offer.TripID != req.TripID {
		return nil, nil, fmt.Errorf("%w: merchandise offer %s is not sold on trip %s",
			models.ErrValidation, offer.ID, req.TripID)
	}

	price := offer.EffectivePriceCents(offer.Merchandise.PriceCents)
	if price != req.PricePerUnitCents {
		return nil, nil, fmt.Errorf("%w: merchandise %q costs %d cents, request says %d",
			models.ErrPriceMismatch, offer.Merchandise.Name, price, req.PricePerUnitCents)
	}

	var variation *models.MerchandiseVariation
	switch {
	case req.MerchandiseVariationID != nil:
		variation, err = s.merchRepo.GetVariation(*req.MerchandiseVariationID)
		if err != nil {
			return nil, nil, err
		}
		if variation.MerchandiseID != offer.MerchandiseID {
			return nil, nil, fmt.Errorf("%w: variation does not belong to merchandise %q",
				models.ErrValidation, offer.Merchandise.Name)
		}
	case req.VariantOption != nil && *req.VariantOption != "":
		variation, err = s.merchRepo.FindVariation(offer.MerchandiseID, *req.VariantOption)
		if err != nil {
			return nil, nil, err
		}
	default:
		variations, err := s.merchRepo.ListVariations(offer.MerchandiseID)
		if err != nil {
			return nil, nil, err
		}
		if len(variations) > 0 {
			return nil, nil, fmt.Errorf("%w: merchandise %q requires a variant selection",
				models.ErrValidation, offer.Merchandise.Name)
		}
		return nil, nil, fmt.Errorf("%w: merchandise %q has no sellable variants",
			models.ErrValidation, offer.Merchandise.Name)
	}

	available := variation.Available()
	if offer.QuantityAvailableOverride != nil {
		sold, err := s.bookingRepo.MerchandiseSoldForOffer(offer.ID)
		if err != nil {
			return nil, nil, err
		}
		if capRemaining := *offer.QuantityAvailableOverride - sold; capRemaining < available {
			available = capRemaining
		}
	}
	if available < req.Quantity {
		return nil, nil, fmt.Errorf("%w: merchandise variant %q has %d left, %d requested",
			models.ErrCapacityExceeded, variation.VariantValue, available, req.Quantity)
	}

	item := &models.BookingItem{
		TripID:                 req.TripID,
		TripMerchandiseID:      req.TripMerchandiseID,
		MerchandiseVariationID: &variation.ID,
		ItemType:               req.ItemType,
		Quantity:               req.Quantity,
		PricePerUnitCents:      req.PricePerUnitCents,
		Status:                 models.BookingItemStatusActive,
		VariantOption:          &variation.VariantValue,
	}
	stockReq := &database.StockRequirement{
		VariationID:       variation.ID,
		TripMerchandiseID: offer.ID,
		Quantity:          req.Quantity,
		OverrideCap:       offer.QuantityAvailableOverride,
	}
	return item, stockReq, nil
}

// resolveConfirmationCode honors a caller-supplied confirmation code when it
// is free and generates one otherwise.
func (s *BookingService) resolveConfirmationCode(req *models.CreateBookingRequest) (string, error) {
	if req.ConfirmationCode == nil || strings.TrimSpace(*req.ConfirmationCode) == "" {
		return s.bookingRepo.GenerateConfirmationCode()
	}

	code := strings.ToUpper(strings.TrimSpace(*req.ConfirmationCode))
	exists, err := s.bookingRepo.ConfirmationCodeExists(code)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: confirmation code %s is already in use", models.ErrConflict, code)
	}
	return code, nil
}

func (s *BookingService) pricingFor(cache map[string]*tripBoatPricing, tripID, boatID string) (*tripBoatPricing, error) {
	key := tripID + "/" + boatID
	if cached, ok := cache[key]; ok {
		return cached, nil
	}
	tripBoat, err := s.tripRepo.GetTripBoat(tripID, boatID)
	if err != nil {
		return nil, err
	}
	items, err := s.pricing.resolve(tripBoat)
	if err != nil {
		return nil, err
	}
	capacity, err := s.pricing.EffectiveCapacity(tripBoat)
	if err != nil {
		return nil, err
	}
	resolved := &tripBoatPricing{tripBoat: tripBoat, items: items, capacity: capacity}
	cache[key] = resolved
	return resolved, nil
}

func (s *BookingService) qrPayload(confirmationCode string) string {
	return fmt.Sprintf("%s/bookings/%s", s.config.PublicBaseURL, confirmationCode)
}

// GetBooking returns a booking by id, backfilling a missing QR code
// best-effort.
func (s *BookingService) GetBooking(id string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.backfillQR(booking)
	return booking, nil
}

// GetBookingByCode returns a booking by confirmation code, backfilling a
// missing QR code best-effort.
func (s *BookingService) GetBookingByCode(code string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByConfirmationCode(code)
	if err != nil {
		return nil, err
	}
	s.backfillQR(booking)
	return booking, nil
}

func (s *BookingService) backfillQR(booking *models.Booking) {
	if booking.QRCodeBase64 != nil && *booking.QRCodeBase64 != "" {
		return
	}
	qr, err := qrcode.GenerateBase64PNG(s.qrPayload(booking.ConfirmationCode), 0)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to backfill QR code")
		return
	}
	booking.QRCodeBase64 = &qr
	if err := s.bookingRepo.SetQRCode(booking.ID, qr); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to store backfilled QR code")
	}
}

// ListBookings returns bookings for the admin dashboard
func (s *BookingService) ListBookings(query *models.BookingListQuery) ([]models.Booking, int, error) {
	return s.bookingRepo.List(query)
}
