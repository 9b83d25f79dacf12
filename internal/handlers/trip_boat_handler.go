package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/models"
	"github.com/quartermaster/booking-backend/internal/services"
)

// TripBoatHandler handles boat assignment and pricing HTTP requests
type TripBoatHandler struct {
	tripBoatService *services.TripBoatService
	bookingService  *services.BookingService
	logger          *logrus.Logger
}

// NewTripBoatHandler creates a new trip boat handler
func NewTripBoatHandler(
	tripBoatService *services.TripBoatService,
	bookingService *services.BookingService,
	logger *logrus.Logger,
) *TripBoatHandler {
	return &TripBoatHandler{
		tripBoatService: tripBoatService,
		bookingService:  bookingService,
		logger:          logger,
	}
}

// Availability returns live capacity and pricing for every boat on a trip
// @Summary Trip availability
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {array} models.TripBoatAvailability
// @Failure 404 {object} ErrorResponse
// @Router /trips/{id}/availability [get]
func (h *TripBoatHandler) Availability(c *gin.Context) {
	availability, err := h.tripBoatService.AvailabilityForTrip(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boats": availability})
}

// CreateTripBoat assigns a boat to a trip
// @Summary Assign a boat to a trip
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path string true "Trip ID"
// @Param assignment body models.CreateTripBoatRequest true "Assignment"
// @Success 201 {object} models.TripBoat
// @Failure 400 {object} ErrorResponse
// @Router /admin/trips/{id}/boats [post]
func (h *TripBoatHandler) CreateTripBoat(c *gin.Context) {
	var req models.CreateTripBoatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	tripBoat, err := h.tripBoatService.CreateTripBoat(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tripBoat)
}

// UpdateTripBoat updates a boat assignment
// @Summary Update a trip-boat assignment
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path string true "Trip boat ID"
// @Param update body models.UpdateTripBoatRequest true "Changes"
// @Success 200 {object} models.TripBoat
// @Failure 409 {object} ErrorResponse
// @Router /admin/trip-boats/{id} [patch]
func (h *TripBoatHandler) UpdateTripBoat(c *gin.Context) {
	var req models.UpdateTripBoatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	tripBoat, err := h.tripBoatService.UpdateTripBoat(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripBoat)
}

// DeleteTripBoat removes a boat assignment
// @Summary Remove a trip-boat assignment
// @Tags Trips
// @Produce json
// @Param id path string true "Trip boat ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/trip-boats/{id} [delete]
func (h *TripBoatHandler) DeleteTripBoat(c *gin.Context) {
	if err := h.tripBoatService.DeleteTripBoat(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Boat assignment removed"})
}

// UpsertTripBoatPricing creates or updates a ticket-type override
// @Summary Upsert trip-level pricing override
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path string true "Trip boat ID"
// @Param pricing body models.TripBoatPricingRequest true "Override"
// @Success 200 {object} models.TripBoatPricing
// @Failure 409 {object} ErrorResponse
// @Router /admin/trip-boats/{id}/pricing [put]
func (h *TripBoatHandler) UpsertTripBoatPricing(c *gin.Context) {
	var req models.TripBoatPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	pricing, err := h.tripBoatService.UpsertTripBoatPricing(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pricing)
}

// DeleteTripBoatPricing removes a ticket-type override
// @Summary Delete trip-level pricing override
// @Tags Trips
// @Produce json
// @Param id path string true "Trip boat ID"
// @Param ticketType path string true "Ticket type"
// @Success 200 {object} SuccessResponse
// @Router /admin/trip-boats/{id}/pricing/{ticketType} [delete]
func (h *TripBoatHandler) DeleteTripBoatPricing(c *gin.Context) {
	if err := h.tripBoatService.DeleteTripBoatPricing(c.Param("id"), c.Param("ticketType")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pricing override removed"})
}

// UpsertBoatPricing creates or updates a boat-level pricing row
// @Summary Upsert boat-level pricing
// @Tags Boats
// @Accept json
// @Produce json
// @Param id path string true "Boat ID"
// @Param pricing body models.CreateBoatPricingRequest true "Pricing"
// @Success 200 {object} models.BoatPricing
// @Failure 400 {object} ErrorResponse
// @Router /admin/boats/{id}/pricing [put]
func (h *TripBoatHandler) UpsertBoatPricing(c *gin.Context) {
	var req models.CreateBoatPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	pricing, err := h.tripBoatService.UpsertBoatPricing(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pricing)
}

// DeleteBoatPricing removes a boat-level pricing row
// @Summary Delete boat-level pricing
// @Tags Boats
// @Produce json
// @Param id path string true "Boat ID"
// @Param ticketType path string true "Ticket type"
// @Success 200 {object} SuccessResponse
// @Router /admin/boats/{id}/pricing/{ticketType} [delete]
func (h *TripBoatHandler) DeleteBoatPricing(c *gin.Context) {
	if err := h.tripBoatService.DeleteBoatPricing(c.Param("id"), c.Param("ticketType")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pricing removed"})
}

// RenameTicketTypeRequest renames a ticket type across a boat's pricing
type RenameTicketTypeRequest struct {
	OldType string `json:"old_type" binding:"required"`
	NewType string `json:"new_type" binding:"required"`
}

// RenameTicketType renames a ticket type and cascades to overrides and items
// @Summary Rename a ticket type
// @Tags Boats
// @Accept json
// @Produce json
// @Param id path string true "Boat ID"
// @Param rename body RenameTicketTypeRequest true "Rename"
// @Success 200 {object} SuccessResponse
// @Router /admin/boats/{id}/pricing/rename [post]
func (h *TripBoatHandler) RenameTicketType(c *gin.Context) {
	var req RenameTicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.tripBoatService.RenameTicketType(c.Param("id"), req.OldType, req.NewType); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket type renamed"})
}

// ReassignPassengers moves all paid tickets between two boats on a trip
// @Summary Reassign passengers to another boat
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path string true "Trip ID"
// @Param reassign body models.ReassignPassengersRequest true "Source and destination boats"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} ErrorResponse
// @Router /admin/trips/{id}/reassign [post]
func (h *TripBoatHandler) ReassignPassengers(c *gin.Context) {
	var req models.ReassignPassengersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	moved, err := h.bookingService.ReassignPassengers(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved})
}
