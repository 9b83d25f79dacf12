package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/middleware"
	"github.com/quartermaster/booking-backend/internal/models"
	"github.com/quartermaster/booking-backend/internal/services"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// asOf returns the admission evaluation instant. Admins may pin it with the
// as_of query parameter; everyone else gets the server clock.
func asOf(c *gin.Context) time.Time {
	if _, isAdmin := middleware.GetAdminUser(c); isAdmin {
		if raw := c.Query("as_of"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				return t
			}
		}
	}
	return time.Now()
}

// Create handles booking creation
// @Summary Create a booking
// @Description Create a draft booking with ticket and merchandise items
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking body models.CreateBookingRequest true "Booking payload"
// @Success 201 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	actor, _ := middleware.GetAdminUser(c)
	booking, err := h.bookingService.CreateBooking(&req, actor, asOf(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetByCode retrieves a booking by confirmation code
// @Summary Get booking by confirmation code
// @Tags Bookings
// @Produce json
// @Param code path string true "Confirmation code"
// @Success 200 {object} models.Booking
// @Failure 404 {object} ErrorResponse
// @Router /bookings/code/{code} [get]
func (h *BookingHandler) GetByCode(c *gin.Context) {
	booking, err := h.bookingService.GetBookingByCode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Get retrieves a booking by ID
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} ErrorResponse
// @Router /admin/bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// List retrieves bookings with filters and pagination
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	query := parseListQuery(c)

	bookings, total, err := h.bookingService.ListBookings(query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"total":    total,
		"limit":    query.Limit,
		"offset":   query.Offset,
	})
}

// Export streams the filtered bookings as a CSV download
// @Summary Export bookings as CSV
// @Tags Bookings
// @Produce text/csv
// @Success 200 {string} string "CSV data"
// @Router /admin/bookings/export [get]
func (h *BookingHandler) Export(c *gin.Context) {
	query := parseListQuery(c)

	data, err := h.bookingService.ExportBookingsCSV(query)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "bookings-" + time.Now().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// Update handles partial booking updates and status transitions
// @Summary Update a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param update body models.UpdateBookingRequest true "Fields to update"
// @Success 200 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/bookings/{id} [patch]
func (h *BookingHandler) Update(c *gin.Context) {
	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.UpdateBooking(c.Param("id"), &req, asOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// UpdateItem updates a single ticket item's type, boat or quantity
// @Summary Update a booking item
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param itemId path string true "Booking item ID"
// @Param update body models.UpdateBookingItemRequest true "Item changes"
// @Success 200 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/bookings/{id}/items/{itemId} [patch]
func (h *BookingHandler) UpdateItem(c *gin.Context) {
	var req models.UpdateBookingItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.UpdateBookingItem(c.Param("id"), c.Param("itemId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Reschedule moves a booking's tickets to another trip
// @Summary Reschedule a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param reschedule body models.RescheduleBookingRequest true "Target trip"
// @Success 200 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/bookings/{id}/reschedule [post]
func (h *BookingHandler) Reschedule(c *gin.Context) {
	var req models.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.RescheduleBooking(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CheckIn marks a booking as checked in by confirmation code
// @Summary Check in a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param code path string true "Confirmation code"
// @Success 200 {object} models.Booking
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/bookings/check-in/{code} [post]
func (h *BookingHandler) CheckIn(c *gin.Context) {
	// Body is optional; an empty body checks in without trip/boat scoping
	var req models.CheckInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	booking, err := h.bookingService.CheckIn(c.Param("code"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// RevertCheckIn returns a checked-in booking to confirmed
// @Summary Revert a check-in
// @Tags Bookings
// @Produce json
// @Param code path string true "Confirmation code"
// @Success 200 {object} models.Booking
// @Failure 409 {object} ErrorResponse
// @Router /admin/bookings/check-in/{code}/revert [post]
func (h *BookingHandler) RevertCheckIn(c *gin.Context) {
	booking, err := h.bookingService.RevertCheckIn(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Refund processes a full or partial refund
// @Summary Refund a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param refund body models.RefundBookingRequest true "Refund details"
// @Success 200 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /admin/bookings/{id}/refund [post]
func (h *BookingHandler) Refund(c *gin.Context) {
	var req models.RefundBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.RefundBooking(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Duplicate creates a new draft booking with the same items and customer
// @Summary Duplicate a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 201 {object} models.Booking
// @Failure 404 {object} ErrorResponse
// @Router /admin/bookings/{id}/duplicate [post]
func (h *BookingHandler) Duplicate(c *gin.Context) {
	actor, _ := middleware.GetAdminUser(c)
	booking, err := h.bookingService.DuplicateBooking(c.Param("id"), actor, asOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// ResendEmail resends the confirmation email
// @Summary Resend confirmation email
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/bookings/{id}/resend-email [post]
func (h *BookingHandler) ResendEmail(c *gin.Context) {
	if err := h.bookingService.ResendConfirmationEmail(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Confirmation email sent"})
}

// Delete removes a booking and releases its inventory
// @Summary Delete a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/bookings/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	if err := h.bookingService.DeleteBooking(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted"})
}

func parseListQuery(c *gin.Context) *models.BookingListQuery {
	query := &models.BookingListQuery{
		SortBy:   c.DefaultQuery("sort_by", "created_at"),
		SortDesc: c.DefaultQuery("sort_order", "desc") == "desc",
	}

	if v := c.Query("mission_id"); v != "" {
		query.MissionID = &v
	}
	if v := c.Query("trip_id"); v != "" {
		query.TripID = &v
	}
	if v := c.Query("boat_id"); v != "" {
		query.BoatID = &v
	}
	if v := c.Query("item_type"); v != "" {
		query.ItemType = &v
	}
	if v := c.Query("status"); v != "" {
		status := models.BookingStatus(v)
		query.BookingStatus = &status
	}
	if v := c.Query("payment_status"); v != "" {
		status := models.PaymentStatus(v)
		query.PaymentStatus = &status
	}
	if v := c.Query("search"); v != "" {
		query.Search = &v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		query.Offset = v
	}

	return query
}
