package services

import (
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func strPtr(v string) *string { return &v }

func TestRecomputeTotalsNoSurvivingItems(t *testing.T) {
	svc := &BookingService{}
	booking := &models.Booking{
		SubtotalCents: 15000,
		DiscountCents: 500,
		TaxCents:      1015,
		TipCents:      1500,
		TotalCents:    17015,
	}

	err := svc.recomputeTotals(booking, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), booking.SubtotalCents)
	assert.Equal(t, int64(0), booking.TaxCents)
	assert.Equal(t, int64(0), booking.TotalCents)
	// Discount and tip stay on the row for bookkeeping.
	assert.Equal(t, int64(500), booking.DiscountCents)
	assert.Equal(t, int64(1500), booking.TipCents)
}

func TestRecomputeTotalsTaxLookupFailure(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	svc := &BookingService{missionRepo: database.NewMissionRepository(sqlxDB)}

	mock.ExpectQuery(`SELECT j\.sales_tax_rate`).
		WillReturnError(fmt.Errorf("database error"))

	booking := &models.Booking{TotalCents: 10700}
	items := []models.BookingItem{
		{TripID: "trip-1", Quantity: 2, PricePerUnitCents: 5000, Status: models.BookingItemStatusActive},
	}

	err := svc.recomputeTotals(booking, items)
	assert.Error(t, err)
	// Totals stay untouched when the rate cannot be resolved.
	assert.Equal(t, int64(10700), booking.TotalCents)
}

func TestSeatRequirementsRejectUnknownTicketType(t *testing.T) {
	svc := &BookingService{}
	cache := map[string]*tripBoatPricing{
		"trip-1/boat-1": {
			items: []models.EffectivePricingItem{
				{TicketType: "adult", PriceCents: 7500, Capacity: 10},
			},
			capacity: 40,
		},
	}

	t.Run("Unknown Type", func(t *testing.T) {
		items := []models.BookingItem{
			{TripID: "trip-1", BoatID: strPtr("boat-1"), ItemType: "senior", Quantity: 2,
				Status: models.BookingItemStatusActive},
		}
		_, err := svc.seatRequirementsWithCache(items, cache)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("Known Type", func(t *testing.T) {
		items := []models.BookingItem{
			{TripID: "trip-1", BoatID: strPtr("boat-1"), ItemType: "adult", Quantity: 2,
				Status: models.BookingItemStatusActive},
		}
		reqs, err := svc.seatRequirementsWithCache(items, cache)
		require.NoError(t, err)
		require.Len(t, reqs, 2)
	})
}

func TestCheckInRepeatIsIdempotent(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	svc := &BookingService{bookingRepo: database.NewBookingRepository(sqlxDB)}

	mock.ExpectQuery(`SELECT \* FROM bookings WHERE upper\(confirmation_code\)`).
		WithArgs("LV-A1B2C3D4").
		WillReturnRows(sqlmock.NewRows([]string{"id", "confirmation_code", "booking_status"}).
			AddRow("booking-1", "LV-A1B2C3D4", "checked_in"))
	mock.ExpectQuery(`SELECT \* FROM booking_items WHERE booking_id`).
		WithArgs("booking-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	booking, err := svc.CheckIn("LV-A1B2C3D4", nil)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCheckedIn, booking.BookingStatus)

	// No fulfillment transaction ran, so inventory was not touched again.
	assert.NoError(t, mock.ExpectationsWereMet())
}
