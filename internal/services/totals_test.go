package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quartermaster/booking-backend/internal/models"
)

func TestComputeSubtotal(t *testing.T) {
	items := []models.BookingItem{
		{Quantity: 2, PricePerUnitCents: 7500, Status: models.BookingItemStatusActive},
		{Quantity: 1, PricePerUnitCents: 3500, Status: models.BookingItemStatusFulfilled},
		{Quantity: 3, PricePerUnitCents: 5000, Status: models.BookingItemStatusRefunded},
	}
	assert.Equal(t, int64(18500), ComputeSubtotal(items))
}

func TestComputeTotals(t *testing.T) {
	t.Run("plain tax", func(t *testing.T) {
		totals := ComputeTotals(10000, 0, 0, 0.07)
		assert.Equal(t, int64(700), totals.TaxCents)
		assert.Equal(t, int64(10700), totals.TotalCents)
	})

	t.Run("tip is never taxed", func(t *testing.T) {
		totals := ComputeTotals(10000, 0, 500, 0.07)
		assert.Equal(t, int64(700), totals.TaxCents)
		assert.Equal(t, int64(11200), totals.TotalCents)
	})

	t.Run("discount reduces taxable base", func(t *testing.T) {
		totals := ComputeTotals(10000, 2000, 0, 0.07)
		assert.Equal(t, int64(560), totals.TaxCents)
		assert.Equal(t, int64(8560), totals.TotalCents)
	})

	t.Run("tax rounds half away from zero", func(t *testing.T) {
		// 7350 * 0.0825 = 606.375 rounds down
		totals := ComputeTotals(7350, 0, 0, 0.0825)
		assert.Equal(t, int64(606), totals.TaxCents)

		// 9400 * 0.0625 = 587.5 rounds up
		totals = ComputeTotals(9400, 0, 0, 0.0625)
		assert.Equal(t, int64(588), totals.TaxCents)
	})

	t.Run("discount exceeding subtotal clamps taxable to zero", func(t *testing.T) {
		totals := ComputeTotals(5000, 9000, 300, 0.07)
		assert.Equal(t, int64(0), totals.TaxCents)
		assert.Equal(t, int64(300), totals.TotalCents)
	})

	t.Run("zero tax rate", func(t *testing.T) {
		totals := ComputeTotals(10000, 0, 0, 0)
		assert.Equal(t, int64(0), totals.TaxCents)
		assert.Equal(t, int64(10000), totals.TotalCents)
	})
}

func TestApplyTotals(t *testing.T) {
	booking := &models.Booking{}
	ApplyTotals(booking, Totals{
		SubtotalCents: 10000,
		DiscountCents: 1000,
		TaxCents:      630,
		TipCents:      500,
		TotalCents:    10130,
	})
	assert.Equal(t, int64(10000), booking.SubtotalCents)
	assert.Equal(t, int64(1000), booking.DiscountCents)
	assert.Equal(t, int64(630), booking.TaxCents)
	assert.Equal(t, int64(500), booking.TipCents)
	assert.Equal(t, int64(10130), booking.TotalCents)
}
