package services

import (
	"math"

	"github.com/quartermaster/booking-backend/internal/models"
)

// Totals is the monetary breakdown of a booking.
type Totals struct {
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	TipCents      int64
	TotalCents    int64
}

// ComputeSubtotal sums quantity times unit price over non-refunded items.
func ComputeSubtotal(items []models.BookingItem) int64 {
	var subtotal int64
	for _, item := range items {
		if item.Status == models.BookingItemStatusRefunded {
			continue
		}
		subtotal += int64(item.Quantity) * item.PricePerUnitCents
	}
	return subtotal
}

// ComputeTotals derives tax and total from a subtotal. Tax applies to the
// discounted subtotal and is rounded half away from zero; the tip is never
// taxed. When no taxable amount remains, tax and total collapse to the tip.
func ComputeTotals(subtotalCents, discountCents, tipCents int64, taxRate float64) Totals {
	taxable := subtotalCents - discountCents
	if taxable < 0 {
		taxable = 0
	}
	taxCents := int64(math.Round(float64(taxable) * taxRate))
	return Totals{
		SubtotalCents: subtotalCents,
		DiscountCents: discountCents,
		TaxCents:      taxCents,
		TipCents:      tipCents,
		TotalCents:    taxable + taxCents + tipCents,
	}
}

// ApplyTotals writes a computed breakdown onto a booking.
func ApplyTotals(booking *models.Booking, totals Totals) {
	booking.SubtotalCents = totals.SubtotalCents
	booking.DiscountCents = totals.DiscountCents
	booking.TaxCents = totals.TaxCents
	booking.TipCents = totals.TipCents
	booking.TotalCents = totals.TotalCents
}
