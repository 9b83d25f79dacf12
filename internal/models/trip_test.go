package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveBookingMode(t *testing.T) {
	salesOpen := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	before := salesOpen.Add(-time.Hour)
	after := salesOpen.Add(time.Hour)

	tests := []struct {
		name     string
		mode     BookingMode
		openAt   *time.Time
		asOf     time.Time
		expected BookingMode
	}{
		{"public after open stays public", BookingModePublic, &salesOpen, after, BookingModePublic},
		{"public at open stays public", BookingModePublic, &salesOpen, salesOpen, BookingModePublic},
		{"public before open tightens to early_bird", BookingModePublic, &salesOpen, before, BookingModeEarlyBird},
		{"early_bird before open tightens to private", BookingModeEarlyBird, &salesOpen, before, BookingModePrivate},
		{"private stays private", BookingModePrivate, &salesOpen, before, BookingModePrivate},
		{"no sales_open_at means always open", BookingModePublic, nil, before, BookingModePublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := &Trip{BookingMode: tt.mode, SalesOpenAt: tt.openAt}
			assert.Equal(t, tt.expected, trip.EffectiveBookingMode(tt.asOf))
		})
	}
}

func TestTripBoatEffectiveCapacity(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		override := 30
		tb := &TripBoat{MaxCapacity: &override}
		assert.Equal(t, 30, tb.EffectiveCapacity(120))
	})

	t.Run("nil falls back to boat capacity", func(t *testing.T) {
		tb := &TripBoat{}
		assert.Equal(t, 120, tb.EffectiveCapacity(120))
	})
}

func TestTicketTypeKey(t *testing.T) {
	assert.Equal(t, "adult", TicketTypeKey("adult"))
	assert.Equal(t, "adult", TicketTypeKey("Adult"))
	assert.Equal(t, "adult", TicketTypeKey("Adult_Ticket"))
	assert.Equal(t, "adult", TicketTypeKey("  adult_ticket "))
	assert.Equal(t, "child", TicketTypeKey("CHILD_TICKET"))
	assert.Equal(t, "vip lounge", TicketTypeKey("VIP Lounge"))
}

func TestEffectivePricingItemUnrestricted(t *testing.T) {
	assert.True(t, (&EffectivePricingItem{Capacity: 0}).Unrestricted())
	assert.False(t, (&EffectivePricingItem{Capacity: 10}).Unrestricted())
}
