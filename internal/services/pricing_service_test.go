package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster/booking-backend/internal/models"
)

func intPtr(v int) *int { return &v }

func TestMergeEffectivePricing(t *testing.T) {
	boatPricing := []models.BoatPricing{
		{TicketType: "adult", PriceCents: 7500, Capacity: 40},
		{TicketType: "child", PriceCents: 5000, Capacity: 20},
		{TicketType: "vip", PriceCents: 15000, Capacity: 0},
	}

	t.Run("boat defaults pass through", func(t *testing.T) {
		items := MergeEffectivePricing(&models.TripBoat{}, boatPricing, nil)
		require.Len(t, items, 3)
		// sorted by ticket type
		assert.Equal(t, "adult", items[0].TicketType)
		assert.Equal(t, int64(7500), items[0].PriceCents)
		assert.Equal(t, 40, items[0].Capacity)
		assert.Equal(t, "vip", items[2].TicketType)
		assert.True(t, items[2].Unrestricted())
	})

	t.Run("override price wins, nil capacity inherits", func(t *testing.T) {
		overrides := []models.TripBoatPricing{
			{TicketType: "adult", PriceCents: 9900, Capacity: nil},
		}
		items := MergeEffectivePricing(&models.TripBoat{}, boatPricing, overrides)
		adult, found := FindTicketType(items, "adult")
		require.True(t, found)
		assert.Equal(t, int64(9900), adult.PriceCents)
		assert.Equal(t, 40, adult.Capacity)
	})

	t.Run("explicit zero capacity means unrestricted", func(t *testing.T) {
		overrides := []models.TripBoatPricing{
			{TicketType: "child", PriceCents: 4500, Capacity: intPtr(0)},
		}
		items := MergeEffectivePricing(&models.TripBoat{}, boatPricing, overrides)
		child, found := FindTicketType(items, "child")
		require.True(t, found)
		assert.True(t, child.Unrestricted())
	})

	t.Run("override capacity replaces boat capacity", func(t *testing.T) {
		overrides := []models.TripBoatPricing{
			{TicketType: "child", PriceCents: 5000, Capacity: intPtr(8)},
		}
		items := MergeEffectivePricing(&models.TripBoat{}, boatPricing, overrides)
		child, found := FindTicketType(items, "child")
		require.True(t, found)
		assert.Equal(t, 8, child.Capacity)
	})

	t.Run("trip-only type gets unrestricted default", func(t *testing.T) {
		overrides := []models.TripBoatPricing{
			{TicketType: "press", PriceCents: 0, Capacity: nil},
		}
		items := MergeEffectivePricing(&models.TripBoat{}, boatPricing, overrides)
		press, found := FindTicketType(items, "press")
		require.True(t, found)
		assert.True(t, press.Unrestricted())
	})

	t.Run("use_only_trip_pricing drops the boat layer", func(t *testing.T) {
		overrides := []models.TripBoatPricing{
			{TicketType: "adult", PriceCents: 9900, Capacity: intPtr(25)},
		}
		items := MergeEffectivePricing(&models.TripBoat{UseOnlyTripPricing: true}, boatPricing, overrides)
		require.Len(t, items, 1)
		assert.Equal(t, "adult", items[0].TicketType)
		assert.Equal(t, 25, items[0].Capacity)
	})
}

func TestApplyRemaining(t *testing.T) {
	items := []models.EffectivePricingItem{
		{TicketType: "adult", Capacity: 40},
		{TicketType: "Child_Ticket", Capacity: 10},
		{TicketType: "vip", Capacity: 0},
		{TicketType: "press", Capacity: 5},
	}
	paid := map[string]int{
		"adult": 12,
		"child": 15, // oversold, clamps to 0
	}

	ApplyRemaining(items, paid)

	assert.Equal(t, 28, items[0].Remaining)
	assert.Equal(t, 0, items[1].Remaining)
	assert.Equal(t, -1, items[2].Remaining) // unrestricted sentinel
	assert.Equal(t, 5, items[3].Remaining)  // nothing sold
}

func TestFindTicketType(t *testing.T) {
	items := []models.EffectivePricingItem{
		{TicketType: "Adult_Ticket", PriceCents: 7500},
		{TicketType: "child", PriceCents: 5000},
	}

	t.Run("exact match", func(t *testing.T) {
		item, found := FindTicketType(items, "child")
		require.True(t, found)
		assert.Equal(t, int64(5000), item.PriceCents)
	})

	t.Run("legacy suffix matches normalized key", func(t *testing.T) {
		item, found := FindTicketType(items, "adult")
		require.True(t, found)
		assert.Equal(t, int64(7500), item.PriceCents)
	})

	t.Run("reverse direction also matches", func(t *testing.T) {
		item, found := FindTicketType(items, "Child_Ticket")
		require.True(t, found)
		assert.Equal(t, int64(5000), item.PriceCents)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, found := FindTicketType(items, "senior")
		assert.False(t, found)
	})
}
