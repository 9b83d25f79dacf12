package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{"draft to confirmed", BookingStatusDraft, BookingStatusConfirmed, true},
		{"draft to cancelled", BookingStatusDraft, BookingStatusCancelled, true},
		{"draft to checked_in", BookingStatusDraft, BookingStatusCheckedIn, false},
		{"draft to completed", BookingStatusDraft, BookingStatusCompleted, false},
		{"confirmed to checked_in", BookingStatusConfirmed, BookingStatusCheckedIn, true},
		{"confirmed to cancelled", BookingStatusConfirmed, BookingStatusCancelled, true},
		{"confirmed to completed", BookingStatusConfirmed, BookingStatusCompleted, false},
		{"confirmed to draft", BookingStatusConfirmed, BookingStatusDraft, false},
		{"checked_in to completed", BookingStatusCheckedIn, BookingStatusCompleted, true},
		{"checked_in to cancelled", BookingStatusCheckedIn, BookingStatusCancelled, true},
		{"checked_in to confirmed", BookingStatusCheckedIn, BookingStatusConfirmed, false},
		{"completed to cancelled", BookingStatusCompleted, BookingStatusCancelled, true},
		{"completed to confirmed", BookingStatusCompleted, BookingStatusConfirmed, false},
		{"cancelled is terminal", BookingStatusCancelled, BookingStatusDraft, false},
		{"cancelled to confirmed", BookingStatusCancelled, BookingStatusConfirmed, false},
		{"same status is not a transition", BookingStatusConfirmed, BookingStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestFieldMutable(t *testing.T) {
	t.Run("draft allows customer and payment edits", func(t *testing.T) {
		assert.True(t, FieldMutable(BookingStatusDraft, "customer_name"))
		assert.True(t, FieldMutable(BookingStatusDraft, "payment_status"))
		assert.True(t, FieldMutable(BookingStatusDraft, "tip_cents"))
		assert.True(t, FieldMutable(BookingStatusDraft, "item_quantities"))
	})

	t.Run("confirmed allows the same set as draft", func(t *testing.T) {
		assert.True(t, FieldMutable(BookingStatusConfirmed, "customer_email"))
		assert.True(t, FieldMutable(BookingStatusConfirmed, "item_quantities"))
	})

	t.Run("checked_in allows nothing", func(t *testing.T) {
		for _, field := range []string{
			"customer_name", "admin_notes", "tip_cents", "payment_status", "item_quantities",
		} {
			assert.False(t, FieldMutable(BookingStatusCheckedIn, field), field)
		}
	})

	t.Run("completed and cancelled allow admin notes only", func(t *testing.T) {
		assert.True(t, FieldMutable(BookingStatusCompleted, "admin_notes"))
		assert.False(t, FieldMutable(BookingStatusCompleted, "customer_name"))
		assert.True(t, FieldMutable(BookingStatusCancelled, "admin_notes"))
		assert.False(t, FieldMutable(BookingStatusCancelled, "tip_cents"))
	})

	t.Run("unknown field is immutable", func(t *testing.T) {
		assert.False(t, FieldMutable(BookingStatusDraft, "confirmation_code"))
	})
}

func TestSortItemsForDisplay(t *testing.T) {
	merchID := "tm-1"
	boatID := "boat-1"
	items := []BookingItem{
		{ID: "3", TripMerchandiseID: &merchID, ItemType: "hoodie"},
		{ID: "2", BoatID: &boatID, ItemType: "child"},
		{ID: "1", BoatID: &boatID, ItemType: "adult"},
		{ID: "4", BoatID: &boatID, ItemType: "adult"},
	}

	SortItemsForDisplay(items)

	require.Len(t, items, 4)
	assert.Equal(t, "1", items[0].ID) // adult before child, lower id first
	assert.Equal(t, "4", items[1].ID)
	assert.Equal(t, "2", items[2].ID)
	assert.Equal(t, "3", items[3].ID) // merchandise always last
}

func TestFirstDisplayItem(t *testing.T) {
	t.Run("no items", func(t *testing.T) {
		booking := &Booking{}
		assert.Nil(t, booking.FirstDisplayItem())
	})

	t.Run("ticket wins over merchandise", func(t *testing.T) {
		merchID := "tm-1"
		boatID := "boat-1"
		booking := &Booking{Items: []BookingItem{
			{ID: "a", TripMerchandiseID: &merchID, ItemType: "cap"},
			{ID: "b", BoatID: &boatID, ItemType: "adult"},
		}}

		first := booking.FirstDisplayItem()
		require.NotNil(t, first)
		assert.Equal(t, "b", first.ID)
		// original order untouched
		assert.Equal(t, "a", booking.Items[0].ID)
	})
}

func TestCountsAsPaid(t *testing.T) {
	refunded := PaymentStatusRefunded
	paid := PaymentStatusPaid

	tests := []struct {
		name     string
		status   BookingStatus
		payment  *PaymentStatus
		expected bool
	}{
		{"draft never counts", BookingStatusDraft, &paid, false},
		{"cancelled never counts", BookingStatusCancelled, &paid, false},
		{"confirmed with nil payment counts", BookingStatusConfirmed, nil, true},
		{"confirmed paid counts", BookingStatusConfirmed, &paid, true},
		{"confirmed refunded does not count", BookingStatusConfirmed, &refunded, false},
		{"checked_in counts", BookingStatusCheckedIn, &paid, true},
		{"completed counts", BookingStatusCompleted, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Booking{BookingStatus: tt.status, PaymentStatus: tt.payment}
			assert.Equal(t, tt.expected, b.CountsAsPaid())
		})
	}
}

func TestRemainingRefundableCents(t *testing.T) {
	b := &Booking{TotalCents: 10000, RefundedAmountCents: 2500}
	assert.Equal(t, int64(7500), b.RemainingRefundableCents())
}

func TestCreateBookingRequestValidate(t *testing.T) {
	boatID := "boat-1"
	merchID := "tm-1"

	valid := func() *CreateBookingRequest {
		return &CreateBookingRequest{
			CustomerName:  "Casey Jones",
			CustomerEmail: "casey@example.com",
			Items: []BookingItemRequest{
				{TripID: "trip-1", BoatID: &boatID, ItemType: "adult", Quantity: 2, PricePerUnitCents: 7500},
			},
		}
	}

	t.Run("valid request", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("no items", func(t *testing.T) {
		req := valid()
		req.Items = nil
		assert.Error(t, req.Validate())
	})

	t.Run("negative tip", func(t *testing.T) {
		req := valid()
		req.TipCents = -1
		assert.Error(t, req.Validate())
	})

	t.Run("zero quantity", func(t *testing.T) {
		req := valid()
		req.Items[0].Quantity = 0
		assert.Error(t, req.Validate())
	})

	t.Run("ticket without boat", func(t *testing.T) {
		req := valid()
		req.Items[0].BoatID = nil
		assert.Error(t, req.Validate())
	})

	t.Run("merchandise without boat is fine", func(t *testing.T) {
		req := valid()
		req.Items = []BookingItemRequest{
			{TripID: "trip-1", TripMerchandiseID: &merchID, ItemType: "hoodie", Quantity: 1, PricePerUnitCents: 3500},
		}
		assert.NoError(t, req.Validate())
	})
}
