package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
)

func TestUpsertBoatPricingCapacityFloor(t *testing.T) {
	t.Run("Rejects Shrink Below Paid Count", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		svc := &TripBoatService{
			boatRepo:    database.NewBoatRepository(sqlxDB),
			bookingRepo: database.NewBookingRepository(sqlxDB),
		}

		mock.ExpectQuery(`SELECT \* FROM boats WHERE id`).
			WithArgs("boat-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "provider_id"}).
				AddRow("boat-1", "Osprey", 40, "prov-1"))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(seats\), 0\) FROM`).
			WithArgs("boat-1", "adult").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(8))

		_, err := svc.UpsertBoatPricing("boat-1", &models.CreateBoatPricingRequest{
			TicketType: "adult",
			PriceCents: 7500,
			Capacity:   5,
		})
		assert.ErrorIs(t, err, models.ErrConflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Allows Capacity At Or Above Paid Count", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		svc := &TripBoatService{
			boatRepo:    database.NewBoatRepository(sqlxDB),
			bookingRepo: database.NewBookingRepository(sqlxDB),
		}

		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM boats WHERE id`).
			WithArgs("boat-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "provider_id"}).
				AddRow("boat-1", "Osprey", 40, "prov-1"))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(seats\), 0\) FROM`).
			WithArgs("boat-1", "adult").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(8))
		mock.ExpectQuery(`INSERT INTO boat_pricing`).
			WithArgs("boat-1", "adult", int64(7500), 10).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "boat_id", "ticket_type", "price_cents", "capacity", "created_at", "updated_at"}).
				AddRow("bp-1", "boat-1", "adult", int64(7500), 10, now, now))

		pricing, err := svc.UpsertBoatPricing("boat-1", &models.CreateBoatPricingRequest{
			TicketType: "adult",
			PriceCents: 7500,
			Capacity:   10,
		})
		require.NoError(t, err)
		assert.Equal(t, 10, pricing.Capacity)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unrestricted Capacity Skips Floor Check", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		svc := &TripBoatService{
			boatRepo:    database.NewBoatRepository(sqlxDB),
			bookingRepo: database.NewBookingRepository(sqlxDB),
		}

		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM boats WHERE id`).
			WithArgs("boat-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "provider_id"}).
				AddRow("boat-1", "Osprey", 40, "prov-1"))
		mock.ExpectQuery(`INSERT INTO boat_pricing`).
			WithArgs("boat-1", "vip", int64(15000), 0).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "boat_id", "ticket_type", "price_cents", "capacity", "created_at", "updated_at"}).
				AddRow("bp-2", "boat-1", "vip", int64(15000), 0, now, now))

		_, err := svc.UpsertBoatPricing("boat-1", &models.CreateBoatPricingRequest{
			TicketType: "vip",
			PriceCents: 15000,
			Capacity:   0,
		})
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
