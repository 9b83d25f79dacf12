package database

import (
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster/booking-backend/internal/models"
)

func newBookingRepo(t *testing.T) (*BookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewBookingRepository(sqlxDB), mock
}

func TestGenerateConfirmationCode(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		code, err := repo.GenerateConfirmationCode()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, "LV-"))
		assert.Len(t, code, 11)
		assert.Equal(t, strings.ToUpper(code), code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retries On Collision", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		code, err := repo.GenerateConfirmationCode()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, "LV-"))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gives Up After Ten Attempts", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		for i := 0; i < 10; i++ {
			mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		}

		_, err := repo.GenerateConfirmationCode()
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfirmationCodeExists(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
		WithArgs("LV-A1B2C3D4").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ConfirmationCodeExists("LV-A1B2C3D4")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaidTicketCount(t *testing.T) {
	t.Run("Counts All Bookings", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(bi\.quantity\), 0\)`).
			WithArgs("trip-1", "boat-1", nil).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(17))

		count, err := repo.PaidTicketCount("trip-1", "boat-1", nil)
		require.NoError(t, err)
		assert.Equal(t, 17, count)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Excludes Own Booking", func(t *testing.T) {
		repo, mock := newBookingRepo(t)
		exclude := "booking-9"

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(bi\.quantity\), 0\)`).
			WithArgs("trip-1", "boat-1", exclude).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(12))

		count, err := repo.PaidTicketCount("trip-1", "boat-1", &exclude)
		require.NoError(t, err)
		assert.Equal(t, 12, count)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		repo, mock := newBookingRepo(t)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(bi\.quantity\), 0\)`).
			WillReturnError(fmt.Errorf("database error"))

		_, err := repo.PaidTicketCount("trip-1", "boat-1", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count paid tickets")
	})
}

func TestPaidTicketCountForType(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(bi\.quantity\), 0\)`).
		WithArgs("trip-1", "boat-1", "adult", nil).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6))

	count, err := repo.PaidTicketCountForType("trip-1", "boat-1", "adult", nil)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaidTicketCountsByType(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectQuery(`GROUP BY`).
		WithArgs("trip-1", "boat-1").
		WillReturnRows(sqlmock.NewRows([]string{"type_key", "seats"}).
			AddRow("adult", 10).
			AddRow("child", 4))

	counts, err := repo.PaidTicketCountsByType("trip-1", "boat-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"adult": 10, "child": 4}, counts)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketItemCount(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booking_items`).
		WithArgs("trip-1", "boat-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.TicketItemCount("trip-1", "boat-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingByIDNotFound(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectQuery(`SELECT \* FROM bookings WHERE id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	booking, err := repo.GetByID("missing")
	assert.Nil(t, booking)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
