package services

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster/booking-backend/internal/database"
	"github.com/quartermaster/booking-backend/internal/models"
)

func TestResolveConfirmationCode(t *testing.T) {
	t.Run("Honors Free Client Code", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		svc := &BookingService{bookingRepo: database.NewBookingRepository(sqlxDB)}

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
			WithArgs("LV-CUSTOM01").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		code, err := svc.resolveConfirmationCode(&models.CreateBookingRequest{
			ConfirmationCode: strPtr(" lv-custom01 "),
		})
		require.NoError(t, err)
		assert.Equal(t, "LV-CUSTOM01", code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Taken Client Code", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		svc := &BookingService{bookingRepo: database.NewBookingRepository(sqlxDB)}

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
			WithArgs("LV-CUSTOM01").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		_, err := svc.resolveConfirmationCode(&models.CreateBookingRequest{
			ConfirmationCode: strPtr("LV-CUSTOM01"),
		})
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("Generates When Absent", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		svc := &BookingService{bookingRepo: database.NewBookingRepository(sqlxDB)}

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE confirmation_code`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		code, err := svc.resolveConfirmationCode(&models.CreateBookingRequest{})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, "LV-"))
		assert.Len(t, code, 11)
	})
}
