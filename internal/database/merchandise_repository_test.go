package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservationRows(sold, fulfilled int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "booking_item_id", "merchandise_variation_id",
		"quantity_sold", "quantity_fulfilled", "created_at", "updated_at",
	}).AddRow("res-1", "item-1", "var-1", sold, fulfilled, now, now)
}

// Reserving, fulfilling and releasing one item must move the variation
// counters by exactly offsetting amounts.
func TestReservationLedgerRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mock.ExpectBegin()

	// Reserve: +3 sold on the reservation row and the variation.
	mock.ExpectExec(`INSERT INTO merchandise_reservations`).
		WithArgs("item-1", "var-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`quantity_sold = quantity_sold \+ \$2`).
		WithArgs("var-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Fulfill: the recorded sold amount moves to fulfilled.
	mock.ExpectQuery(`SELECT \* FROM merchandise_reservations WHERE booking_item_id`).
		WithArgs("item-1").
		WillReturnRows(reservationRows(3, 0))
	mock.ExpectExec(`quantity_fulfilled = quantity_fulfilled \+ \$2, updated_at = now\(\) WHERE booking_item_id`).
		WithArgs("item-1", 3, "var-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`quantity_fulfilled = quantity_fulfilled \+ \$2, updated_at = now\(\) WHERE id`).
		WithArgs("var-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Release: subtracts exactly the recorded deltas, netting both
	// counters back to their pre-reservation values.
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("item-1").
		WillReturnRows(reservationRows(3, 3))
	mock.ExpectExec(`quantity_sold = quantity_sold - \$2`).
		WithArgs("var-1", 3, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM merchandise_reservations`).
		WithArgs("item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	require.NoError(t, reserveStockTx(tx, "item-1", "var-1", 3))
	require.NoError(t, fulfillStockTx(tx, "item-1", 1))
	require.NoError(t, releaseStockTx(tx, "item-1"))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A release after the reservation rows are gone only issues the delete,
// so repeated releases cannot drift the counters.
func TestReleaseStockRepeatIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_item_id", "merchandise_variation_id",
			"quantity_sold", "quantity_fulfilled", "created_at", "updated_at",
		}))
	mock.ExpectExec(`DELETE FROM merchandise_reservations`).
		WithArgs("item-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	require.NoError(t, releaseStockTx(tx, "item-1"))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}
