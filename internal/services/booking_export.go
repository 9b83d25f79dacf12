package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/quartermaster/booking-backend/internal/models"
)

// ExportBookingsCSV renders the bookings matching the query as CSV. Ticket
// quantities are pivoted into one column per normalized ticket type, with
// legacy "_ticket" suffixed names folded into the same column; merchandise
// quantities land in a single swag column. Money is rendered in dollars.
func (s *BookingService) ExportBookingsCSV(query *models.BookingListQuery) ([]byte, error) {
	query.Limit = -1
	query.Offset = 0
	bookings, _, err := s.bookingRepo.List(query)
	if err != nil {
		return nil, err
	}

	// Collect the ticket type columns present in the export.
	typeSet := make(map[string]bool)
	for _, booking := range bookings {
		for _, item := range booking.Items {
			if item.IsTicket() {
				typeSet[models.TicketTypeKey(item.ItemType)] = true
			}
		}
	}
	typeColumns := make([]string, 0, len(typeSet))
	for key := range typeSet {
		typeColumns = append(typeColumns, key)
	}
	sort.Strings(typeColumns)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"confirmation_code", "customer_name", "customer_email", "customer_phone",
		"booking_status", "payment_status", "created_at",
	}
	header = append(header, typeColumns...)
	header = append(header,
		"swag_quantity", "subtotal", "discount", "tax", "tip", "total", "refunded")
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, booking := range bookings {
		typeCounts := make(map[string]int)
		swagQty := 0
		for _, item := range booking.Items {
			if item.Status == models.BookingItemStatusRefunded {
				continue
			}
			if item.IsTicket() {
				typeCounts[models.TicketTypeKey(item.ItemType)] += item.Quantity
			} else {
				swagQty += item.Quantity
			}
		}

		phone := ""
		if booking.CustomerPhone != nil {
			phone = *booking.CustomerPhone
		}
		paymentStatus := ""
		if booking.PaymentStatus != nil {
			paymentStatus = string(*booking.PaymentStatus)
		}

		row := []string{
			booking.ConfirmationCode, booking.CustomerName, booking.CustomerEmail, phone,
			string(booking.BookingStatus), paymentStatus,
			booking.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for _, column := range typeColumns {
			row = append(row, fmt.Sprintf("%d", typeCounts[column]))
		}
		row = append(row,
			fmt.Sprintf("%d", swagQty),
			dollars(booking.SubtotalCents),
			dollars(booking.DiscountCents),
			dollars(booking.TaxCents),
			dollars(booking.TipCents),
			dollars(booking.TotalCents),
			dollars(booking.RefundedAmountCents),
		)
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func dollars(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}
