package repositories

import (
	"context"
	"fmt"
	"strings"

	"gaming_lounge_backend/internal/models"
)

type pgBookingRepository struct {
	ex SQLExecutor
}

const selectBookingFields = `
	id, booking_code, group_id, group_code, category, seat_number, seat_name,
	customer_name, whatsapp_number, start_time, end_time, booking_type, status,
	person_count, duration_minutes, paused_remaining_seconds, paused_at,
	active_since, active_seconds, food_orders, adjustments, original_price,
	final_price, applied_rule_kind, discount_breakdown, payment_status,
	payment_method, cash_amount, upi_amount, last_payment_action, ended_at,
	version, created_at, updated_at`

// scanBookingRow reads one bookings row; list queries append a window count.
func scanBookingRow(row scanner, withCount bool) (*models.BookingSession, int, error) {
	var b models.BookingSession
	var foodOrders, adjustments, breakdown []byte
	var totalCount int

	dest := []interface{}{
		&b.ID, &b.BookingCode, &b.GroupID, &b.GroupCode, &b.Category, &b.SeatNumber, &b.SeatName,
		&b.CustomerName, &b.WhatsappNumber, &b.StartTime, &b.EndTime, &b.BookingType, &b.Status,
		&b.PersonCount, &b.DurationMinutes, &b.PausedRemainingSeconds, &b.PausedAt,
		&b.ActiveSince, &b.ActiveSeconds, &foodOrders, &adjustments, &b.OriginalPrice,
		&b.FinalPrice, &b.AppliedRuleKind, &breakdown, &b.PaymentStatus,
		&b.PaymentMethod, &b.CashAmount, &b.UpiAmount, &b.LastPaymentAction, &b.EndedAt,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	}
	if withCount {
		dest = append(dest, &totalCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, mapPQError(err, "scanning booking")
	}
	if err := jsonScan(foodOrders, &b.FoodOrders); err != nil {
		return nil, 0, err
	}
	if err := jsonScan(adjustments, &b.Adjustments); err != nil {
		return nil, 0, err
	}
	if err := jsonScan(breakdown, &b.Breakdown); err != nil {
		return nil, 0, err
	}
	if b.FoodOrders == nil {
		b.FoodOrders = []models.FoodOrderLine{}
	}
	return &b, totalCount, nil
}

// bookingJSON encodes the three JSONB columns of a booking.
func bookingJSON(b *models.BookingSession) (foodOrders, adjustments, breakdown []byte, err error) {
	orders := b.FoodOrders
	if orders == nil {
		orders = []models.FoodOrderLine{}
	}
	if foodOrders, err = jsonValue(orders); err != nil {
		return
	}
	adj := b.Adjustments
	if adj == nil {
		adj = []models.PriceAdjustment{}
	}
	if adjustments, err = jsonValue(adj); err != nil {
		return
	}
	breakdown, err = jsonValue(b.Breakdown)
	return
}

func (r *pgBookingRepository) Create(ctx context.Context, b *models.BookingSession) error {
	foodOrders, adjustments, breakdown, err := bookingJSON(b)
	if err != nil {
		return err
	}
	query := `INSERT INTO bookings (` + selectBookingFields + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
	                  $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, 1, $32, $33)`
	_, err = r.ex.ExecContext(ctx, query,
		b.ID, b.BookingCode, b.GroupID, b.GroupCode, b.Category, b.SeatNumber, b.SeatName,
		b.CustomerName, b.WhatsappNumber, b.StartTime, b.EndTime, b.BookingType, b.Status,
		b.PersonCount, b.DurationMinutes, b.PausedRemainingSeconds, b.PausedAt,
		b.ActiveSince, b.ActiveSeconds, foodOrders, adjustments, b.OriginalPrice,
		b.FinalPrice, b.AppliedRuleKind, breakdown, b.PaymentStatus,
		b.PaymentMethod, b.CashAmount, b.UpiAmount, b.LastPaymentAction, b.EndedAt,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("creating booking for seat %s", b.SeatKey()))
	}
	b.Version = 1
	return nil
}

func (r *pgBookingRepository) GetByID(ctx context.Context, id string) (*models.BookingSession, error) {
	b, _, err := scanBookingRow(r.ex.QueryRowContext(ctx, "SELECT "+selectBookingFields+" FROM bookings WHERE id = $1", id), false)
	return b, err
}

func (r *pgBookingRepository) GetByCode(ctx context.Context, code string) (*models.BookingSession, error) {
	b, _, err := scanBookingRow(r.ex.QueryRowContext(ctx, "SELECT "+selectBookingFields+" FROM bookings WHERE booking_code = $1", code), false)
	return b, err
}

func (r *pgBookingRepository) FindLiveBySeat(ctx context.Context, category string, seatNumber int) (*models.BookingSession, error) {
	query := "SELECT " + selectBookingFields + ` FROM bookings
	          WHERE category = $1 AND seat_number = $2 AND status IN ('active', 'paused')
	          FOR UPDATE`
	b, _, err := scanBookingRow(r.ex.QueryRowContext(ctx, query, category, seatNumber), false)
	return b, err
}

// bookingConditions renders BookingFilters as a WHERE clause over the given date column.
func bookingConditions(f models.BookingFilters, dateColumn string) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if f.Category != nil && *f.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCount))
		args = append(args, *f.Category)
		argCount++
	}
	if f.Status != nil && *f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *f.Status)
		argCount++
	}
	if f.GroupID != nil && *f.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", argCount))
		args = append(args, *f.GroupID)
		argCount++
	}
	if f.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", dateColumn, argCount))
		args = append(args, *f.DateFrom)
		argCount++
	}
	if f.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", dateColumn, argCount))
		args = append(args, *f.DateTo)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func limitOffset(page, pageSize int) string {
	if pageSize <= 0 {
		return ""
	}
	if page <= 0 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
}

func (r *pgBookingRepository) List(ctx context.Context, f models.BookingFilters) ([]models.BookingSession, int, error) {
	where, args := bookingConditions(f, "start_time")

	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + selectBookingFields + ", COUNT(*) OVER() AS total_count FROM bookings")
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(" ORDER BY start_time DESC, id")
	queryBuilder.WriteString(limitOffset(f.Page, f.PageSize))

	rows, err := r.ex.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, mapPQError(err, "listing bookings")
	}
	defer rows.Close()

	bookings := []models.BookingSession{}
	totalCount := 0
	for rows.Next() {
		b, count, err := scanBookingRow(rows, true)
		if err != nil {
			return nil, 0, err
		}
		totalCount = count
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapPQError(err, "iterating bookings")
	}
	return bookings, totalCount, nil
}

func (r *pgBookingRepository) ListLive(ctx context.Context) ([]models.BookingSession, error) {
	rows, err := r.ex.QueryContext(ctx, "SELECT "+selectBookingFields+
		" FROM bookings WHERE status IN ('active', 'paused') ORDER BY start_time")
	if err != nil {
		return nil, mapPQError(err, "listing live bookings")
	}
	defer rows.Close()

	bookings := []models.BookingSession{}
	for rows.Next() {
		b, _, err := scanBookingRow(rows, false)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "iterating live bookings")
	}
	return bookings, nil
}

func (r *pgBookingRepository) Update(ctx context.Context, b *models.BookingSession) error {
	foodOrders, adjustments, breakdown, err := bookingJSON(b)
	if err != nil {
		return err
	}
	query := `UPDATE bookings SET
	            group_id = $1, group_code = $2, customer_name = $3, whatsapp_number = $4,
	            end_time = $5, status = $6, person_count = $7, duration_minutes = $8,
	            paused_remaining_seconds = $9, paused_at = $10, active_since = $11, active_seconds = $12,
	            food_orders = $13, adjustments = $14, original_price = $15, final_price = $16,
	            applied_rule_kind = $17, discount_breakdown = $18, payment_status = $19, payment_method = $20,
	            cash_amount = $21, upi_amount = $22, last_payment_action = $23, ended_at = $24,
	            updated_at = $25, version = version + 1
	          WHERE id = $26 AND version = $27`
	res, err := r.ex.ExecContext(ctx, query,
		b.GroupID, b.GroupCode, b.CustomerName, b.WhatsappNumber,
		b.EndTime, b.Status, b.PersonCount, b.DurationMinutes,
		b.PausedRemainingSeconds, b.PausedAt, b.ActiveSince, b.ActiveSeconds,
		foodOrders, adjustments, b.OriginalPrice, b.FinalPrice,
		b.AppliedRuleKind, breakdown, b.PaymentStatus, b.PaymentMethod,
		b.CashAmount, b.UpiAmount, b.LastPaymentAction, b.EndedAt,
		b.UpdatedAt, b.ID, b.Version,
	)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("updating booking %s", b.ID))
	}
	if err := checkVersioned(ctx, r.ex, res, "bookings", b.ID); err != nil {
		return err
	}
	b.Version++
	return nil
}

func (r *pgBookingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.ex.ExecContext(ctx, "DELETE FROM bookings WHERE id = $1", id)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("deleting booking %s", id))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
