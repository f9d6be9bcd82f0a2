package repositories

import (
	"context"
	"fmt"

	"gaming_lounge_backend/internal/models"
)

type pgPaymentLogRepository struct {
	ex SQLExecutor
}

func (r *pgPaymentLogRepository) Create(ctx context.Context, p *models.PaymentLog) error {
	query := `INSERT INTO payment_logs
	            (id, booking_id, seat_name, customer_name, amount, cash_amount, upi_amount, payment_method,
	             payment_status, previous_status, previous_method, user_id, username, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.ex.ExecContext(ctx, query,
		p.ID, p.BookingID, p.SeatName, p.CustomerName, p.Amount, p.CashAmount, p.UpiAmount, p.PaymentMethod,
		p.PaymentStatus, p.PreviousStatus, p.PreviousMethod, p.UserID, p.Username, p.CreatedAt)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("logging payment for booking %s", p.BookingID))
	}
	return nil
}

func (r *pgPaymentLogRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.PaymentLog, error) {
	query := `SELECT id, booking_id, seat_name, customer_name, amount, cash_amount, upi_amount, payment_method,
	                 payment_status, previous_status, previous_method, user_id, username, created_at
	          FROM payment_logs WHERE booking_id = $1 ORDER BY created_at, id`
	rows, err := r.ex.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, mapPQError(err, "listing payment logs")
	}
	defer rows.Close()

	logs := []models.PaymentLog{}
	for rows.Next() {
		var p models.PaymentLog
		if err := rows.Scan(&p.ID, &p.BookingID, &p.SeatName, &p.CustomerName, &p.Amount, &p.CashAmount,
			&p.UpiAmount, &p.PaymentMethod, &p.PaymentStatus, &p.PreviousStatus, &p.PreviousMethod,
			&p.UserID, &p.Username, &p.CreatedAt); err != nil {
			return nil, mapPQError(err, "scanning payment log")
		}
		logs = append(logs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "iterating payment logs")
	}
	return logs, nil
}

type pgActivityLogRepository struct {
	ex SQLExecutor
}

func (r *pgActivityLogRepository) Create(ctx context.Context, l *models.ActivityLog) error {
	query := `INSERT INTO activity_logs (id, user_id, username, user_role, action, entity_type, entity_id, details, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.ex.ExecContext(ctx, query,
		l.ID, l.UserID, l.Username, l.UserRole, l.Action, l.EntityType, l.EntityID, l.Details, l.CreatedAt)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("writing activity log %s", l.Action))
	}
	return nil
}

func (r *pgActivityLogRepository) List(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.ex.QueryContext(ctx, `SELECT id, user_id, username, user_role, action, entity_type, entity_id, details, created_at
	          FROM activity_logs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, mapPQError(err, "listing activity logs")
	}
	defer rows.Close()

	logs := []models.ActivityLog{}
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Username, &l.UserRole, &l.Action, &l.EntityType,
			&l.EntityID, &l.Details, &l.CreatedAt); err != nil {
			return nil, mapPQError(err, "scanning activity log")
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "iterating activity logs")
	}
	return logs, nil
}
