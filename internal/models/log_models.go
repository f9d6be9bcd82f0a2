package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Actor is the staff member on whose behalf an operation runs.
type Actor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// SystemActor is used for operations not triggered by a person (sweeps, startup).
func SystemActor() Actor {
	return Actor{UserID: "system", Username: "system", Role: "system"}
}

// ActivityLog is one audit entry.
type ActivityLog struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Username   string    `json:"username" db:"username"`
	UserRole   string    `json:"user_role" db:"user_role"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Details    string    `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// PaymentLog records one accepted settlement against a booking.
type PaymentLog struct {
	ID             string          `json:"id" db:"id"`
	BookingID      string          `json:"booking_id" db:"booking_id"`
	SeatName       string          `json:"seat_name" db:"seat_name"`
	CustomerName   string          `json:"customer_name" db:"customer_name"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	CashAmount     decimal.Decimal `json:"cash_amount" db:"cash_amount"`
	UpiAmount      decimal.Decimal `json:"upi_amount" db:"upi_amount"`
	PaymentMethod  PaymentMethod   `json:"payment_method" db:"payment_method"`
	PaymentStatus  PaymentStatus   `json:"payment_status" db:"payment_status"`
	PreviousStatus *PaymentStatus  `json:"previous_status,omitempty" db:"previous_status"`
	PreviousMethod *PaymentMethod  `json:"previous_method,omitempty" db:"previous_method"`
	UserID         string          `json:"user_id" db:"user_id"`
	Username       string          `json:"username" db:"username"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// NotificationType names an event pushed to the notification collaborator.
type NotificationType string

const (
	NotificationLowStock         NotificationType = "inventory.low_stock"
	NotificationBookingStarted   NotificationType = "booking.started"
	NotificationBookingPaused    NotificationType = "booking.paused"
	NotificationBookingResumed   NotificationType = "booking.resumed"
	NotificationBookingExtended  NotificationType = "booking.extended"
	NotificationBookingCompleted NotificationType = "booking.completed"
	NotificationBookingCancelled NotificationType = "booking.cancelled"
	NotificationBookingPayment   NotificationType = "booking.payment"
	NotificationBookingTimeUp    NotificationType = "booking.time_up"
)

// Notification is a push-only event; the engine never reads these back.
type Notification struct {
	ID         string            `json:"id"`
	Type       NotificationType  `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	EntityType string            `json:"entity_type,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
