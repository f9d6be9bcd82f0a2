package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus defines the lifecycle state of a session.
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusPaused    BookingStatus = "paused"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsValidBookingStatus checks if the provided status string is a valid BookingStatus.
func IsValidBookingStatus(status string) bool {
	switch BookingStatus(status) {
	case BookingStatusActive, BookingStatusPaused, BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal is true for completed and cancelled sessions.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// BookingType distinguishes open-ended hourly billing from a pre-bought slot.
type BookingType string

const (
	BookingTypeHourly    BookingType = "hourly"
	BookingTypeFixedSlot BookingType = "fixed_slot"
)

// IsValidBookingType checks if the provided string is a known BookingType.
func IsValidBookingType(t string) bool {
	switch BookingType(t) {
	case BookingTypeHourly, BookingTypeFixedSlot:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodUPI   PaymentMethod = "upi"
	PaymentMethodSplit PaymentMethod = "split"
)

// IsValidPaymentMethod checks if the provided string is a known PaymentMethod.
func IsValidPaymentMethod(m string) bool {
	switch PaymentMethod(m) {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodSplit:
		return true
	default:
		return false
	}
}

// FoodOrderLine is one food order attached to a session.
type FoodOrderLine struct {
	ID         string          `json:"id"`
	FoodItemID string          `json:"food_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Total      decimal.Decimal `json:"total"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	AddedAt    time.Time       `json:"added_at"`
}

// BookingSession is one seat's timed occupancy.
//
// Fixed-slot sessions carry an EndTime; hourly sessions are open-ended and
// are billed on ActiveSeconds plus the running stretch since ActiveSince.
// PausedRemainingSeconds is set only while a fixed-slot session is paused.
type BookingSession struct {
	ID                     string            `json:"id" db:"id"`
	BookingCode            string            `json:"booking_code" db:"booking_code"`
	GroupID                *string           `json:"group_id,omitempty" db:"group_id"`
	GroupCode              *string           `json:"group_code,omitempty" db:"group_code"`
	Category               string            `json:"category" db:"category"`
	SeatNumber             int               `json:"seat_number" db:"seat_number"`
	SeatName               string            `json:"seat_name" db:"seat_name"`
	CustomerName           string            `json:"customer_name" db:"customer_name"`
	WhatsappNumber         *string           `json:"whatsapp_number,omitempty" db:"whatsapp_number"`
	StartTime              time.Time         `json:"start_time" db:"start_time"`
	EndTime                *time.Time        `json:"end_time,omitempty" db:"end_time"`
	BookingType            BookingType       `json:"booking_type" db:"booking_type"`
	Status                 BookingStatus     `json:"status" db:"status"`
	PersonCount            int               `json:"person_count" db:"person_count"`
	DurationMinutes        int               `json:"duration_minutes" db:"duration_minutes"`
	PausedRemainingSeconds *int64            `json:"paused_remaining_seconds,omitempty" db:"paused_remaining_seconds"`
	PausedAt               *time.Time        `json:"paused_at,omitempty" db:"paused_at"`
	ActiveSince            *time.Time        `json:"active_since,omitempty" db:"active_since"`
	ActiveSeconds          int64             `json:"active_seconds" db:"active_seconds"`
	FoodOrders             []FoodOrderLine   `json:"food_orders" db:"food_orders"`
	Adjustments            []PriceAdjustment `json:"adjustments,omitempty" db:"adjustments"`
	OriginalPrice          decimal.Decimal   `json:"original_price" db:"original_price"`
	FinalPrice             decimal.Decimal   `json:"final_price" db:"final_price"`
	AppliedRuleKind        RuleKind          `json:"applied_rule_kind" db:"applied_rule_kind"`
	Breakdown              DiscountBreakdown `json:"discount_breakdown" db:"discount_breakdown"`
	PaymentStatus          PaymentStatus     `json:"payment_status" db:"payment_status"`
	PaymentMethod          *PaymentMethod    `json:"payment_method,omitempty" db:"payment_method"`
	CashAmount             decimal.Decimal   `json:"cash_amount" db:"cash_amount"`
	UpiAmount              decimal.Decimal   `json:"upi_amount" db:"upi_amount"`
	LastPaymentAction      *string           `json:"last_payment_action,omitempty" db:"last_payment_action"`
	EndedAt                *time.Time        `json:"ended_at,omitempty" db:"ended_at"`
	Version                int64             `json:"version" db:"version"`
	CreatedAt              time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at" db:"updated_at"`
}

// SeatKey identifies the physical seat for locking and uniqueness checks.
func (b *BookingSession) SeatKey() string {
	return SeatKey(b.Category, b.SeatNumber)
}

// SeatKey formats the lock key of a seat.
func SeatKey(category string, seat int) string {
	return fmt.Sprintf("seat:%s:%d", category, seat)
}

// OpenEnded is true for hourly sessions billed on elapsed time.
func (b *BookingSession) OpenEnded() bool {
	return b.BookingType == BookingTypeHourly
}

// PausedRemaining returns the stored remaining time of a paused fixed slot.
func (b *BookingSession) PausedRemaining() time.Duration {
	if b.PausedRemainingSeconds == nil {
		return 0
	}
	return time.Duration(*b.PausedRemainingSeconds) * time.Second
}

// Elapsed is the billable active time at instant at, pauses excluded.
func (b *BookingSession) Elapsed(at time.Time) time.Duration {
	d := time.Duration(b.ActiveSeconds) * time.Second
	if b.Status == BookingStatusActive && b.ActiveSince != nil && at.After(*b.ActiveSince) {
		d += at.Sub(*b.ActiveSince)
	}
	return d
}

// FoodTotal sums the sale value of attached food orders.
func (b *BookingSession) FoodTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.FoodOrders {
		total = total.Add(line.Total)
	}
	return total
}

// FoodCost sums the batch cost of attached food orders.
func (b *BookingSession) FoodCost() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.FoodOrders {
		total = total.Add(line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// AmountDue is the session price plus food.
func (b *BookingSession) AmountDue() decimal.Decimal {
	return b.FinalPrice.Add(b.FoodTotal())
}

// AmountPaid is cash plus UPI collected so far.
func (b *BookingSession) AmountPaid() decimal.Decimal {
	return b.CashAmount.Add(b.UpiAmount)
}

// Balance is what is still owed (never negative).
func (b *BookingSession) Balance() decimal.Decimal {
	bal := b.AmountDue().Sub(b.AmountPaid())
	if bal.IsNegative() {
		return decimal.Zero
	}
	return bal
}

// DerivePaymentStatus recomputes the status from amounts and the amount due.
func (b *BookingSession) DerivePaymentStatus() PaymentStatus {
	paid := b.AmountPaid()
	switch {
	case !paid.IsPositive():
		return PaymentStatusUnpaid
	case paid.GreaterThanOrEqual(b.AmountDue()):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}

// Clone returns a deep copy, safe to mutate independently.
func (b BookingSession) Clone() BookingSession {
	c := b
	c.GroupID = cloneString(b.GroupID)
	c.GroupCode = cloneString(b.GroupCode)
	c.WhatsappNumber = cloneString(b.WhatsappNumber)
	c.EndTime = cloneTime(b.EndTime)
	c.PausedAt = cloneTime(b.PausedAt)
	c.ActiveSince = cloneTime(b.ActiveSince)
	c.EndedAt = cloneTime(b.EndedAt)
	c.LastPaymentAction = cloneString(b.LastPaymentAction)
	if b.PausedRemainingSeconds != nil {
		v := *b.PausedRemainingSeconds
		c.PausedRemainingSeconds = &v
	}
	if b.PaymentMethod != nil {
		m := *b.PaymentMethod
		c.PaymentMethod = &m
	}
	c.FoodOrders = append([]FoodOrderLine(nil), b.FoodOrders...)
	c.Adjustments = append([]PriceAdjustment(nil), b.Adjustments...)
	c.Breakdown.Applied = append([]string(nil), b.Breakdown.Applied...)
	c.Breakdown.Warnings = append([]string(nil), b.Breakdown.Warnings...)
	return c
}

// BookingHistory is the frozen copy of a terminated session.
// It is constructed once by NewBookingHistory and never updated.
type BookingHistory struct {
	ID         string         `json:"id" db:"id"`
	BookingID  string         `json:"booking_id" db:"booking_id"`
	Booking    BookingSession `json:"booking"`
	ArchivedAt time.Time      `json:"archived_at" db:"archived_at"`
}

// NewBookingHistory snapshots b; later changes to b do not leak into the record.
func NewBookingHistory(id string, b BookingSession, archivedAt time.Time) BookingHistory {
	return BookingHistory{
		ID:         id,
		BookingID:  b.ID,
		Booking:    b.Clone(),
		ArchivedAt: archivedAt,
	}
}

// BookingFilters defines the available filters for querying bookings and history.
type BookingFilters struct {
	Category *string    `form:"category"`
	Status   *string    `form:"status"`
	GroupID  *string    `form:"group_id"`
	DateFrom *time.Time `form:"date_from"`
	DateTo   *time.Time `form:"date_to"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
