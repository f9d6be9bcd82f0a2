package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRevenue is one device category's share of a daily report.
type CategoryRevenue struct {
	Category string          `json:"category"`
	Sessions int             `json:"sessions"`
	Revenue  decimal.Decimal `json:"revenue"`
	Minutes  int             `json:"minutes"`
}

// DailyReport summarizes the sessions archived on one lounge-local day.
type DailyReport struct {
	Date              string            `json:"date"` // YYYY-MM-DD
	From              time.Time         `json:"from"`
	To                time.Time         `json:"to"`
	CompletedCount    int               `json:"completed_count"`
	CancelledCount    int               `json:"cancelled_count"`
	SessionRevenue    decimal.Decimal   `json:"session_revenue"`
	FoodRevenue       decimal.Decimal   `json:"food_revenue"`
	FoodCost          decimal.Decimal   `json:"food_cost"`
	FoodWriteOff      decimal.Decimal   `json:"food_write_off"` // cost of food served on cancelled sessions, part of FoodCost
	FoodProfit        decimal.Decimal   `json:"food_profit"`
	TotalRevenue      decimal.Decimal   `json:"total_revenue"`
	CashCollected     decimal.Decimal   `json:"cash_collected"`
	UpiCollected      decimal.Decimal   `json:"upi_collected"`
	Outstanding       decimal.Decimal   `json:"outstanding"`
	DiscountsGiven    decimal.Decimal   `json:"discounts_given"`
	HappyHourSessions int               `json:"happy_hour_sessions"`
	ByCategory        []CategoryRevenue `json:"by_category"`
}

// DashboardSummary holds key metrics for the front desk.
type DashboardSummary struct {
	ActiveSessions     int             `json:"active_sessions"`
	PausedSessions     int             `json:"paused_sessions"`
	RevenueToday       decimal.Decimal `json:"revenue_today"`
	SessionsToday      int             `json:"sessions_today"`
	LowStockItemsCount int             `json:"low_stock_items_count"`
}
