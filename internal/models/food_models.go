package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FoodCategory tells the ledger whether an item's stock is counted.
type FoodCategory string

const (
	FoodCategoryTrackable FoodCategory = "trackable"
	FoodCategoryUntracked FoodCategory = "untracked"
)

// IsValidFoodCategory checks if the provided string is a known FoodCategory.
func IsValidFoodCategory(c string) bool {
	switch FoodCategory(c) {
	case FoodCategoryTrackable, FoodCategoryUntracked:
		return true
	default:
		return false
	}
}

// FoodItem is something sold during a session. CurrentStock is derived:
// it always equals the sum of Quantity over the item's batches.
type FoodItem struct {
	ID            string           `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	Price         decimal.Decimal  `json:"price" db:"price"`
	CostPrice     *decimal.Decimal `json:"cost_price,omitempty" db:"cost_price"`
	CurrentStock  int              `json:"current_stock" db:"current_stock"`
	MinStockLevel int              `json:"min_stock_level" db:"min_stock_level"`
	Category      FoodCategory     `json:"category" db:"category"`
	Supplier      *string          `json:"supplier,omitempty" db:"supplier"`
	ExpiryDate    *time.Time       `json:"expiry_date,omitempty" db:"expiry_date"`
	Version       int64            `json:"version" db:"version"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// Tracked reports whether reservations must draw down batches.
func (f FoodItem) Tracked() bool {
	return f.Category != FoodCategoryUntracked
}

// StockDeficit is how far the item sits below its minimum level (0 or more).
func (f FoodItem) StockDeficit() int {
	if d := f.MinStockLevel - f.CurrentStock; d > 0 {
		return d
	}
	return 0
}

// IsLowStock is true when a tracked item is at or below its minimum level.
func (f FoodItem) IsLowStock() bool {
	return f.Tracked() && f.CurrentStock <= f.MinStockLevel
}

// StockBatch is one cost-tracked purchase lot. Batches are consumed oldest
// PurchaseDate first; an empty batch is kept for cost history.
type StockBatch struct {
	ID              string          `json:"id" db:"id"`
	FoodItemID      string          `json:"food_item_id" db:"food_item_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	InitialQuantity int             `json:"initial_quantity" db:"initial_quantity"`
	CostPrice       decimal.Decimal `json:"cost_price" db:"cost_price"`
	Supplier        *string         `json:"supplier,omitempty" db:"supplier"`
	PurchaseDate    time.Time       `json:"purchase_date" db:"purchase_date"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty" db:"expiry_date"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	Seq             int64           `json:"seq" db:"seq"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// BatchConsumption records how much one batch contributed to a reservation.
type BatchConsumption struct {
	BatchID  string          `json:"batch_id"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// StockReservation is the result of drawing stock for a food order or adjustment.
type StockReservation struct {
	FoodItemID     string             `json:"food_item_id"`
	Quantity       int                `json:"quantity"`
	WeightedCost   decimal.Decimal    `json:"weighted_cost"`
	TotalCost      decimal.Decimal    `json:"total_cost"`
	Consumptions   []BatchConsumption `json:"consumptions,omitempty"`
	RemainingStock int                `json:"remaining_stock"`
	LowStock       bool               `json:"low_stock"`
}

// LowStockItem pairs an item with how far below its threshold it is.
type LowStockItem struct {
	FoodItem
	Deficit int `json:"deficit"`
}
