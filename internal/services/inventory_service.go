package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/notify"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

var (
	ErrFoodItemNotFound  = errors.New("food item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// --- Inventory DTOs ---

type CreateFoodItemRequest struct {
	Name          string           `json:"name" binding:"required"`
	Price         decimal.Decimal  `json:"price" binding:"required"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	InitialStock  int              `json:"initial_stock"`
	MinStockLevel int              `json:"min_stock_level"`
	Category      string           `json:"category"`
	Supplier      *string          `json:"supplier"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
}

type AddBatchRequest struct {
	Quantity     int             `json:"quantity" binding:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Supplier     *string         `json:"supplier"`
	PurchaseDate *time.Time      `json:"purchase_date"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	Notes        *string         `json:"notes"`
}

type RemoveStockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason"`
}

// InventoryLedger tracks food stock as FIFO-costed batches.
type InventoryLedger interface {
	CreateFoodItem(ctx context.Context, actor models.Actor, req CreateFoodItemRequest) (*models.FoodItem, error)
	GetFoodItem(ctx context.Context, id string) (*models.FoodItem, error)
	ListFoodItems(ctx context.Context) ([]models.FoodItem, error)
	ListBatches(ctx context.Context, foodItemID string) ([]models.StockBatch, error)

	// Reserve draws quantity oldest batch first, in its own transaction.
	Reserve(ctx context.Context, foodItemID string, quantity int) (*models.StockReservation, error)
	// ReserveTx is Reserve inside a caller's transaction. The caller must
	// hold locks.FoodKey(foodItemID) and returns the item as it is after the draw.
	ReserveTx(ctx context.Context, tx repositories.Tx, foodItemID string, quantity int) (*models.StockReservation, *models.FoodItem, error)

	AddBatch(ctx context.Context, actor models.Actor, foodItemID string, req AddBatchRequest) (*models.StockBatch, error)
	RemoveStock(ctx context.Context, actor models.Actor, foodItemID string, req RemoveStockRequest) (*models.StockReservation, error)
	LowStockItems(ctx context.Context) ([]models.LowStockItem, error)
}

type inventoryLedger struct {
	rt Runtime
}

// NewInventoryLedger creates the ledger.
func NewInventoryLedger(rt Runtime) InventoryLedger {
	return &inventoryLedger{rt: rt.withDefaults()}
}

func (l *inventoryLedger) CreateFoodItem(ctx context.Context, actor models.Actor, req CreateFoodItemRequest) (*models.FoodItem, error) {
	if utils.IsEmpty(req.Name) {
		return nil, validationError("food item name is required")
	}
	if req.Price.IsNegative() {
		return nil, validationError("price cannot be negative")
	}
	if req.CostPrice != nil && req.CostPrice.IsNegative() {
		return nil, validationError("cost price cannot be negative")
	}
	if req.InitialStock < 0 || req.MinStockLevel < 0 {
		return nil, validationError("stock levels cannot be negative")
	}
	category := models.FoodCategory(req.Category)
	if req.Category == "" {
		category = models.FoodCategoryTrackable
	}
	if !models.IsValidFoodCategory(string(category)) {
		return nil, validationError("invalid food category '%s'", req.Category)
	}
	if category == models.FoodCategoryUntracked && req.InitialStock > 0 {
		return nil, validationError("untracked items carry no stock")
	}

	now := l.rt.now()
	item := &models.FoodItem{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		CurrentStock:  req.InitialStock,
		MinStockLevel: req.MinStockLevel,
		Category:      category,
		Supplier:      req.Supplier,
		ExpiryDate:    req.ExpiryDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := l.rt.runTx(ctx, func(tx repositories.Tx) error {
		item.CurrentStock = req.InitialStock
		if err := tx.Food().CreateItem(ctx, item); err != nil {
			return err
		}
		if req.InitialStock == 0 {
			return nil
		}
		cost := decimal.Zero
		if req.CostPrice != nil {
			cost = *req.CostPrice
		}
		return tx.Food().CreateBatch(ctx, &models.StockBatch{
			ID:              uuid.NewString(),
			FoodItemID:      item.ID,
			Quantity:        req.InitialStock,
			InitialQuantity: req.InitialStock,
			CostPrice:       cost,
			Supplier:        req.Supplier,
			PurchaseDate:    now,
			ExpiryDate:      req.ExpiryDate,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("creating food item: %w", err)
	}

	l.rt.audit(ctx, actor, "inventory.item_created", "food_item", item.ID, item.Name)
	return item, nil
}

func (l *inventoryLedger) GetFoodItem(ctx context.Context, id string) (*models.FoodItem, error) {
	var item *models.FoodItem
	err := l.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		item, err = tx.Food().GetItem(ctx, id)
		return err
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFoodItemNotFound, id)
	}
	return item, err
}

func (l *inventoryLedger) ListFoodItems(ctx context.Context) ([]models.FoodItem, error) {
	var items []models.FoodItem
	err := l.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		items, err = tx.Food().ListItems(ctx)
		return err
	})
	return items, err
}

func (l *inventoryLedger) ListBatches(ctx context.Context, foodItemID string) ([]models.StockBatch, error) {
	var batches []models.StockBatch
	err := l.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		if _, err := tx.Food().GetItem(ctx, foodItemID); err != nil {
			return err
		}
		var err error
		batches, err = tx.Food().ListBatches(ctx, foodItemID)
		return err
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFoodItemNotFound, foodItemID)
	}
	return batches, err
}

func (l *inventoryLedger) Reserve(ctx context.Context, foodItemID string, quantity int) (*models.StockReservation, error) {
	var res *models.StockReservation
	var item *models.FoodItem
	err := l.rt.withLocks(ctx, []string{locks.FoodKey(foodItemID)}, func() error {
		return l.rt.runTx(ctx, func(tx repositories.Tx) error {
			var err error
			res, item, err = l.ReserveTx(ctx, tx, foodItemID, quantity)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	signalLowStock(ctx, l.rt, item, res)
	return res, nil
}

func (l *inventoryLedger) ReserveTx(ctx context.Context, tx repositories.Tx, foodItemID string, quantity int) (*models.StockReservation, *models.FoodItem, error) {
	if quantity <= 0 {
		return nil, nil, validationError("quantity must be positive")
	}
	item, err := tx.Food().GetItem(ctx, foodItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFoodItemNotFound, foodItemID)
		}
		return nil, nil, err
	}

	res := &models.StockReservation{FoodItemID: item.ID, Quantity: quantity, RemainingStock: item.CurrentStock}
	if !item.Tracked() {
		if item.CostPrice != nil {
			res.WeightedCost = *item.CostPrice
			res.TotalCost = item.CostPrice.Mul(decimal.NewFromInt(int64(quantity)))
		}
		return res, item, nil
	}

	batches, err := tx.Food().ListBatches(ctx, item.ID)
	if err != nil {
		return nil, nil, err
	}
	available := 0
	for _, b := range batches {
		available += b.Quantity
	}
	if available < quantity {
		return nil, nil, fmt.Errorf("%w: '%s' has %d in stock, %d requested", ErrInsufficientStock, item.Name, available, quantity)
	}

	remaining := quantity
	total := decimal.Zero
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.Quantity == 0 {
			continue
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		if err := tx.Food().UpdateBatchQuantity(ctx, b.ID, b.Quantity-take); err != nil {
			return nil, nil, err
		}
		res.Consumptions = append(res.Consumptions, models.BatchConsumption{BatchID: b.ID, Quantity: take, UnitCost: b.CostPrice})
		total = total.Add(b.CostPrice.Mul(decimal.NewFromInt(int64(take))))
		remaining -= take
	}

	item.CurrentStock = available - quantity
	item.UpdatedAt = l.rt.now()
	if err := tx.Food().UpdateItem(ctx, item); err != nil {
		return nil, nil, err
	}

	res.TotalCost = total
	res.WeightedCost = total.DivRound(decimal.NewFromInt(int64(quantity)), 4)
	res.RemainingStock = item.CurrentStock
	res.LowStock = item.IsLowStock()
	return res, item, nil
}

func (l *inventoryLedger) AddBatch(ctx context.Context, actor models.Actor, foodItemID string, req AddBatchRequest) (*models.StockBatch, error) {
	if req.Quantity <= 0 {
		return nil, validationError("batch quantity must be positive")
	}
	if req.CostPrice.IsNegative() {
		return nil, validationError("cost price cannot be negative")
	}

	now := l.rt.now()
	batch := &models.StockBatch{
		ID:              uuid.NewString(),
		FoodItemID:      foodItemID,
		Quantity:        req.Quantity,
		InitialQuantity: req.Quantity,
		CostPrice:       req.CostPrice,
		Supplier:        req.Supplier,
		PurchaseDate:    now,
		ExpiryDate:      req.ExpiryDate,
		Notes:           req.Notes,
		CreatedAt:       now,
	}
	if req.PurchaseDate != nil {
		batch.PurchaseDate = *req.PurchaseDate
	}

	err := l.rt.withLocks(ctx, []string{locks.FoodKey(foodItemID)}, func() error {
		return l.rt.runTx(ctx, func(tx repositories.Tx) error {
			item, err := tx.Food().GetItem(ctx, foodItemID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrFoodItemNotFound, foodItemID)
				}
				return err
			}
			if !item.Tracked() {
				return validationError("'%s' is untracked and takes no batches", item.Name)
			}
			if err := tx.Food().CreateBatch(ctx, batch); err != nil {
				return err
			}
			item.CurrentStock += batch.Quantity
			item.UpdatedAt = now
			return tx.Food().UpdateItem(ctx, item)
		})
	})
	if err != nil {
		return nil, err
	}

	l.rt.audit(ctx, actor, "inventory.batch_added", "food_item", foodItemID,
		fmt.Sprintf("+%d @ %s", batch.Quantity, batch.CostPrice.StringFixed(2)))
	return batch, nil
}

func (l *inventoryLedger) RemoveStock(ctx context.Context, actor models.Actor, foodItemID string, req RemoveStockRequest) (*models.StockReservation, error) {
	details := fmt.Sprintf("-%d", req.Quantity)
	if req.Reason != "" {
		details += " (" + req.Reason + ")"
	}
	entry := notify.AuditEntry{Actor: actor, Action: "inventory.stock_removed", EntityType: "food_item", EntityID: foodItemID, Details: details}

	var res *models.StockReservation
	var item *models.FoodItem
	err := l.rt.withLocks(ctx, []string{locks.FoodKey(foodItemID)}, func() error {
		return l.rt.runTx(ctx, func(tx repositories.Tx) error {
			current, err := tx.Food().GetItem(ctx, foodItemID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrFoodItemNotFound, foodItemID)
				}
				return err
			}
			if !current.Tracked() {
				return validationError("'%s' is untracked and holds no stock to remove", current.Name)
			}
			if res, item, err = l.ReserveTx(ctx, tx, foodItemID, req.Quantity); err != nil {
				return err
			}
			return l.rt.auditTx(ctx, tx, entry)
		})
	})
	if err != nil {
		return nil, err
	}
	l.rt.auditCommitted(ctx, entry)
	signalLowStock(ctx, l.rt, item, res)
	return res, nil
}

// LowStockItems lists tracked items at or below their minimum, worst first.
func (l *inventoryLedger) LowStockItems(ctx context.Context) ([]models.LowStockItem, error) {
	items, err := l.ListFoodItems(ctx)
	if err != nil {
		return nil, err
	}
	low := []models.LowStockItem{}
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, models.LowStockItem{FoodItem: item, Deficit: item.StockDeficit()})
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		if low[i].Deficit != low[j].Deficit {
			return low[i].Deficit > low[j].Deficit
		}
		return low[i].Name < low[j].Name
	})
	return low, nil
}

// signalLowStock notifies when a draw takes a tracked item across its minimum.
func signalLowStock(ctx context.Context, rt Runtime, item *models.FoodItem, res *models.StockReservation) {
	if item == nil || res == nil || !res.LowStock {
		return
	}
	if res.RemainingStock+res.Quantity <= item.MinStockLevel {
		return // was already low before this draw
	}
	rt.notify(ctx, models.NotificationLowStock, "Low stock",
		fmt.Sprintf("%s is down to %d (minimum %d)", item.Name, item.CurrentStock, item.MinStockLevel),
		"food_item", item.ID, map[string]string{
			"current_stock":   fmt.Sprint(item.CurrentStock),
			"min_stock_level": fmt.Sprint(item.MinStockLevel),
		})
}
