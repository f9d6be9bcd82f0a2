package repositories

import (
	"context"
	"fmt"

	"gaming_lounge_backend/internal/models"
)

type pgFoodRepository struct {
	ex SQLExecutor
}

const selectFoodItemFields = `id, name, price, cost_price, current_stock, min_stock_level, category,
	supplier, expiry_date, version, created_at, updated_at`

func scanFoodItem(row scanner) (*models.FoodItem, error) {
	var item models.FoodItem
	err := row.Scan(&item.ID, &item.Name, &item.Price, &item.CostPrice, &item.CurrentStock, &item.MinStockLevel,
		&item.Category, &item.Supplier, &item.ExpiryDate, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, mapPQError(err, "scanning food item")
	}
	return &item, nil
}

func (r *pgFoodRepository) CreateItem(ctx context.Context, item *models.FoodItem) error {
	query := `INSERT INTO food_items (` + selectFoodItemFields + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)`
	_, err := r.ex.ExecContext(ctx, query,
		item.ID, item.Name, item.Price, item.CostPrice, item.CurrentStock, item.MinStockLevel,
		item.Category, item.Supplier, item.ExpiryDate, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("creating food item '%s'", item.Name))
	}
	item.Version = 1
	return nil
}

// GetItem locks the row so concurrent reservations across processes queue up.
func (r *pgFoodRepository) GetItem(ctx context.Context, id string) (*models.FoodItem, error) {
	return scanFoodItem(r.ex.QueryRowContext(ctx,
		"SELECT "+selectFoodItemFields+" FROM food_items WHERE id = $1 FOR UPDATE", id))
}

func (r *pgFoodRepository) ListItems(ctx context.Context) ([]models.FoodItem, error) {
	rows, err := r.ex.QueryContext(ctx, "SELECT "+selectFoodItemFields+" FROM food_items ORDER BY name")
	if err != nil {
		return nil, mapPQError(err, "listing food items")
	}
	defer rows.Close()

	items := []models.FoodItem{}
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "iterating food items")
	}
	return items, nil
}

func (r *pgFoodRepository) UpdateItem(ctx context.Context, item *models.FoodItem) error {
	query := `UPDATE food_items SET
	            name = $1, price = $2, cost_price = $3, current_stock = $4, min_stock_level = $5,
	            category = $6, supplier = $7, expiry_date = $8, updated_at = $9, version = version + 1
	          WHERE id = $10 AND version = $11`
	res, err := r.ex.ExecContext(ctx, query,
		item.Name, item.Price, item.CostPrice, item.CurrentStock, item.MinStockLevel,
		item.Category, item.Supplier, item.ExpiryDate, item.UpdatedAt, item.ID, item.Version)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("updating food item %s", item.ID))
	}
	if err := checkVersioned(ctx, r.ex, res, "food_items", item.ID); err != nil {
		return err
	}
	item.Version++
	return nil
}

func (r *pgFoodRepository) CreateBatch(ctx context.Context, batch *models.StockBatch) error {
	query := `INSERT INTO stock_batches
	            (id, food_item_id, quantity, initial_quantity, cost_price, supplier, purchase_date, expiry_date, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING seq`
	err := r.ex.QueryRowContext(ctx, query,
		batch.ID, batch.FoodItemID, batch.Quantity, batch.InitialQuantity, batch.CostPrice,
		batch.Supplier, batch.PurchaseDate, batch.ExpiryDate, batch.Notes, batch.CreatedAt,
	).Scan(&batch.Seq)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("creating stock batch for item %s", batch.FoodItemID))
	}
	return nil
}

func (r *pgFoodRepository) ListBatches(ctx context.Context, foodItemID string) ([]models.StockBatch, error) {
	query := `SELECT id, food_item_id, quantity, initial_quantity, cost_price, supplier, purchase_date,
	                 expiry_date, notes, seq, created_at
	          FROM stock_batches WHERE food_item_id = $1
	          ORDER BY purchase_date, seq`
	rows, err := r.ex.QueryContext(ctx, query, foodItemID)
	if err != nil {
		return nil, mapPQError(err, "listing stock batches")
	}
	defer rows.Close()

	batches := []models.StockBatch{}
	for rows.Next() {
		var b models.StockBatch
		if err := rows.Scan(&b.ID, &b.FoodItemID, &b.Quantity, &b.InitialQuantity, &b.CostPrice, &b.Supplier,
			&b.PurchaseDate, &b.ExpiryDate, &b.Notes, &b.Seq, &b.CreatedAt); err != nil {
			return nil, mapPQError(err, "scanning stock batch")
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(err, "iterating stock batches")
	}
	return batches, nil
}

func (r *pgFoodRepository) UpdateBatchQuantity(ctx context.Context, batchID string, quantity int) error {
	res, err := r.ex.ExecContext(ctx, "UPDATE stock_batches SET quantity = $1 WHERE id = $2", quantity, batchID)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("updating stock batch %s", batchID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
