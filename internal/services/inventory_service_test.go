package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/models"
)

func batchQuantities(t *testing.T, f *fixture, itemID string) []int {
	t.Helper()
	batches, err := f.inventory.ListBatches(f.ctx, itemID)
	require.NoError(t, err)
	out := make([]int, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Quantity)
	}
	return out
}

func TestReserve_DrainsOldestBatchFirst(t *testing.T) {
	f := newFixture(t)
	item := f.stockedItem(t, "Nachos", 0, [2]int64{3, 10}, [2]int64{4, 12})

	res, err := f.inventory.Reserve(f.ctx, item.ID, 5)
	require.NoError(t, err)
	assertMoney(t, "10.8", res.WeightedCost)
	assertMoney(t, "54", res.TotalCost)
	require.Len(t, res.Consumptions, 2)
	assert.Equal(t, 3, res.Consumptions[0].Quantity)
	assert.Equal(t, 2, res.Consumptions[1].Quantity)
	assert.Equal(t, 2, res.RemainingStock)

	assert.Equal(t, []int{0, 2}, batchQuantities(t, f, item.ID), "emptied batches are kept")
	stored, err := f.inventory.GetFoodItem(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentStock)
}

func TestReserve_WithinOldestBatchLeavesNewerUntouched(t *testing.T) {
	f := newFixture(t)
	item := f.stockedItem(t, "Chips", 0, [2]int64{3, 10}, [2]int64{4, 12})

	res, err := f.inventory.Reserve(f.ctx, item.ID, 2)
	require.NoError(t, err)
	assertMoney(t, "10", res.WeightedCost)
	assert.Equal(t, []int{1, 4}, batchQuantities(t, f, item.ID))
}

func TestReserve_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	item := f.stockedItem(t, "Nachos", 0, [2]int64{3, 10}, [2]int64{4, 12})

	_, err := f.inventory.Reserve(f.ctx, item.ID, 8)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, []int{3, 4}, batchQuantities(t, f, item.ID))
	stored, err := f.inventory.GetFoodItem(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.CurrentStock)

	_, err = f.inventory.Reserve(f.ctx, item.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.inventory.Reserve(f.ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrFoodItemNotFound)
}

func TestStockIsConserved(t *testing.T) {
	f := newFixture(t)
	cost := decimal.NewFromInt(8)
	item, err := f.inventory.CreateFoodItem(f.ctx, desk, CreateFoodItemRequest{
		Name:         "Cola",
		Price:        decimal.NewFromInt(40),
		CostPrice:    &cost,
		InitialStock: 5,
	})
	require.NoError(t, err)

	_, err = f.inventory.AddBatch(f.ctx, desk, item.ID, AddBatchRequest{Quantity: 3, CostPrice: decimal.NewFromInt(9)})
	require.NoError(t, err)
	_, err = f.inventory.Reserve(f.ctx, item.ID, 4)
	require.NoError(t, err)
	_, err = f.inventory.Reserve(f.ctx, item.ID, 10)
	require.ErrorIs(t, err, ErrInsufficientStock)
	_, err = f.inventory.RemoveStock(f.ctx, desk, item.ID, RemoveStockRequest{Quantity: 1, Reason: "spilled"})
	require.NoError(t, err)

	stored, err := f.inventory.GetFoodItem(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5+3-4-1, stored.CurrentStock)

	sum := 0
	for _, q := range batchQuantities(t, f, item.ID) {
		sum += q
	}
	assert.Equal(t, stored.CurrentStock, sum)
}

func TestLowStock_NotifiesOnCrossingOnly(t *testing.T) {
	f := newFixture(t)
	item := f.stockedItem(t, "Cola", 3, [2]int64{7, 10})

	_, err := f.inventory.Reserve(f.ctx, item.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, f.sent.OfType(models.NotificationLowStock))

	res, err := f.inventory.Reserve(f.ctx, item.ID, 2)
	require.NoError(t, err)
	assert.True(t, res.LowStock)
	require.Len(t, f.sent.OfType(models.NotificationLowStock), 1)
	assert.Equal(t, item.ID, f.sent.OfType(models.NotificationLowStock)[0].EntityID)

	_, err = f.inventory.Reserve(f.ctx, item.ID, 1)
	require.NoError(t, err)
	assert.Len(t, f.sent.OfType(models.NotificationLowStock), 1)

	low, err := f.inventory.LowStockItems(f.ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, 2, low[0].Deficit)
}

func TestUntrackedItems(t *testing.T) {
	f := newFixture(t)
	cost := decimal.NewFromInt(5)
	item, err := f.inventory.CreateFoodItem(f.ctx, desk, CreateFoodItemRequest{
		Name:      "Tea",
		Price:     decimal.NewFromInt(20),
		CostPrice: &cost,
		Category:  "untracked",
	})
	require.NoError(t, err)

	res, err := f.inventory.Reserve(f.ctx, item.ID, 100)
	require.NoError(t, err)
	assertMoney(t, "500", res.TotalCost)
	assert.Empty(t, res.Consumptions)

	_, err = f.inventory.AddBatch(f.ctx, desk, item.ID, AddBatchRequest{Quantity: 5})
	assert.ErrorIs(t, err, ErrValidation)

	before, err := f.reports.RecentActivity(f.ctx, 50)
	require.NoError(t, err)
	_, err = f.inventory.RemoveStock(f.ctx, desk, item.ID, RemoveStockRequest{Quantity: 1, Reason: "spilled"})
	assert.ErrorIs(t, err, ErrValidation)
	after, err := f.reports.RecentActivity(f.ctx, 50)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "a rejected removal leaves no audit entry")

	low, err := f.inventory.LowStockItems(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestCreateFoodItem_Validation(t *testing.T) {
	f := newFixture(t)

	for name, req := range map[string]CreateFoodItemRequest{
		"no name":            {Price: decimal.NewFromInt(1)},
		"negative price":     {Name: "X", Price: decimal.NewFromInt(-1)},
		"negative stock":     {Name: "X", Price: decimal.NewFromInt(1), InitialStock: -1},
		"unknown category":   {Name: "X", Price: decimal.NewFromInt(1), Category: "frozen"},
		"untracked w/ stock": {Name: "X", Price: decimal.NewFromInt(1), Category: "untracked", InitialStock: 2},
	} {
		_, err := f.inventory.CreateFoodItem(f.ctx, desk, req)
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	_, err := f.inventory.AddBatch(f.ctx, desk, "missing", AddBatchRequest{Quantity: 1})
	assert.ErrorIs(t, err, ErrFoodItemNotFound)
	_, err = f.inventory.ListBatches(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrFoodItemNotFound)
}
