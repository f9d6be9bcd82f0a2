package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/services"
)

// InventoryHandler exposes the food items and their FIFO stock batches.
type InventoryHandler struct {
	ledger services.InventoryLedger
}

func NewInventoryHandler(l services.InventoryLedger) *InventoryHandler {
	return &InventoryHandler{ledger: l}
}

// CreateFoodItem handles creation of a new food item. A trackable item with
// initial stock opens its first batch.
func (h *InventoryHandler) CreateFoodItem(c *gin.Context) {
	var req services.CreateFoodItemRequest
	if !bindJSON(c, "CreateFoodItem", &req) {
		return
	}
	item, err := h.ledger.CreateFoodItem(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondServiceError(c, err, "CreateFoodItem", "Failed to create food item.")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *InventoryHandler) GetFoodItems(c *gin.Context) {
	items, err := h.ledger.ListFoodItems(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "GetFoodItems", "Failed to fetch food items.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

func (h *InventoryHandler) GetFoodItemByID(c *gin.Context) {
	item, err := h.ledger.GetFoodItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "GetFoodItemByID", "Failed to fetch food item.")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) AddBatch(c *gin.Context) {
	var req services.AddBatchRequest
	if !bindJSON(c, "AddBatch", &req) {
		return
	}
	batch, err := h.ledger.AddBatch(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "AddBatch", "Failed to add stock batch.")
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (h *InventoryHandler) GetBatches(c *gin.Context) {
	batches, err := h.ledger.ListBatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "GetBatches", "Failed to fetch stock batches.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": batches})
}

// RemoveStock writes off stock (spoilage, waste) oldest batch first.
func (h *InventoryHandler) RemoveStock(c *gin.Context) {
	var req services.RemoveStockRequest
	if !bindJSON(c, "RemoveStock", &req) {
		return
	}
	res, err := h.ledger.RemoveStock(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "RemoveStock", "Failed to remove stock.")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	items, err := h.ledger.LowStockItems(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "GetLowStock", "Failed to fetch low stock items.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}
