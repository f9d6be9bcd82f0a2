package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/services"
	"gaming_lounge_backend/pkg/utils"
)

type PricingHandler struct {
	pricing services.PricingResolver
}

func NewPricingHandler(p services.PricingResolver) *PricingHandler {
	return &PricingHandler{pricing: p}
}

// Quote prices a prospective session without starting it.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req services.QuoteRequest
	if !bindJSON(c, "Quote", &req) {
		return
	}
	quote, err := h.pricing.Quote(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Quote", "Failed to compute quote.")
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *PricingHandler) GetRules(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && !models.IsValidRuleKind(kind) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid kind value.", "kind: "+kind))
		return
	}
	rules, err := h.pricing.ListRules(c.Request.Context(), c.Query("category"), models.RuleKind(kind))
	if err != nil {
		respondServiceError(c, err, "GetRules", "Failed to fetch pricing rules.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (h *PricingHandler) UpsertRule(c *gin.Context) {
	var req services.UpsertRuleRequest
	if !bindJSON(c, "UpsertRule", &req) {
		return
	}
	rule, err := h.pricing.UpsertRule(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondServiceError(c, err, "UpsertRule", "Failed to save pricing rule.")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *PricingHandler) DeleteRule(c *gin.Context) {
	if err := h.pricing.DeleteRule(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id")); err != nil {
		respondServiceError(c, err, "DeleteRule", "Failed to delete pricing rule.")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PricingHandler) GetHappyHours(c *gin.Context) {
	configs, err := h.pricing.ListHappyHours(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondServiceError(c, err, "GetHappyHours", "Failed to fetch happy hours.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": configs})
}

func (h *PricingHandler) UpsertHappyHour(c *gin.Context) {
	var req services.UpsertHappyHourRequest
	if !bindJSON(c, "UpsertHappyHour", &req) {
		return
	}
	cfg, err := h.pricing.UpsertHappyHour(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondServiceError(c, err, "UpsertHappyHour", "Failed to save happy hour.")
		return
	}
	c.JSON(http.StatusOK, cfg)
}
