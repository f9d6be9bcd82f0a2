package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/services"
	"gaming_lounge_backend/pkg/utils"
)

// BookingHandler exposes the session state machine.
type BookingHandler struct {
	bookingService services.BookingService
	quotes         services.QuoteCache
	loc            *time.Location
}

// NewBookingHandler creates a new BookingHandler. quotes may be nil.
func NewBookingHandler(bs services.BookingService, quotes services.QuoteCache, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.Local
	}
	return &BookingHandler{bookingService: bs, quotes: quotes, loc: loc}
}

// StartBooking assigns a seat and starts a session.
func (h *BookingHandler) StartBooking(c *gin.Context) {
	var req services.StartRequest
	if !bindJSON(c, "StartBooking", &req) {
		return
	}
	booking, err := h.bookingService.Start(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondServiceError(c, err, "StartBooking", "Failed to start booking.")
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// parseBookingFilters reads the shared list filters; false means the
// response was already written.
func (h *BookingHandler) parseBookingFilters(c *gin.Context) (models.BookingFilters, bool) {
	var filters models.BookingFilters
	filters.Page, filters.PageSize = pageParams(c)
	if category := c.Query("category"); category != "" {
		filters.Category = &category
	}
	if statusStr := c.Query("status"); statusStr != "" {
		if !models.IsValidBookingStatus(statusStr) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid status value.", "status: "+statusStr))
			return filters, false
		}
		filters.Status = &statusStr
	}
	if groupID := c.Query("group_id"); groupID != "" {
		filters.GroupID = &groupID
	}
	from, ok := parseDateParam(c, "date_from", h.loc)
	if !ok {
		return filters, false
	}
	filters.DateFrom = from
	to, ok := parseDateParam(c, "date_to", h.loc)
	if !ok {
		return filters, false
	}
	if to != nil {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond) // End of day
		filters.DateTo = &end
	}
	return filters, true
}

// GetBookings lists sessions with pagination and filters. live=true returns
// only active and paused sessions.
func (h *BookingHandler) GetBookings(c *gin.Context) {
	if c.Query("live") == "true" {
		live, err := h.bookingService.ListLive(c.Request.Context())
		if err != nil {
			respondServiceError(c, err, "GetBookings", "Failed to fetch bookings.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": live, "total": len(live)})
		return
	}

	filters, ok := h.parseBookingFilters(c)
	if !ok {
		return
	}
	bookings, totalCount, err := h.bookingService.List(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "GetBookings", "Failed to fetch bookings.")
		return
	}
	if bookings == nil {
		bookings = []models.BookingSession{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      bookings,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetBookingByID fetches a session by id, or by booking code when the
// parameter looks like BK-XXXXXX.
func (h *BookingHandler) GetBookingByID(c *gin.Context) {
	id := c.Param("id")
	var (
		booking *models.BookingSession
		err     error
	)
	if strings.HasPrefix(id, "BK-") {
		booking, err = h.bookingService.GetByCode(c.Request.Context(), id)
	} else {
		booking, err = h.bookingService.Get(c.Request.Context(), id)
	}
	if err != nil {
		respondServiceError(c, err, "GetBookingByID", "Failed to fetch booking.")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetLiveQuote returns the running price, from the sweeper cache when fresh.
func (h *BookingHandler) GetLiveQuote(c *gin.Context) {
	id := c.Param("id")
	if h.quotes != nil && c.Query("fresh") != "true" {
		if cached, err := h.quotes.Get(c.Request.Context(), id); err == nil {
			c.JSON(http.StatusOK, gin.H{"quote": cached.Quote, "computed_at": cached.ComputedAt, "cached": true})
			return
		}
	}
	quote, err := h.bookingService.LiveQuote(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "GetLiveQuote", "Failed to price booking.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quote, "cached": false})
}

func (h *BookingHandler) PauseBooking(c *gin.Context) {
	booking, err := h.bookingService.Pause(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "PauseBooking", "Failed to pause booking.")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) ResumeBooking(c *gin.Context) {
	booking, err := h.bookingService.Resume(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "ResumeBooking", "Failed to resume booking.")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) ExtendBooking(c *gin.Context) {
	var req services.ExtendRequest
	if !bindJSON(c, "ExtendBooking", &req) {
		return
	}
	booking, err := h.bookingService.Extend(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "ExtendBooking", "Failed to extend booking.")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// AddFoodOrder attaches a food order and draws stock for it.
func (h *BookingHandler) AddFoodOrder(c *gin.Context) {
	var req services.FoodOrderRequest
	if !bindJSON(c, "AddFoodOrder", &req) {
		return
	}
	booking, err := h.bookingService.AttachFoodOrder(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "AddFoodOrder", "Failed to add food order.")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) SettlePayment(c *gin.Context) {
	var req services.SettlePaymentRequest
	if !bindJSON(c, "SettlePayment", &req) {
		return
	}
	booking, err := h.bookingService.SettlePayment(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "SettlePayment", "Failed to record payment.")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) GetPaymentLogs(c *gin.Context) {
	logs, err := h.bookingService.PaymentLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "GetPaymentLogs", "Failed to fetch payment logs.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// CompleteBooking ends the session and returns the archived record.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	history, err := h.bookingService.Complete(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "CompleteBooking", "Failed to complete booking.")
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	history, err := h.bookingService.Cancel(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "CancelBooking", "Failed to cancel booking.")
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetHistory lists archived sessions.
func (h *BookingHandler) GetHistory(c *gin.Context) {
	filters, ok := h.parseBookingFilters(c)
	if !ok {
		return
	}
	records, totalCount, err := h.bookingService.ListHistory(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "GetHistory", "Failed to fetch history.")
		return
	}
	if records == nil {
		records = []models.BookingHistory{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      records,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *BookingHandler) GetHistoryByID(c *gin.Context) {
	record, err := h.bookingService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "GetHistoryByID", "Failed to fetch history record.")
		return
	}
	c.JSON(http.StatusOK, record)
}
