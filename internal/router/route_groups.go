package router

import (
	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/handlers"
	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/models"
)

// SetupStaffRoutes sets up the staff account routes.
func SetupStaffRoutes(authenticatedGroup *gin.RouterGroup, staffHandler *handlers.StaffHandler) {
	staffRoutes := authenticatedGroup.Group("/staff")
	staffRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		staffRoutes.POST("", staffHandler.CreateStaff)
		staffRoutes.GET("", staffHandler.GetStaff)
		staffRoutes.PATCH("/:id", staffHandler.UpdateStaff)
	}
}

// SetupBookingRoutes sets up the booking session routes.
func SetupBookingRoutes(authenticatedGroup *gin.RouterGroup, bookingHandler *handlers.BookingHandler) {
	bookingRoutes := authenticatedGroup.Group("/bookings")
	bookingRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		bookingRoutes.POST("", bookingHandler.StartBooking)
		bookingRoutes.GET("", bookingHandler.GetBookings)
		bookingRoutes.GET("/:id", bookingHandler.GetBookingByID)
		bookingRoutes.GET("/:id/quote", bookingHandler.GetLiveQuote)
		bookingRoutes.POST("/:id/pause", bookingHandler.PauseBooking)
		bookingRoutes.POST("/:id/resume", bookingHandler.ResumeBooking)
		bookingRoutes.POST("/:id/extend", bookingHandler.ExtendBooking)
		bookingRoutes.POST("/:id/food-orders", bookingHandler.AddFoodOrder)
		bookingRoutes.POST("/:id/payments", bookingHandler.SettlePayment)
		bookingRoutes.GET("/:id/payments", bookingHandler.GetPaymentLogs)
		bookingRoutes.POST("/:id/complete", bookingHandler.CompleteBooking)
		bookingRoutes.POST("/:id/cancel", bookingHandler.CancelBooking)
	}
}

// SetupHistoryRoutes sets up the archived session routes. Purging is Admin only.
func SetupHistoryRoutes(authenticatedGroup *gin.RouterGroup, bookingHandler *handlers.BookingHandler, settingsHandler *handlers.SettingsHandler) {
	historyRoutes := authenticatedGroup.Group("/history")
	{
		historyRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff), bookingHandler.GetHistory)
		historyRoutes.GET("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff), bookingHandler.GetHistoryByID)
		historyRoutes.DELETE("", middleware.RoleAuthMiddleware(models.RoleAdmin), settingsHandler.PurgeHistory)
	}
}

// SetupGroupRoutes sets up the session group routes.
func SetupGroupRoutes(authenticatedGroup *gin.RouterGroup, groupHandler *handlers.GroupHandler) {
	groupRoutes := authenticatedGroup.Group("/groups")
	groupRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		groupRoutes.POST("", groupHandler.CreateGroup)
		groupRoutes.GET("/:id", groupHandler.GetGroup)
		groupRoutes.POST("/:id/members", groupHandler.AddMember)
		groupRoutes.POST("/:id/pause", groupHandler.PauseAll)
		groupRoutes.POST("/:id/resume", groupHandler.ResumeAll)
		groupRoutes.POST("/:id/complete", groupHandler.CompleteAll)
		groupRoutes.POST("/:id/cancel", groupHandler.CancelAll)
	}
}

// SetupFoodItemRoutes sets up the food item and stock routes.
func SetupFoodItemRoutes(authenticatedGroup *gin.RouterGroup, inventoryHandler *handlers.InventoryHandler) {
	foodRoutes := authenticatedGroup.Group("/food-items")
	foodRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		foodRoutes.POST("", inventoryHandler.CreateFoodItem)
		foodRoutes.GET("", inventoryHandler.GetFoodItems)
		foodRoutes.GET("/low-stock", inventoryHandler.GetLowStock)
		foodRoutes.GET("/:id", inventoryHandler.GetFoodItemByID)
		foodRoutes.POST("/:id/batches", inventoryHandler.AddBatch)
		foodRoutes.GET("/:id/batches", inventoryHandler.GetBatches)
		foodRoutes.POST("/:id/remove-stock", inventoryHandler.RemoveStock)
	}
}

// SetupPricingRoutes sets up the pricing routes. Changing prices is Admin only.
func SetupPricingRoutes(authenticatedGroup *gin.RouterGroup, pricingHandler *handlers.PricingHandler) {
	pricingRoutes := authenticatedGroup.Group("/pricing")
	pricingRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		pricingRoutes.POST("/quote", pricingHandler.Quote)
		pricingRoutes.GET("/rules", pricingHandler.GetRules)
		pricingRoutes.GET("/happy-hours", pricingHandler.GetHappyHours)

		adminRoutes := pricingRoutes.Group("")
		adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.PUT("/rules", pricingHandler.UpsertRule)
			adminRoutes.DELETE("/rules/:id", pricingHandler.DeleteRule)
			adminRoutes.PUT("/happy-hours", pricingHandler.UpsertHappyHour)
		}
	}
}

// SetupSettingsRoutes sets up the lounge and admin settings routes.
func SetupSettingsRoutes(authenticatedGroup *gin.RouterGroup, settingsHandler *handlers.SettingsHandler) {
	settingsRoutes := authenticatedGroup.Group("/settings")
	{
		settingsRoutes.GET("/lounge", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff), settingsHandler.GetLounge)
		settingsRoutes.GET("/admin", middleware.RoleAuthMiddleware(models.RoleAdmin), settingsHandler.GetAdminSettings)
		settingsRoutes.PUT("/admin-pin", middleware.RoleAuthMiddleware(models.RoleAdmin), settingsHandler.SetAdminPin)
	}
}

// SetupReportRoutes sets up the report routes.
func SetupReportRoutes(authenticatedGroup *gin.RouterGroup, reportHandler *handlers.ReportHandler) {
	reportRoutes := authenticatedGroup.Group("/reports")
	reportRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		reportRoutes.GET("/daily", reportHandler.GetDailyReport)
		reportRoutes.GET("/dashboard", reportHandler.GetDashboardSummary)
		reportRoutes.GET("/low-stock", reportHandler.GetLowStockReport)
		reportRoutes.GET("/activity", middleware.RoleAuthMiddleware(models.RoleAdmin), reportHandler.GetActivityLog)
	}
}
