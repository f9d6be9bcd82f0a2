package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gaming_lounge_backend/internal/config"
	"gaming_lounge_backend/internal/handlers"
	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/services"
)

// Dependencies are the engine services the HTTP host exposes.
type Dependencies struct {
	Bookings  services.BookingService
	Groups    services.GroupCoordinator
	Inventory services.InventoryLedger
	Pricing   services.PricingResolver
	Settings  services.SettingsService
	Reports   services.ReportService
	Auth      services.AuthService
	Quotes    services.QuoteCache // optional

	Lounge         models.LoungeSettings
	Redis          *redis.Client // optional, enables login rate limiting
	LoginRateLimit config.RateLimitConfig
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Dependencies) {
	loc := deps.Lounge.Location

	authHandler := handlers.NewAuthHandler(deps.Auth)
	staffHandler := handlers.NewStaffHandler(deps.Auth)
	bookingHandler := handlers.NewBookingHandler(deps.Bookings, deps.Quotes, loc)
	groupHandler := handlers.NewGroupHandler(deps.Groups)
	inventoryHandler := handlers.NewInventoryHandler(deps.Inventory)
	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Lounge)
	reportHandler := handlers.NewReportHandler(deps.Reports, loc)

	apiV1 := engine.Group("/api/v1")

	authPublicRoutes := apiV1.Group("/auth")
	SetupPublicAuthRoutes(authPublicRoutes, authHandler, middleware.RateLimit(deps.LoginRateLimit, deps.Redis))

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupStaffRoutes(authenticated, staffHandler)
		SetupBookingRoutes(authenticated, bookingHandler)
		SetupHistoryRoutes(authenticated, bookingHandler, settingsHandler)
		SetupGroupRoutes(authenticated, groupHandler)
		SetupFoodItemRoutes(authenticated, inventoryHandler)
		SetupPricingRoutes(authenticated, pricingHandler)
		SetupSettingsRoutes(authenticated, settingsHandler)
		SetupReportRoutes(authenticated, reportHandler)
	}
}

func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler, limiter gin.HandlerFunc) {
	group.POST("/login", limiter, authHandler.LoginUser)
}

func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetUserProfile)
}
