package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/auth"
	"carpool/internal/handler"
	"carpool/internal/middleware"
	"carpool/internal/realtime"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler  *handler.BookingHandler
	TripHandler     *handler.TripHandler
	PaymentHandler  *handler.PaymentHandler
	RealtimeHandler *realtime.Handler
	TokenManager    *auth.Manager
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Realtime channel. The handler authenticates the token itself so
	// browser clients can pass it as a query parameter.
	router.GET("/ws", deps.RealtimeHandler.Serve)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Rider routes.
		rider := v1.Group("/rider", middleware.Auth(deps.TokenManager, auth.RoleRider))
		{
			rider.POST("/booking/matching-trips", deps.BookingHandler.MatchTrips)
			rider.POST("/booking", deps.BookingHandler.CreateBooking)
			rider.GET("/booking/:id", deps.BookingHandler.GetBooking)
			rider.POST("/booking/:id/cancel", deps.BookingHandler.CancelBooking)
			rider.POST("/booking/:id/rate", deps.BookingHandler.RateBooking)

			rider.POST("/payment", deps.PaymentHandler.CreatePayment)
			rider.GET("/trip/:id/location", deps.TripHandler.GetLocation)
		}

		// Gateway callbacks arrive unauthenticated; the HMAC signature is
		// their authentication.
		payments := v1.Group("/rider/payment")
		{
			payments.GET("/:gateway/return", deps.PaymentHandler.Return)
			payments.GET("/:gateway/ipn", deps.PaymentHandler.IPN)
			payments.POST("/:gateway/ipn", deps.PaymentHandler.IPN)
		}

		// Driver routes.
		driver := v1.Group("/driver", middleware.Auth(deps.TokenManager, auth.RoleDriver))
		{
			driver.POST("/trip/:id/start", deps.TripHandler.StartTrip)
			driver.POST("/trip/:id/finish", deps.TripHandler.FinishTrip)
			driver.GET("/trip/:id", deps.TripHandler.GetTrip)
			driver.POST("/trip/:id/location", deps.TripHandler.UpdateLocation)
		}
	}

	return router
}
