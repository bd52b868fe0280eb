package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/app"
	"carpool/internal/auth"
	"carpool/internal/config"
	"carpool/internal/distance"
	"carpool/internal/handler"
	"carpool/internal/payment"
	"carpool/internal/realtime"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository/postgres"
	"carpool/internal/route"
	"carpool/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, err := wireServer(db, redisClient, nrApp, cfg)
	if err != nil {
		log.Fatalf("failed to wire server: %v", err)
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, error) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	tripRepo := postgres.NewTripRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	pricingConfigRepo := postgres.NewPricingConfigRepository(db)

	// Distance service.
	matrix, err := distance.NewGoogleMatrix(cfg.Maps.APIKey)
	if err != nil {
		return nil, err
	}

	// Payment gateways.
	gateways := payment.NewRegistry(
		payment.NewVNPay(payment.VNPayConfig(cfg.VNPay)),
		payment.NewMoMo(payment.MoMoConfig(cfg.MoMo)),
	)

	// Token manager.
	tokenManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Realtime hub.
	hub := realtime.NewHub()
	notifier := realtime.NewNotifier(hub)

	// Initialize services.
	pricingSource := service.NewPricingSource(pricingConfigRepo, cacheStore)
	matchingService := service.NewMatchingService(tripRepo, bookingRepo, pricingSource)
	bookingService := service.NewBookingService(db, tripRepo, bookingRepo, route.NewGreedySequencer(), matrix, pricingSource, lockStore)
	tripService := service.NewTripService(db, tripRepo, bookingRepo, locationStore, notifier)
	settlementService := service.NewSettlementService(db, bookingRepo, transactionRepo, gateways, notifier)
	eventCoordinator := service.NewEventCoordinator(locationStore, bookingRepo, settlementService)

	// Initialize handlers.
	bookingHandler := handler.NewBookingHandler(matchingService, bookingService)
	tripHandler := handler.NewTripHandler(tripService, locationStore)
	paymentHandler := handler.NewPaymentHandler(settlementService, gateways)
	realtimeHandler := realtime.NewHandler(hub, eventCoordinator, tokenManager)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		BookingHandler:  bookingHandler,
		TripHandler:     tripHandler,
		PaymentHandler:  paymentHandler,
		RealtimeHandler: realtimeHandler,
		TokenManager:    tokenManager,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
