package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Codingbot456/trendwear/internal"
	"github.com/Codingbot456/trendwear/internal/handler/api"
	"github.com/Codingbot456/trendwear/internal/handler/webhook"
	"github.com/Codingbot456/trendwear/internal/middleware"
	"github.com/Codingbot456/trendwear/internal/mpesa"
	"github.com/Codingbot456/trendwear/internal/postgres"
	"github.com/Codingbot456/trendwear/internal/router"
	"github.com/Codingbot456/trendwear/internal/routes"
	"github.com/Codingbot456/trendwear/internal/service"
	"github.com/Codingbot456/trendwear/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// ==========================================================================
	// Initialize services
	// ==========================================================================

	orderService := postgres.NewOrderService(pool)

	darajaClient := mpesa.NewClient(mpesa.Config{
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		BaseURL:        cfg.Mpesa.BaseURL,
	})

	paymentService := service.NewPaymentService(orderService, darajaClient, logger)

	// Business metrics
	telemetry.Init("trendwear")

	// ==========================================================================
	// Initialize handlers
	// ==========================================================================

	apiDeps := routes.APIDeps{
		OrderHandler:   api.NewOrderHandler(orderService, logger),
		PaymentHandler: api.NewPaymentHandler(paymentService, logger),
	}

	webhookDeps := routes.WebhookDeps{
		MpesaHandler: webhook.NewMpesaHandler(paymentService, logger),
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	metrics := middleware.NewMetrics("trendwear")

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		router.CORS([]string{cfg.CORSOrigin}),
		router.Logger(logger),
		middleware.WithRequestLogger(logger),
	)

	// Preflight requests are answered by the CORS middleware before
	// this handler runs.
	r.Options("/", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterAPIRoutes(r, apiDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr, "env", cfg.Env)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
