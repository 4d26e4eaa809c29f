package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"booking-backend/internal/auth"
	"booking-backend/internal/cache"
	"booking-backend/internal/config"
	"booking-backend/internal/database"
	"booking-backend/internal/db"
	"booking-backend/internal/handlers"
	"booking-backend/internal/health"
	apphttp "booking-backend/internal/http"
	"booking-backend/internal/middleware"
	"booking-backend/internal/monitoring"
	"booking-backend/internal/repositories"
	"booking-backend/internal/services"
	"booking-backend/migrations"
)

func main() {
	cfg := config.Load()

	// Connect to Postgres
	pool, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Redis cache is optional; billing reads fall through to the database
	if err := cache.Init(); err != nil {
		log.Printf("[Cache] Redis unavailable, running without cache: %v", err)
	}

	// Run migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize health checker
	healthChecker := health.NewChecker(pool)

	// Start monitoring dashboard server in background; it doubles as the
	// refund event broadcaster.
	monitoringServer := monitoring.NewMonitoringServer(pool, cfg.Server.MonitoringPort)
	go func() {
		if err := monitoringServer.Start(); err != nil {
			log.Printf("[Monitoring] Server stopped: %v", err)
		}
	}()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	bookingRepo := repositories.NewBookingRepository(pool)
	ledgerRepo := repositories.NewLedgerRepository(pool)
	systemSettingRepo := repositories.NewSystemSettingRepository(pool)

	// Initialize services
	userService := services.NewUserService(userRepo, jwtManager)
	billingService := services.NewBillingService(ledgerRepo)
	refundService := services.NewRefundService(ledgerRepo, systemSettingRepo, monitoringServer)
	paymentCaptureService := services.NewPaymentCaptureService(
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret,
		ledgerRepo, systemSettingRepo,
	)
	statementService := services.NewStatementService(billingService)
	systemSettingService := services.NewSystemSettingService(systemSettingRepo)

	// Daily ledger snapshots to object storage, if configured
	snapshotService := services.NewSnapshotService(cfg, ledgerRepo)
	snapshotService.Start(24 * time.Hour)
	defer snapshotService.Stop()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	bookingHandler := handlers.NewBookingHandler(bookingRepo)
	billingHandler := handlers.NewBillingHandler(billingService, statementService)
	refundHandler := handlers.NewRefundHandler(refundService, userRepo)
	webhookHandler := handlers.NewWebhookHandler(paymentCaptureService)
	systemSettingHandler := handlers.NewSystemSettingHandler(systemSettingService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	router := apphttp.NewRouter(
		authHandler,
		bookingHandler,
		billingHandler,
		refundHandler,
		webhookHandler,
		systemSettingHandler,
		healthHandler,
		authMiddleware,
	)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
