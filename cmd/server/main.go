// Package main is the entry point for the carat API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"carat/internal/core/security"
	"carat/internal/domain/auth"
	"carat/internal/domain/ledger"
	"carat/internal/domain/reports"
	"carat/internal/domain/scope"
	"carat/internal/domain/stock"
	v1 "carat/internal/infrastructure/http/v1"
	"carat/internal/infrastructure/storage/postgres"
	"carat/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting carat server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	stockRepo := postgres.NewStockRepo(txManager)
	ledgerRepo := postgres.NewLedgerRepo(txManager)
	branchRepo := postgres.NewBranchRepo(txManager)
	userRepo := postgres.NewUserRepo(txManager)
	reportRepo := postgres.NewReportRepo(txManager)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- JWT Service ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Services ---
	authService := auth.NewService(userRepo, jwtService, auth.DefaultServiceConfig())

	stockService := stock.NewService(stockRepo)
	coordinator := ledger.NewCoordinator(ledgerRepo, stockService, txManager, auditStore)

	classifier := scope.NewClassifier(
		splitEnv("ROLE_OWNER_HINTS"),
		splitEnv("ROLE_MANAGER_HINTS"),
	)
	resolver := scope.NewResolver(userRepo, branchRepo, classifier)

	flags, err := buildFlags()
	if err != nil {
		log.Fatalw("failed to compile feature flag rules", "error", err)
	}
	reportService := reports.NewService(reportRepo, txManager, flags)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:          pool,
		Logger:        log,
		JWTValidator:  jwtService,
		AuthService:   authService,
		UserRepo:      userRepo,
		Coordinator:   coordinator,
		StockService:  stockService,
		ReportService: reportService,
		ScopeResolver: resolver,
		BranchRepo:    branchRepo,
		AuditStore:    auditStore,
		Classifier:    classifier,
	})

	// Periodic pool stats for capacity monitoring.
	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-statsCtx.Done():
				return
			case <-ticker.C:
				postgres.LogPoolStats(statsCtx, pool.Pool)
			}
		}
	}()

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// buildFlags wires the report feature flags. A CEL rule from the environment
// gates advanced breakdowns per caller; without one every flag stays enabled.
func buildFlags() (security.FeatureFlagProvider, error) {
	rule := os.Getenv("FLAG_ADVANCED_BREAKDOWNS_RULE")
	if rule == "" {
		return nil, nil
	}
	return security.NewRuleFlags(map[string]string{
		security.FlagAdvancedBreakdowns: rule,
	}, true)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func splitEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
