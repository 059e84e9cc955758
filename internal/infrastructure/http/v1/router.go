// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"carat/internal/domain/auth"
	"carat/internal/domain/catalogs/branch"
	"carat/internal/domain/ledger"
	"carat/internal/domain/reports"
	"carat/internal/domain/scope"
	"carat/internal/domain/stock"
	"carat/internal/infrastructure/http/v1/handlers"
	"carat/internal/infrastructure/http/v1/middleware"
	"carat/internal/infrastructure/storage/postgres"
	"carat/pkg/logger"
)

// RouterConfig holds router wiring.
type RouterConfig struct {
	// Pool is the database connection (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service
	UserRepo    auth.UserRepository

	Coordinator   *ledger.Coordinator
	StockService  *stock.Service
	ReportService *reports.Service
	ScopeResolver *scope.Resolver
	BranchRepo    branch.Repository

	// AuditStore serves recorded request snapshots, owner-only.
	AuditStore *postgres.AuditStore

	// Classifier guards owner-only catalog administration. Nil falls back
	// to the default hint lists.
	Classifier *scope.Classifier
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, baseHandler, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerLedgerRoutes(protected, baseHandler, cfg)
		registerReportRoutes(protected, baseHandler, cfg)
		registerCatalogRoutes(protected, baseHandler, cfg)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(base, cfg.AuthService, cfg.UserRepo)

	public := rg.Group("/auth")
	protected := rg.Group("/auth")
	protected.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(public, protected)
}

// registerLedgerRoutes registers sale, purchase and stock endpoints.
func registerLedgerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	transactionsHandler := handlers.NewTransactionsHandler(base, cfg.Coordinator)
	transactionsHandler.RegisterRoutes(rg)

	stockHandler := handlers.NewStockHandler(base, cfg.StockService, cfg.Coordinator)
	stockHandler.RegisterRoutes(rg)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	reportsHandler := handlers.NewReportsHandler(base, cfg.ReportService, cfg.ScopeResolver)
	reportsHandler.RegisterRoutes(rg)
}

// registerCatalogRoutes registers the branch reference catalog.
func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	branchHandler := handlers.NewBranchHandler(base, cfg.BranchRepo)

	branches := rg.Group("/branches")
	{
		branches.GET("", branchHandler.List)
		branches.GET("/:id", branchHandler.Get)
		// Catalog administration is owner-only.
		branches.POST("", middleware.RequireOwner(cfg.Classifier), branchHandler.Create)
		branches.PUT("/:id/deleted", middleware.RequireOwner(cfg.Classifier), branchHandler.SetDeleted)
	}

	if cfg.AuditStore != nil {
		auditHandler := handlers.NewAuditHandler(base, cfg.AuditStore)
		rg.GET("/audit/:kind/:id", middleware.RequireOwner(cfg.Classifier), auditHandler.History)
	}
}
