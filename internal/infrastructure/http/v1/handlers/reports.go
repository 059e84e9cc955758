package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carat/internal/core/apperror"
	"carat/internal/core/appctx"
	"carat/internal/core/id"
	"carat/internal/domain/reports"
	"carat/internal/domain/scope"
	"carat/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles report endpoints. Every request resolves the
// caller's scope fresh; nothing about visibility is cached between calls.
type ReportsHandler struct {
	*BaseHandler
	service  *reports.Service
	resolver *scope.Resolver
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service, resolver *scope.Resolver) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
		resolver:    resolver,
	}
}

func (h *ReportsHandler) resolveScope(ctx context.Context) (*scope.ReportScope, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	actorID, err := id.Parse(user.ActorID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid actor id")
	}
	return h.resolver.Resolve(ctx, actorID)
}

// StoreOverview handles GET /reports/store-overview
func (h *ReportsHandler) StoreOverview(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReportRangeRequest
	if !h.BindQuery(c, &req) {
		return
	}

	sc, err := h.resolveScope(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	overview, err := h.service.StoreOverview(ctx, sc, req.From, req.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromOverview(overview))
}

// BranchOverview handles GET /reports/branch-overview?branchId=...
func (h *ReportsHandler) BranchOverview(c *gin.Context) {
	ctx := c.Request.Context()

	branchID, err := id.Parse(c.Query("branchId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid branch id").
			WithDetail("field", "branchId"))
		return
	}

	var req dto.ReportRangeRequest
	if !h.BindQuery(c, &req) {
		return
	}

	sc, err := h.resolveScope(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	overview, err := h.service.BranchOverview(ctx, sc, branchID, req.From, req.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromOverview(overview))
}

// UserPerformance handles GET /reports/user-performance?userId=...
func (h *ReportsHandler) UserPerformance(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := id.Parse(c.Query("userId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid user id").
			WithDetail("field", "userId"))
		return
	}

	var req dto.ReportRangeRequest
	if !h.BindQuery(c, &req) {
		return
	}

	sc, err := h.resolveScope(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	overview, err := h.service.UserPerformance(ctx, sc, userID, req.From, req.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromOverview(overview))
}

// SalesTrend handles GET /reports/sales-trend
func (h *ReportsHandler) SalesTrend(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TrendRequest
	if !h.BindQuery(c, &req) {
		return
	}

	granularity, err := reports.ParseGranularity(req.Granularity)
	if err != nil {
		h.Error(c, err)
		return
	}

	sc, err := h.resolveScope(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	trend, err := h.service.SalesTrend(ctx, sc, granularity, req.From, req.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTrend(trend))
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rep := rg.Group("/reports")
	{
		rep.GET("/store-overview", h.StoreOverview)
		rep.GET("/branch-overview", h.BranchOverview)
		rep.GET("/user-performance", h.UserPerformance)
		rep.GET("/sales-trend", h.SalesTrend)
	}
}
