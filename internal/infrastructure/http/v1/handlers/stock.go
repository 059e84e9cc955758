package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/ledger"
	"carat/internal/domain/stock"
	"carat/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock row endpoints. Mutations that must leave a
// lifecycle trail go through the coordinator, plain reads hit the service.
type StockHandler struct {
	*BaseHandler
	service     *stock.Service
	coordinator *ledger.Coordinator
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service, coordinator *ledger.Coordinator) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
		coordinator: coordinator,
	}
}

// List handles GET /stocks?branchId=...
func (h *StockHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	branchID, err := id.Parse(c.Query("branchId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid branch id").
			WithDetail("field", "branchId"))
		return
	}

	var req dto.ListStockRequest
	if !h.BindQuery(c, &req) {
		return
	}

	rows, err := h.service.ListByBranch(ctx, branchID, req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.StockResponse, len(rows))
	for i := range rows {
		items[i] = dto.FromStock(&rows[i])
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Get handles GET /stocks/:id
func (h *StockHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	stockID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stock id"))
		return
	}

	row, err := h.service.FindByID(ctx, stockID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStock(row))
}

// GetByBarcode handles GET /stocks/barcode/:barcode
func (h *StockHandler) GetByBarcode(c *gin.Context) {
	ctx := c.Request.Context()

	row, err := h.service.FindByBarcode(ctx, c.Param("barcode"))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStock(row))
}

// Create handles POST /stocks
func (h *StockHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	row, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.coordinator.CreateStock(ctx, row, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromStock(created))
}

// Adjust handles POST /stocks/:id/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	stockID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stock id"))
		return
	}

	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}

	row, err := h.coordinator.Adjust(ctx, req.ToDomain(stockID))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStock(row))
}

// Events handles GET /stocks/:id/events
func (h *StockHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()

	stockID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stock id"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	events, err := h.coordinator.StockHistory(ctx, stockID, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.LifecycleEventResponse, len(events))
	for i, e := range events {
		items[i] = dto.FromLifecycleEvent(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Delete handles DELETE /stocks/:id
// Refused for rows referenced by any ledger line or event.
func (h *StockHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	stockID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stock id"))
		return
	}

	if err := h.service.Delete(ctx, stockID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stocks := rg.Group("/stocks")
	{
		stocks.GET("", h.List)
		stocks.POST("", h.Create)
		stocks.GET("/barcode/:barcode", h.GetByBarcode)
		stocks.GET("/:id", h.Get)
		stocks.POST("/:id/adjust", h.Adjust)
		stocks.GET("/:id/events", h.Events)
		stocks.DELETE("/:id", h.Delete)
	}
}
