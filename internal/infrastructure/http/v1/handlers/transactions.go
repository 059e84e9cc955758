package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carat/internal/domain/ledger"
	"carat/internal/infrastructure/http/v1/dto"
)

// TransactionsHandler handles sale and purchase recording.
type TransactionsHandler struct {
	*BaseHandler
	coordinator *ledger.Coordinator
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(base *BaseHandler, coordinator *ledger.Coordinator) *TransactionsHandler {
	return &TransactionsHandler{
		BaseHandler: base,
		coordinator: coordinator,
	}
}

// CreateSale handles POST /sales
func (h *TransactionsHandler) CreateSale(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.coordinator.CreateSale(ctx, domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromTransactionResult(result))
}

// CreatePurchase handles POST /purchases
func (h *TransactionsHandler) CreatePurchase(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.coordinator.CreatePurchase(ctx, domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromTransactionResult(result))
}

// RegisterRoutes registers transaction routes.
func (h *TransactionsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sales", h.CreateSale)
	rg.POST("/purchases", h.CreatePurchase)
}
