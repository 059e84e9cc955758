package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/infrastructure/http/v1/dto"
	"carat/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes recorded request snapshots for dispute resolution.
type AuditHandler struct {
	*BaseHandler
	store *postgres.AuditStore
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, store *postgres.AuditStore) *AuditHandler {
	return &AuditHandler{
		BaseHandler: base,
		store:       store,
	}
}

// History handles GET /audit/:kind/:id
func (h *AuditHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	kind := c.Param("kind")
	if kind != "sale" && kind != "purchase" {
		h.Error(c, apperror.NewValidation("unknown audit kind").WithDetail("kind", kind))
		return
	}

	refID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid reference id"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, err := h.store.History(ctx, kind, refID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.AuditEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = dto.FromAuditEntry(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
