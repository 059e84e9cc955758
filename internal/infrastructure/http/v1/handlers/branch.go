package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/catalogs/branch"
	"carat/internal/infrastructure/http/v1/dto"
)

// BranchHandler handles the branch reference catalog.
type BranchHandler struct {
	*BaseHandler
	repo branch.Repository
}

// NewBranchHandler creates a new branch handler.
func NewBranchHandler(base *BaseHandler, repo branch.Repository) *BranchHandler {
	return &BranchHandler{
		BaseHandler: base,
		repo:        repo,
	}
}

// List handles GET /branches
// Deleted branches are included only with ?includeDeleted=true.
func (h *BranchHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		branches []branch.Branch
		err      error
	)
	if c.Query("includeDeleted") == "true" {
		branches, err = h.repo.ListIncludingDeleted(ctx)
	} else {
		branches, err = h.repo.ListActive(ctx)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.BranchResponse, len(branches))
	for i, b := range branches {
		items[i] = dto.FromBranch(b)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Get handles GET /branches/:id
func (h *BranchHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	branchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid branch id"))
		return
	}

	b, err := h.repo.GetByID(ctx, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromBranch(*b))
}

// Create handles POST /branches
func (h *BranchHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateBranchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.repo.Create(ctx, b); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, b.ID.String())
}

// SetDeleted handles PUT /branches/:id/deleted
func (h *BranchHandler) SetDeleted(c *gin.Context) {
	ctx := c.Request.Context()

	branchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid branch id"))
		return
	}

	var req dto.SetDeletedRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.repo.SetDeleted(ctx, branchID, req.Deleted); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "branch updated")
}
