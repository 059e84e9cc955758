package dto

import (
	"time"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/catalogs/branch"
)

// CreateBranchRequest for registering a selling location.
type CreateBranchRequest struct {
	StoreID string `json:"storeId" binding:"required"`
	Name    string `json:"name" binding:"required"`
}

// ToDomain converts into a domain branch.
func (r *CreateBranchRequest) ToDomain() (*branch.Branch, error) {
	storeID, err := id.Parse(r.StoreID)
	if err != nil {
		return nil, apperror.NewValidation("invalid store id").
			WithDetail("field", "storeId")
	}
	now := time.Now().UTC()
	return &branch.Branch{
		ID:        id.New(),
		StoreID:   storeID,
		Name:      r.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// BranchResponse represents a branch in API responses.
type BranchResponse struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	Name      string    `json:"name"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromBranch creates response from a domain branch.
func FromBranch(b branch.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID.String(),
		StoreID:   b.StoreID.String(),
		Name:      b.Name,
		Deleted:   b.Deleted,
		CreatedAt: b.CreatedAt,
	}
}

// SetDeletedRequest flips the soft-delete flag.
type SetDeletedRequest struct {
	Deleted bool `json:"deleted"`
}
