// Package branch provides the branch reference catalog.
// Soft delete is an explicit `deleted` column; there is no implicit
// framework-level filter.
package branch

import (
	"time"

	"carat/internal/core/id"
)

// Branch is a selling location belonging to one store.
type Branch struct {
	ID        id.ID     `db:"id" json:"id"`
	StoreID   id.ID     `db:"store_id" json:"storeId"`
	Name      string    `db:"name" json:"name"`
	Deleted   bool      `db:"deleted" json:"deleted"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
