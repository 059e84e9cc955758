// Package auth provides authentication domain logic: user records, password
// verification and JWT issuance. Role labels are free text classified by the
// report scope layer, not here.
package auth

import (
	"context"
	"time"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
)

// User represents a system user. BranchID and StoreID are the home
// assignments that drive report scoping.
type User struct {
	ID           id.ID      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	RoleName     string     `db:"role_name" json:"roleName"`
	BranchID     *id.ID     `db:"branch_id" json:"branchId,omitempty"`
	StoreID      *id.ID     `db:"store_id" json:"storeId,omitempty"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewUser creates a new active user.
func NewUser(email, passwordHash, name string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate validates user data.
func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	return nil
}

// CanLogin checks if the user may authenticate.
func (u *User) CanLogin() error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	return nil
}

// Credentials for login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a new user account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	RoleName string `json:"roleName"`
	BranchID *id.ID `json:"branchId,omitempty"`
	StoreID  *id.ID `json:"storeId,omitempty"`
}
