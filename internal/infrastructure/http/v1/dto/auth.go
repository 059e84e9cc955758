package dto

import (
	"time"

	"carat/internal/domain/auth"
)

// --- Request DTOs ---

// RegisterRequest for user registration.
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	Name     string  `json:"name,omitempty"`
	RoleName string  `json:"roleName,omitempty"`
	BranchID *string `json:"branchId,omitempty"`
	StoreID  *string `json:"storeId,omitempty"`
}

// ToAuthRequest converts to domain request.
func (r *RegisterRequest) ToAuthRequest() (auth.RegisterRequest, error) {
	branchID, err := parseOptionalID(r.BranchID)
	if err != nil {
		return auth.RegisterRequest{}, err
	}
	storeID, err := parseOptionalID(r.StoreID)
	if err != nil {
		return auth.RegisterRequest{}, err
	}
	return auth.RegisterRequest{
		Email:    r.Email,
		Password: r.Password,
		Name:     r.Name,
		RoleName: r.RoleName,
		BranchID: branchID,
		StoreID:  storeID,
	}, nil
}

// LoginRequest for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{
		Email:    r.Email,
		Password: r.Password,
	}
}

// --- Response DTOs ---

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	RoleName    string     `json:"roleName,omitempty"`
	BranchID    *string    `json:"branchId,omitempty"`
	StoreID     *string    `json:"storeId,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FromUser creates response from domain user. The password hash never leaves
// the domain layer.
func FromUser(u *auth.User) *UserResponse {
	resp := &UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		RoleName:    u.RoleName,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if u.BranchID != nil {
		s := u.BranchID.String()
		resp.BranchID = &s
	}
	if u.StoreID != nil {
		s := u.StoreID.String()
		resp.StoreID = &s
	}
	return resp
}

// LoginResponse includes the access token and user info.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user"`
}
