package auth

import (
	"context"
	"time"

	"carat/internal/core/id"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Exists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *User) error
	SetLastLogin(ctx context.Context, userID id.ID, at time.Time) error
}
