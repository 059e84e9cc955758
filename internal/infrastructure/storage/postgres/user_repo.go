package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/auth"
	"carat/internal/domain/scope"
)

const usersTable = "users"

var userColumns = []string{
	"id", "email", "password_hash", "name", "role_name",
	"branch_id", "store_id", "is_active",
	"last_login_at", "created_at", "updated_at",
}

var (
	_ auth.UserRepository   = (*UserRepo)(nil)
	_ scope.ActorRepository = (*UserRepo)(nil)
)

// UserRepo implements auth.UserRepository and scope.ActorRepository over the
// same table. The role label is stored as free text; classification into
// owner/manager happens in the scope package.
type UserRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *TxManager) *UserRepo {
	return &UserRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.get(ctx, squirrel.Eq{"id": userID}, userID)
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.get(ctx, squirrel.Eq{"email": email}, email)
}

func (r *UserRepo) get(ctx context.Context, where squirrel.Eq, key any) (*auth.User, error) {
	q := r.builder.Select(userColumns...).From(usersTable).Where(where)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", key)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// Exists reports whether a user with the email exists.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	sql := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	q := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			u.ID, u.Email, u.PasswordHash, u.Name, u.RoleName,
			u.BranchID, u.StoreID, u.IsActive,
			u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// SetLastLogin records a successful login time.
func (r *UserRepo) SetLastLogin(ctx context.Context, userID id.ID, at time.Time) error {
	q := r.builder.Update(usersTable).
		Set("last_login_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": userID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	return nil
}

// AssignStore attaches a user to a store, or detaches with nil.
func (r *UserRepo) AssignStore(ctx context.Context, userID id.ID, storeID *id.ID) error {
	q := r.builder.Update(usersTable).
		Set("store_id", storeID).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("assign store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID)
	}

	return nil
}

// GetActor loads the scope resolver's view of a user.
func (r *UserRepo) GetActor(ctx context.Context, actorID id.ID) (*scope.Actor, error) {
	q := r.builder.Select("id", "name", "role_name", "branch_id", "store_id").
		From(usersTable).
		Where(squirrel.Eq{"id": actorID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a scope.Actor
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", actorID)
		}
		return nil, fmt.Errorf("get actor: %w", err)
	}

	return &a, nil
}
