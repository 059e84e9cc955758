package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/catalogs/branch"
)

const branchesTable = "branches"

var branchColumns = []string{"id", "store_id", "name", "deleted", "created_at", "updated_at"}

// Compile-time check that BranchRepo implements branch.Repository.
var _ branch.Repository = (*BranchRepo)(nil)

// BranchRepo implements branch.Repository.
type BranchRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewBranchRepo creates a new branch repository.
func NewBranchRepo(txManager *TxManager) *BranchRepo {
	return &BranchRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a branch by id, deleted or not.
func (r *BranchRepo) GetByID(ctx context.Context, branchID id.ID) (*branch.Branch, error) {
	q := r.builder.Select(branchColumns...).
		From(branchesTable).
		Where(squirrel.Eq{"id": branchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b branch.Branch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("branch", branchID)
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}

	return &b, nil
}

// ListActive returns all non-deleted branches.
func (r *BranchRepo) ListActive(ctx context.Context) ([]branch.Branch, error) {
	return r.list(ctx, squirrel.Eq{"deleted": false})
}

// ListActiveByStore returns non-deleted branches of one store.
func (r *BranchRepo) ListActiveByStore(ctx context.Context, storeID id.ID) ([]branch.Branch, error) {
	return r.list(ctx, squirrel.Eq{"deleted": false, "store_id": storeID})
}

// ListIncludingDeleted returns every branch row.
func (r *BranchRepo) ListIncludingDeleted(ctx context.Context) ([]branch.Branch, error) {
	return r.list(ctx, nil)
}

func (r *BranchRepo) list(ctx context.Context, where any) ([]branch.Branch, error) {
	q := r.builder.Select(branchColumns...).From(branchesTable)
	if where != nil {
		q = q.Where(where)
	}
	q = q.OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var branches []branch.Branch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &branches, sql, args...); err != nil {
		return nil, fmt.Errorf("select branches: %w", err)
	}

	return branches, nil
}

// Create inserts a new branch.
func (r *BranchRepo) Create(ctx context.Context, b *branch.Branch) error {
	q := r.builder.Insert(branchesTable).
		Columns(branchColumns...).
		Values(b.ID, b.StoreID, b.Name, b.Deleted, b.CreatedAt, b.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert branch: %w", err)
	}

	return nil
}

// SetDeleted flips the soft-delete column.
func (r *BranchRepo) SetDeleted(ctx context.Context, branchID id.ID, deleted bool) error {
	q := r.builder.Update(branchesTable).
		Set("deleted", deleted).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": branchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("branch", branchID)
	}

	return nil
}
