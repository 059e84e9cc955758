package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
)

type fakeRepo struct {
	rows       map[id.ID]*Stock
	referenced map[id.ID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows:       make(map[id.ID]*Stock),
		referenced: make(map[id.ID]bool),
	}
}

func (f *fakeRepo) put(s Stock) id.ID {
	if id.IsNil(s.ID) {
		s.ID = id.New()
	}
	f.rows[s.ID] = &s
	return s.ID
}

func (f *fakeRepo) GetByID(_ context.Context, stockID id.ID) (*Stock, error) {
	row, ok := f.rows[stockID]
	if !ok {
		return nil, apperror.NewNotFound("stock", stockID)
	}
	cp := *row
	return &cp, nil
}

func (f *fakeRepo) GetByBarcode(_ context.Context, barcode string) (*Stock, error) {
	for _, row := range f.rows {
		if row.Barcode == barcode {
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("stock", barcode)
}

func (f *fakeRepo) GetByIDForUpdate(ctx context.Context, stockID id.ID) (*Stock, error) {
	return f.GetByID(ctx, stockID)
}

func (f *fakeRepo) GetByBarcodeForUpdate(ctx context.Context, barcode string) (*Stock, error) {
	return f.GetByBarcode(ctx, barcode)
}

func (f *fakeRepo) Create(_ context.Context, s *Stock) error {
	f.rows[s.ID] = s
	return nil
}

func (f *fakeRepo) SetQuantity(_ context.Context, stockID id.ID, quantity int64) error {
	row, ok := f.rows[stockID]
	if !ok {
		return apperror.NewNotFound("stock", stockID)
	}
	row.Quantity = quantity
	return nil
}

func (f *fakeRepo) ListByBranch(_ context.Context, branchID id.ID, filter ListFilter) ([]Stock, error) {
	var out []Stock
	for _, row := range f.rows {
		if row.BranchID != branchID {
			continue
		}
		if filter.ExcludeZero && row.Quantity == 0 {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeRepo) IsReferenced(_ context.Context, stockID id.ID) (bool, error) {
	return f.referenced[stockID], nil
}

func (f *fakeRepo) Delete(_ context.Context, stockID id.ID) error {
	delete(f.rows, stockID)
	return nil
}

func TestApplyDelta(t *testing.T) {
	ctx := context.Background()
	branchID := id.New()
	variantID := id.New()

	t.Run("decrement within stock succeeds", func(t *testing.T) {
		repo := newFakeRepo()
		stockID := repo.put(Stock{Barcode: "JW-1", BranchID: branchID, VariantID: variantID, Quantity: 5})
		svc := NewService(repo)

		row, err := svc.ApplyDelta(ctx, stockID, -3, Expect{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), row.Quantity)
		assert.Equal(t, int64(2), repo.rows[stockID].Quantity)
	})

	t.Run("drain to exactly zero succeeds", func(t *testing.T) {
		repo := newFakeRepo()
		stockID := repo.put(Stock{Barcode: "JW-2", BranchID: branchID, VariantID: variantID, Quantity: 4})
		svc := NewService(repo)

		row, err := svc.ApplyDelta(ctx, stockID, -4, Expect{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), row.Quantity)
	})

	t.Run("overdraft fails and leaves quantity intact", func(t *testing.T) {
		repo := newFakeRepo()
		stockID := repo.put(Stock{Barcode: "JW-3", BranchID: branchID, VariantID: variantID, Quantity: 2})
		svc := NewService(repo)

		_, err := svc.ApplyDelta(ctx, stockID, -3, Expect{})
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))

		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, int64(3), appErr.Details["requested"])
		assert.Equal(t, int64(2), appErr.Details["available"])
		assert.Equal(t, int64(2), repo.rows[stockID].Quantity)
	})

	t.Run("branch mismatch against expectation", func(t *testing.T) {
		repo := newFakeRepo()
		stockID := repo.put(Stock{Barcode: "JW-4", BranchID: branchID, VariantID: variantID, Quantity: 2})
		svc := NewService(repo)

		_, err := svc.ApplyDelta(ctx, stockID, 1, Expect{BranchID: id.New(), VariantID: variantID})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBranchMismatch, appErr.Code)
	})

	t.Run("unknown stock id", func(t *testing.T) {
		svc := NewService(newFakeRepo())
		_, err := svc.ApplyDelta(ctx, id.New(), -1, Expect{})
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestEnsureForPurchase(t *testing.T) {
	ctx := context.Background()
	branchID := id.New()
	variantID := id.New()

	t.Run("existing barcode with matching pairing", func(t *testing.T) {
		repo := newFakeRepo()
		stockID := repo.put(Stock{Barcode: "JW-10", BranchID: branchID, VariantID: variantID, Quantity: 7})
		svc := NewService(repo)

		row, err := svc.EnsureForPurchase(ctx, "JW-10", branchID, variantID)
		require.NoError(t, err)
		assert.Equal(t, stockID, row.ID)
		assert.Equal(t, int64(7), row.Quantity)
	})

	t.Run("unknown barcode creates a zero quantity row", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)

		row, err := svc.EnsureForPurchase(ctx, "JW-11", branchID, variantID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), row.Quantity)
		assert.Contains(t, repo.rows, row.ID)
	})

	t.Run("barcode reused across a different pairing is a conflict", func(t *testing.T) {
		repo := newFakeRepo()
		repo.put(Stock{Barcode: "JW-12", BranchID: branchID, VariantID: variantID})
		svc := NewService(repo)

		_, err := svc.EnsureForPurchase(ctx, "JW-12", id.New(), variantID)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBarcodeConflict, appErr.Code)
	})
}

func TestCreateManual(t *testing.T) {
	ctx := context.Background()
	branchID := id.New()
	variantID := id.New()

	t.Run("duplicate barcode rejected", func(t *testing.T) {
		repo := newFakeRepo()
		repo.put(Stock{Barcode: "JW-20", BranchID: branchID, VariantID: variantID})
		svc := NewService(repo)

		row := New("JW-20", branchID, variantID)
		err := svc.CreateManual(ctx, row)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBarcodeConflict, appErr.Code)
	})

	t.Run("missing barcode rejected", func(t *testing.T) {
		svc := NewService(newFakeRepo())
		err := svc.CreateManual(ctx, New("", branchID, variantID))
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepo()
	free := repo.put(Stock{Barcode: "JW-30", BranchID: id.New(), VariantID: id.New()})
	used := repo.put(Stock{Barcode: "JW-31", BranchID: id.New(), VariantID: id.New()})
	repo.referenced[used] = true
	svc := NewService(repo)

	require.NoError(t, svc.Delete(ctx, free))
	assert.NotContains(t, repo.rows, free)

	err := svc.Delete(ctx, used)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeStockReferenced, appErr.Code)
	assert.Contains(t, repo.rows, used)
}
