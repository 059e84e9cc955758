package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carat/internal/core/apperror"
	"carat/internal/core/appctx"
	"carat/internal/core/id"
	"carat/internal/core/types"
	"carat/internal/domain/stock"
)

// memStore holds every table the coordinator touches so a failed transaction
// can be rolled back by restoring a snapshot.
type memStore struct {
	mu sync.Mutex

	stocks          map[id.ID]*stock.Stock
	saleHeaders     []SaleHeader
	saleLines       []SaleLine
	purchaseHeaders []PurchaseHeader
	purchaseLines   []PurchaseLine
	events          []LifecycleEvent
	banks           []BankTransaction
}

func newMemStore() *memStore {
	return &memStore{stocks: make(map[id.ID]*stock.Stock)}
}

func (m *memStore) addStock(s stock.Stock) id.ID {
	if id.IsNil(s.ID) {
		s.ID = id.New()
	}
	m.stocks[s.ID] = &s
	return s.ID
}

func (m *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range m.stocks {
		row := *v
		cp.stocks[k] = &row
	}
	cp.saleHeaders = append([]SaleHeader(nil), m.saleHeaders...)
	cp.saleLines = append([]SaleLine(nil), m.saleLines...)
	cp.purchaseHeaders = append([]PurchaseHeader(nil), m.purchaseHeaders...)
	cp.purchaseLines = append([]PurchaseLine(nil), m.purchaseLines...)
	cp.events = append([]LifecycleEvent(nil), m.events...)
	cp.banks = append([]BankTransaction(nil), m.banks...)
	return cp
}

func (m *memStore) restore(snap *memStore) {
	m.stocks = snap.stocks
	m.saleHeaders = snap.saleHeaders
	m.saleLines = snap.saleLines
	m.purchaseHeaders = snap.purchaseHeaders
	m.purchaseLines = snap.purchaseLines
	m.events = snap.events
	m.banks = snap.banks
}

// memTxManager serializes transactions with a mutex, standing in for the
// row locks the real store takes, and restores the snapshot on error.
type memTxManager struct {
	store *memStore
}

func (m *memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// memStockRepo implements stock.Repository over the shared store.
type memStockRepo struct {
	store *memStore
}

func (r *memStockRepo) GetByID(_ context.Context, stockID id.ID) (*stock.Stock, error) {
	row, ok := r.store.stocks[stockID]
	if !ok {
		return nil, apperror.NewNotFound("stock", stockID)
	}
	cp := *row
	return &cp, nil
}

func (r *memStockRepo) GetByBarcode(_ context.Context, barcode string) (*stock.Stock, error) {
	for _, row := range r.store.stocks {
		if row.Barcode == barcode {
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("stock", barcode)
}

func (r *memStockRepo) GetByIDForUpdate(ctx context.Context, stockID id.ID) (*stock.Stock, error) {
	return r.GetByID(ctx, stockID)
}

func (r *memStockRepo) GetByBarcodeForUpdate(ctx context.Context, barcode string) (*stock.Stock, error) {
	return r.GetByBarcode(ctx, barcode)
}

func (r *memStockRepo) Create(_ context.Context, s *stock.Stock) error {
	r.store.stocks[s.ID] = s
	return nil
}

func (r *memStockRepo) SetQuantity(_ context.Context, stockID id.ID, quantity int64) error {
	row, ok := r.store.stocks[stockID]
	if !ok {
		return apperror.NewNotFound("stock", stockID)
	}
	row.Quantity = quantity
	return nil
}

func (r *memStockRepo) ListByBranch(_ context.Context, _ id.ID, _ stock.ListFilter) ([]stock.Stock, error) {
	return nil, nil
}

func (r *memStockRepo) IsReferenced(_ context.Context, stockID id.ID) (bool, error) {
	for _, l := range r.store.saleLines {
		if l.StockID == stockID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memStockRepo) Delete(_ context.Context, stockID id.ID) error {
	delete(r.store.stocks, stockID)
	return nil
}

// memLedgerRepo implements Repository over the shared store.
type memLedgerRepo struct {
	store *memStore
}

func (r *memLedgerRepo) InsertSaleHeader(_ context.Context, h *SaleHeader) error {
	r.store.saleHeaders = append(r.store.saleHeaders, *h)
	return nil
}

func (r *memLedgerRepo) InsertSaleLines(_ context.Context, lines []SaleLine) error {
	r.store.saleLines = append(r.store.saleLines, lines...)
	return nil
}

func (r *memLedgerRepo) InsertPurchaseHeader(_ context.Context, h *PurchaseHeader) error {
	r.store.purchaseHeaders = append(r.store.purchaseHeaders, *h)
	return nil
}

func (r *memLedgerRepo) InsertPurchaseLines(_ context.Context, lines []PurchaseLine) error {
	r.store.purchaseLines = append(r.store.purchaseLines, lines...)
	return nil
}

func (r *memLedgerRepo) AppendEvents(_ context.Context, events []LifecycleEvent) error {
	r.store.events = append(r.store.events, events...)
	return nil
}

func (r *memLedgerRepo) InsertBankTransaction(_ context.Context, bt *BankTransaction) error {
	r.store.banks = append(r.store.banks, *bt)
	return nil
}

func (r *memLedgerRepo) ListEventsByStock(_ context.Context, stockID id.ID, limit, offset int) ([]LifecycleEvent, error) {
	var out []LifecycleEvent
	for i := len(r.store.events) - 1; i >= 0; i-- {
		if r.store.events[i].StockID == stockID {
			out = append(out, r.store.events[i])
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fixture struct {
	store *memStore
	coord *Coordinator
}

func newFixture() *fixture {
	store := newMemStore()
	return &fixture{
		store: store,
		coord: NewCoordinator(
			&memLedgerRepo{store: store},
			stock.NewService(&memStockRepo{store: store}),
			&memTxManager{store: store},
			nil,
		),
	}
}

func authedCtx(actorID id.ID, branchID id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		ActorID:       actorID.String(),
		Name:          "Test Clerk",
		RoleName:      "Manager",
		BranchID:      branchID.String(),
		Authenticated: true,
	})
}

func TestCreateSale(t *testing.T) {
	actorID := id.New()
	branchID := id.New()
	variantID := id.New()

	t.Run("multi item sale commits atomically", func(t *testing.T) {
		fx := newFixture()
		s1 := fx.store.addStock(stock.Stock{Barcode: "R-1", BranchID: branchID, VariantID: variantID, Quantity: 5})
		s2 := fx.store.addStock(stock.Stock{Barcode: "R-2", BranchID: branchID, VariantID: variantID, Quantity: 3})

		res, err := fx.coord.CreateSale(authedCtx(actorID, branchID), CreateSaleRequest{
			BranchID: branchID,
			Items: []SaleItem{
				{StockID: s1, Quantity: 2, SoldPrice: types.MustMoney("120.50")},
				{StockID: s2, Quantity: 3, SoldPrice: types.MustMoney("75")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []id.ID{s1, s2}, res.StockIDs)

		assert.Equal(t, int64(3), fx.store.stocks[s1].Quantity)
		assert.Equal(t, int64(0), fx.store.stocks[s2].Quantity)
		require.Len(t, fx.store.saleHeaders, 1)
		require.Len(t, fx.store.saleLines, 2)
		require.Len(t, fx.store.events, 2)

		assert.Equal(t, actorID, fx.store.saleHeaders[0].ActorID)
		assert.True(t, fx.store.saleLines[0].SoldPrice.Equal(types.MustMoney("120.50")))
		for _, ev := range fx.store.events {
			assert.Equal(t, ActionSale, ev.Action)
			require.NotNil(t, ev.ActorID)
			assert.Equal(t, actorID, *ev.ActorID)
			assert.Equal(t, fx.store.saleHeaders[0].CreatedAt, ev.CreatedAt)
		}
	})

	t.Run("insufficient stock on a later item rolls back everything", func(t *testing.T) {
		fx := newFixture()
		s1 := fx.store.addStock(stock.Stock{Barcode: "R-3", BranchID: branchID, VariantID: variantID, Quantity: 5})
		s2 := fx.store.addStock(stock.Stock{Barcode: "R-4", BranchID: branchID, VariantID: variantID, Quantity: 1})

		_, err := fx.coord.CreateSale(authedCtx(actorID, branchID), CreateSaleRequest{
			BranchID: branchID,
			Items: []SaleItem{
				{StockID: s1, Quantity: 2, SoldPrice: types.MustMoney("10")},
				{StockID: s2, Quantity: 4, SoldPrice: types.MustMoney("10")},
			},
		})
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))

		// First item's decrement must not survive.
		assert.Equal(t, int64(5), fx.store.stocks[s1].Quantity)
		assert.Equal(t, int64(1), fx.store.stocks[s2].Quantity)
		assert.Empty(t, fx.store.saleHeaders)
		assert.Empty(t, fx.store.saleLines)
		assert.Empty(t, fx.store.events)
	})

	t.Run("repeated stock id accumulates within one transaction", func(t *testing.T) {
		fx := newFixture()
		s1 := fx.store.addStock(stock.Stock{Barcode: "R-5", BranchID: branchID, VariantID: variantID, Quantity: 5})

		_, err := fx.coord.CreateSale(authedCtx(actorID, branchID), CreateSaleRequest{
			BranchID: branchID,
			Items: []SaleItem{
				{StockID: s1, Quantity: 3, SoldPrice: types.MustMoney("10")},
				{StockID: s1, Quantity: 3, SoldPrice: types.MustMoney("10")},
			},
		})
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Equal(t, int64(5), fx.store.stocks[s1].Quantity)
	})

	t.Run("empty item list rejected before any write", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.coord.CreateSale(authedCtx(actorID, branchID), CreateSaleRequest{BranchID: branchID})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeEmptyTransaction, appErr.Code)
		assert.Empty(t, fx.store.saleHeaders)
	})

	t.Run("unauthenticated caller rejected", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.coord.CreateSale(context.Background(), CreateSaleRequest{BranchID: branchID})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
	})

	t.Run("branch defaults from the actor", func(t *testing.T) {
		fx := newFixture()
		s1 := fx.store.addStock(stock.Stock{Barcode: "R-6", BranchID: branchID, VariantID: variantID, Quantity: 1})

		_, err := fx.coord.CreateSale(authedCtx(actorID, branchID), CreateSaleRequest{
			Items: []SaleItem{{StockID: s1, Quantity: 1, SoldPrice: types.MustMoney("10")}},
		})
		require.NoError(t, err)
		assert.Equal(t, branchID, fx.store.saleHeaders[0].BranchID)
	})

	t.Run("bank context writes a pending record", func(t *testing.T) {
		fx := newFixture()
		s1 := fx.store.addStock(stock.Stock{Barcode: "R-7", BranchID: branchID, VariantID: variantID, Quantity: 1})
		bankID := id.New()

		res, err := fx.coord.CreateSale(authedCtx(actorID, branchID), CreateSaleRequest{
			BranchID: branchID,
			Bank:     &BankContext{BankID: bankID, Amount: types.MustMoney("99"), CommissionRate: types.MustMoney("0.015")},
			Items:    []SaleItem{{StockID: s1, Quantity: 1, SoldPrice: types.MustMoney("99")}},
		})
		require.NoError(t, err)

		require.Len(t, fx.store.banks, 1)
		bt := fx.store.banks[0]
		assert.Equal(t, BankStatusPending, bt.Status)
		assert.Equal(t, bankID, bt.BankID)
		require.NotNil(t, bt.SaleID)
		assert.Equal(t, res.ID, *bt.SaleID)
		assert.Nil(t, bt.PurchaseID)
	})
}

func TestCreateSaleConcurrent(t *testing.T) {
	actorID := id.New()
	branchID := id.New()
	variantID := id.New()

	fx := newFixture()
	s1 := fx.store.addStock(stock.Stock{Barcode: "R-9", BranchID: branchID, VariantID: variantID, Quantity: 10})

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.coord.CreateSale(authedCtx(actorID, branchID), CreateSaleRequest{
				BranchID: branchID,
				Items:    []SaleItem{{StockID: s1, Quantity: 1, SoldPrice: types.MustMoney("10")}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var committed, refused int
	for err := range errs {
		if err == nil {
			committed++
		} else {
			require.True(t, apperror.IsInsufficientStock(err))
			refused++
		}
	}

	// Exactly the available quantity commits; no lost updates, no overdraft.
	assert.Equal(t, 10, committed)
	assert.Equal(t, 10, refused)
	assert.Equal(t, int64(0), fx.store.stocks[s1].Quantity)
	assert.Len(t, fx.store.saleHeaders, 10)
	assert.Len(t, fx.store.events, 10)
}

func TestCreatePurchase(t *testing.T) {
	actorID := id.New()
	branchID := id.New()
	variantID := id.New()

	t.Run("unknown barcode creates stock then increments", func(t *testing.T) {
		fx := newFixture()

		res, err := fx.coord.CreatePurchase(authedCtx(actorID, branchID), CreatePurchaseRequest{
			BranchID: branchID,
			Items: []PurchaseItem{
				{VariantID: variantID, BranchID: branchID, Barcode: "P-1", Quantity: 4, PurchasePrice: types.MustMoney("55.25")},
			},
		})
		require.NoError(t, err)
		require.Len(t, res.StockIDs, 1)

		row := fx.store.stocks[res.StockIDs[0]]
		require.NotNil(t, row)
		assert.Equal(t, "P-1", row.Barcode)
		assert.Equal(t, int64(4), row.Quantity)

		require.Len(t, fx.store.purchaseLines, 1)
		assert.True(t, fx.store.purchaseLines[0].PurchasePrice.Equal(types.MustMoney("55.25")))
		require.Len(t, fx.store.events, 1)
		assert.Equal(t, ActionPurchase, fx.store.events[0].Action)
	})

	t.Run("existing barcode increments in place", func(t *testing.T) {
		fx := newFixture()
		s1 := fx.store.addStock(stock.Stock{Barcode: "P-2", BranchID: branchID, VariantID: variantID, Quantity: 2})

		_, err := fx.coord.CreatePurchase(authedCtx(actorID, branchID), CreatePurchaseRequest{
			BranchID: branchID,
			Items: []PurchaseItem{
				{VariantID: variantID, BranchID: branchID, Barcode: "P-2", Quantity: 3, PurchasePrice: types.MustMoney("10")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), fx.store.stocks[s1].Quantity)
		// No second row appears for a known barcode.
		assert.Len(t, fx.store.stocks, 1)
	})

	t.Run("barcode conflict rolls back the created row", func(t *testing.T) {
		fx := newFixture()
		fx.store.addStock(stock.Stock{Barcode: "P-3", BranchID: branchID, VariantID: variantID, Quantity: 2})
		otherBranch := id.New()

		_, err := fx.coord.CreatePurchase(authedCtx(actorID, branchID), CreatePurchaseRequest{
			BranchID: otherBranch,
			Items: []PurchaseItem{
				{VariantID: variantID, BranchID: otherBranch, Barcode: "P-4", Quantity: 1, PurchasePrice: types.MustMoney("10")},
				{VariantID: variantID, BranchID: otherBranch, Barcode: "P-3", Quantity: 1, PurchasePrice: types.MustMoney("10")},
			},
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBarcodeConflict, appErr.Code)

		// The row created for P-4 must not survive the rollback.
		assert.Len(t, fx.store.stocks, 1)
		assert.Empty(t, fx.store.purchaseHeaders)
		assert.Empty(t, fx.store.events)
	})
}

func TestAdjust(t *testing.T) {
	actorID := id.New()
	branchID := id.New()
	variantID := id.New()

	fx := newFixture()
	s1 := fx.store.addStock(stock.Stock{Barcode: "A-1", BranchID: branchID, VariantID: variantID, Quantity: 5})
	ctx := authedCtx(actorID, branchID)

	t.Run("damage write-off", func(t *testing.T) {
		row, err := fx.coord.Adjust(ctx, AdjustRequest{StockID: s1, Action: ActionDamage, Delta: -2, Note: "cracked stone"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), row.Quantity)

		require.Len(t, fx.store.events, 1)
		assert.Equal(t, ActionDamage, fx.store.events[0].Action)
		assert.Equal(t, "cracked stone", fx.store.events[0].Note)
	})

	t.Run("zero delta rejected", func(t *testing.T) {
		_, err := fx.coord.Adjust(ctx, AdjustRequest{StockID: s1, Delta: 0})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("overdraft refused with event withheld", func(t *testing.T) {
		before := len(fx.store.events)
		_, err := fx.coord.Adjust(ctx, AdjustRequest{StockID: s1, Action: ActionLost, Delta: -100})
		require.Error(t, err)
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Len(t, fx.store.events, before)
	})
}

func TestCreateStock(t *testing.T) {
	actorID := id.New()
	branchID := id.New()

	fx := newFixture()
	ctx := authedCtx(actorID, branchID)

	row := stock.New("M-1", branchID, id.New())
	row.Quantity = 3

	created, err := fx.coord.CreateStock(ctx, row, "opening count")
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.Quantity)

	require.Len(t, fx.store.events, 1)
	assert.Equal(t, ActionCount, fx.store.events[0].Action)
	assert.Equal(t, "opening count", fx.store.events[0].Note)

	// Same barcode again trips the conflict and withholds the event.
	_, err = fx.coord.CreateStock(ctx, stock.New("M-1", branchID, id.New()), "")
	require.Error(t, err)
	assert.Len(t, fx.store.events, 1)
}

func TestStockHistory(t *testing.T) {
	actorID := id.New()
	branchID := id.New()

	fx := newFixture()
	s1 := fx.store.addStock(stock.Stock{Barcode: "H-1", BranchID: branchID, VariantID: id.New(), Quantity: 100})
	ctx := authedCtx(actorID, branchID)

	for i := 0; i < 3; i++ {
		_, err := fx.coord.Adjust(ctx, AdjustRequest{StockID: s1, Action: ActionAdjustment, Delta: -1})
		require.NoError(t, err)
	}

	events, err := fx.coord.StockHistory(ctx, s1, 2, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = fx.coord.StockHistory(ctx, s1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, events, 3, "zero limit falls back to the default")
}
