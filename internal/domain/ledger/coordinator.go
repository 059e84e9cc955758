package ledger

import (
	"context"
	"fmt"
	"time"

	"carat/internal/core/apperror"
	"carat/internal/core/appctx"
	"carat/internal/core/id"
	"carat/internal/core/tx"
	"carat/internal/domain/stock"
	"carat/pkg/logger"
)

// Coordinator orchestrates sale and purchase transactions: it validates
// items, locks and mutates stock, writes header and line records, appends
// lifecycle events, and commits atomically or rolls back entirely. Any error
// discovered mid-loop aborts the whole transaction, including items already
// processed earlier in the same request.
type Coordinator struct {
	repo   Repository
	stocks *stock.Service
	txm    tx.Manager
	audit  AuditRecorder // optional
}

// NewCoordinator creates a new ledger transaction coordinator.
func NewCoordinator(repo Repository, stocks *stock.Service, txm tx.Manager, audit AuditRecorder) *Coordinator {
	return &Coordinator{
		repo:   repo,
		stocks: stocks,
		txm:    txm,
		audit:  audit,
	}
}

// actor extracts and parses the authenticated actor from context. Ledger
// writes hard-fail without one.
func (c *Coordinator) actor(ctx context.Context) (id.ID, *appctx.UserContext, error) {
	user := appctx.GetUser(ctx)
	if user == nil || !user.Authenticated || user.ActorID == "" {
		return id.Nil(), nil, apperror.NewUnauthorized("authentication required")
	}
	actorID, err := id.Parse(user.ActorID)
	if err != nil {
		return id.Nil(), nil, apperror.NewUnauthorized("invalid actor id")
	}
	return actorID, user, nil
}

// CreateSale records a sale: one header, one line and one lifecycle event per
// item, each item's stock quantity decremented under a row lock. Items are
// processed in the order supplied; deltas against the same stock id
// accumulate sequentially within the transaction.
func (c *Coordinator) CreateSale(ctx context.Context, req CreateSaleRequest) (*TransactionResult, error) {
	actorID, user, err := c.actor(ctx)
	if err != nil {
		return nil, err
	}

	req.ApplyDefaults(user)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	header := &SaleHeader{
		ID:              id.New(),
		ActorID:         actorID,
		BranchID:        req.BranchID,
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
		CreatedAt:       now,
	}

	stockIDs := make([]id.ID, 0, len(req.Items))

	err = c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := c.repo.InsertSaleHeader(ctx, header); err != nil {
			return fmt.Errorf("insert sale header: %w", err)
		}

		lines := make([]SaleLine, 0, len(req.Items))
		events := make([]LifecycleEvent, 0, len(req.Items))

		for _, item := range req.Items {
			row, err := c.stocks.ApplyDelta(ctx, item.StockID, -item.Quantity, stock.Expect{})
			if err != nil {
				return err
			}

			lines = append(lines, SaleLine{
				ID:        id.New(),
				SaleID:    header.ID,
				StockID:   row.ID,
				Quantity:  item.Quantity,
				SoldPrice: item.SoldPrice,
			})
			events = append(events, NewLifecycleEvent(row.ID, &actorID, ActionSale, "", now))
			stockIDs = append(stockIDs, row.ID)
		}

		if err := c.repo.InsertSaleLines(ctx, lines); err != nil {
			return fmt.Errorf("insert sale lines: %w", err)
		}
		if err := c.repo.AppendEvents(ctx, events); err != nil {
			return fmt.Errorf("append events: %w", err)
		}

		if req.Bank != nil {
			if err := c.insertBank(ctx, req.Bank, &header.ID, nil, now); err != nil {
				return err
			}
		}

		if c.audit != nil {
			if err := c.audit.Record(ctx, "sale", header.ID, user.ActorID, req); err != nil {
				return fmt.Errorf("record audit: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale committed",
		"sale_id", header.ID,
		"branch_id", header.BranchID,
		"items", len(req.Items),
	)

	return &TransactionResult{ID: header.ID, CreatedAt: header.CreatedAt, StockIDs: stockIDs}, nil
}

// CreatePurchase records a purchase. Identical shape to CreateSale with two
// differences: items carry a barcode (an unknown barcode creates a zero
// quantity stock row before the delta is applied), and the delta is positive
// with a Purchase lifecycle action.
func (c *Coordinator) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*TransactionResult, error) {
	actorID, user, err := c.actor(ctx)
	if err != nil {
		return nil, err
	}

	req.ApplyDefaults(user)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	header := &PurchaseHeader{
		ID:              id.New(),
		ActorID:         actorID,
		BranchID:        req.BranchID,
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
		CreatedAt:       now,
	}

	stockIDs := make([]id.ID, 0, len(req.Items))

	err = c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := c.repo.InsertPurchaseHeader(ctx, header); err != nil {
			return fmt.Errorf("insert purchase header: %w", err)
		}

		lines := make([]PurchaseLine, 0, len(req.Items))
		events := make([]LifecycleEvent, 0, len(req.Items))

		for _, item := range req.Items {
			row, err := c.stocks.EnsureForPurchase(ctx, item.Barcode, item.BranchID, item.VariantID)
			if err != nil {
				return err
			}

			row, err = c.stocks.ApplyDelta(ctx, row.ID, item.Quantity, stock.Expect{
				BranchID:  item.BranchID,
				VariantID: item.VariantID,
			})
			if err != nil {
				return err
			}

			lines = append(lines, PurchaseLine{
				ID:            id.New(),
				PurchaseID:    header.ID,
				StockID:       row.ID,
				Quantity:      item.Quantity,
				PurchasePrice: item.PurchasePrice,
			})
			events = append(events, NewLifecycleEvent(row.ID, &actorID, ActionPurchase, "", now))
			stockIDs = append(stockIDs, row.ID)
		}

		if err := c.repo.InsertPurchaseLines(ctx, lines); err != nil {
			return fmt.Errorf("insert purchase lines: %w", err)
		}
		if err := c.repo.AppendEvents(ctx, events); err != nil {
			return fmt.Errorf("append events: %w", err)
		}

		if req.Bank != nil {
			if err := c.insertBank(ctx, req.Bank, nil, &header.ID, now); err != nil {
				return err
			}
		}

		if c.audit != nil {
			if err := c.audit.Record(ctx, "purchase", header.ID, user.ActorID, req); err != nil {
				return fmt.Errorf("record audit: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase committed",
		"purchase_id", header.ID,
		"branch_id", header.BranchID,
		"items", len(req.Items),
	)

	return &TransactionResult{ID: header.ID, CreatedAt: header.CreatedAt, StockIDs: stockIDs}, nil
}

// CreateStock records a manual stock entry: a new stock row with its initial
// quantity, paired with one lifecycle event in the same transaction.
func (c *Coordinator) CreateStock(ctx context.Context, row *stock.Stock, note string) (*stock.Stock, error) {
	actorID, _, err := c.actor(ctx)
	if err != nil {
		return nil, err
	}

	err = c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := c.stocks.CreateManual(ctx, row); err != nil {
			return err
		}
		event := NewLifecycleEvent(row.ID, &actorID, ActionCount, note, time.Now().UTC())
		return c.repo.AppendEvents(ctx, []LifecycleEvent{event})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock entered manually", "stock_id", row.ID, "barcode", row.Barcode)
	return row, nil
}

// Adjust applies a manual quantity delta with its lifecycle event. The same
// locking and non-negativity rules as sales and purchases apply.
func (c *Coordinator) Adjust(ctx context.Context, req AdjustRequest) (*stock.Stock, error) {
	actorID, _, err := c.actor(ctx)
	if err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var row *stock.Stock
	err = c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		row, err = c.stocks.ApplyDelta(ctx, req.StockID, req.Delta, stock.Expect{})
		if err != nil {
			return err
		}
		event := NewLifecycleEvent(row.ID, &actorID, req.Action, req.Note, time.Now().UTC())
		return c.repo.AppendEvents(ctx, []LifecycleEvent{event})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"stock_id", req.StockID,
		"action", req.Action,
		"delta", req.Delta,
	)
	return row, nil
}

// StockHistory reads the append-only event log for one stock row.
func (c *Coordinator) StockHistory(ctx context.Context, stockID id.ID, limit, offset int) ([]LifecycleEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return c.repo.ListEventsByStock(ctx, stockID, limit, offset)
}

func (c *Coordinator) insertBank(ctx context.Context, bank *BankContext, saleID, purchaseID *id.ID, now time.Time) error {
	bt := &BankTransaction{
		ID:             id.New(),
		SaleID:         saleID,
		PurchaseID:     purchaseID,
		BankID:         bank.BankID,
		Amount:         bank.Amount,
		CommissionRate: bank.CommissionRate,
		Status:         BankStatusPending,
		CreatedAt:      now,
	}
	if err := c.repo.InsertBankTransaction(ctx, bt); err != nil {
		return fmt.Errorf("insert bank transaction: %w", err)
	}
	return nil
}
