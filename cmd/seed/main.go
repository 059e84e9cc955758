// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"carat/internal/core/id"
	"carat/internal/domain/auth"
	"carat/internal/domain/catalogs/branch"
	"carat/internal/domain/stock"
	"carat/internal/infrastructure/storage/postgres"
	"carat/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	users := postgres.NewUserRepo(txManager)
	branches := postgres.NewBranchRepo(txManager)
	stocks := postgres.NewStockRepo(txManager)

	owner, err := seedOwner(ctx, users, log)
	if err != nil {
		log.Fatalw("failed to seed owner account", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, branches, stocks, users, owner, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedOwner ensures one owner account exists. Idempotent by email.
func seedOwner(ctx context.Context, users *postgres.UserRepo, log *logger.Logger) (*auth.User, error) {
	email := os.Getenv("OWNER_EMAIL")
	if email == "" {
		email = "owner@carat.local"
	}
	password := os.Getenv("OWNER_PASSWORD")
	if password == "" {
		password = "Owner123!"
	}

	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		log.Infow("owner account already exists", "email", email)
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	owner := auth.NewUser(email, string(hash), "Store Owner")
	owner.RoleName = "Owner"

	if err := users.Create(ctx, owner); err != nil {
		return nil, fmt.Errorf("create owner: %w", err)
	}

	log.Infow("owner account created", "email", email)
	return owner, nil
}

// seedDemoData creates a demo store with two branches, a managed counter
// account and a handful of stock rows. Skipped when any branch exists.
func seedDemoData(
	ctx context.Context,
	branches *postgres.BranchRepo,
	stocks *postgres.StockRepo,
	users *postgres.UserRepo,
	owner *auth.User,
	log *logger.Logger,
) error {
	existing, err := branches.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	if len(existing) > 0 {
		log.Info("branches already present, skipping demo data")
		return nil
	}

	storeID := id.New()
	now := time.Now().UTC()

	counter := &branch.Branch{
		ID:        id.New(),
		StoreID:   storeID,
		Name:      "Main Counter",
		CreatedAt: now,
		UpdatedAt: now,
	}
	kiosk := &branch.Branch{
		ID:        id.New(),
		StoreID:   storeID,
		Name:      "Mall Kiosk",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, b := range []*branch.Branch{counter, kiosk} {
		if err := branches.Create(ctx, b); err != nil {
			return fmt.Errorf("create branch %s: %w", b.Name, err)
		}
	}

	// Attach the owner to the demo store so scoped reports cover it.
	if err := users.AssignStore(ctx, owner.ID, &storeID); err != nil {
		return fmt.Errorf("attach owner to store: %w", err)
	}

	if err := seedManager(ctx, users, counter.ID, log); err != nil {
		return err
	}

	variantID := id.New()
	demo := []struct {
		barcode string
		branch  id.ID
		qty     int64
	}{
		{"RING-0001", counter.ID, 5},
		{"RING-0002", counter.ID, 3},
		{"CHAIN-0001", kiosk.ID, 8},
	}
	for _, d := range demo {
		row := stock.New(d.barcode, d.branch, variantID)
		row.Quantity = d.qty
		if err := stocks.Create(ctx, row); err != nil {
			return fmt.Errorf("create stock %s: %w", d.barcode, err)
		}
	}

	log.Infow("demo data created",
		"store_id", storeID,
		"branches", 2,
		"stocks", len(demo),
	)
	return nil
}

func seedManager(ctx context.Context, users *postgres.UserRepo, branchID id.ID, log *logger.Logger) error {
	email := "manager@carat.local"
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Manager123!"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	manager := auth.NewUser(email, string(hash), "Counter Manager")
	manager.RoleName = "Manager"
	manager.BranchID = &branchID

	if err := users.Create(ctx, manager); err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	log.Infow("manager account created", "email", email)
	return nil
}
