package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/configs"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var catalog = []models.Item{
	{ID: "coca-cola", Name: "Coca-Cola", Price: decimal.RequireFromString("150.00"), ImageURL: "/images/coca-cola.png", Description: "Classic cola, 330ml can", InStock: 40},
	{ID: "fanta", Name: "Fanta", Price: decimal.RequireFromString("150.00"), ImageURL: "/images/fanta.png", Description: "Orange soda, 330ml can", InStock: 40},
	{ID: "sprite", Name: "Sprite", Price: decimal.RequireFromString("150.00"), ImageURL: "/images/sprite.png", Description: "Lemon-lime soda, 330ml can", InStock: 40},
	{ID: "water", Name: "Still Water", Price: decimal.RequireFromString("100.00"), ImageURL: "/images/water.png", Description: "500ml bottle", InStock: 60},
}

// main seeds the drink catalog and, optionally, funded demo wallets.
// Every insert is idempotent so it can be re-run against a live database.
func main() {
	users := flag.Int("users", 10, "Number of demo wallets to fund")
	userPrefix := flag.String("userPrefix", "demo-user-", "Prefix of demo user ids")
	balance := flag.String("balance", "1000.00", "Top-up applied to each demo wallet")
	flag.Parse()

	// Initialize logger
	pkg.InitLogger("kiosk-seed")
	logger := pkg.Logger
	defer logger.Sync()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	topUp, err := decimal.NewFromString(*balance)
	if err != nil || !topUp.IsPositive() {
		logger.Fatal("balance must be a positive decimal", zap.String("balance", *balance))
	}
	opening, err := decimal.NewFromString(cfg.DefaultWalletBalance)
	if err != nil {
		logger.Fatal("invalid default wallet balance", zap.Error(err))
	}

	// Initialize postgres db
	ctx := context.Background()
	db, closer, err := database.New(ctx, logger, database.Config{
		PrimaryDSN: cfg.PrimaryDbAddr,
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	})
	if err != nil {
		logger.Fatal("failed to init DB", zap.Error(err))
	}
	defer closer()

	if err = database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		logger.Fatal("failed to run database migrations", zap.Error(err))
	}

	catalogRepo := repositories.NewCatalogRepository()
	walletRepo := repositories.NewWalletRepository()
	txnRepo := repositories.NewTransactionRepository()

	// Seed data within a transaction to ensure atomicity.
	err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, item := range catalog {
			item.CreatedAt = time.Now().UTC()
			if _, err := catalogRepo.Upsert(ctx, tx, item); err != nil {
				return fmt.Errorf("upsert item %s: %w", item.ID, err)
			}
			logger.Info("item seeded", zap.String("item_id", item.ID), zap.String("price", item.Price.StringFixed(2)))
		}

		for i := 1; i <= *users; i++ {
			userID := fmt.Sprintf("%s%d", strings.TrimSpace(*userPrefix), i)
			tag, err := walletRepo.Ensure(ctx, tx, userID, opening)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				// already funded on an earlier run
				continue
			}
			newBalance, err := walletRepo.Credit(ctx, tx, userID, topUp)
			if err != nil {
				return err
			}
			if _, err = txnRepo.Create(ctx, tx, models.NewTransaction(userID, pkg.TransactionTypeCredit, topUp, "Wallet top-up", nil)); err != nil {
				return err
			}
			logger.Info("wallet seeded", zap.String(pkg.UserId, userID), zap.String("balance", newBalance.StringFixed(2)))
		}
		return nil
	})
	if err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
	logger.Info("seeding completed", zap.Int("items", len(catalog)), zap.Int("users", *users))
}
