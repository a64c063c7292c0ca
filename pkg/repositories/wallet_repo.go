package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet repository.
type WalletRepository interface {
	// Ensure creates the wallet with openingBalance unless it already exists.
	Ensure(ctx context.Context, q database.Querier, userID string, openingBalance decimal.Decimal) (pgconn.CommandTag, error)
	// FindByUserID finds a wallet by its owner.
	FindByUserID(ctx context.Context, q database.Querier, userID string) (models.Wallet, error)
	// Debit subtracts amount in one conditional update and returns the new balance.
	// It returns pkg.ErrInsufficientBalance when the balance is lower than amount.
	Debit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	// Credit adds amount and returns the new balance.
	Credit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	// FindDrift lists wallets whose balance differs from opening balance + credits - debits.
	FindDrift(ctx context.Context, q database.Querier, limit int) ([]models.WalletDrift, error)
}

type WalletRepositoryImpl struct {
}

func NewWalletRepository() WalletRepository {
	return &WalletRepositoryImpl{}
}

func (w WalletRepositoryImpl) Ensure(ctx context.Context, q database.Querier, userID string, openingBalance decimal.Decimal) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `INSERT INTO wallets (user_id, balance, opening_balance, created_at, updated_at)
		VALUES ($1, $2, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`,
		userID, openingBalance)
}

func (w WalletRepositoryImpl) FindByUserID(ctx context.Context, q database.Querier, userID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := q.QueryRow(ctx, `SELECT user_id, balance, opening_balance, created_at, updated_at FROM wallets WHERE user_id = $1`, userID).Scan(
		&wallet.UserID, &wallet.Balance, &wallet.OpeningBalance, &wallet.CreatedAt, &wallet.UpdatedAt)
	return wallet, err
}

func (w WalletRepositoryImpl) Debit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("debit amount must be positive: %s", amount)
	}
	var balance decimal.Decimal
	err := q.QueryRow(ctx, `UPDATE wallets SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND balance >= $1
		RETURNING balance`,
		amount, userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, pkg.ErrInsufficientBalance
	}
	return balance, err
}

func (w WalletRepositoryImpl) Credit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("credit amount must be positive: %s", amount)
	}
	var balance decimal.Decimal
	err := q.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING balance`,
		amount, userID,
	).Scan(&balance)
	return balance, err
}

func (w WalletRepositoryImpl) FindDrift(ctx context.Context, q database.Querier, limit int) ([]models.WalletDrift, error) {
	rows, err := q.Query(ctx, `
		SELECT w.user_id, w.balance, w.opening_balance + COALESCE(l.net, 0) AS expected
		FROM wallets w
		LEFT JOIN (
			SELECT user_id, SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END) AS net
			FROM transactions
			GROUP BY user_id
		) l ON l.user_id = w.user_id
		WHERE w.balance <> w.opening_balance + COALESCE(l.net, 0)
		ORDER BY w.user_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []models.WalletDrift
	for rows.Next() {
		var d models.WalletDrift
		if err = rows.Scan(&d.UserID, &d.Balance, &d.Expected); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}
