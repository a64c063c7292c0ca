package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const topUpDescription = "Wallet top-up"

type WalletService interface {
	// GetBalance returns the caller's wallet, creating it with the default balance on first use.
	GetBalance(ctx context.Context, traceID string, userID string) (models.Wallet, error)
	Debit(ctx context.Context, traceID string, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error)
	TopUp(ctx context.Context, traceID string, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, traceID string, userID string) ([]models.Transaction, error)
}

// ledger applies balance changes inside a transaction owned by the caller.
// Every balance change is paired with exactly one Transaction row in the same transaction.
type ledger struct {
	walletRepo     repositories.WalletRepository
	txnRepo        repositories.TransactionRepository
	defaultBalance decimal.Decimal
}

func (l ledger) ensure(ctx context.Context, q database.Querier, userID string) error {
	_, err := l.walletRepo.Ensure(ctx, q, userID, l.defaultBalance)
	return err
}

// applyDebit subtracts amount without writing the ledger entry, for callers that
// must insert the row the entry points at first.
func (l ledger) applyDebit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := l.ensure(ctx, q, userID); err != nil {
		return decimal.Zero, err
	}
	balance, err := l.walletRepo.Debit(ctx, q, userID, amount)
	if errors.Is(err, pkg.ErrInsufficientBalance) {
		return decimal.Zero, pkg.NewAppError(pkg.ErrInsufficientFundsCode, pkg.ErrInsufficientFundsCode.Message, err)
	}
	return balance, err
}

func (l ledger) record(ctx context.Context, q database.Querier, txn models.Transaction) error {
	_, err := l.txnRepo.Create(ctx, q, txn)
	return err
}

func (l ledger) debit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal, description string, orderID *uuid.UUID) (decimal.Decimal, error) {
	balance, err := l.applyDebit(ctx, q, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if err = l.record(ctx, q, models.NewTransaction(userID, pkg.TransactionTypeDebit, amount, description, orderID)); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (l ledger) credit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if err := l.ensure(ctx, q, userID); err != nil {
		return decimal.Zero, err
	}
	balance, err := l.walletRepo.Credit(ctx, q, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if err = l.record(ctx, q, models.NewTransaction(userID, pkg.TransactionTypeCredit, amount, description, nil)); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

type WalletServiceConfig struct {
	Logger         *zap.Logger
	DB             database.Executor
	WalletRepo     repositories.WalletRepository
	TxnRepo        repositories.TransactionRepository
	DefaultBalance decimal.Decimal
	RetryAttempts  uint64
	HistoryLimit   int
}

type WalletServiceImpl struct {
	logger        *zap.Logger
	db            database.Executor
	walletRepo    repositories.WalletRepository
	txnRepo       repositories.TransactionRepository
	ledger        ledger
	retryAttempts uint64
	historyLimit  int
}

func NewWalletService(cnf WalletServiceConfig) WalletService {
	return &WalletServiceImpl{
		logger:        cnf.Logger,
		db:            cnf.DB,
		walletRepo:    cnf.WalletRepo,
		txnRepo:       cnf.TxnRepo,
		ledger:        ledger{walletRepo: cnf.WalletRepo, txnRepo: cnf.TxnRepo, defaultBalance: cnf.DefaultBalance},
		retryAttempts: cnf.RetryAttempts,
		historyLimit:  cnf.HistoryLimit,
	}
}

func (s *WalletServiceImpl) GetBalance(ctx context.Context, traceID string, userID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := database.Retry(ctx, s.logger, s.retryAttempts, func(ctx context.Context) error {
		if err := s.ledger.ensure(ctx, s.db.Primary(), userID); err != nil {
			return err
		}
		var err error
		wallet, err = s.walletRepo.FindByUserID(ctx, s.db.Primary(), userID)
		return err
	})
	if err != nil {
		return models.Wallet{}, toAppError(s.logger, traceID, err)
	}
	return wallet, nil
}

func (s *WalletServiceImpl) Debit(ctx context.Context, traceID string, userID string, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if !validAmount(amount) {
		return decimal.Zero, pkg.NewAppError(pkg.ErrInvalidAmountCode, "amount must be greater than zero with at most two decimals", nil)
	}
	var balance decimal.Decimal
	err := database.Retry(ctx, s.logger, s.retryAttempts, func(ctx context.Context) error {
		return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			var err error
			balance, err = s.ledger.debit(ctx, tx, userID, amount, description, nil)
			return err
		})
	})
	if err != nil {
		return decimal.Zero, toAppError(s.logger, traceID, err)
	}
	observability.WalletMutations.WithLabelValues(string(pkg.TransactionTypeDebit)).Inc()
	s.logger.Info("wallet debited", zap.String(pkg.TraceId, traceID), zap.String(pkg.UserId, userID), zap.String("amount", amount.StringFixed(2)))
	return balance, nil
}

func (s *WalletServiceImpl) TopUp(ctx context.Context, traceID string, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !validAmount(amount) {
		return decimal.Zero, pkg.NewAppError(pkg.ErrInvalidAmountCode, "amount must be greater than zero with at most two decimals", nil)
	}
	var balance decimal.Decimal
	err := database.Retry(ctx, s.logger, s.retryAttempts, func(ctx context.Context) error {
		return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			var err error
			balance, err = s.ledger.credit(ctx, tx, userID, amount, topUpDescription)
			return err
		})
	})
	if err != nil {
		return decimal.Zero, toAppError(s.logger, traceID, err)
	}
	observability.WalletMutations.WithLabelValues(string(pkg.TransactionTypeCredit)).Inc()
	s.logger.Info("wallet topped up", zap.String(pkg.TraceId, traceID), zap.String(pkg.UserId, userID), zap.String("amount", amount.StringFixed(2)))
	return balance, nil
}

func (s *WalletServiceImpl) ListTransactions(ctx context.Context, traceID string, userID string) ([]models.Transaction, error) {
	txns, err := s.txnRepo.ListByUser(ctx, s.db, userID, s.historyLimit)
	if err != nil {
		return nil, toAppError(s.logger, traceID, err)
	}
	return txns, nil
}
