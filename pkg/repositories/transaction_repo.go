package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
)

// TransactionRepository stores ledger entries. There is deliberately no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, q database.Querier, txn models.Transaction) (pgconn.CommandTag, error)
	// ListByUser returns the newest entries first.
	ListByUser(ctx context.Context, q database.Querier, userID string, limit int) ([]models.Transaction, error)
}

type TransactionRepositoryImpl struct {
}

func NewTransactionRepository() TransactionRepository {
	return &TransactionRepositoryImpl{}
}

func (t TransactionRepositoryImpl) Create(ctx context.Context, q database.Querier, txn models.Transaction) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `INSERT INTO transactions (id, user_id, order_id, type, description, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		txn.ID, txn.UserID, txn.OrderID, txn.Type, txn.Description, txn.Amount, txn.CreatedAt)
}

func (t TransactionRepositoryImpl) ListByUser(ctx context.Context, q database.Querier, userID string, limit int) ([]models.Transaction, error) {
	rows, err := q.Query(ctx, `SELECT id, user_id, order_id, type, description, amount, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		if err = rows.Scan(&txn.ID, &txn.UserID, &txn.OrderID, &txn.Type, &txn.Description, &txn.Amount, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
