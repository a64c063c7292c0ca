package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
)

const orderColumns = `id, user_id, item_id, amount, payment_method, otp, status, created_at, updated_at`

type OrderRepository interface {
	// Create inserts a pending order. Zero rows affected means the OTP is held by another pending order.
	Create(ctx context.Context, q database.Querier, order models.Order) (pgconn.CommandTag, error)
	FindByID(ctx context.Context, q database.Querier, orderID uuid.UUID) (models.Order, error)
	// FindByOtp returns the pending order holding otp, or the most recent terminal one.
	FindByOtp(ctx context.Context, q database.Querier, otp string) (models.Order, error)
	ListByUser(ctx context.Context, q database.Querier, userID string, limit int) ([]models.Order, error)
	// TransitionStatus moves an order from one status to another in one conditional update.
	// It returns false when the order was not in the from status anymore.
	TransitionStatus(ctx context.Context, q database.Querier, orderID uuid.UUID, from, to pkg.OrderStatus) (bool, error)
	// ExpireStale marks up to limit pending orders created before cutoff as expired and returns them.
	ExpireStale(ctx context.Context, q database.Querier, cutoff time.Time, limit int) ([]models.Order, error)
	// FindUnbackedWalletOrders lists wallet-paid orders without a debit transaction.
	FindUnbackedWalletOrders(ctx context.Context, q database.Querier, limit int) ([]models.Order, error)
}

type OrderRepositoryImpl struct {
}

func NewOrderRepository() OrderRepository {
	return &OrderRepositoryImpl{}
}

func (o OrderRepositoryImpl) Create(ctx context.Context, q database.Querier, order models.Order) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
		INSERT INTO orders (id, user_id, item_id, amount, payment_method, otp, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (otp) WHERE status = 'pending' DO NOTHING`,
		order.ID,
		order.UserID,
		order.ItemID,
		order.Amount,
		order.PaymentMethod,
		order.Otp,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
}

func (o OrderRepositoryImpl) FindByID(ctx context.Context, q database.Querier, orderID uuid.UUID) (models.Order, error) {
	if orderID == uuid.Nil {
		return models.Order{}, errors.New("order id cannot be nil")
	}
	return scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
}

func (o OrderRepositoryImpl) FindByOtp(ctx context.Context, q database.Querier, otp string) (models.Order, error) {
	return scanOrder(q.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE otp = $1
		ORDER BY (status = 'pending') DESC, created_at DESC
		LIMIT 1`, otp))
}

func (o OrderRepositoryImpl) ListByUser(ctx context.Context, q database.Querier, userID string, limit int) ([]models.Order, error) {
	rows, err := q.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (o OrderRepositoryImpl) TransitionStatus(ctx context.Context, q database.Querier, orderID uuid.UUID, from, to pkg.OrderStatus) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, orderID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (o OrderRepositoryImpl) ExpireStale(ctx context.Context, q database.Querier, cutoff time.Time, limit int) ([]models.Order, error) {
	rows, err := q.Query(ctx, `
		UPDATE orders SET status = 'expired', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM orders
			WHERE status = 'pending' AND created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) AND status = 'pending'
		RETURNING `+orderColumns, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (o OrderRepositoryImpl) FindUnbackedWalletOrders(ctx context.Context, q database.Querier, limit int) ([]models.Order, error) {
	rows, err := q.Query(ctx, `
		SELECT `+prefixed("o.", orderColumns)+` FROM orders o
		WHERE o.payment_method = 'wallet'
		  AND NOT EXISTS (
			SELECT 1 FROM transactions t WHERE t.order_id = o.id AND t.type = 'debit'
		  )
		ORDER BY o.created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ItemID,
		&order.Amount,
		&order.PaymentMethod,
		&order.Otp,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
