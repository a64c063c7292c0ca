package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the three ledger tables. Each method holds the
// lock for its whole body, which gives the same atomicity as the conditional SQL.
type memStore struct {
	mu      sync.Mutex
	wallets map[string]models.Wallet
	orders  map[uuid.UUID]models.Order
	txns    []models.Transaction
}

func newMemStore() *memStore {
	return &memStore{wallets: map[string]models.Wallet{}, orders: map[uuid.UUID]models.Order{}}
}

func (s *memStore) wallet() *memWallets { return &memWallets{s} }
func (s *memStore) order() *memOrders   { return &memOrders{s} }
func (s *memStore) txn() *memTxns       { return &memTxns{s} }

func (s *memStore) transactions(userID string) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.txns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

type memWallets struct{ s *memStore }

func (m *memWallets) Ensure(_ context.Context, _ database.Querier, userID string, openingBalance decimal.Decimal) (pgconn.CommandTag, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.wallets[userID]; ok {
		return skipped, nil
	}
	now := time.Now().UTC()
	m.s.wallets[userID] = models.Wallet{UserID: userID, Balance: openingBalance, OpeningBalance: openingBalance, CreatedAt: now, UpdatedAt: now}
	return inserted, nil
}

func (m *memWallets) FindByUserID(_ context.Context, _ database.Querier, userID string) (models.Wallet, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	w, ok := m.s.wallets[userID]
	if !ok {
		return models.Wallet{}, pgx.ErrNoRows
	}
	return w, nil
}

func (m *memWallets) Debit(_ context.Context, _ database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	w := m.s.wallets[userID]
	if w.Balance.LessThan(amount) {
		return decimal.Zero, pkg.ErrInsufficientBalance
	}
	w.Balance = w.Balance.Sub(amount)
	m.s.wallets[userID] = w
	return w.Balance, nil
}

func (m *memWallets) Credit(_ context.Context, _ database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	w := m.s.wallets[userID]
	w.Balance = w.Balance.Add(amount)
	m.s.wallets[userID] = w
	return w.Balance, nil
}

func (m *memWallets) FindDrift(context.Context, database.Querier, int) ([]models.WalletDrift, error) {
	return nil, nil
}

type memTxns struct{ s *memStore }

func (m *memTxns) Create(_ context.Context, _ database.Querier, txn models.Transaction) (pgconn.CommandTag, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.txns = append(m.s.txns, txn)
	return inserted, nil
}

func (m *memTxns) ListByUser(_ context.Context, _ database.Querier, userID string, limit int) ([]models.Transaction, error) {
	txns := m.s.transactions(userID)
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

type memOrders struct{ s *memStore }

func (m *memOrders) Create(_ context.Context, _ database.Querier, order models.Order) (pgconn.CommandTag, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, o := range m.s.orders {
		if o.Status == pkg.OrderStatusPending && o.Otp == order.Otp {
			return skipped, nil
		}
	}
	m.s.orders[order.ID] = order
	return inserted, nil
}

func (m *memOrders) FindByID(_ context.Context, _ database.Querier, orderID uuid.UUID) (models.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[orderID]
	if !ok {
		return models.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

// FindByOtp prefers the pending holder of a code, then the most recent one.
func (m *memOrders) FindByOtp(_ context.Context, _ database.Querier, otp string) (models.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var found *models.Order
	for _, o := range m.s.orders {
		if o.Otp != otp {
			continue
		}
		if o.Status == pkg.OrderStatusPending {
			return o, nil
		}
		if found == nil || o.CreatedAt.After(found.CreatedAt) {
			c := o
			found = &c
		}
	}
	if found == nil {
		return models.Order{}, pgx.ErrNoRows
	}
	return *found, nil
}

func (m *memOrders) ListByUser(_ context.Context, _ database.Querier, userID string, limit int) ([]models.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.Order
	for _, o := range m.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) TransitionStatus(_ context.Context, _ database.Querier, orderID uuid.UUID, from, to pkg.OrderStatus) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	m.s.orders[orderID] = o
	return true, nil
}

func (m *memOrders) ExpireStale(context.Context, database.Querier, time.Time, int) ([]models.Order, error) {
	return nil, nil
}

func (m *memOrders) FindUnbackedWalletOrders(context.Context, database.Querier, int) ([]models.Order, error) {
	return nil, nil
}
