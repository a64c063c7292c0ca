package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/views"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// fakeDB runs transaction bodies inline with a nil tx; the mocked repositories ignore it.
type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (f fakeDB) Primary() database.Querier                             { return f }
func (fakeDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

type mockWalletRepo struct{ mock.Mock }

func (m *mockWalletRepo) Ensure(ctx context.Context, q database.Querier, userID string, openingBalance decimal.Decimal) (pgconn.CommandTag, error) {
	args := m.Called(ctx, q, userID, openingBalance)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockWalletRepo) FindByUserID(ctx context.Context, q database.Querier, userID string) (models.Wallet, error) {
	args := m.Called(ctx, q, userID)
	return args.Get(0).(models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) Debit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, q, userID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockWalletRepo) Credit(ctx context.Context, q database.Querier, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, q, userID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockWalletRepo) FindDrift(ctx context.Context, q database.Querier, limit int) ([]models.WalletDrift, error) {
	args := m.Called(ctx, q, limit)
	return args.Get(0).([]models.WalletDrift), args.Error(1)
}

type mockTxnRepo struct{ mock.Mock }

func (m *mockTxnRepo) Create(ctx context.Context, q database.Querier, txn models.Transaction) (pgconn.CommandTag, error) {
	args := m.Called(ctx, q, txn)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockTxnRepo) ListByUser(ctx context.Context, q database.Querier, userID string, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, q, userID, limit)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) Create(ctx context.Context, q database.Querier, order models.Order) (pgconn.CommandTag, error) {
	args := m.Called(ctx, q, order)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockOrderRepo) FindByID(ctx context.Context, q database.Querier, orderID uuid.UUID) (models.Order, error) {
	args := m.Called(ctx, q, orderID)
	return args.Get(0).(models.Order), args.Error(1)
}

func (m *mockOrderRepo) FindByOtp(ctx context.Context, q database.Querier, otp string) (models.Order, error) {
	args := m.Called(ctx, q, otp)
	return args.Get(0).(models.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, q database.Querier, userID string, limit int) ([]models.Order, error) {
	args := m.Called(ctx, q, userID, limit)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderRepo) TransitionStatus(ctx context.Context, q database.Querier, orderID uuid.UUID, from, to pkg.OrderStatus) (bool, error) {
	args := m.Called(ctx, q, orderID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) ExpireStale(ctx context.Context, q database.Querier, cutoff time.Time, limit int) ([]models.Order, error) {
	args := m.Called(ctx, q, cutoff, limit)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderRepo) FindUnbackedWalletOrders(ctx context.Context, q database.Querier, limit int) ([]models.Order, error) {
	args := m.Called(ctx, q, limit)
	return args.Get(0).([]models.Order), args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetItem(ctx context.Context, traceID string, itemID string) (models.Item, error) {
	args := m.Called(ctx, traceID, itemID)
	return args.Get(0).(models.Item), args.Error(1)
}

func (m *mockCatalog) ListItems(ctx context.Context, traceID string) ([]models.Item, error) {
	args := m.Called(ctx, traceID)
	return args.Get(0).([]models.Item), args.Error(1)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []views.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event views.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []pkg.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pkg.OrderEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// sequenceGenerator hands out codes in order.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

// fakeClock is a movable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	inserted = pgconn.NewCommandTag("INSERT 0 1")
	skipped  = pgconn.NewCommandTag("INSERT 0 0")
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// matchDecimal matches a decimal argument by value, so 150 and 150.00 are equal.
func matchDecimal(want string) interface{} {
	w := money(want)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(w) })
}
