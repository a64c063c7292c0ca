package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/views"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

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

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// memAuditStore fails the first failures saves, then keeps events by id.
type memAuditStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	saved    map[string]views.OrderEvent
}

func (s *memAuditStore) Save(_ context.Context, event views.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("mongo unavailable")
	}
	if s.saved == nil {
		s.saved = map[string]views.OrderEvent{}
	}
	s.saved[event.EventID] = event
	return nil
}

type fakeCommitter struct {
	mu      sync.Mutex
	commits []kafka.TopicPartition
}

func (f *fakeCommitter) CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, offsets...)
	return offsets, nil
}

var _ kafkautils.OffsetCommitter = (*fakeCommitter)(nil)

const eventsTopic = "order-events"

func eventMessage(t *testing.T, offset int64, event views.OrderEvent) *kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return rawMessage(offset, raw)
}

func rawMessage(offset int64, value []byte) *kafka.Message {
	topic := eventsTopic
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: kafka.Offset(offset)},
		Key:            []byte("alice"),
		Value:          value,
	}
}

func stalePending(userID string, createdAt time.Time) models.Order {
	return models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		ItemID:        "coca-cola",
		Amount:        decimal.RequireFromString("150"),
		PaymentMethod: pkg.PaymentMethodWallet,
		Otp:           "1234",
		Status:        pkg.OrderStatusExpired,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}
