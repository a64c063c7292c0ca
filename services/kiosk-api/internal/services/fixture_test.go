package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/otp"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const (
	testMachineKey = "machine-key-1"
	cokeID         = "coca-cola"
)

var coke = models.Item{ID: cokeID, Name: "Coca-Cola", Price: money("150.00"), InStock: 10}

// kiosk wires the three services over one in-memory store.
type kiosk struct {
	store      *memStore
	clock      *fakeClock
	publisher  *recordingPublisher
	catalog    *mockCatalog
	orders     OrderService
	wallet     WalletService
	redemption RedemptionService
}

func newKiosk(t *testing.T, gen otp.Generator) *kiosk {
	t.Helper()
	k := &kiosk{
		store:     newMemStore(),
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
		catalog:   &mockCatalog{},
	}
	if gen == nil {
		gen = otp.NewRandomGenerator()
	}
	k.catalog.On("GetItem", mock.Anything, mock.Anything, cokeID).Return(coke, nil).Maybe()
	k.catalog.On("GetItem", mock.Anything, mock.Anything, mock.Anything).
		Return(models.Item{}, pkg.NewAppError(pkg.ErrItemNotFoundCode, "item not found", nil)).Maybe()

	logger := zap.NewNop()
	db := fakeDB{}
	k.wallet = NewWalletService(WalletServiceConfig{
		Logger:         logger,
		DB:             db,
		WalletRepo:     k.store.wallet(),
		TxnRepo:        k.store.txn(),
		DefaultBalance: money("1000.00"),
		RetryAttempts:  3,
		HistoryLimit:   50,
	})
	k.orders = NewOrderService(OrderServiceConfig{
		Logger:         logger,
		DB:             db,
		OrderRepo:      k.store.order(),
		WalletRepo:     k.store.wallet(),
		TxnRepo:        k.store.txn(),
		Catalog:        k.catalog,
		OtpGenerator:   gen,
		Publisher:      k.publisher,
		DefaultBalance: money("1000.00"),
		OtpMaxAttempts: 5,
		RetryAttempts:  3,
		HistoryLimit:   50,
		Clock:          k.clock.Now,
	})
	k.redemption = NewRedemptionService(RedemptionServiceConfig{
		Logger:        logger,
		DB:            db,
		OrderRepo:     k.store.order(),
		Authenticator: NewStaticKeyAuthenticator(testMachineKey),
		Publisher:     k.publisher,
		RetryAttempts: 3,
		Clock:         k.clock.Now,
	})
	return k
}

// setBalance creates or overwrites a wallet directly in the store.
func (k *kiosk) setBalance(userID string, balance string) {
	k.store.mu.Lock()
	defer k.store.mu.Unlock()
	b := money(balance)
	k.store.wallets[userID] = models.Wallet{UserID: userID, Balance: b, OpeningBalance: b}
}

func (k *kiosk) balance(t *testing.T, userID string) string {
	t.Helper()
	w, err := k.store.wallet().FindByUserID(context.Background(), nil, userID)
	if err != nil {
		t.Fatalf("wallet %s: %v", userID, err)
	}
	return w.Balance.StringFixed(2)
}

func (k *kiosk) orderCount() int {
	k.store.mu.Lock()
	defer k.store.mu.Unlock()
	return len(k.store.orders)
}

func assertAppError(t *testing.T, err error, code pkg.ErrorCode) {
	t.Helper()
	if !pkg.IsErrorCode(err, code) {
		t.Fatalf("expected %s, got %v", code.Code, err)
	}
}
