package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunOnce_Clean(t *testing.T) {
	wallets := &mockWalletRepo{}
	orders := &mockOrderRepo{}
	wallets.On("FindDrift", mock.Anything, mock.Anything, 50).Return([]models.WalletDrift(nil), nil)
	orders.On("FindUnbackedWalletOrders", mock.Anything, mock.Anything, 50).Return([]models.Order(nil), nil)

	r := NewReconciler(ReconcilerConfig{Logger: zap.NewNop(), DB: fakeDB{}, WalletRepo: wallets, OrderRepo: orders, Interval: time.Minute, Limit: 50})
	report, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestRunOnce_ReportsViolations(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	wallets := &mockWalletRepo{}
	orders := &mockOrderRepo{}
	wallets.On("FindDrift", mock.Anything, mock.Anything, 100).Return([]models.WalletDrift{
		{UserID: "bob", Balance: decimal.RequireFromString("850"), Expected: decimal.RequireFromString("1000")},
	}, nil)
	orders.On("FindUnbackedWalletOrders", mock.Anything, mock.Anything, 100).
		Return([]models.Order{stalePending("bob", time.Now())}, nil)

	r := NewReconciler(ReconcilerConfig{Logger: zap.New(core), DB: fakeDB{}, WalletRepo: wallets, OrderRepo: orders, Interval: time.Minute})
	report, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Len(t, report.Drift, 1)
	assert.Len(t, report.Unbacked, 1)
	assert.Equal(t, 2, logs.FilterMessageSnippet("invariant violation").Len())
	entry := logs.FilterMessageSnippet("wallet balance").All()[0]
	assert.Equal(t, "850.00", entry.ContextMap()["balance"])
	assert.Equal(t, "1000.00", entry.ContextMap()["expected"])
}

func TestRunOnce_StorageError(t *testing.T) {
	wallets := &mockWalletRepo{}
	wallets.On("FindDrift", mock.Anything, mock.Anything, mock.Anything).Return([]models.WalletDrift(nil), errors.New("timeout"))

	r := NewReconciler(ReconcilerConfig{Logger: zap.NewNop(), DB: fakeDB{}, WalletRepo: wallets, OrderRepo: &mockOrderRepo{}, Interval: time.Minute})
	_, err := r.RunOnce(context.Background())

	assert.Error(t, err)
}
