package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wallets  = repositories.NewWalletRepository()
	orders   = repositories.NewOrderRepository()
	txns     = repositories.NewTransactionRepository()
	catalog  = repositories.NewCatalogRepository()
	soda     = models.Item{ID: "sprite", Name: "Sprite", Price: decimal.RequireFromString("150.00"), InStock: 10}
	baseTime = time.Now().UTC().Truncate(time.Second)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrder(userID, code string, createdAt time.Time) models.Order {
	return models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		ItemID:        soda.ID,
		Amount:        soda.Price,
		PaymentMethod: pkg.PaymentMethodWallet,
		Otp:           code,
		Status:        pkg.OrderStatusPending,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// TestRepositories shares one container across subtests; each subtest starts from empty tables.
func TestRepositories(t *testing.T) {
	db, _ := testutil.StartMigratedDB(t)
	ctx := context.Background()

	reset := func(t *testing.T) {
		testutil.TruncateAll(t, db)
		_, err := catalog.Upsert(ctx, db, soda)
		require.NoError(t, err)
	}

	t.Run("ensure keeps the first opening balance", func(t *testing.T) {
		reset(t)
		tag, err := wallets.Ensure(ctx, db, "alice", dec("1000.00"))
		require.NoError(t, err)
		assert.EqualValues(t, 1, tag.RowsAffected())

		tag, err = wallets.Ensure(ctx, db, "alice", dec("5.00"))
		require.NoError(t, err)
		assert.EqualValues(t, 0, tag.RowsAffected())

		w, err := wallets.FindByUserID(ctx, db.Primary(), "alice")
		require.NoError(t, err)
		assert.True(t, w.Balance.Equal(dec("1000")))
		assert.True(t, w.OpeningBalance.Equal(dec("1000")))
	})

	t.Run("debit never overdraws", func(t *testing.T) {
		reset(t)
		_, err := wallets.Ensure(ctx, db, "bob", dec("100.00"))
		require.NoError(t, err)

		_, err = wallets.Debit(ctx, db.Primary(), "bob", dec("150.00"))
		assert.ErrorIs(t, err, pkg.ErrInsufficientBalance)

		balance, err := wallets.Debit(ctx, db.Primary(), "bob", dec("100.00"))
		require.NoError(t, err)
		assert.True(t, balance.IsZero())

		balance, err = wallets.Credit(ctx, db.Primary(), "bob", dec("0.50"))
		require.NoError(t, err)
		assert.Equal(t, "0.50", balance.StringFixed(2))
	})

	t.Run("concurrent debits stop at zero", func(t *testing.T) {
		reset(t)
		_, err := wallets.Ensure(ctx, db, "carol", dec("1000.00"))
		require.NoError(t, err)

		var mu sync.Mutex
		succeeded := 0
		var wg sync.WaitGroup
		for i := 0; i < 15; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := wallets.Debit(ctx, db.Primary(), "carol", dec("150.00")); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 6, succeeded)
		w, err := wallets.FindByUserID(ctx, db.Primary(), "carol")
		require.NoError(t, err)
		assert.Equal(t, "100.00", w.Balance.StringFixed(2))
	})

	t.Run("pending otp is unique until the order leaves pending", func(t *testing.T) {
		reset(t)
		first := newOrder("alice", "4821", baseTime)
		tag, err := orders.Create(ctx, db, first)
		require.NoError(t, err)
		assert.EqualValues(t, 1, tag.RowsAffected())

		tag, err = orders.Create(ctx, db, newOrder("bob", "4821", baseTime))
		require.NoError(t, err)
		assert.EqualValues(t, 0, tag.RowsAffected())

		moved, err := orders.TransitionStatus(ctx, db, first.ID, pkg.OrderStatusPending, pkg.OrderStatusCompleted)
		require.NoError(t, err)
		assert.True(t, moved)

		second := newOrder("bob", "4821", baseTime.Add(time.Second))
		tag, err = orders.Create(ctx, db, second)
		require.NoError(t, err)
		assert.EqualValues(t, 1, tag.RowsAffected())

		// the pending holder wins the lookup
		found, err := orders.FindByOtp(ctx, db.Primary(), "4821")
		require.NoError(t, err)
		assert.Equal(t, second.ID, found.ID)
	})

	t.Run("transition only moves from the expected status", func(t *testing.T) {
		reset(t)
		o := newOrder("alice", "1111", baseTime)
		_, err := orders.Create(ctx, db, o)
		require.NoError(t, err)

		moved, err := orders.TransitionStatus(ctx, db, o.ID, pkg.OrderStatusPending, pkg.OrderStatusCompleted)
		require.NoError(t, err)
		assert.True(t, moved)

		moved, err = orders.TransitionStatus(ctx, db, o.ID, pkg.OrderStatusPending, pkg.OrderStatusExpired)
		require.NoError(t, err)
		assert.False(t, moved)

		stored, err := orders.FindByID(ctx, db.Primary(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, pkg.OrderStatusCompleted, stored.Status)
		assert.True(t, stored.Amount.Equal(dec("150")))
	})

	t.Run("concurrent transitions have one winner", func(t *testing.T) {
		reset(t)
		o := newOrder("alice", "2222", baseTime)
		_, err := orders.Create(ctx, db, o)
		require.NoError(t, err)

		var mu sync.Mutex
		winners := 0
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				moved, err := orders.TransitionStatus(ctx, db, o.ID, pkg.OrderStatusPending, pkg.OrderStatusCompleted)
				if err == nil && moved {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winners)
	})

	t.Run("expire stale closes only old pending orders", func(t *testing.T) {
		reset(t)
		stale := newOrder("alice", "3331", baseTime.Add(-10*time.Minute))
		fresh := newOrder("alice", "3332", baseTime)
		done := newOrder("alice", "3333", baseTime.Add(-10*time.Minute))
		done.Status = pkg.OrderStatusCompleted
		for _, o := range []models.Order{stale, fresh, done} {
			_, err := orders.Create(ctx, db, o)
			require.NoError(t, err)
		}

		expired, err := orders.ExpireStale(ctx, db.Primary(), baseTime.Add(-pkg.OrderExpiryWindow), 100)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, stale.ID, expired[0].ID)
		assert.Equal(t, pkg.OrderStatusExpired, expired[0].Status)

		again, err := orders.ExpireStale(ctx, db.Primary(), baseTime.Add(-pkg.OrderExpiryWindow), 100)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("list by user is newest first", func(t *testing.T) {
		reset(t)
		older := newOrder("alice", "4441", baseTime.Add(-time.Minute))
		newer := newOrder("alice", "4442", baseTime)
		other := newOrder("bob", "4443", baseTime)
		for _, o := range []models.Order{older, newer, other} {
			_, err := orders.Create(ctx, db, o)
			require.NoError(t, err)
		}

		list, err := orders.ListByUser(ctx, db, "alice", 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})

	t.Run("ledger is append only", func(t *testing.T) {
		reset(t)
		_, err := wallets.Ensure(ctx, db, "alice", dec("10.00"))
		require.NoError(t, err)
		txn := models.NewTransaction("alice", pkg.TransactionTypeCredit, dec("5.00"), "Wallet top-up", nil)
		_, err = txns.Create(ctx, db, txn)
		require.NoError(t, err)

		_, err = db.Exec(ctx, `UPDATE transactions SET amount = 1 WHERE id = $1`, txn.ID)
		var pgErr *pgconn.PgError
		require.True(t, errors.As(err, &pgErr), "update should be rejected: %v", err)
		assert.Equal(t, "23001", pgErr.Code)

		_, err = db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, txn.ID)
		assert.Error(t, err)

		list, err := txns.ListByUser(ctx, db, "alice", 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].Amount.Equal(dec("5")))
	})

	t.Run("drift and unbacked orders are detected", func(t *testing.T) {
		reset(t)
		_, err := wallets.Ensure(ctx, db, "alice", dec("1000.00"))
		require.NoError(t, err)
		_, err = wallets.Ensure(ctx, db, "bob", dec("1000.00"))
		require.NoError(t, err)

		// alice: consistent purchase
		err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			o := newOrder("alice", "5551", baseTime)
			if _, err := wallets.Debit(ctx, tx, "alice", o.Amount); err != nil {
				return err
			}
			if _, err := orders.Create(ctx, tx, o); err != nil {
				return err
			}
			_, err := txns.Create(ctx, tx, models.NewTransaction("alice", pkg.TransactionTypeDebit, o.Amount, "Purchase of Sprite", &o.ID))
			return err
		})
		require.NoError(t, err)

		// bob: balance moved without a ledger entry, and an order without a debit
		_, err = wallets.Debit(ctx, db.Primary(), "bob", dec("150.00"))
		require.NoError(t, err)
		unbacked := newOrder("bob", "5552", baseTime)
		_, err = orders.Create(ctx, db, unbacked)
		require.NoError(t, err)

		drift, err := wallets.FindDrift(ctx, db.Primary(), 10)
		require.NoError(t, err)
		require.Len(t, drift, 1)
		assert.Equal(t, "bob", drift[0].UserID)
		assert.Equal(t, "850.00", drift[0].Balance.StringFixed(2))
		assert.Equal(t, "1000.00", drift[0].Expected.StringFixed(2))

		missing, err := orders.FindUnbackedWalletOrders(ctx, db.Primary(), 10)
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, unbacked.ID, missing[0].ID)
	})

	t.Run("transaction rolls back every write", func(t *testing.T) {
		reset(t)
		_, err := wallets.Ensure(ctx, db, "alice", dec("1000.00"))
		require.NoError(t, err)

		o := newOrder("alice", "6661", baseTime)
		err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if _, err := wallets.Debit(ctx, tx, "alice", o.Amount); err != nil {
				return err
			}
			if _, err := orders.Create(ctx, tx, o); err != nil {
				return err
			}
			return errors.New("insert of the ledger entry failed")
		})
		require.Error(t, err)

		w, err := wallets.FindByUserID(ctx, db.Primary(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "1000.00", w.Balance.StringFixed(2))
		_, err = orders.FindByID(ctx, db.Primary(), o.ID)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("catalog upsert and lookup", func(t *testing.T) {
		reset(t)
		updated := soda
		updated.Price = dec("175.50")
		_, err := catalog.Upsert(ctx, db, updated)
		require.NoError(t, err)

		item, err := catalog.FindByID(ctx, db, soda.ID)
		require.NoError(t, err)
		assert.Equal(t, "175.50", item.Price.StringFixed(2))

		_, err = catalog.FindByID(ctx, db, "unknown")
		assert.ErrorIs(t, err, pgx.ErrNoRows)

		items, err := catalog.List(ctx, db)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})
}
