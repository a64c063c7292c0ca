package services

import (
	"context"
	"sync"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/order-worker/internal/observability"
	"go.uber.org/zap"
)

// Report is what one reconciliation pass found.
type Report struct {
	Drift    []models.WalletDrift
	Unbacked []models.Order
}

func (r Report) Clean() bool {
	return len(r.Drift) == 0 && len(r.Unbacked) == 0
}

// Reconciler detects ledger invariant violations. Findings need manual repair, so it never writes.
type Reconciler interface {
	Start(ctx context.Context) func()
	RunOnce(ctx context.Context) (Report, error)
}

type ReconcilerConfig struct {
	Logger     *zap.Logger
	DB         database.Querier
	WalletRepo repositories.WalletRepository
	OrderRepo  repositories.OrderRepository
	Interval   time.Duration
	Limit      int
}

type ReconcilerImpl struct {
	cnf ReconcilerConfig
}

func NewReconciler(cnf ReconcilerConfig) Reconciler {
	if cnf.Limit < 1 {
		cnf.Limit = 100
	}
	return &ReconcilerImpl{cnf: cnf}
}

func (r *ReconcilerImpl) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.cnf.Interval)
		defer ticker.Stop()
		for {
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.cnf.Logger.Error("reconciliation failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	r.cnf.Logger.Info("reconciler started", zap.Duration("interval", r.cnf.Interval))
	return func() {
		cancel()
		wg.Wait()
		r.cnf.Logger.Info("reconciler stopped")
	}
}

func (r *ReconcilerImpl) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	var err error
	report.Drift, err = r.cnf.WalletRepo.FindDrift(ctx, r.cnf.DB, r.cnf.Limit)
	if err != nil {
		return Report{}, err
	}
	report.Unbacked, err = r.cnf.OrderRepo.FindUnbackedWalletOrders(ctx, r.cnf.DB, r.cnf.Limit)
	if err != nil {
		return Report{}, err
	}

	for _, d := range report.Drift {
		r.cnf.Logger.Error("invariant violation: wallet balance disagrees with ledger",
			zap.String(pkg.UserId, d.UserID),
			zap.String("balance", d.Balance.StringFixed(2)),
			zap.String("expected", d.Expected.StringFixed(2)))
	}
	for _, o := range report.Unbacked {
		r.cnf.Logger.Error("invariant violation: wallet order without debit transaction",
			zap.String(pkg.OrderId, o.ID.String()),
			zap.String(pkg.UserId, o.UserID),
			zap.String("amount", o.Amount.StringFixed(2)))
	}
	observability.WalletDrift.Set(float64(len(report.Drift)))
	observability.UnbackedOrders.Set(float64(len(report.Unbacked)))
	if report.Clean() {
		r.cnf.Logger.Debug("ledger reconciled cleanly")
	}
	return report, nil
}
