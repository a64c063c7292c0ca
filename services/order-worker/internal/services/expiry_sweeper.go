package services

import (
	"context"
	"sync"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/utils"
	"github.com/nimeshabuddhika/vending-kiosk/services/order-worker/internal/observability"
	"go.uber.org/zap"
)

// ExpirySweeper closes pending orders whose redemption window has passed.
// Redemption checks expiry on its own; the sweeper only keeps storage tidy.
type ExpirySweeper interface {
	Start(ctx context.Context) func()
	SweepOnce(ctx context.Context) (int, error)
}

type ExpirySweeperConfig struct {
	Logger     *zap.Logger
	DB         database.Executor
	OrderRepo  repositories.OrderRepository
	Publisher  kafkautils.EventPublisher
	Interval   time.Duration
	BatchSize  int
	MaxBackoff time.Duration
	Clock      func() time.Time
}

type ExpirySweeperImpl struct {
	cnf ExpirySweeperConfig
}

func NewExpirySweeper(cnf ExpirySweeperConfig) ExpirySweeper {
	if cnf.Clock == nil {
		cnf.Clock = time.Now
	}
	if cnf.BatchSize < 1 {
		cnf.BatchSize = 100
	}
	if cnf.MaxBackoff < cnf.Interval {
		cnf.MaxBackoff = cnf.Interval
	}
	return &ExpirySweeperImpl{cnf: cnf}
}

// Start runs a sweep every interval until ctx is done or the returned stop func is called.
// Consecutive failures stretch the wait with jittered exponential backoff.
func (s *ExpirySweeperImpl) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		failures := 0
		wait := s.cnf.Interval
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			if _, err := s.SweepOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				observability.SweepFailures.Inc()
				wait = utils.CalculateExponentialBackoffWithJitter(failures, s.cnf.Interval, s.cnf.MaxBackoff)
				s.cnf.Logger.Error("expiry sweep failed", zap.Int("failures", failures), zap.Duration("next_in", wait), zap.Error(err))
				continue
			}
			failures = 0
			wait = s.cnf.Interval
		}
	}()
	s.cnf.Logger.Info("expiry sweeper started", zap.Duration("interval", s.cnf.Interval), zap.Int("batch", s.cnf.BatchSize))
	return func() {
		cancel()
		wg.Wait()
		s.cnf.Logger.Info("expiry sweeper stopped")
	}
}

// SweepOnce expires stale orders in batches until none are left and returns how many it closed.
func (s *ExpirySweeperImpl) SweepOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		now := s.cnf.Clock()
		cutoff := now.Add(-pkg.OrderExpiryWindow)
		orders, err := s.cnf.OrderRepo.ExpireStale(ctx, s.cnf.DB.Primary(), cutoff, s.cnf.BatchSize)
		if err != nil {
			return total, err
		}
		for _, order := range orders {
			event := order.ToEvent(pkg.OrderEventExpired, now)
			if err := s.cnf.Publisher.Publish(ctx, event); err != nil {
				s.cnf.Logger.Error("failed to publish order event", zap.String(pkg.OrderId, order.ID.String()), zap.Error(err))
			}
		}
		total += len(orders)
		observability.OrdersExpired.Add(float64(len(orders)))
		if len(orders) < s.cnf.BatchSize {
			break
		}
	}
	if total > 0 {
		s.cnf.Logger.Info("expired stale orders", zap.Int("count", total))
	}
	return total, nil
}
