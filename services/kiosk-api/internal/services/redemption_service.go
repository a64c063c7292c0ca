package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/otp"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/observability"
	"go.uber.org/zap"
)

// RedemptionService consumes OTPs on behalf of vending machines.
type RedemptionService interface {
	// Redeem completes the pending order holding code and returns it so the machine can dispense.
	// Checks run in a fixed order: credential, format, existence, already used, expired.
	Redeem(ctx context.Context, traceID string, credential string, code string) (models.Order, error)
}

type RedemptionServiceConfig struct {
	Logger        *zap.Logger
	DB            database.Executor
	OrderRepo     repositories.OrderRepository
	Authenticator MachineAuthenticator
	Publisher     kafkautils.EventPublisher
	RetryAttempts uint64
	Clock         Clock
}

type RedemptionServiceImpl struct {
	logger        *zap.Logger
	db            database.Executor
	orderRepo     repositories.OrderRepository
	auth          MachineAuthenticator
	publisher     kafkautils.EventPublisher
	retryAttempts uint64
	clock         Clock
}

func NewRedemptionService(cnf RedemptionServiceConfig) RedemptionService {
	clock := cnf.Clock
	if clock == nil {
		clock = time.Now
	}
	return &RedemptionServiceImpl{
		logger:        cnf.Logger,
		db:            cnf.DB,
		orderRepo:     cnf.OrderRepo,
		auth:          cnf.Authenticator,
		publisher:     cnf.Publisher,
		retryAttempts: cnf.RetryAttempts,
		clock:         clock,
	}
}

func (s *RedemptionServiceImpl) Redeem(ctx context.Context, traceID string, credential string, code string) (models.Order, error) {
	order, outcome, err := s.redeem(ctx, traceID, credential, code)
	observability.Redemptions.WithLabelValues(outcome).Inc()
	if err != nil {
		return models.Order{}, err
	}
	s.logger.Info("order redeemed",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, order.ID.String()),
		zap.String("item_id", order.ItemID))
	return order, nil
}

func (s *RedemptionServiceImpl) redeem(ctx context.Context, traceID string, credential string, code string) (models.Order, string, error) {
	// Nothing about the code is looked at before the machine is authenticated.
	if err := s.auth.Authenticate(credential); err != nil {
		return models.Order{}, "unauthorized", pkg.NewAppError(pkg.ErrUnauthorizedCode, "invalid machine credential", err)
	}
	if !otp.Valid(code) {
		return models.Order{}, "invalid_format", pkg.NewAppError(pkg.ErrInvalidFormatCode, "otp must be exactly 4 digits", nil)
	}

	var order models.Order
	err := database.Retry(ctx, s.logger, s.retryAttempts, func(ctx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByOtp(ctx, s.db.Primary(), code)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, "not_found", pkg.NewAppError(pkg.ErrRecordNotFoundCode, "no order for this otp", err)
	}
	if err != nil {
		return models.Order{}, "error", toAppError(s.logger, traceID, err)
	}

	switch order.Status {
	case pkg.OrderStatusCompleted:
		return models.Order{}, "already_redeemed", pkg.NewAppError(pkg.ErrAlreadyRedeemedCode, "order already redeemed", nil)
	case pkg.OrderStatusExpired:
		return models.Order{}, "expired", pkg.NewAppError(pkg.ErrExpiredCode, "order expired", nil)
	}

	now := s.clock()
	if order.ExpiredAt(now) {
		return s.expire(ctx, traceID, order, now)
	}

	var won bool
	err = database.Retry(ctx, s.logger, s.retryAttempts, func(ctx context.Context) error {
		var err error
		won, err = s.orderRepo.TransitionStatus(ctx, s.db.Primary(), order.ID, pkg.OrderStatusPending, pkg.OrderStatusCompleted)
		return err
	})
	if err != nil {
		return models.Order{}, "error", toAppError(s.logger, traceID, err)
	}
	if !won {
		s.logger.Info("redemption lost the race", zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderId, order.ID.String()))
		return models.Order{}, "already_redeemed", pkg.NewAppError(pkg.ErrAlreadyRedeemedCode, "order already redeemed", pkg.ErrRedemptionConflict)
	}
	order.Status = pkg.OrderStatusCompleted
	order.UpdatedAt = now.UTC()
	publishEvent(ctx, s.logger, s.publisher, traceID, order, pkg.OrderEventRedeemed, now)
	return order, "success", nil
}

// expire closes an order found past its window. If another request moved it first,
// the stored status decides the answer.
func (s *RedemptionServiceImpl) expire(ctx context.Context, traceID string, order models.Order, now time.Time) (models.Order, string, error) {
	moved, err := s.orderRepo.TransitionStatus(ctx, s.db.Primary(), order.ID, pkg.OrderStatusPending, pkg.OrderStatusExpired)
	if err != nil {
		return models.Order{}, "error", toAppError(s.logger, traceID, err)
	}
	if moved {
		order.Status = pkg.OrderStatusExpired
		publishEvent(ctx, s.logger, s.publisher, traceID, order, pkg.OrderEventExpired, now)
		return models.Order{}, "expired", pkg.NewAppError(pkg.ErrExpiredCode, "order expired", nil)
	}
	current, err := s.orderRepo.FindByID(ctx, s.db.Primary(), order.ID)
	if err != nil {
		return models.Order{}, "error", toAppError(s.logger, traceID, err)
	}
	if current.Status == pkg.OrderStatusCompleted {
		return models.Order{}, "already_redeemed", pkg.NewAppError(pkg.ErrAlreadyRedeemedCode, "order already redeemed", pkg.ErrRedemptionConflict)
	}
	return models.Order{}, "expired", pkg.NewAppError(pkg.ErrExpiredCode, "order expired", nil)
}
