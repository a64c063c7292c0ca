package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/otp"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/observability"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/views"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderService interface {
	// CreateOrder charges the caller (wallet orders) and issues a pending order with a fresh OTP.
	CreateOrder(ctx context.Context, traceID string, userID string, req views.CreateOrderRequest) (models.Order, error)
	// GetOrder returns an order owned by userID.
	GetOrder(ctx context.Context, traceID string, orderID string, userID string) (models.Order, error)
	ListOrders(ctx context.Context, traceID string, userID string) ([]models.Order, error)
}

type OrderServiceConfig struct {
	Logger         *zap.Logger
	DB             database.Executor
	OrderRepo      repositories.OrderRepository
	WalletRepo     repositories.WalletRepository
	TxnRepo        repositories.TransactionRepository
	Catalog        CatalogService
	OtpGenerator   otp.Generator
	Publisher      kafkautils.EventPublisher
	DefaultBalance decimal.Decimal
	OtpMaxAttempts int
	RetryAttempts  uint64
	HistoryLimit   int
	Clock          Clock
}

type OrderServiceImpl struct {
	logger         *zap.Logger
	db             database.Executor
	orderRepo      repositories.OrderRepository
	ledger         ledger
	catalog        CatalogService
	otpGen         otp.Generator
	publisher      kafkautils.EventPublisher
	otpMaxAttempts int
	retryAttempts  uint64
	historyLimit   int
	clock          Clock
}

func NewOrderService(cnf OrderServiceConfig) OrderService {
	clock := cnf.Clock
	if clock == nil {
		clock = time.Now
	}
	return &OrderServiceImpl{
		logger:         cnf.Logger,
		db:             cnf.DB,
		orderRepo:      cnf.OrderRepo,
		ledger:         ledger{walletRepo: cnf.WalletRepo, txnRepo: cnf.TxnRepo, defaultBalance: cnf.DefaultBalance},
		catalog:        cnf.Catalog,
		otpGen:         cnf.OtpGenerator,
		publisher:      cnf.Publisher,
		otpMaxAttempts: cnf.OtpMaxAttempts,
		retryAttempts:  cnf.RetryAttempts,
		historyLimit:   cnf.HistoryLimit,
		clock:          clock,
	}
}

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, traceID string, userID string, req views.CreateOrderRequest) (models.Order, error) {
	order, err := s.createOrder(ctx, traceID, userID, req)
	if err != nil {
		var appErr pkg.AppError
		if errors.As(err, &appErr) {
			observability.OrdersRejected.WithLabelValues(appErr.Code.Code).Inc()
		}
		return models.Order{}, err
	}
	observability.OrdersCreated.WithLabelValues(string(order.PaymentMethod)).Inc()
	s.logger.Info("order created",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, order.ID.String()),
		zap.String(pkg.UserId, userID),
		zap.String("item_id", order.ItemID),
		zap.String("amount", order.Amount.StringFixed(2)),
		zap.String("payment_method", string(order.PaymentMethod)),
	)
	publishEvent(ctx, s.logger, s.publisher, traceID, order, pkg.OrderEventCreated, order.CreatedAt)
	return order, nil
}

func (s *OrderServiceImpl) createOrder(ctx context.Context, traceID string, userID string, req views.CreateOrderRequest) (models.Order, error) {
	if req.PaymentMethod != pkg.PaymentMethodWallet && req.PaymentMethod != pkg.PaymentMethodCard {
		return models.Order{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "paymentMethod must be wallet or card", nil)
	}
	if req.Amount != nil && !validAmount(*req.Amount) {
		return models.Order{}, pkg.NewAppError(pkg.ErrInvalidAmountCode, "amount must be greater than zero with at most two decimals", nil)
	}

	item, err := s.catalog.GetItem(ctx, traceID, req.ItemID)
	if err != nil {
		return models.Order{}, err
	}
	if req.Amount != nil && !req.Amount.Equal(item.Price) {
		return models.Order{}, pkg.NewAppError(pkg.ErrInvalidAmountCode, "amount does not match the item price", nil)
	}

	var order models.Order
	err = database.Retry(ctx, s.logger, s.retryAttempts, func(ctx context.Context) error {
		now := s.clock().UTC()
		order = models.Order{
			ID:            uuid.New(),
			UserID:        userID,
			ItemID:        item.ID,
			Amount:        item.Price,
			PaymentMethod: req.PaymentMethod,
			Status:        pkg.OrderStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		// Debit, order row and ledger entry commit together or not at all.
		return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if order.PaymentMethod == pkg.PaymentMethodWallet {
				if _, err := s.ledger.applyDebit(ctx, tx, userID, order.Amount); err != nil {
					return err
				}
			}
			if err := s.insertWithFreshOtp(ctx, tx, traceID, &order); err != nil {
				return err
			}
			if order.PaymentMethod == pkg.PaymentMethodWallet {
				txn := models.NewTransaction(userID, pkg.TransactionTypeDebit, order.Amount, fmt.Sprintf("Purchase of %s", item.Name), &order.ID)
				if err := s.ledger.record(ctx, tx, txn); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return models.Order{}, toAppError(s.logger, traceID, err)
	}
	return order, nil
}

// insertWithFreshOtp draws codes until one is free among pending orders.
func (s *OrderServiceImpl) insertWithFreshOtp(ctx context.Context, q database.Querier, traceID string, order *models.Order) error {
	for attempt := 1; attempt <= s.otpMaxAttempts; attempt++ {
		code, err := s.otpGen.Generate()
		if err != nil {
			return err
		}
		order.Otp = code
		tag, err := s.orderRepo.Create(ctx, q, *order)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		observability.OtpCollisions.Inc()
		s.logger.Debug("otp collision, drawing again", zap.String(pkg.TraceId, traceID), zap.Int("attempt", attempt))
	}
	s.logger.Error("otp space exhausted", zap.String(pkg.TraceId, traceID), zap.Int("attempts", s.otpMaxAttempts))
	return pkg.NewAppError(pkg.ErrOtpUnavailableCode, "could not allocate a redemption code, please retry", pkg.ErrOtpSpaceExhausted)
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, traceID string, orderID string, userID string) (models.Order, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return models.Order{}, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "order not found", err)
	}
	order, err := s.orderRepo.FindByID(ctx, s.db.Primary(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "order not found", err)
	}
	if err != nil {
		return models.Order{}, toAppError(s.logger, traceID, err)
	}
	if order.UserID != userID {
		return models.Order{}, pkg.NewAppError(pkg.ErrForbiddenCode, "order belongs to another user", nil)
	}

	// First access after the window closes the order.
	now := s.clock()
	if order.Status == pkg.OrderStatusPending && order.ExpiredAt(now) {
		moved, err := s.orderRepo.TransitionStatus(ctx, s.db.Primary(), order.ID, pkg.OrderStatusPending, pkg.OrderStatusExpired)
		if err != nil {
			return models.Order{}, toAppError(s.logger, traceID, err)
		}
		if moved {
			order.Status = pkg.OrderStatusExpired
			publishEvent(ctx, s.logger, s.publisher, traceID, order, pkg.OrderEventExpired, now)
		} else {
			// lost to a concurrent redemption or sweep; report what is stored now
			if order, err = s.orderRepo.FindByID(ctx, s.db.Primary(), id); err != nil {
				return models.Order{}, toAppError(s.logger, traceID, err)
			}
		}
	}
	return order, nil
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, traceID string, userID string) ([]models.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, s.db, userID, s.historyLimit)
	if err != nil {
		return nil, toAppError(s.logger, traceID, err)
	}
	now := s.clock()
	for i := range orders {
		// display only; the row is closed on its next direct access or by the sweeper
		if orders[i].Status == pkg.OrderStatusPending && orders[i].ExpiredAt(now) {
			orders[i].Status = pkg.OrderStatusExpired
		}
	}
	return orders, nil
}
