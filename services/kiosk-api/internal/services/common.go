package services

import (
	"context"
	"errors"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Clock returns the current time. Tests replace it to move past the expiry window.
type Clock func() time.Time

// toAppError keeps AppErrors as they are and maps storage errors through pkg.HandleSQLError.
func toAppError(logger *zap.Logger, traceID string, err error) error {
	var appErr pkg.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return pkg.HandleSQLError(traceID, logger, err)
}

// validAmount reports whether amount is positive with at most two decimals.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

// publishEvent enqueues an order event. It runs after the state change committed, so a
// failure is logged and counted but never returned.
func publishEvent(ctx context.Context, logger *zap.Logger, publisher kafkautils.EventPublisher, traceID string, order models.Order, eventType pkg.OrderEventType, at time.Time) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, order.ToEvent(eventType, at)); err != nil {
		observability.EventPublishFailures.WithLabelValues(string(eventType)).Inc()
		logger.Error("failed to publish order event",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.OrderId, order.ID.String()),
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}
