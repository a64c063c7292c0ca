package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/cache"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/observability"
	"go.uber.org/zap"
)

type CatalogService interface {
	GetItem(ctx context.Context, traceID string, itemID string) (models.Item, error)
	ListItems(ctx context.Context, traceID string) ([]models.Item, error)
}

type CatalogServiceImpl struct {
	logger *zap.Logger
	db     database.Querier
	repo   repositories.CatalogRepository
	cache  cache.ItemCache // optional
}

func NewCatalogService(logger *zap.Logger, db database.Querier, repo repositories.CatalogRepository, itemCache cache.ItemCache) CatalogService {
	return &CatalogServiceImpl{logger: logger, db: db, repo: repo, cache: itemCache}
}

// GetItem reads through the cache. Cache failures only cost a database read.
func (s *CatalogServiceImpl) GetItem(ctx context.Context, traceID string, itemID string) (models.Item, error) {
	if s.cache != nil {
		item, err := s.cache.Get(ctx, itemID)
		if err == nil {
			observability.CatalogCacheLookups.WithLabelValues("hit").Inc()
			return item, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			observability.CatalogCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("catalog cache read failed", zap.String(pkg.TraceId, traceID), zap.String("item_id", itemID), zap.Error(err))
		} else {
			observability.CatalogCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	item, err := s.repo.FindByID(ctx, s.db, itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Item{}, pkg.NewAppError(pkg.ErrItemNotFoundCode, "item not found", err)
	}
	if err != nil {
		return models.Item{}, toAppError(s.logger, traceID, err)
	}

	if s.cache != nil {
		if err = s.cache.Set(ctx, item); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String(pkg.TraceId, traceID), zap.String("item_id", itemID), zap.Error(err))
		}
	}
	return item, nil
}

func (s *CatalogServiceImpl) ListItems(ctx context.Context, traceID string) ([]models.Item, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, toAppError(s.logger, traceID, err)
	}
	return items, nil
}
