package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
)

// CatalogRepository reads the drink catalog. Upsert is only used by the seeder.
type CatalogRepository interface {
	FindByID(ctx context.Context, q database.Querier, itemID string) (models.Item, error)
	List(ctx context.Context, q database.Querier) ([]models.Item, error)
	Upsert(ctx context.Context, q database.Querier, item models.Item) (pgconn.CommandTag, error)
}

type CatalogRepositoryImpl struct {
}

func NewCatalogRepository() CatalogRepository {
	return &CatalogRepositoryImpl{}
}

func (c CatalogRepositoryImpl) FindByID(ctx context.Context, q database.Querier, itemID string) (models.Item, error) {
	var item models.Item
	err := q.QueryRow(ctx, `SELECT id, name, price, image_url, description, in_stock, created_at FROM items WHERE id = $1`, itemID).Scan(
		&item.ID, &item.Name, &item.Price, &item.ImageURL, &item.Description, &item.InStock, &item.CreatedAt)
	return item, err
}

func (c CatalogRepositoryImpl) List(ctx context.Context, q database.Querier) ([]models.Item, error) {
	rows, err := q.Query(ctx, `SELECT id, name, price, image_url, description, in_stock, created_at FROM items ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err = rows.Scan(&item.ID, &item.Name, &item.Price, &item.ImageURL, &item.Description, &item.InStock, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (c CatalogRepositoryImpl) Upsert(ctx context.Context, q database.Querier, item models.Item) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `INSERT INTO items (id, name, price, image_url, description, in_stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			description = EXCLUDED.description,
			in_stock = EXCLUDED.in_stock`,
		item.ID, item.Name, item.Price, item.ImageURL, item.Description, item.InStock)
}
