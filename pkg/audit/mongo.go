package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg/views"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const collectionName = "order_audit"

// Record is the document stored per order event.
type Record struct {
	EventID       string    `bson:"_id"`
	Type          string    `bson:"type"`
	OrderID       string    `bson:"order_id"`
	UserID        string    `bson:"user_id"`
	ItemID        string    `bson:"item_id"`
	Amount        string    `bson:"amount"`
	PaymentMethod string    `bson:"payment_method"`
	Status        string    `bson:"status"`
	OccurredAt    time.Time `bson:"occurred_at"`
	RecordedAt    time.Time `bson:"recorded_at"`
}

func recordFromEvent(event views.OrderEvent) Record {
	return Record{
		EventID:       event.EventID,
		Type:          string(event.Type),
		OrderID:       event.OrderID,
		UserID:        event.UserID,
		ItemID:        event.ItemID,
		Amount:        event.Amount.StringFixed(2),
		PaymentMethod: string(event.PaymentMethod),
		Status:        string(event.Status),
		OccurredAt:    event.OccurredAt,
		RecordedAt:    time.Now().UTC(),
	}
}

// Store persists order events.
type Store interface {
	Save(ctx context.Context, event views.OrderEvent) error
}

// Connect opens a MongoDB client and pings it.
func Connect(ctx context.Context, logger *zap.Logger, uri string) (*mongo.Client, func(), error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("create mongo client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("mongodb connected")

	closer := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongodb disconnect failed", zap.Error(err))
		}
	}
	return client, closer, nil
}

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{collection: client.Database(dbName).Collection(collectionName)}
}

// EnsureIndexes creates the lookup index on order id.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
	return err
}

// Save inserts the event keyed by its event id. Redelivered events are ignored.
func (s *MongoStore) Save(ctx context.Context, event views.OrderEvent) error {
	if event.EventID == "" {
		return errors.New("event id is required")
	}
	_, err := s.collection.InsertOne(ctx, recordFromEvent(event))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
