package kafkautils

import (
	"context"
	"encoding/json"
	"hash/fnv"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/views"
	"go.uber.org/zap"
)

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event views.OrderEvent) error
	Close()
}

type PublisherConfig struct {
	Brokers    string
	Topic      string
	Partitions int32
	Retries    int
}

type KafkaEventPublisher struct {
	logger   *zap.Logger
	producer *kafka.Producer
	cnf      PublisherConfig
}

// NewEventPublisher creates an idempotent producer. An empty broker list yields a NoopPublisher.
func NewEventPublisher(logger *zap.Logger, cnf PublisherConfig) (EventPublisher, error) {
	if cnf.Brokers == "" {
		logger.Warn("kafka brokers not configured, order events are logged only")
		return NoopPublisher{logger: logger}, nil
	}
	if cnf.Partitions < 1 {
		cnf.Partitions = 1
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cnf.Brokers, // Kafka broker(s)
		"acks":               "all",       // Wait for all replicas
		"enable.idempotence": true,        // Ensure messages are not sent twice
		"retries":            cnf.Retries, // Built-in retry mechanism
	})
	if err != nil {
		return nil, err
	}
	logger.Info("kafka producer created", zap.String("brokers", cnf.Brokers), zap.String("topic", cnf.Topic))
	go handleDeliveryReports(logger, p)
	return &KafkaEventPublisher{logger: logger, producer: p, cnf: cnf}, nil
}

// Publish enqueues the event; delivery failures are reported asynchronously.
func (k *KafkaEventPublisher) Publish(_ context.Context, event views.OrderEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.cnf.Topic,
			Partition: PartitionFor(event.UserID, k.cnf.Partitions), // per-user ordering
		},
		Key:   []byte(event.OrderID),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.EventID)},
		},
	}, nil)
}

func (k *KafkaEventPublisher) Close() {
	remaining := k.producer.Flush(5000)
	if remaining > 0 {
		k.logger.Warn("kafka producer closed with undelivered events", zap.Int("remaining", remaining))
	}
	k.producer.Close()
}

// PartitionFor maps a user id onto one of n partitions.
func PartitionFor(userID string, n int32) int32 {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int32(h.Sum32() % uint32(n))
}

func handleDeliveryReports(logger *zap.Logger, p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("failed to publish order event", zap.ByteString(pkg.OrderId, ev.Key), zap.Error(ev.TopicPartition.Error))
			}
		case kafka.Error:
			logger.Error("kafka producer error", zap.Error(ev))
		}
	}
}

// NoopPublisher logs events instead of publishing them.
type NoopPublisher struct {
	logger *zap.Logger
}

func NewNoopPublisher(logger *zap.Logger) NoopPublisher {
	return NoopPublisher{logger: logger}
}

func (n NoopPublisher) Publish(_ context.Context, event views.OrderEvent) error {
	n.logger.Debug("order event", zap.String("type", string(event.Type)), zap.String(pkg.OrderId, event.OrderID))
	return nil
}

func (n NoopPublisher) Close() {}
