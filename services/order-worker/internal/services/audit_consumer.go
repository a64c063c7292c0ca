package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/audit"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/views"
	"github.com/nimeshabuddhika/vending-kiosk/services/order-worker/internal/observability"
	"go.uber.org/zap"
)

// AuditConsumer copies every order event into the audit store.
type AuditConsumer interface {
	Start(ctx context.Context) (func(), error)
}

type AuditConsumerConfig struct {
	Logger            *zap.Logger
	Brokers           string
	Topic             string
	Group             string
	MaxConcurrentJobs int
	Store             audit.Store
	// SaveTimeout bounds the retries of one event; zero means one minute.
	SaveTimeout time.Duration
}

type AuditConsumerImpl struct {
	cnf      AuditConsumerConfig
	consumer *kafka.Consumer
	commits  *kafkautils.CommitManager
	sem      chan struct{} // limits concurrent writes
}

// NewAuditConsumer creates the Kafka consumer with manual offset commits.
func NewAuditConsumer(cnf AuditConsumerConfig) (*AuditConsumerImpl, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cnf.Brokers, // Kafka broker(s)
		"group.id":           cnf.Group,   // Consumer group
		"auto.offset.reset":  "earliest",  // Start from the beginning of the topic
		"enable.auto.commit": false,       // offsets go through the CommitManager
	})
	if err != nil {
		return nil, err
	}
	return newAuditConsumer(cnf, consumer, kafkautils.NewCommitManager(consumer, cnf.Logger)), nil
}

func newAuditConsumer(cnf AuditConsumerConfig, consumer *kafka.Consumer, commits *kafkautils.CommitManager) *AuditConsumerImpl {
	if cnf.MaxConcurrentJobs < 1 {
		cnf.MaxConcurrentJobs = 1
	}
	if cnf.SaveTimeout <= 0 {
		cnf.SaveTimeout = time.Minute
	}
	return &AuditConsumerImpl{
		cnf:      cnf,
		consumer: consumer,
		commits:  commits,
		sem:      make(chan struct{}, cnf.MaxConcurrentJobs),
	}
}

// Start subscribes and consumes until ctx is done. The returned func waits for
// in-flight writes and closes the consumer.
func (a *AuditConsumerImpl) Start(ctx context.Context) (func(), error) {
	if err := a.consumer.SubscribeTopics([]string{a.cnf.Topic}, nil); err != nil {
		return nil, err
	}
	a.cnf.Logger.Info("listening to kafka topic", zap.String("topic", a.cnf.Topic), zap.String("group", a.cnf.Group))

	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for ctx.Err() == nil {
			msg, err := a.consumer.ReadMessage(200 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				a.cnf.Logger.Error("failed to read kafka message", zap.Error(err))
				continue
			}
			a.commits.Track(msg)
			// Acquire semaphore slot, blocking if limit is reached
			a.sem <- struct{}{}
			observability.InflightAuditJobs.Inc()
			go func(m *kafka.Message) {
				defer func() {
					<-a.sem
					observability.InflightAuditJobs.Dec()
				}()
				a.processMessage(ctx, m)
			}(msg)
		}
		// drain: take every slot so no write is still running
		for i := 0; i < cap(a.sem); i++ {
			a.sem <- struct{}{}
		}
	}()

	return func() {
		cancel()
		<-stopped
		if err := a.consumer.Close(); err != nil {
			a.cnf.Logger.Error("failed to close kafka consumer", zap.Error(err))
			return
		}
		a.cnf.Logger.Info("kafka consumer closed successfully")
	}, nil
}

// processMessage stores one event and acks it. Undecodable messages and writes that still
// fail after SaveTimeout are logged, counted and acked, so one bad event never holds back
// the partition's commits.
func (a *AuditConsumerImpl) processMessage(ctx context.Context, msg *kafka.Message) {
	var event views.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.EventID == "" {
		observability.AuditMessages.WithLabelValues("undecodable").Inc()
		a.cnf.Logger.Error("skipping undecodable order event",
			zap.ByteString("key", msg.Key),
			zap.Int64("offset", int64(msg.TopicPartition.Offset)),
			zap.Error(err))
		a.ack("", msg)
		return
	}

	start := time.Now()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = a.cnf.SaveTimeout
	err := backoff.Retry(func() error {
		return a.cnf.Store.Save(ctx, event)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		observability.AuditMessages.WithLabelValues("failed").Inc()
		a.cnf.Logger.Error("dropping order event after failed audit writes",
			zap.String(pkg.EventId, event.EventID),
			zap.String(pkg.OrderId, event.OrderID),
			zap.String("type", string(event.Type)),
			zap.Int64("offset", int64(msg.TopicPartition.Offset)),
			zap.Error(err))
		a.ack(event.EventID, msg)
		return
	}
	observability.AuditLatency.Observe(time.Since(start).Seconds())
	observability.AuditMessages.WithLabelValues("stored").Inc()
	a.cnf.Logger.Debug("order event stored", zap.String(pkg.EventId, event.EventID), zap.String("type", string(event.Type)))
	a.ack(event.EventID, msg)
}

func (a *AuditConsumerImpl) ack(eventID string, msg *kafka.Message) {
	a.commits.Ack(eventID, msg)
	observability.AuditUncommittedOffsets.Set(float64(a.commits.Uncommitted()))
}
