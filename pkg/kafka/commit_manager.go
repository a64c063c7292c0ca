package kafkautils

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"go.uber.org/zap"
)

// OffsetCommitter is satisfied by *kafka.Consumer.
type OffsetCommitter interface {
	CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error)
}

type tp struct {
	topic     string
	partition int32
}

// CommitManager commits an offset only once every earlier offset of the partition was acked,
// so messages handled concurrently are never skipped after a restart.
type CommitManager struct {
	mu        sync.Mutex
	high      map[tp]int64              // last committed offset per partition
	done      map[tp]map[int64]struct{} // processed offsets not yet committed
	committer OffsetCommitter
	log       *zap.Logger
}

func NewCommitManager(c OffsetCommitter, l *zap.Logger) *CommitManager {
	return &CommitManager{
		high:      make(map[tp]int64),
		done:      make(map[tp]map[int64]struct{}),
		committer: c,
		log:       l,
	}
}

// Track registers msg as consumed. Calling it in read order before handing messages to
// workers makes the first consumed offset, not the first acked one, start the partition's sequence.
func (m *CommitManager) Track(msg *kafka.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tp{topic: *msg.TopicPartition.Topic, partition: msg.TopicPartition.Partition}
	if _, seen := m.high[key]; !seen {
		m.high[key] = int64(msg.TopicPartition.Offset) - 1
	}
}

// Ack marks msg as processed. Without a prior Track the first offset acked for a
// partition starts its sequence.
func (m *CommitManager) Ack(eventID string, msg *kafka.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tp{topic: *msg.TopicPartition.Topic, partition: msg.TopicPartition.Partition}
	off := int64(msg.TopicPartition.Offset)

	high, seen := m.high[key]
	if !seen {
		m.high[key] = off - 1
	} else if off <= high {
		return // redelivery of something already committed
	}
	if m.done[key] == nil {
		m.done[key] = map[int64]struct{}{}
	}
	m.done[key][off] = struct{}{}

	next := m.high[key]
	for {
		if _, ok := m.done[key][next+1]; !ok {
			break
		}
		next++
	}

	if next > m.high[key] {
		tpToCommit := kafka.TopicPartition{Topic: &key.topic, Partition: key.partition, Offset: kafka.Offset(next + 1)}
		if _, err := m.committer.CommitOffsets([]kafka.TopicPartition{tpToCommit}); err != nil {
			m.log.Error("offset_commit_failed",
				zap.String(pkg.EventId, eventID),
				zap.String("topic", key.topic),
				zap.Int32("partition", key.partition),
				zap.Int64("attempted_offset", next), zap.Error(err))
			return
		}
		for o := m.high[key] + 1; o <= next; o++ {
			delete(m.done[key], o)
		}
		m.high[key] = next
		m.log.Debug("offset_committed",
			zap.String(pkg.EventId, eventID),
			zap.String("topic", key.topic),
			zap.Int32("partition", key.partition),
			zap.Int64("offset", next))
	}
}

// Committed returns the last committed offset for a partition, or -1.
func (m *CommitManager) Committed(topic string, partition int32) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.high[tp{topic: topic, partition: partition}]; ok {
		return v
	}
	return -1
}

// Uncommitted returns how many acked offsets wait behind a gap across all partitions.
func (m *CommitManager) Uncommitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, offs := range m.done {
		n += len(offs)
	}
	return n
}
