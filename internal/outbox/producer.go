package outbox

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes daily aggregate events. The service emits a small,
// fixed set of topics, so a single writer serves them all and the topic
// travels on each message. Keys hash to partitions, keeping every event for a
// date on the same partition.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a producer over the given brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
		},
	}
}

// WriteMessages publishes msgs to topic. Delivery is synchronous; the
// dispatcher marks outbox rows published only after this returns.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writer.WriteMessages(ctx, stampTopic(topic, msgs)...)
}

func stampTopic(topic string, msgs []kafka.Message) []kafka.Message {
	stamped := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		msg.Topic = topic
		stamped[i] = msg
	}
	return stamped
}

// Close flushes pending writes and releases the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
