package outbox

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestNewKafkaProducerSingleSharedWriter(t *testing.T) {
	p := NewKafkaProducer([]string{"broker-1:9092", "broker-2:9092"})
	t.Cleanup(func() { _ = p.Close() })

	// The writer is topic-agnostic; topics are stamped per message.
	require.Empty(t, p.writer.Topic)
	require.Equal(t, kafka.RequireAll, p.writer.RequiredAcks)
	require.Equal(t, kafka.Snappy, p.writer.Compression)
	require.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	require.False(t, p.writer.Async)
}

func TestStampTopic(t *testing.T) {
	original := []kafka.Message{
		{Key: []byte("2024-01-15"), Value: []byte("a")},
		{Key: []byte("2024-01-16"), Value: []byte("b")},
	}

	stamped := stampTopic(Topic, original)

	require.Len(t, stamped, 2)
	for i, msg := range stamped {
		require.Equal(t, Topic, msg.Topic)
		require.Equal(t, original[i].Key, msg.Key)
		require.Equal(t, original[i].Value, msg.Value)
	}
	// The input slice is left untouched.
	require.Empty(t, original[0].Topic)
}
