package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka appends each event as one message keyed by event_id.
type Kafka struct {
	writer MessageWriter
	topic  string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

// NewKafkaWithWriter is used when the writer is built elsewhere.
func NewKafkaWithWriter(w MessageWriter, topic string) *Kafka {
	return &Kafka{writer: w, topic: topic}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) PutEvent(ctx context.Context, payload map[string]any) error {
	id := eventID(payload)
	data, err := Encode(payload)
	if err != nil {
		return &DeliveryError{Sink: k.Name(), EventID: id, Err: err}
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(id),
		Value: data,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return &DeliveryError{Sink: k.Name(), EventID: id, Err: err}
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
