package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a synchronous writer that hashes keys onto
// partitions, so all updates of one event stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 250 * time.Millisecond,
		BatchSize:    1,
	}
}

// KafkaSink forwards bus events to a topic as JSON, keyed by event id.
type KafkaSink struct {
	consumer     *Consumer
	writer       MessageWriter
	writeTimeout time.Duration
}

func NewKafkaSink(writer MessageWriter, eventChan <-chan *models.BusEvent) *KafkaSink {
	s := &KafkaSink{writer: writer, writeTimeout: 5 * time.Second}
	s.consumer = NewConsumer("kafka-sink", eventChan, s.publish)
	return s
}

func (s *KafkaSink) Start() {
	s.consumer.Start()
}

// Stop cancels pending writes and closes the writer.
func (s *KafkaSink) Stop() error {
	s.consumer.Stop()
	return s.writer.Close()
}

func (s *KafkaSink) publish(ctx context.Context, event *models.BusEvent) {
	msg, err := EncodeMessage(event)
	if err == nil {
		writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
		err = s.writer.WriteMessages(writeCtx, msg)
		cancel()
	}
	if err != nil {
		logger.WithEvent(event.EventID).Warnf("Kafka publish failed: %v", err)
	}
}

// EncodeMessage renders a bus event as a kafka message.
func EncodeMessage(event *models.BusEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	key := event.EventID
	if key == "" {
		key = event.ID
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
