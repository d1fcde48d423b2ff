package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher announces newly created alerts to downstream consumers
// (push notification senders, analytics).
type Publisher interface {
	Publish(ctx context.Context, alerts []*Alert) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, []*Alert) error { return nil }

// MessageWriter is the subset of *kafkago.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes one message per alert, keyed by user ID so a user's
// alerts stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaWriter creates a producer for the alert topic.
func NewKafkaWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
}

// NewKafkaPublisher creates a publisher on top of a Kafka writer.
func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish writes all alerts in a single WriteMessages call.
func (p *KafkaPublisher) Publish(ctx context.Context, alerts []*Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i, a := range alerts {
		msg, err := NewAlertMessage(a)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Event is the JSON payload of an alert message.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	City      string    `json:"city,omitempty"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	AQILevel  int       `json:"aqi_level"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAlertMessage serializes an alert into a Kafka message.
func NewAlertMessage(a *Alert) (kafkago.Message, error) {
	data, err := json.Marshal(Event{
		ID:        a.ID,
		UserID:    a.UserID,
		City:      a.City,
		Kind:      a.Kind,
		Message:   a.Message,
		AQILevel:  a.AQILevel,
		CreatedAt: a.CreatedAt.UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.UserID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_kind", Value: []byte(a.Kind)},
			{Key: "created_at", Value: []byte(a.CreatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*KafkaPublisher)(nil)
)
