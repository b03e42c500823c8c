package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"fireguard/internal/models"
)

// alertEvent is the record published for downstream notification workers.
type alertEvent struct {
	AlertID   string           `json:"alert_id"`
	Recipient string           `json:"recipient"`
	Subject   string           `json:"subject"`
	Message   string           `json:"message"`
	Alert     models.FireAlert `json:"alert"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDeliverer publishes one record per recipient to the alert topic.
type KafkaDeliverer struct {
	writer messageWriter
}

func NewKafkaDeliverer(broker, topic string) *KafkaDeliverer {
	return &KafkaDeliverer{writer: &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (k *KafkaDeliverer) Deliver(ctx context.Context, address string, alert models.FireAlert) error {
	value, err := json.Marshal(alertEvent{
		AlertID:   alertID(alert),
		Recipient: address,
		Subject:   alert.Subject(),
		Message:   alert.Body(),
		Alert:     alert,
	})
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(address), Value: value}); err != nil {
		return fmt.Errorf("failed to publish alert for %s: %w", address, err)
	}
	return nil
}

func (k *KafkaDeliverer) Close() error {
	return k.writer.Close()
}

// alertID is shared by every record of one alert so consumers can group them.
func alertID(alert models.FireAlert) string {
	return fmt.Sprintf("fire-%d", alert.TriggeredAt.UnixMilli())
}
