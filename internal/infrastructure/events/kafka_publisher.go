// Package events publica los movimientos confirmados hacia colaboradores (recordatorios, reportes).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

const eventTypeMovementRecorded = "stock.movement.recorded"

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// messageWriter lo que usa el publisher de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher escribe un mensaje por movimiento, con clave = productId para conservar el orden por producto.
type KafkaPublisher struct {
	writer messageWriter
	source string
}

// NewKafkaPublisher crea el writer síncrono sobre los brokers y el tópico dados.
func NewKafkaPublisher(brokers []string, topic, source string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &KafkaPublisher{writer: w, source: source}
}

// BalanceDTO cantidad resultante de una fila tocada por el movimiento.
type BalanceDTO struct {
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

// MovementRecordedEvent payload JSON del evento.
type MovementRecordedEvent struct {
	MovementID     string       `json:"movement_id"`
	Type           string       `json:"type"`
	ProductID      string       `json:"product_id"`
	Quantity       int64        `json:"quantity"`
	FromLocationID *string      `json:"from_location_id,omitempty"`
	ToLocationID   *string      `json:"to_location_id,omitempty"`
	ActorID        string       `json:"actor_id"`
	OccurredAt     time.Time    `json:"occurred_at"`
	Balances       []BalanceDTO `json:"balances"`
	ProductTotal   int64        `json:"product_total"`
	StockStatus    string       `json:"stock_status,omitempty"`
}

// PublishMovement serializa y escribe el evento. Se llama solo después del commit.
func (p *KafkaPublisher) PublishMovement(ctx context.Context, event inventory.MovementEvent) error {
	msg, err := buildMessage(event, p.source)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publicar movimiento %s: %w", event.Movement.ID, err)
	}
	return nil
}

// Close cierra el writer (flush de mensajes pendientes).
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(event inventory.MovementEvent, source string) (kafka.Message, error) {
	m := event.Movement
	if m == nil {
		return kafka.Message{}, fmt.Errorf("evento sin movimiento")
	}
	payload := MovementRecordedEvent{
		MovementID:     m.ID,
		Type:           string(m.Type),
		ProductID:      m.ProductID,
		Quantity:       m.Quantity,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		ActorID:        m.ActorID,
		OccurredAt:     m.CreatedAt,
		Balances:       make([]BalanceDTO, 0, len(event.Balances)),
		ProductTotal:   event.ProductTotal,
		StockStatus:    string(event.Status),
	}
	for _, b := range event.Balances {
		payload.Balances = append(payload.Balances, BalanceDTO{LocationID: b.LocationID, Quantity: b.Quantity})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("serializar evento: %w", err)
	}
	return kafka.Message{
		Key:   []byte(m.ProductID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "ce-type", Value: []byte(eventTypeMovementRecorded)},
			{Key: "ce-source", Value: []byte(source)},
			{Key: "ce-id", Value: []byte(m.ID)},
			{Key: "ce-time", Value: []byte(m.CreatedAt.Format(time.RFC3339))},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: m.CreatedAt,
	}, nil
}
