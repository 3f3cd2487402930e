package kafka

import (
	"time"

	"github.com/google/uuid"
)

// EventType определяет тип события
type EventType string

// EventTypeOrderCompleted — заказ зафиксирован, можно формировать счёт.
const EventTypeOrderCompleted EventType = "order.completed"

// TopicOrderCompleted — топик по умолчанию для событий о завершённых заказах.
const TopicOrderCompleted = "ordercore.order.completed"

// OrderCompletedEvent — конверт события о завершённом заказе.
type OrderCompletedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderCompletedEvent создаёт событие с новым event_id.
func NewOrderCompletedEvent(orderID string, occurredAt time.Time) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		EventID:    uuid.NewString(),
		EventType:  EventTypeOrderCompleted,
		OrderID:    orderID,
		OccurredAt: occurredAt.UTC(),
	}
}
