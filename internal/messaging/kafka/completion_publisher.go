package kafka

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/service/notify"
)

// CompletionPublisher — транспорт уведомлений о завершённых заказах через Kafka.
// Ключ сообщения — номер заказа, поэтому события одного заказа попадают в
// одну партицию.
type CompletionPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewCompletionPublisher создаёт транспорт. Пустой topic заменяется TopicOrderCompleted.
func NewCompletionPublisher(producer *Producer, topic string) *CompletionPublisher {
	if topic == "" {
		topic = TopicOrderCompleted
	}
	return &CompletionPublisher{producer: producer, topic: topic, now: time.Now}
}

// Name возвращает имя транспорта для логов.
func (p *CompletionPublisher) Name() string { return "kafka" }

// Deliver публикует одно событие order.completed.
func (p *CompletionPublisher) Deliver(ctx context.Context, event domain.CompletionEvent) error {
	return p.producer.PublishEvent(ctx, p.topic, event.OrderID, NewOrderCompletedEvent(event.OrderID, p.now()))
}

var _ notify.Transport = (*CompletionPublisher)(nil)
