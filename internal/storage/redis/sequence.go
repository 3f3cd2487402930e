package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/service/sequence"
)

// SequenceKey — ключ счётчика номеров заказов.
const SequenceKey = keyPrefix + "order_seq"

// SequenceGenerator выдаёт номера через INCR, общий счётчик для всех
// экземпляров сервиса.
type SequenceGenerator struct {
	client goredis.Cmdable
	key    string
	now    func() time.Time
}

// NewSequenceGenerator создаёт генератор. Пустой key заменяется на SequenceKey.
func NewSequenceGenerator(client goredis.Cmdable, key string, now func() time.Time) *SequenceGenerator {
	if key == "" {
		key = SequenceKey
	}
	if now == nil {
		now = time.Now
	}
	return &SequenceGenerator{client: client, key: key, now: now}
}

// Next увеличивает счётчик и форматирует номер.
func (g *SequenceGenerator) Next(ctx context.Context) (string, error) {
	seq, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		return "", fmt.Errorf("incr %s: %w", g.key, err)
	}
	return sequence.Format(g.now().Year(), seq), nil
}

var _ domain.OrderIDGenerator = (*SequenceGenerator)(nil)
