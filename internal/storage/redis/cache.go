package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/money"
)

// DefaultSnapshotTTL — время жизни снимка по умолчанию.
const DefaultSnapshotTTL = 10 * time.Minute

type cachedItem struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name"`
	Quantity        int32  `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

type cachedOrder struct {
	ID              int64        `json:"id"`
	OrderNumber     string       `json:"order_number"`
	CustomerID      int64        `json:"customer_id"`
	CustomerName    string       `json:"customer_name"`
	CustomerEmail   string       `json:"customer_email"`
	CustomerAddress string       `json:"customer_address,omitempty"`
	Status          string       `json:"status"`
	SubtotalCents   int64        `json:"subtotal_cents"`
	TaxCents        int64        `json:"tax_cents"`
	TotalCents      int64        `json:"total_cents"`
	CreatedAt       time.Time    `json:"created_at"`
	Items           []cachedItem `json:"items"`
}

// SnapshotCache хранит зафиксированные заказы в Redis с TTL.
type SnapshotCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewSnapshotCache создаёт кэш. Неположительный ttl заменяется на DefaultSnapshotTTL.
func NewSnapshotCache(client goredis.Cmdable, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(orderNumber string) string {
	return keyPrefix + "order:" + orderNumber
}

// Get возвращает заказ из кэша; промах не считается ошибкой.
func (c *SnapshotCache) Get(ctx context.Context, orderNumber string) (domain.Order, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKey(orderNumber)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, fmt.Errorf("get snapshot %s: %w", orderNumber, err)
	}

	var cached cachedOrder
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.Order{}, false, fmt.Errorf("decode snapshot %s: %w", orderNumber, err)
	}
	return cached.toDomain(), true, nil
}

// Put сохраняет заказ.
func (c *SnapshotCache) Put(ctx context.Context, order domain.Order) error {
	raw, err := json.Marshal(fromDomain(order))
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", order.OrderNumber, err)
	}
	if err := c.client.Set(ctx, snapshotKey(order.OrderNumber), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %s: %w", order.OrderNumber, err)
	}
	return nil
}

func fromDomain(o domain.Order) cachedOrder {
	items := make([]cachedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, cachedItem{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			UnitPriceCents:  int64(item.UnitPriceCents),
			TotalPriceCents: int64(item.TotalPriceCents),
		})
	}
	return cachedOrder{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.Customer.ID,
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		CustomerAddress: o.Customer.Address,
		Status:          string(o.Status),
		SubtotalCents:   int64(o.SubtotalCents),
		TaxCents:        int64(o.TaxCents),
		TotalCents:      int64(o.TotalCents),
		CreatedAt:       o.CreatedAt.UTC(),
		Items:           items,
	}
}

func (c cachedOrder) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, domain.OrderItem{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			UnitPriceCents:  money.Cents(item.UnitPriceCents),
			TotalPriceCents: money.Cents(item.TotalPriceCents),
		})
	}
	return domain.Order{
		ID:          c.ID,
		OrderNumber: c.OrderNumber,
		Customer: domain.Customer{
			ID:      c.CustomerID,
			Name:    c.CustomerName,
			Email:   c.CustomerEmail,
			Address: c.CustomerAddress,
		},
		Status:        domain.OrderStatus(c.Status),
		SubtotalCents: money.Cents(c.SubtotalCents),
		TaxCents:      money.Cents(c.TaxCents),
		TotalCents:    money.Cents(c.TotalCents),
		CreatedAt:     c.CreatedAt,
		Items:         items,
	}
}

var _ domain.OrderCache = (*SnapshotCache)(nil)
