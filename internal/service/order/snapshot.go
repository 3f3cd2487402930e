package order

import (
	"time"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// ItemSnapshot — позиция заказа в ответе клиенту.
type ItemSnapshot struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
}

// Snapshot — представление заказа для внешних адаптеров. Денежные суммы
// передаются десятичными строками с двумя знаками.
type Snapshot struct {
	ID            int64          `json:"id"`
	OrderID       string         `json:"orderId"`
	CustomerID    int64          `json:"customerId"`
	CustomerName  string         `json:"customerName"`
	CustomerEmail string         `json:"customerEmail"`
	Items         []ItemSnapshot `json:"items"`
	Subtotal      string         `json:"subtotal"`
	Tax           string         `json:"tax"`
	Total         string         `json:"total"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// SnapshotFromOrder строит снимок из доменного заказа.
func SnapshotFromOrder(o domain.Order) Snapshot {
	items := make([]ItemSnapshot, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemSnapshot{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPriceCents.String(),
			TotalPrice:  item.TotalPriceCents.String(),
		})
	}

	return Snapshot{
		ID:            o.ID,
		OrderID:       o.OrderNumber,
		CustomerID:    o.Customer.ID,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		Items:         items,
		Subtotal:      o.SubtotalCents.String(),
		Tax:           o.TaxCents.String(),
		Total:         o.TotalCents.String(),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
	}
}
