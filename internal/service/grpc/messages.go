package grpcsvc

import (
	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/service/order"
)

// OrderLine — строка запроса на создание заказа.
type OrderLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

// CreateOrderRequest — тело вызова CreateOrder.
type CreateOrderRequest struct {
	CustomerID int64       `json:"customerId"`
	Items      []OrderLine `json:"items"`
}

// CreateOrderResponse возвращает снимок созданного заказа.
type CreateOrderResponse struct {
	Order order.Snapshot `json:"order"`
}

// GetOrderRequest — тело вызова GetOrder.
type GetOrderRequest struct {
	OrderID string `json:"orderId"`
}

// GetOrderResponse возвращает снимок сохранённого заказа.
type GetOrderResponse struct {
	Order order.Snapshot `json:"order"`
}

func (r *CreateOrderRequest) toDomain() domain.CreateOrderRequest {
	lines := make([]domain.LineRequest, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, domain.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return domain.CreateOrderRequest{CustomerID: r.CustomerID, Items: lines}
}
