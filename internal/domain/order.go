package domain

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordercore/internal/money"
)

// OrderStatus описывает состояние заказа.
type OrderStatus string

// OrderStatusCompleted — единственное терминальное состояние: заказ
// сохранён вместе с позициями и списанием остатков.
const OrderStatusCompleted OrderStatus = "COMPLETED"

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    int32
	// UnitPriceCents фиксируется в момент оформления и дальше не меняется.
	UnitPriceCents  money.Cents
	TotalPriceCents money.Cents
}

// Order агрегирует заказ и его позиции.
type Order struct {
	ID            int64
	OrderNumber   string
	Customer      Customer
	Status        OrderStatus
	SubtotalCents money.Cents
	TaxCents      money.Cents
	TotalCents    money.Cents
	CreatedAt     time.Time
	Items         []OrderItem
}

// ValidateInvariants проверяет денежные и структурные инварианты заказа и
// возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.OrderNumber == "" {
		errs = append(errs, ErrOrderNumberRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrEmptyOrder)
	}

	var subtotal money.Cents
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceCents < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.UnitPriceCents.Mul(item.Quantity) != item.TotalPriceCents {
			errs = append(errs, ErrItemTotalMismatch)
		}
		subtotal = subtotal.Add(item.TotalPriceCents)
	}
	if subtotal != o.SubtotalCents {
		errs = append(errs, ErrSubtotalMismatch)
	}
	if o.SubtotalCents.Add(o.TaxCents) != o.TotalCents {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// LineRequest — запрошенная позиция: товар и количество.
type LineRequest struct {
	ProductID int64
	Quantity  int32
}

// CreateOrderRequest — намерение клиента оформить заказ.
type CreateOrderRequest struct {
	CustomerID int64
	Items      []LineRequest
}

// Validate проверяет форму полей запроса до обращения к хранилищу.
// Пустой список позиций здесь не ошибка: его отклоняет координатор после
// проверки клиента.
func (r CreateOrderRequest) Validate() error {
	if r.CustomerID <= 0 {
		return fmt.Errorf("%w: customer id must be positive", ErrInvalidArgument)
	}
	for i, item := range r.Items {
		if item.ProductID <= 0 {
			return fmt.Errorf("%w: items[%d]: product id must be positive", ErrInvalidArgument, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: items[%d]: quantity must be at least 1", ErrInvalidArgument, i)
		}
	}
	return nil
}
