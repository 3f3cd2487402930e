package domain

import "github.com/vladislavdragonenkov/ordercore/internal/money"

// Customer — покупатель. Ядро заказов только читает эти записи.
type Customer struct {
	ID      int64
	Name    string
	Email   string
	Address string
}

// Product — товар каталога с текущим складским остатком.
type Product struct {
	ID         int64
	Name       string
	SKU        string
	PriceCents money.Cents
	// Quantity — доступный остаток, никогда не уходит ниже нуля.
	Quantity int32
}
