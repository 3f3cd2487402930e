package domain

import "context"

// TxManager открывает транзакции хранилища.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx — явный дескриптор транзакции. Блокировки строк, взятые через
// LockProduct, держатся до Commit или Rollback.
type Tx interface {
	// GetCustomer читает клиента без блокировки.
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	// LockProduct читает товар с эксклюзивной блокировкой строки
	// (SELECT ... FOR UPDATE). Повторный вызов для того же id в рамках
	// транзакции возвращает тот же указатель.
	LockProduct(ctx context.Context, id int64) (*Product, error)
	// SaveProduct записывает изменённый остаток заблокированного товара.
	SaveProduct(ctx context.Context, p *Product) error
	// InsertOrder сохраняет заказ с позициями и проставляет их идентификаторы.
	InsertOrder(ctx context.Context, o *Order) error
	// Commit фиксирует транзакцию и снимает блокировки.
	Commit(ctx context.Context) error
	// Rollback откатывает транзакцию. После Commit вызов безопасен и ничего не делает.
	Rollback(ctx context.Context) error
}

// OrderReader — путь чтения сохранённых заказов.
type OrderReader interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (Order, error)
}

// OrderIDGenerator выдаёт человекочитаемые номера заказов.
type OrderIDGenerator interface {
	Next(ctx context.Context) (string, error)
}

// CompletionNotifier получает сигнал о зафиксированном заказе. Вызов не
// должен блокировать вызывающего и не может отменить заказ.
type CompletionNotifier interface {
	Notify(orderID string)
}

// CompletionEvent — событие о завершённом заказе для внешнего получателя.
type CompletionEvent struct {
	OrderID string `json:"orderId"`
}

// OrderCache хранит снимки заказов. Заказы неизменяемы, поэтому
// инвалидация не нужна.
type OrderCache interface {
	// Get возвращает заказ и признак попадания в кэш.
	Get(ctx context.Context, orderNumber string) (Order, bool, error)
	Put(ctx context.Context, order Order) error
}
