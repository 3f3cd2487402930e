package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument — запрос не прошёл базовую валидацию формы.
	ErrInvalidArgument = errors.New("invalid argument")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientInventory — на складе меньше единиц, чем запрошено.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPersistenceConflict — конфликт при сохранении (таймаут блокировки,
	// дедлок, нарушение ограничения). Транзакцию можно повторить целиком.
	ErrPersistenceConflict = errors.New("persistence conflict")
	// ErrNotificationDelivery — не удалось доставить уведомление о завершении заказа.
	ErrNotificationDelivery = errors.New("completion notification delivery failed")

	// Ошибка отсутствующего номера заказа.
	ErrOrderNumberRequired = errors.New("order number is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка, если итог позиции не равен цене за единицу, умноженной на количество.
	ErrItemTotalMismatch = errors.New("item total does not match unit price times quantity")
	// Ошибка несоответствия подытога и сумм позиций.
	ErrSubtotalMismatch = errors.New("order subtotal does not match items sum")
	// Ошибка несоответствия итога сумме подытога и налога.
	ErrTotalMismatch = errors.New("order total does not match subtotal plus tax")
	// Ошибка отрицательного остатка товара.
	ErrNegativeStock = errors.New("product quantity must be non-negative")
)

// InsufficientInventoryError описывает нехватку конкретного товара.
type InsufficientInventoryError struct {
	ProductID   int64
	ProductName string
	Available   int32
	Requested   int32
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %q (id=%d): available %d, requested %d",
		e.ProductName, e.ProductID, e.Available, e.Requested)
}

// Is позволяет сравнивать ошибку с ErrInsufficientInventory через errors.Is.
func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// CustomerNotFound оборачивает ErrCustomerNotFound идентификатором клиента.
func CustomerNotFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrCustomerNotFound, id)
}

// ProductNotFound оборачивает ErrProductNotFound идентификатором товара.
func ProductNotFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrProductNotFound, id)
}

// OrderNotFound оборачивает ErrOrderNotFound номером заказа.
func OrderNotFound(orderID string) error {
	return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
}

// IsRetryable сообщает, можно ли повторить транзакцию создания заказа.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceConflict)
}

// IsClientError сообщает, вызвана ли ошибка некорректным запросом клиента,
// а не состоянием системы.
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrInsufficientInventory):
		return true
	default:
		return false
	}
}
