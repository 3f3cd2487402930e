// Package money содержит денежный тип с фиксированной точкой.
//
// Суммы хранятся в целых центах, все преобразования в десятичное
// представление и обратно выполняются через shopspring/decimal.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale — количество знаков после запятой в денежных суммах.
const Scale = 2

// TaxRate — ставка налога на подытог заказа (10%).
var TaxRate = decimal.RequireFromString("0.10")

// ErrInvalidAmount возвращается при разборе некорректной денежной строки.
var ErrInvalidAmount = errors.New("invalid money amount")

// Cents — денежная сумма в минимальных единицах (центах).
type Cents int64

// FromDecimal переводит десятичную сумму в центы с округлением half-up.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(Scale).Round(0).IntPart())
}

// Parse разбирает строку вида "89.97" в центы.
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d), nil
}

// Decimal возвращает сумму как десятичное число с двумя знаками.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -Scale)
}

// String форматирует сумму ровно с двумя знаками после запятой.
func (c Cents) String() string {
	return c.Decimal().StringFixed(Scale)
}

// Add складывает суммы.
func (c Cents) Add(other Cents) Cents {
	return c + other
}

// Mul умножает цену за единицу на количество.
func (c Cents) Mul(qty int32) Cents {
	return c * Cents(qty)
}

// Tax считает налог по ставке rate, округляя до цента half-up.
func (c Cents) Tax(rate decimal.Decimal) Cents {
	return FromDecimal(c.Decimal().Mul(rate))
}

// Sum складывает список сумм.
func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}
	return total
}
