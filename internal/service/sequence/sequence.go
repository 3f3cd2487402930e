// Package sequence формирует номера заказов вида ORD-<год>-<6 цифр>.
package sequence

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// Prefix — префикс номера заказа.
const Prefix = "ORD"

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{4}-\d{6,}$`)

// Format собирает номер заказа из года и порядкового значения счётчика.
// При значении больше 999999 ширина растёт, а не обрезается.
func Format(year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", Prefix, year, seq)
}

// Valid проверяет, похожа ли строка на номер заказа.
func Valid(orderNumber string) bool {
	return orderNumberPattern.MatchString(orderNumber)
}

// AtomicGenerator — счётчик в памяти процесса, начинается с 1 и
// сбрасывается при рестарте. Подходит для одного процесса с in-memory хранилищем.
type AtomicGenerator struct {
	counter atomic.Int64
	now     func() time.Time
}

// NewAtomicGenerator создаёт счётчик. nil-часы заменяются на time.Now.
func NewAtomicGenerator(now func() time.Time) *AtomicGenerator {
	if now == nil {
		now = time.Now
	}
	return &AtomicGenerator{now: now}
}

// Next выдаёт следующий номер. Ошибок не бывает, сигнатура общая с внешними генераторами.
func (g *AtomicGenerator) Next(_ context.Context) (string, error) {
	seq := g.counter.Add(1)
	return Format(g.now().Year(), seq), nil
}

var _ domain.OrderIDGenerator = (*AtomicGenerator)(nil)
