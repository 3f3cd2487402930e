package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// Коды SQLSTATE, которые означают конфликт конкурентных транзакций или
// нарушение ограничения схемы.
const (
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
)

// classify оборачивает ошибку драйвера контекстом операции и переводит
// конфликты в domain.ErrPersistenceConflict.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistenceConflict, err)
		case codeUniqueViolation, codeCheckViolation, codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: constraint %s: %w", op, domain.ErrPersistenceConflict, pgErr.ConstraintName, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
