package order

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// RetryConfig задаёт повтор транзакции создания заказа при конфликтах хранилища.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  20 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 1
	}
	return c
}

// executeWithRetry повторяет fn целиком, пока она возвращает повторяемую
// ошибку и не исчерпаны попытки. Бизнес-ошибки возвращаются сразу.
func (s *Service) executeWithRetry(ctx context.Context, customerID int64, fn func() error) error {
	cfg := s.retry
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				s.logger.WithFields(log.Fields{
					"customer_id": customerID,
					"attempt":     attempt,
				}).Info("order transaction succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !domain.IsRetryable(err) || attempt == cfg.MaxAttempts {
			break
		}

		s.metrics.RecordTxRetry()
		s.logger.WithError(err).WithFields(log.Fields{
			"customer_id": customerID,
			"attempt":     attempt,
			"delay":       delay,
		}).Warn("order transaction conflicted, retrying")

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		// Экспоненциальная задержка с ограничением.
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
