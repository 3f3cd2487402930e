package notify

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// LogTransport только пишет событие в лог. Используется, когда получатель
// не настроен.
type LogTransport struct {
	logger *log.Entry
}

// NewLogTransport создаёт LogTransport.
func NewLogTransport(logger *log.Entry) *LogTransport {
	if logger == nil {
		logger = log.WithField("component", "completion-log")
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Deliver(_ context.Context, event domain.CompletionEvent) error {
	t.logger.WithField("order_id", event.OrderID).Info("order completed")
	return nil
}
