package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
)

// StatusError — получатель ответил кодом вне 2xx.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("callback responded with status %d", e.Code)
}

// HTTPCallback отправляет POST {"orderId": "..."} на URL получателя.
type HTTPCallback struct {
	url    string
	client *http.Client
}

// NewHTTPCallback создаёт транспорт. nil-клиент заменяется клиентом с таймаутом.
func NewHTTPCallback(url string, client *http.Client) *HTTPCallback {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPCallback{url: url, client: client}
}

// Name возвращает имя транспорта для логов.
func (c *HTTPCallback) Name() string { return "http" }

// Deliver выполняет один запрос. Любой ответ вне 2xx считается ошибкой.
func (c *HTTPCallback) Deliver(ctx context.Context, event domain.CompletionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
