// Package httpapi — HTTP/JSON-адаптер координатора заказов.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/service/order"
)

const (
	maxBodyBytes = 1 << 20
	// Задержка повтора для клиента при конфликте транзакций.
	retryAfterSeconds = 1
)

// OrderCoordinator — операции, которые публикует HTTP API.
type OrderCoordinator interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (order.Snapshot, error)
	GetOrder(ctx context.Context, orderID string) (order.Snapshot, error)
}

type lineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID int64         `json:"customerId"`
	Items      []lineRequest `json:"items"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler обслуживает /orders.
type Handler struct {
	orders OrderCoordinator
	logger *log.Entry
	tracer trace.Tracer
}

// NewHandler создаёт обработчик.
func NewHandler(orders OrderCoordinator, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{orders: orders, logger: logger, tracer: otel.Tracer("ordercore/httpapi")}
}

// Router собирает маршруты API.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.traceMiddleware)

	api := r.PathPrefix("/orders").Subrouter()
	api.HandleFunc("", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/{orderId}", h.getOrder).Methods(http.MethodGet)
	return r
}

func (h *Handler) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := h.tracer.Start(ctx, r.Method+" "+routeTemplate(r), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_argument", Message: "malformed request body"})
		return
	}

	req := domain.CreateOrderRequest{CustomerID: body.CustomerID}
	for _, item := range body.Items {
		req.Items = append(req.Items, domain.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	snapshot, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("order.id", snapshot.OrderID))
	w.Header().Set("Location", "/orders/"+snapshot.OrderID)
	writeJSON(w, http.StatusCreated, snapshot)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	snapshot, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// StatusFor сопоставляет доменную ошибку с HTTP-статусом и кодом ошибки.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrEmptyOrder):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusUnprocessableEntity, "customer_not_found"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusUnprocessableEntity, "product_not_found"
	case errors.Is(err, domain.ErrInsufficientInventory):
		return http.StatusUnprocessableEntity, "insufficient_inventory"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrPersistenceConflict):
		return http.StatusServiceUnavailable, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code, kind := StatusFor(err)
	message := err.Error()

	switch code {
	case http.StatusInternalServerError:
		h.logger.WithError(err).Error("request failed")
		message = "internal error"
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, code, errorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
