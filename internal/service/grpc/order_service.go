// Package grpcsvc — gRPC-адаптер координатора заказов.
package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/service/order"
)

// OrderCoordinator — операции координатора, которые публикует адаптер.
type OrderCoordinator interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (order.Snapshot, error)
	GetOrder(ctx context.Context, orderID string) (order.Snapshot, error)
}

// OrderService реализует OrderServiceServer поверх координатора.
type OrderService struct {
	orders OrderCoordinator
	logger *log.Entry
}

// NewOrderService конструирует адаптер.
func NewOrderService(orders OrderCoordinator, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.WithField("component", "grpc-order-service")
	}
	return &OrderService{orders: orders, logger: logger}
}

// CreateOrder создаёт заказ.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	snapshot, err := s.orders.CreateOrder(ctx, req.toDomain())
	if err != nil {
		return nil, s.toStatus(err, "CreateOrder")
	}
	return &CreateOrderResponse{Order: snapshot}, nil
}

// GetOrder возвращает заказ по номеру.
func (s *OrderService) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error) {
	if req == nil || req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	snapshot, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, s.toStatus(err, "GetOrder")
	}
	return &GetOrderResponse{Order: snapshot}, nil
}

// toStatus переводит доменную ошибку в gRPC-статус. Внутренние детали
// клиенту не отдаются.
func (s *OrderService) toStatus(err error, operation string) error {
	code := CodeFor(err)
	if code == codes.Internal {
		s.logger.WithError(err).WithField("operation", operation).Error("order operation failed")
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

// CodeFor сопоставляет доменную ошибку с кодом gRPC.
func CodeFor(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrEmptyOrder):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInsufficientInventory):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrOrderNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrPersistenceConflict):
		return codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

var _ OrderServiceServer = (*OrderService)(nil)
