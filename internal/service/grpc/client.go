package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
)

// Client — клиент ordercore.v1.OrderService с JSON-кодеком.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient оборачивает готовое соединение.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// CreateOrder вызывает CreateOrder.
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error) {
	out := new(CreateOrderResponse)
	if err := c.conn.Invoke(ctx, MethodCreateOrder, req, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder вызывает GetOrder.
func (c *Client) GetOrder(ctx context.Context, req *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	out := new(GetOrderResponse)
	if err := c.conn.Invoke(ctx, MethodGetOrder, req, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
