package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/ordercore/internal/service/grpc"
	"github.com/vladislavdragonenkov/ordercore/internal/service/order"
	"github.com/vladislavdragonenkov/ordercore/internal/service/sequence"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/memory"
)

type fakeOrderClient struct {
	createFn func(context.Context, *grpcsvc.CreateOrderRequest) (*grpcsvc.CreateOrderResponse, error)
	getFn    func(context.Context, *grpcsvc.GetOrderRequest) (*grpcsvc.GetOrderResponse, error)
}

func (f *fakeOrderClient) CreateOrder(ctx context.Context, req *grpcsvc.CreateOrderRequest, _ ...grpc.CallOption) (*grpcsvc.CreateOrderResponse, error) {
	if f.createFn == nil {
		return nil, errors.New("unexpected CreateOrder call")
	}
	return f.createFn(ctx, req)
}

func (f *fakeOrderClient) GetOrder(ctx context.Context, req *grpcsvc.GetOrderRequest, _ ...grpc.CallOption) (*grpcsvc.GetOrderResponse, error) {
	if f.getFn == nil {
		return nil, errors.New("unexpected GetOrder call")
	}
	return f.getFn(ctx, req)
}

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    loadMode
		wantErr string
	}{
		{name: "create", input: "create", want: modeCreate},
		{name: "create-get", input: " create-get ", want: modeCreateGet},
		{name: "unsupported", input: "create-pay", wantErr: "unsupported mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMode(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected mode: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseProductIDs(t *testing.T) {
	ids, err := parseProductIDs(" 1, 2 ,,3")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseProductIDs("1,x")
	require.Error(t, err)
	_, err = parseProductIDs("0")
	require.Error(t, err)
	_, err = parseProductIDs(" , ")
	require.Error(t, err)
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-addr=127.0.0.1:50051",
			"-mode=create-get",
			"-total=12",
			"-concurrency=3",
			"-connections=2",
			"-timeout=2s",
			"-customer=7",
			"-products=1,2",
			"-qty=3",
			"-allow-out-of-stock=false",
			"-output=/tmp/out.json",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.totalSet {
				t.Fatalf("expected totalSet=true")
			}
			if cfg.mode != modeCreateGet {
				t.Fatalf("unexpected mode: %s", cfg.mode)
			}
			if cfg.total != 12 || cfg.concurrency != 3 || cfg.connections != 2 || cfg.quantity != 3 {
				t.Fatalf("unexpected numeric config: %+v", cfg)
			}
			if cfg.customerID != 7 || !slices.Equal(cfg.productIDs, []int64{1, 2}) {
				t.Fatalf("unexpected order shape: %+v", cfg)
			}
			if cfg.allowOutOfStock {
				t.Fatalf("expected allowOutOfStock=false")
			}
			if cfg.timeout != 2*time.Second {
				t.Fatalf("unexpected timeout: %s", cfg.timeout)
			}
		})
	})

	t.Run("duration mode", func(t *testing.T) {
		withCLIArgs(t, []string{"-duration=3s", "-concurrency=2", "-connections=1"}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.duration != 3*time.Second {
				t.Fatalf("unexpected duration: %s", cfg.duration)
			}
			if cfg.totalSet {
				t.Fatalf("expected totalSet=false when -total was not provided")
			}
		})
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "parse duration"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "bad customer", args: []string{"-customer=0"}, wantErr: "customer must be > 0"},
			{name: "bad qty", args: []string{"-qty=0"}, wantErr: "qty must be a positive int32"},
			{name: "bad products", args: []string{"-products=abc"}, wantErr: "invalid product id"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				withCLIArgs(t, tc.args, func() {
					_, err := parseConfig()
					if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
						t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
					}
				})
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestCollectorReportTreatsOutOfStockAsExpected(t *testing.T) {
	c := newCollector()
	c.record("scenario", 10*time.Millisecond, codes.OK)
	c.record("scenario", 20*time.Millisecond, codes.FailedPrecondition)
	c.record("scenario", 30*time.Millisecond, codes.Internal)
	c.record("CreateOrder", 15*time.Millisecond, codes.OK)

	snap, ok := c.snapshot("scenario")
	if !ok {
		t.Fatalf("scenario snapshot missing")
	}
	if snap.Calls != 3 || snap.Success != 1 || snap.Failed != 2 {
		t.Fatalf("unexpected scenario snapshot: %+v", snap)
	}

	lenient := c.buildReport(time.Now(), 2*time.Second, true)
	if lenient.OutOfStock != 1 || lenient.FailedScenarios != 1 {
		t.Fatalf("unexpected lenient report: %+v", lenient)
	}
	if lenient.RPS <= 0 {
		t.Fatalf("expected positive rps, got %f", lenient.RPS)
	}

	strict := c.buildReport(time.Now(), 2*time.Second, false)
	if strict.FailedScenarios != 2 {
		t.Fatalf("strict report must count out-of-stock as failure: %+v", strict)
	}
	if _, ok := strict.Methods["CreateOrder"]; !ok {
		t.Fatalf("expected CreateOrder stats in report")
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := grpcCode(nil); got != codes.OK {
		t.Fatalf("grpcCode(nil) = %s, want OK", got)
	}
	if got := grpcCode(status.Error(codes.Unavailable, "down")); got != codes.Unavailable {
		t.Fatalf("unexpected grpc code: %s", got)
	}
	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	summary := buildLatencySummary([]float64{10, 20, 30, 40})
	if summary.P50 != 25 || summary.Max != 40 || summary.Min != 10 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}

	if got := runTarget(config{total: 50}); got != "count:50" {
		t.Fatalf("unexpected run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}); got != "duration:2s,max-total:10" {
		t.Fatalf("unexpected capped duration run target: %s", got)
	}
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	if err := writeJSONReport(path, report{TotalScenarios: 2, SuccessScenarios: 2}); err != nil {
		t.Fatalf("writeJSONReport error: %v", err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded report
	require.NoError(t, json.Unmarshal(data, &decoded))
	if decoded.TotalScenarios != 2 || decoded.SuccessScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}

	if err := writeJSONReport("../escape.json", report{}); err == nil {
		t.Fatal("expected error for path outside current directory")
	}
}

func TestRunScenario(t *testing.T) {
	cfg := config{mode: modeCreateGet, timeout: time.Second, customerID: 3, productIDs: []int64{10, 20}, quantity: 2}

	t.Run("create and read back", func(t *testing.T) {
		col := newCollector()
		client := &fakeOrderClient{
			createFn: func(_ context.Context, req *grpcsvc.CreateOrderRequest) (*grpcsvc.CreateOrderResponse, error) {
				require.Equal(t, int64(3), req.CustomerID)
				require.Equal(t, []grpcsvc.OrderLine{{ProductID: 20, Quantity: 2}}, req.Items)
				return &grpcsvc.CreateOrderResponse{Order: order.Snapshot{OrderID: "ORD-2026-000001", Total: "10.00"}}, nil
			},
			getFn: func(_ context.Context, req *grpcsvc.GetOrderRequest) (*grpcsvc.GetOrderResponse, error) {
				require.Equal(t, "ORD-2026-000001", req.OrderID)
				return &grpcsvc.GetOrderResponse{Order: order.Snapshot{OrderID: req.OrderID, Total: "10.00"}}, nil
			},
		}

		require.NoError(t, runScenario(client, cfg, 1, col))
		snap, ok := col.snapshot("GetOrder")
		require.True(t, ok)
		require.Equal(t, int64(1), snap.Success)
	})

	t.Run("total mismatch is data loss", func(t *testing.T) {
		col := newCollector()
		client := &fakeOrderClient{
			createFn: func(context.Context, *grpcsvc.CreateOrderRequest) (*grpcsvc.CreateOrderResponse, error) {
				return &grpcsvc.CreateOrderResponse{Order: order.Snapshot{OrderID: "ORD-2026-000002", Total: "10.00"}}, nil
			},
			getFn: func(context.Context, *grpcsvc.GetOrderRequest) (*grpcsvc.GetOrderResponse, error) {
				return &grpcsvc.GetOrderResponse{Order: order.Snapshot{Total: "9.99"}}, nil
			},
		}

		require.Error(t, runScenario(client, cfg, 0, col))
		snap, _ := col.snapshot("scenario")
		require.Equal(t, int64(1), snap.Codes[codes.DataLoss.String()])
	})

	t.Run("create error keeps grpc code", func(t *testing.T) {
		col := newCollector()
		client := &fakeOrderClient{
			createFn: func(context.Context, *grpcsvc.CreateOrderRequest) (*grpcsvc.CreateOrderResponse, error) {
				return nil, status.Error(codes.FailedPrecondition, "insufficient stock")
			},
		}

		require.Error(t, runScenario(client, config{mode: modeCreate, timeout: time.Second, customerID: 1, productIDs: []int64{1}, quantity: 1}, 0, col))
		snap, _ := col.snapshot("scenario")
		require.Equal(t, int64(1), snap.Codes[codes.FailedPrecondition.String()])
	})
}

// Гонка за последними единицами товара через настоящий gRPC-сервер:
// успешных заказов ровно столько, сколько было на складе.
func TestRunLoadAgainstInMemoryServerNeverOversells(t *testing.T) {
	const stock = 15

	store := memory.NewStore()
	customer := store.AddCustomer(domain.Customer{Name: "Load", Email: "load@example.com"})
	product := store.AddProduct(domain.Product{Name: "Widget", SKU: "WID", PriceCents: 1000, Quantity: stock})

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("component", "loadtest")

	coordinator := order.NewService(store, store, sequence.NewAtomicGenerator(nil), order.WithLogger(entry))
	listener := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	grpcsvc.RegisterOrderServiceServer(server, grpcsvc.NewOrderService(coordinator, entry))
	go func() { _ = server.Serve(listener) }()

	//nolint:staticcheck // grpc.Dial нужен для bufconn
	conn, err := grpc.Dial("bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return listener.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})

	cfg := config{
		total:           40,
		concurrency:     8,
		timeout:         5 * time.Second,
		mode:            modeCreateGet,
		customerID:      customer.ID,
		productIDs:      []int64{product.ID},
		quantity:        1,
		allowOutOfStock: true,
	}
	col := newCollector()
	runLoad([]orderClient{grpcsvc.NewClient(conn)}, cfg, col)

	result := col.buildReport(time.Now(), time.Second, cfg.allowOutOfStock)
	require.Equal(t, int64(40), result.TotalScenarios)
	require.Equal(t, int64(stock), result.SuccessScenarios)
	require.Equal(t, int64(40-stock), result.OutOfStock)
	require.Zero(t, result.FailedScenarios)

	left, ok := store.Product(product.ID)
	require.True(t, ok)
	require.Zero(t, left.Quantity)
	require.Equal(t, stock, store.OrderCount())
}
