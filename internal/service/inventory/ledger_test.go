package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/memory"
)

func newTx(t *testing.T, qty int32) (*memory.Store, domain.Tx, domain.Product) {
	t.Helper()

	store := memory.NewStore()
	product := store.AddProduct(domain.Product{Name: "Widget", SKU: "W-1", PriceCents: 2999, Quantity: qty})
	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return store, tx, product
}

func TestLedger_ReserveAndDecrement(t *testing.T) {
	ctx := context.Background()
	_, tx, product := newTx(t, 10)
	ledger := NewLedger(nil)

	got, err := ledger.ReserveAndDecrement(ctx, tx, product.ID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 7 {
		t.Fatalf("expected remaining 7, got %d", got.Quantity)
	}
}

func TestLedger_RepeatedLinesSeeRunningQuantity(t *testing.T) {
	ctx := context.Background()
	_, tx, product := newTx(t, 5)
	ledger := NewLedger(nil)

	if _, err := ledger.ReserveAndDecrement(ctx, tx, product.ID, 3); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	_, err := ledger.ReserveAndDecrement(ctx, tx, product.ID, 3)

	var insufficient *domain.InsufficientInventoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}
	if insufficient.Available != 2 || insufficient.Requested != 3 {
		t.Fatalf("unexpected payload: %+v", insufficient)
	}
}

func TestLedger_InsufficientDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	_, tx, product := newTx(t, 1)
	ledger := NewLedger(nil)

	if _, err := ledger.ReserveAndDecrement(ctx, tx, product.ID, 2); !errors.Is(err, domain.ErrInsufficientInventory) {
		t.Fatalf("expected ErrInsufficientInventory, got %v", err)
	}

	locked, err := tx.LockProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if locked.Quantity != 1 {
		t.Fatalf("expected quantity untouched, got %d", locked.Quantity)
	}
}

func TestLedger_ExactQuantityReachesZero(t *testing.T) {
	ctx := context.Background()
	_, tx, product := newTx(t, 4)

	got, err := NewLedger(nil).ReserveAndDecrement(ctx, tx, product.ID, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 0 {
		t.Fatalf("expected zero remaining, got %d", got.Quantity)
	}
}

func TestLedger_Errors(t *testing.T) {
	ctx := context.Background()
	_, tx, product := newTx(t, 4)
	ledger := NewLedger(nil)

	if _, err := ledger.ReserveAndDecrement(ctx, tx, 999, 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := ledger.ReserveAndDecrement(ctx, tx, product.ID, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
