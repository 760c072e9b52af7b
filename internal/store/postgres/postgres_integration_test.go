package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"vetpos/internal/domain"
	"vetpos/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("VETPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set VETPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	if err := Migrate(ctx, databaseURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestWithinTxRollsBackStockAndReceiptCounter(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	itemID := fmt.Sprintf("inv-it-%d", stamp)
	day := fmt.Sprintf("it%d", stamp%1_000_000_000)
	now := time.Now().UTC()

	t.Cleanup(func() {
		_ = s.db.Exec(`DELETE FROM inventory_movements WHERE inventory_item_id = ?`, itemID).Error
		_ = s.db.Exec(`DELETE FROM inventory_items WHERE id = ?`, itemID).Error
		_ = s.db.Exec(`DELETE FROM receipt_counters WHERE day = ?`, day).Error
	})

	if err := s.CreateInventoryItem(ctx, domain.InventoryItem{
		ID: itemID, Name: "Meloxicam IT", Category: domain.CategoryAntiInflammatory,
		Quantity: 10, MinStock: 2, PriceCents: 900, Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	boom := errors.New("abort")
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		item, err := tx.GetInventoryItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		item.Quantity -= 4
		if err := tx.UpdateInventoryItem(ctx, *item); err != nil {
			return err
		}
		if _, err := tx.NextReceiptSequence(ctx, day); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected abort error, got %v", err)
	}

	item, err := s.GetInventoryItem(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 10 {
		t.Fatalf("expected quantity 10 after rollback, got %d", item.Quantity)
	}
	seq, err := s.NextReceiptSequence(ctx, day)
	if err != nil {
		t.Fatalf("next receipt: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected counter to start at 1 after rollback, got %d", seq)
	}

	item.Quantity = -1
	if err := s.UpdateInventoryItem(ctx, *item); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected negative quantity to be rejected, got %v", err)
	}
}

func TestOnlyOneOpenDrawerPerTerminal(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	terminal := fmt.Sprintf("term-it-%d", stamp)
	t.Cleanup(func() {
		_ = s.db.Exec(`DELETE FROM cash_drawers WHERE terminal_id = ?`, terminal).Error
	})

	first := domain.CashDrawer{ID: fmt.Sprintf("drw-a-%d", stamp), TerminalID: terminal, Status: domain.DrawerOpen, OpenedBy: "it", OpenedAt: time.Now().UTC()}
	if err := s.CreateDrawer(ctx, first); err != nil {
		t.Fatalf("create drawer: %v", err)
	}
	second := first
	second.ID = fmt.Sprintf("drw-b-%d", stamp)
	if err := s.CreateDrawer(ctx, second); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
