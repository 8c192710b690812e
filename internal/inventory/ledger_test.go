package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"go.uber.org/zap/zaptest"
)

func newLedgerFixture(t *testing.T) (*fixture, *Ledger) {
	t.Helper()
	f := newFixture(t)
	return f, NewLedger(f.store, zaptest.NewLogger(t))
}

func TestLedgerCreateMovementDoesNotTouchBalances(t *testing.T) {
	f, ledger := newLedgerFixture(t)
	f.stock(t, f.w1, 10, 0)
	inv := f.inventory(t, f.w1)

	m, err := ledger.CreateMovement(context.Background(), models.Movement{
		InventoryID:  inv.ID,
		Type:         models.MovementInbound,
		Quantity:     3,
		ReferenceDoc: "MANUAL-1",
	})
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}

	if m.ProductID != f.productID || m.WarehouseID != f.w1 {
		t.Errorf("movement not linked to inventory: %+v", m)
	}
	if m.OccurredAt.IsZero() {
		t.Error("OccurredAt should default to now")
	}
	if after := f.inventory(t, f.w1); after.QtyOnHand != 10 {
		t.Errorf("on hand = %d, want 10", after.QtyOnHand)
	}
}

func TestLedgerCreateMovementValidation(t *testing.T) {
	f, ledger := newLedgerFixture(t)
	f.stock(t, f.w1, 1, 0)
	inv := f.inventory(t, f.w1)
	ctx := context.Background()

	tests := []struct {
		name string
		m    models.Movement
		kind apperr.Kind
	}{
		{"zero quantity", models.Movement{InventoryID: inv.ID, Type: models.MovementInbound}, apperr.KindInvalidInput},
		{"negative quantity", models.Movement{InventoryID: inv.ID, Type: models.MovementAdjustment, Quantity: -2}, apperr.KindInvalidInput},
		{"unknown type", models.Movement{InventoryID: inv.ID, Type: "TRANSFER", Quantity: 1}, apperr.KindInvalidInput},
		{"missing inventory", models.Movement{InventoryID: 999, Type: models.MovementOutbound, Quantity: 1}, apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ledger.CreateMovement(ctx, tt.m); !apperr.IsKind(err, tt.kind) {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestLedgerQueries(t *testing.T) {
	f, ledger := newLedgerFixture(t)
	ctx := context.Background()
	f.stock(t, f.w1, 10, 0)
	f.stock(t, f.w2, 4, 0)
	if _, err := f.service.RecordOutbound(ctx, f.productID, f.w1, 2, "SO-1", ""); err != nil {
		t.Fatalf("RecordOutbound: %v", err)
	}

	byWarehouse, err := ledger.ListByWarehouse(ctx, f.w1)
	if err != nil || len(byWarehouse) != 2 {
		t.Errorf("ListByWarehouse = %d, %v; want 2", len(byWarehouse), err)
	}
	byProduct, err := ledger.ListByProduct(ctx, f.productID)
	if err != nil || len(byProduct) != 3 {
		t.Errorf("ListByProduct = %d, %v; want 3", len(byProduct), err)
	}
	inbound, err := ledger.ListByType(ctx, models.MovementInbound)
	if err != nil || len(inbound) != 2 {
		t.Errorf("ListByType(INBOUND) = %d, %v; want 2", len(inbound), err)
	}
	byInventory, err := ledger.ListByInventory(ctx, f.inventory(t, f.w2).ID)
	if err != nil || len(byInventory) != 1 {
		t.Errorf("ListByInventory = %d, %v; want 1", len(byInventory), err)
	}

	now := time.Now().UTC()
	inRange, err := ledger.ListByDateRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil || len(inRange) != 3 {
		t.Errorf("ListByDateRange = %d, %v; want 3", len(inRange), err)
	}
	if _, err := ledger.ListByDateRange(ctx, now, now.Add(-time.Hour)); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("reversed range: error = %v, want invalid input", err)
	}

	m, err := ledger.GetMovement(ctx, byProduct[0].ID)
	if err != nil || m.ID != byProduct[0].ID {
		t.Errorf("GetMovement = %+v, %v", m, err)
	}
	if _, err := ledger.GetMovement(ctx, 999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestLedgerListPages(t *testing.T) {
	f, ledger := newLedgerFixture(t)
	ctx := context.Background()
	f.stock(t, f.w1, 1, 0)
	for i := 0; i < 4; i++ {
		if _, err := f.service.RecordInbound(ctx, f.productID, f.w1, 1, "", ""); err != nil {
			t.Fatalf("RecordInbound: %v", err)
		}
	}

	seen := map[int64]bool{}
	var cursor *store.MovementCursor
	pages := 0
	for {
		page, err := ledger.List(ctx, store.MovementFilter{ProductID: f.productID, After: cursor, Limit: 2})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		pages++
		for _, m := range page.Items.([]models.Movement) {
			if seen[m.ID] {
				t.Fatalf("movement %d returned twice", m.ID)
			}
			seen[m.ID] = true
		}
		if !page.HasMore {
			break
		}
		cursor, err = store.DecodeCursor(page.NextCursor)
		if err != nil {
			t.Fatalf("DecodeCursor: %v", err)
		}
	}

	if len(seen) != 5 || pages != 3 {
		t.Errorf("saw %d movements over %d pages, want 5 over 3", len(seen), pages)
	}
}

func TestLedgerDeleteMovement(t *testing.T) {
	f, ledger := newLedgerFixture(t)
	ctx := context.Background()
	m, err := f.service.RecordInbound(ctx, f.productID, f.w1, 8, "PO-1", "")
	if err != nil {
		t.Fatalf("RecordInbound: %v", err)
	}

	if err := ledger.DeleteMovement(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMovement: %v", err)
	}
	if inv := f.inventory(t, f.w1); inv.QtyOnHand != 8 {
		t.Errorf("on hand = %d after delete, want 8", inv.QtyOnHand)
	}
	if err := ledger.DeleteMovement(ctx, m.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("second delete: error = %v, want not found", err)
	}
}
