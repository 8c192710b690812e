package sales

import (
	"context"
	"testing"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/events"
	"github.com/safar/go-supply-chain/internal/inventory"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"github.com/safar/go-supply-chain/internal/store/memory"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	store     *memory.Store
	inventory *inventory.Service
	sales     *Service
	recorder  *events.Recorder
	widget    int64
	gadget    int64
	retired   int64
	warehouse int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	logger := zaptest.NewLogger(t)
	recorder := &events.Recorder{}
	inv := inventory.NewService(st, recorder, logger)
	f := &fixture{
		store:     st,
		inventory: inv,
		sales:     NewService(st, inv, logger),
		recorder:  recorder,
	}

	ctx := context.Background()
	err := st.WithTx(ctx, func(tx store.Tx) error {
		products := []*models.Product{
			{SKU: "WID", Name: "Widget", UnitPrice: decimal.RequireFromString("2.50"), Active: true},
			{SKU: "GAD", Name: "Gadget", UnitPrice: decimal.NewFromInt(7), Active: true},
			{SKU: "OLD", Name: "Retired", UnitPrice: decimal.NewFromInt(1), Active: false},
		}
		for _, p := range products {
			if err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
		w := &models.Warehouse{Code: "MAIN", Name: "Main", Active: true}
		if err := tx.CreateWarehouse(ctx, w); err != nil {
			return err
		}
		f.widget, f.gadget, f.retired, f.warehouse = products[0].ID, products[1].ID, products[2].ID, w.ID
		return nil
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	t.Cleanup(func() {
		for _, p := range []int64{f.widget, f.gadget, f.retired} {
			records, err := inv.ListInventory(ctx, p)
			if err != nil {
				t.Errorf("list inventory: %v", err)
				continue
			}
			for _, r := range records {
				if err := r.CheckInvariant(); err != nil {
					t.Errorf("invariant violated: %v", err)
				}
			}
		}
	})
	return f
}

func (f *fixture) receive(t *testing.T, productID int64, qty int) {
	t.Helper()
	if _, err := f.inventory.RecordInbound(context.Background(), productID, f.warehouse, qty, "seed", ""); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func (f *fixture) order(t *testing.T, lines ...LineInput) *models.SalesOrder {
	t.Helper()
	order, err := f.sales.CreateOrder(context.Background(), CreateOrderInput{CustomerName: "ACME", Lines: lines})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func (f *fixture) stock(t *testing.T, productID int64) *models.Inventory {
	t.Helper()
	inv, err := f.inventory.GetInventory(context.Background(), productID, f.warehouse)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	return inv
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	custom := decimal.NewFromInt(3)

	order := f.order(t,
		LineInput{ProductID: f.widget, Quantity: 4},
		LineInput{ProductID: f.gadget, Quantity: 1, UnitPrice: &custom},
	)

	if order.State != models.SalesOrderCreated || order.InferStage() != models.SalesOrderCreated {
		t.Errorf("state = %s, inferred %s", order.State, order.InferStage())
	}
	if !order.Lines[0].UnitPrice.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("line 0 price = %s, want product price 2.50", order.Lines[0].UnitPrice)
	}
	if !order.Total().Equal(decimal.NewFromInt(13)) {
		t.Errorf("total = %s, want 13", order.Total())
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateOrderInput
		kind apperr.Kind
	}{
		{"no lines", CreateOrderInput{}, apperr.KindInvalidInput},
		{"zero quantity", CreateOrderInput{Lines: []LineInput{{ProductID: f.widget}}}, apperr.KindInvalidInput},
		{"unknown product", CreateOrderInput{Lines: []LineInput{{ProductID: 99, Quantity: 1}}}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.sales.CreateOrder(ctx, tt.in); !apperr.IsKind(err, tt.kind) {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestReserveShipDeliver(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 10)
	f.receive(t, f.gadget, 3)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 4}, LineInput{ProductID: f.gadget, Quantity: 3})
	ctx := context.Background()

	summary, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse)
	if err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}
	if !summary.FullyReserved || len(summary.Backorders) != 0 {
		t.Fatalf("summary = %+v, want fully reserved", summary)
	}
	if inv := f.stock(t, f.gadget); inv.QtyReserved != 3 {
		t.Errorf("gadget reserved = %d, want 3", inv.QtyReserved)
	}

	shipped, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse)
	if err != nil {
		t.Fatalf("ShipOrder: %v", err)
	}
	if shipped.State != models.SalesOrderShipped || shipped.ShippedAt == nil {
		t.Errorf("after ship: %+v", shipped)
	}
	if inv := f.stock(t, f.widget); inv.QtyOnHand != 6 || inv.QtyReserved != 0 {
		t.Errorf("widget = %d/%d, want 6/0", inv.QtyOnHand, inv.QtyReserved)
	}
	if inv := f.stock(t, f.gadget); inv.QtyOnHand != 0 || inv.QtyReserved != 0 {
		t.Errorf("gadget = %d/%d, want 0/0", inv.QtyOnHand, inv.QtyReserved)
	}

	delivered, err := f.sales.DeliverOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("DeliverOrder: %v", err)
	}
	if delivered.State != models.SalesOrderDelivered || delivered.InferStage() != models.SalesOrderDelivered {
		t.Errorf("after deliver: state %s, inferred %s", delivered.State, delivered.InferStage())
	}

	outbound := 0
	for _, e := range f.recorder.OfType(events.TypeMovementRecorded) {
		if e.MovementType == string(models.MovementOutbound) {
			outbound++
			if e.ReferenceDoc != inventory.SalesOrderRef(order.ID) {
				t.Errorf("outbound reference = %q", e.ReferenceDoc)
			}
		}
	}
	if outbound != 2 {
		t.Errorf("outbound events = %d, want 2", outbound)
	}
}

func TestStageGates(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 10)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 2})
	ctx := context.Background()

	if _, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Errorf("ship before reserve: error = %v, want business rule", err)
	}
	if _, err := f.sales.DeliverOrder(ctx, order.ID); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Errorf("deliver before ship: error = %v, want business rule", err)
	}

	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}
	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Errorf("second reserve: error = %v, want business rule", err)
	}
	if inv := f.stock(t, f.widget); inv.QtyReserved != 2 {
		t.Errorf("reserved = %d after rejected second reserve, want 2", inv.QtyReserved)
	}

	if _, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ShipOrder: %v", err)
	}
	if _, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Errorf("second ship: error = %v, want business rule", err)
	}
	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Errorf("reserve after ship: error = %v, want business rule", err)
	}
}

func TestReserveOrderBackorders(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 3)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 5}, LineInput{ProductID: f.gadget, Quantity: 1})
	ctx := context.Background()

	summary, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse)
	if err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}
	if summary.FullyReserved || len(summary.Backorders) != 2 {
		t.Fatalf("summary = %+v, want two backorders", summary)
	}
	want := BackorderDetail{LineID: order.Lines[0].ID, ProductID: f.widget, Requested: 5, Reserved: 3, Shortage: 2}
	if summary.Backorders[0] != want {
		t.Errorf("backorder = %+v, want %+v", summary.Backorders[0], want)
	}

	got, err := f.sales.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.State != models.SalesOrderReserved || got.ReservedAt == nil {
		t.Errorf("partially reserved order should still be RESERVED: %+v", got)
	}
	if !got.Lines[0].Backordered || got.Lines[0].ReservedQty != 3 {
		t.Errorf("line 0 = %+v", got.Lines[0])
	}

	reserved := f.recorder.OfType(events.TypeStockReserved)
	if len(reserved) != 1 || reserved[0].ReferenceDoc != inventory.SalesOrderPartialRef(order.ID) {
		t.Errorf("reserved events = %+v", reserved)
	}

	if _, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ShipOrder: %v", err)
	}
	if inv := f.stock(t, f.widget); inv.QtyOnHand != 3 || inv.QtyReserved != 3 {
		t.Errorf("backordered line must not ship: widget = %d/%d", inv.QtyOnHand, inv.QtyReserved)
	}
}

func TestReserveOrderInactiveProductAborts(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 10)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 2}, LineInput{ProductID: f.retired, Quantity: 1})
	ctx := context.Background()

	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Fatalf("error = %v, want business rule", err)
	}
	if inv := f.stock(t, f.widget); inv.QtyReserved != 0 {
		t.Errorf("reserved = %d, want nothing reserved after abort", inv.QtyReserved)
	}
	got, _ := f.sales.GetOrder(ctx, order.ID)
	if got.State != models.SalesOrderCreated {
		t.Errorf("state = %s, want CREATED", got.State)
	}
	if len(f.recorder.OfType(events.TypeStockReserved)) != 0 {
		t.Error("aborted reservation must not publish events")
	}
}

func TestCancelReservedOrderReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 2)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 5})
	ctx := context.Background()

	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}

	cancelled, err := f.sales.CancelOrder(ctx, order.ID, "customer changed mind", f.warehouse)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.State != models.SalesOrderCancelled || cancelled.CancelledAt == nil || cancelled.CancelReason != "customer changed mind" {
		t.Errorf("cancelled order = %+v", cancelled)
	}
	if inv := f.stock(t, f.widget); inv.QtyReserved != 0 {
		t.Errorf("reserved = %d, want 0", inv.QtyReserved)
	}

	released := f.recorder.OfType(events.TypeStockReleased)
	if len(released) != 1 || released[0].ReferenceDoc != inventory.SalesOrderCancelRef(order.ID) {
		t.Errorf("released events = %+v", released)
	}

	if _, err := f.sales.GetOrder(ctx, order.ID); err != nil {
		t.Errorf("cancelled order should stay readable: %v", err)
	}
	active, err := f.sales.ListActiveOrders(ctx)
	if err != nil {
		t.Fatalf("ListActiveOrders: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active orders = %d, want 0", len(active))
	}
	if _, err := f.sales.CancelOrder(ctx, order.ID, "again", f.warehouse); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Errorf("second cancel: error = %v, want business rule", err)
	}
}

func TestCancelLogsFailedRelease(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 4)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 4})
	ctx := context.Background()

	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}
	if err := f.inventory.ReleaseReservation(ctx, f.widget, f.warehouse, 3, "manual"); err != nil {
		t.Fatalf("ReleaseReservation: %v", err)
	}

	cancelled, err := f.sales.CancelOrder(ctx, order.ID, "", f.warehouse)
	if err != nil {
		t.Fatalf("CancelOrder should not fail on a release error: %v", err)
	}
	if cancelled.State != models.SalesOrderCancelled {
		t.Errorf("state = %s", cancelled.State)
	}
	if inv := f.stock(t, f.widget); inv.QtyReserved != 1 {
		t.Errorf("reserved = %d, want 1 left untouched", inv.QtyReserved)
	}
}

func TestCancelShippedOrderFails(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 1)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 1})
	ctx := context.Background()

	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}
	if _, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ShipOrder: %v", err)
	}
	if _, err := f.sales.CancelOrder(ctx, order.ID, "late", f.warehouse); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Errorf("error = %v, want business rule", err)
	}
}

func TestCancelCreatedOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 1})

	cancelled, err := f.sales.CancelOrder(context.Background(), order.ID, "duplicate", f.warehouse)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.State != models.SalesOrderCancelled || cancelled.InferStage() != models.SalesOrderCancelled {
		t.Errorf("state = %s", cancelled.State)
	}
	if len(f.recorder.Events()) != 0 {
		t.Error("nothing was reserved, no events expected")
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 5)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 5}, LineInput{ProductID: f.gadget, Quantity: 1})
	ctx := context.Background()

	result, err := f.sales.CheckAvailability(ctx, order.ID, f.warehouse)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if result.CanFullyReserve {
		t.Error("gadget has no stock, order cannot be fully reserved")
	}
	if !result.Lines[0].Covered || result.Lines[0].Available != 5 {
		t.Errorf("line 0 = %+v", result.Lines[0])
	}
	if result.Lines[1].Covered || result.Lines[1].Available != 0 {
		t.Errorf("line 1 = %+v", result.Lines[1])
	}
	if _, err := f.inventory.GetInventory(ctx, f.gadget, f.warehouse); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("availability check must not create records: %v", err)
	}

	if _, err := f.sales.CheckAvailability(ctx, 404, f.warehouse); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func (f *fixture) addWarehouse(t *testing.T, code string) int64 {
	t.Helper()
	w := &models.Warehouse{Code: code, Name: code, Active: true}
	err := f.store.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateWarehouse(context.Background(), w)
	})
	if err != nil {
		t.Fatalf("create warehouse: %v", err)
	}
	return w.ID
}

func TestShipAndCancelStayInReservingWarehouse(t *testing.T) {
	f := newFixture(t)
	south := f.addWarehouse(t, "SOUTH")
	ctx := context.Background()

	f.receive(t, f.widget, 5)
	if _, err := f.inventory.RecordInbound(ctx, f.widget, south, 5, "seed", ""); err != nil {
		t.Fatalf("seed south: %v", err)
	}
	first := f.order(t, LineInput{ProductID: f.widget, Quantity: 5})
	second := f.order(t, LineInput{ProductID: f.widget, Quantity: 5})
	if _, err := f.sales.ReserveOrder(ctx, first.ID, f.warehouse); err != nil {
		t.Fatalf("reserve first: %v", err)
	}
	if _, err := f.sales.ReserveOrder(ctx, second.ID, south); err != nil {
		t.Fatalf("reserve second: %v", err)
	}

	reserved, err := f.sales.GetOrder(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reserved.WarehouseID == nil || *reserved.WarehouseID != f.warehouse {
		t.Fatalf("warehouse = %v, want %d", reserved.WarehouseID, f.warehouse)
	}

	if _, err := f.sales.ShipOrder(ctx, first.ID, south); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Fatalf("ship from other warehouse: error = %v, want business rule", err)
	}
	if _, err := f.sales.CancelOrder(ctx, first.ID, "", south); !apperr.IsKind(err, apperr.KindBusinessRule) {
		t.Fatalf("cancel in other warehouse: error = %v, want business rule", err)
	}
	southStock, err := f.inventory.GetInventory(ctx, f.widget, south)
	if err != nil {
		t.Fatalf("get south: %v", err)
	}
	if southStock.QtyOnHand != 5 || southStock.QtyReserved != 5 {
		t.Errorf("south = %d/%d, want 5/5", southStock.QtyOnHand, southStock.QtyReserved)
	}

	if _, err := f.sales.ShipOrder(ctx, first.ID, 0); err != nil {
		t.Fatalf("ship with recorded warehouse: %v", err)
	}
	if inv := f.stock(t, f.widget); inv.QtyOnHand != 0 || inv.QtyReserved != 0 {
		t.Errorf("main = %d/%d, want 0/0", inv.QtyOnHand, inv.QtyReserved)
	}

	if _, err := f.sales.CancelOrder(ctx, second.ID, "", 0); err != nil {
		t.Fatalf("cancel second: %v", err)
	}
	if southStock, err = f.inventory.GetInventory(ctx, f.widget, south); err != nil {
		t.Fatalf("get south: %v", err)
	}
	if southStock.QtyOnHand != 5 || southStock.QtyReserved != 0 {
		t.Errorf("south after cancel = %d/%d, want 5/0", southStock.QtyOnHand, southStock.QtyReserved)
	}
}

func TestShipAfterReservationReleasedByOutbound(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 10)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 5})
	ctx := context.Background()

	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}
	if _, err := f.inventory.RecordOutbound(ctx, f.widget, f.warehouse, 5, "walk-in", ""); err != nil {
		t.Fatalf("RecordOutbound: %v", err)
	}
	if inv := f.stock(t, f.widget); inv.QtyOnHand != 5 || inv.QtyReserved != 0 {
		t.Fatalf("after outbound = %d/%d, want 5/0", inv.QtyOnHand, inv.QtyReserved)
	}

	shipped, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse)
	if err != nil {
		t.Fatalf("ShipOrder: %v", err)
	}
	if shipped.State != models.SalesOrderShipped {
		t.Errorf("state = %s", shipped.State)
	}
	if inv := f.stock(t, f.widget); inv.QtyOnHand != 0 || inv.QtyReserved != 0 {
		t.Errorf("after ship = %d/%d, want 0/0", inv.QtyOnHand, inv.QtyReserved)
	}
}

func TestShipFailsWhenReleasedStockIsGone(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.widget, 5)
	order := f.order(t, LineInput{ProductID: f.widget, Quantity: 5})
	ctx := context.Background()

	if _, err := f.sales.ReserveOrder(ctx, order.ID, f.warehouse); err != nil {
		t.Fatalf("ReserveOrder: %v", err)
	}
	if _, err := f.inventory.RecordOutbound(ctx, f.widget, f.warehouse, 5, "walk-in", ""); !apperr.IsKind(err, apperr.KindStockUnavailable) {
		t.Fatalf("outbound of reserved stock: error = %v, want stock unavailable", err)
	}
	if err := f.inventory.ReleaseReservation(ctx, f.widget, f.warehouse, 5, "manual"); err != nil {
		t.Fatalf("ReleaseReservation: %v", err)
	}
	if _, err := f.inventory.RecordAdjustment(ctx, f.widget, f.warehouse, -3, "count", "shrinkage"); err != nil {
		t.Fatalf("RecordAdjustment: %v", err)
	}

	if _, err := f.sales.ShipOrder(ctx, order.ID, f.warehouse); !apperr.IsKind(err, apperr.KindStockUnavailable) {
		t.Errorf("error = %v, want stock unavailable", err)
	}
	got, err := f.sales.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.State != models.SalesOrderReserved {
		t.Errorf("state = %s, want RESERVED after failed ship", got.State)
	}
}
