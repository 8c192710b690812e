package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/safar/go-supply-chain/internal/events"
	"github.com/safar/go-supply-chain/internal/inventory"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/purchasing"
	"github.com/safar/go-supply-chain/internal/store/memory"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	t        *testing.T
	api      *api
	router   *mux.Router
	recorder *events.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	recorder := &events.Recorder{}
	a := newAPI(memory.New(), recorder, zaptest.NewLogger(t))
	return &testServer{t: t, api: a, router: newRouter(a), recorder: recorder}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// must performs the request and decodes the response into out, failing the
// test unless the status matches.
func (s *testServer) must(method, path string, body interface{}, status int, out interface{}) {
	s.t.Helper()
	rec := s.do(method, path, body)
	if rec.Code != status {
		s.t.Fatalf("%s %s: status = %d, want %d (body %s)", method, path, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func (s *testServer) seed() (productID, warehouseID int64) {
	s.t.Helper()
	var p models.Product
	s.must(http.MethodPost, "/products", map[string]interface{}{
		"sku": "SKU-1", "name": "Widget", "unit_price": "9.99",
	}, http.StatusCreated, &p)
	var w models.Warehouse
	s.must(http.MethodPost, "/warehouses", map[string]string{
		"code": "W1", "name": "North",
	}, http.StatusCreated, &w)
	return p.ID, w.ID
}

func (s *testServer) inventory(productID, warehouseID int64) models.Inventory {
	s.t.Helper()
	var inv models.Inventory
	s.must(http.MethodGet, fmt.Sprintf("/inventory/%d/%d", productID, warehouseID), nil, http.StatusOK, &inv)
	return inv
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	s.must(http.MethodGet, "/health", nil, http.StatusOK, &body)
	if body["status"] != "healthy" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestSalesOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	productID, warehouseID := s.seed()

	s.must(http.MethodPost, "/inventory/inbound", map[string]interface{}{
		"product_id": productID, "warehouse_id": warehouseID, "quantity": 10, "reference_doc": "INIT",
	}, http.StatusCreated, nil)

	var order models.SalesOrder
	s.must(http.MethodPost, "/sales-orders", map[string]interface{}{
		"customer_name": "Acme",
		"lines":         []map[string]interface{}{{"product_id": productID, "quantity": 4}},
	}, http.StatusCreated, &order)
	if order.State != models.SalesOrderCreated {
		t.Fatalf("state = %s, want CREATED", order.State)
	}

	base := fmt.Sprintf("/sales-orders/%d", order.ID)
	var summary struct {
		FullyReserved bool `json:"fully_reserved"`
	}
	s.must(http.MethodPost, base+"/reserve", map[string]int64{"warehouse_id": warehouseID}, http.StatusOK, &summary)
	if !summary.FullyReserved {
		t.Error("expected full reservation")
	}
	if inv := s.inventory(productID, warehouseID); inv.QtyOnHand != 10 || inv.QtyReserved != 4 {
		t.Errorf("after reserve: on hand %d reserved %d, want 10/4", inv.QtyOnHand, inv.QtyReserved)
	}

	s.must(http.MethodPost, base+"/reserve", map[string]int64{"warehouse_id": warehouseID}, http.StatusConflict, nil)
	s.must(http.MethodPost, base+"/ship", map[string]int64{"warehouse_id": warehouseID + 100}, http.StatusConflict, nil)

	s.must(http.MethodPost, base+"/ship", map[string]int64{"warehouse_id": warehouseID}, http.StatusOK, &order)
	if order.State != models.SalesOrderShipped {
		t.Errorf("state = %s, want SHIPPED", order.State)
	}
	s.must(http.MethodPost, base+"/deliver", nil, http.StatusOK, &order)
	if order.State != models.SalesOrderDelivered {
		t.Errorf("state = %s, want DELIVERED", order.State)
	}

	if inv := s.inventory(productID, warehouseID); inv.QtyOnHand != 6 || inv.QtyReserved != 0 {
		t.Errorf("after ship: on hand %d reserved %d, want 6/0", inv.QtyOnHand, inv.QtyReserved)
	}
	if got := len(s.recorder.OfType(events.TypeStockReserved)); got != 1 {
		t.Errorf("reserved events = %d, want 1", got)
	}

	var active []models.SalesOrder
	s.must(http.MethodGet, "/sales-orders", nil, http.StatusOK, &active)
	if len(active) != 0 {
		t.Errorf("active orders = %d, want 0", len(active))
	}
}

func TestPurchaseOrderReceipt(t *testing.T) {
	s := newTestServer(t)
	productID, warehouseID := s.seed()

	var supplier models.Supplier
	s.must(http.MethodPost, "/suppliers", map[string]string{"name": "Parts Co"}, http.StatusCreated, &supplier)

	var po models.PurchaseOrder
	s.must(http.MethodPost, "/purchase-orders", map[string]interface{}{
		"supplier_id": supplier.ID,
		"lines":       []map[string]interface{}{{"product_id": productID, "quantity": 12, "unit_price": "2.50"}},
	}, http.StatusCreated, &po)

	base := fmt.Sprintf("/purchase-orders/%d", po.ID)
	s.must(http.MethodPost, base+"/approve", nil, http.StatusOK, &po)
	if po.Status != models.PurchaseOrderConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", po.Status)
	}

	var receipt purchasing.ReceiptResult
	s.must(http.MethodPost, base+"/receive", map[string]int64{"warehouse_id": warehouseID}, http.StatusOK, &receipt)
	if len(receipt.Lines) != 1 || receipt.Lines[0].Quantity != 12 {
		t.Errorf("receipt lines = %+v", receipt.Lines)
	}
	if inv := s.inventory(productID, warehouseID); inv.QtyOnHand != 12 {
		t.Errorf("on hand = %d, want 12", inv.QtyOnHand)
	}

	var status purchasing.ReceptionStatus
	s.must(http.MethodGet, base+"/reception", nil, http.StatusOK, &status)
	if !status.Complete {
		t.Error("reception should be complete")
	}

	s.must(http.MethodPost, base+"/receive", map[string]int64{"warehouse_id": warehouseID}, http.StatusConflict, nil)
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	productID, warehouseID := s.seed()
	s.must(http.MethodPost, "/inventory/inbound", map[string]interface{}{
		"product_id": productID, "warehouse_id": warehouseID, "quantity": 3,
	}, http.StatusCreated, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"missing product", http.MethodGet, "/products/999", nil, http.StatusNotFound},
		{"blank product", http.MethodPost, "/products", map[string]string{"sku": " "}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/warehouses", map[string]string{"colour": "red"}, http.StatusBadRequest},
		{"duplicate sku", http.MethodPost, "/products", map[string]string{"sku": "SKU-1", "name": "Again"}, http.StatusConflict},
		{"release more than reserved", http.MethodPost, "/inventory/release", map[string]interface{}{
			"product_id": productID, "warehouse_id": warehouseID, "quantity": 1,
		}, http.StatusConflict},
		{"outbound beyond stock", http.MethodPost, "/inventory/outbound", map[string]interface{}{
			"product_id": productID, "warehouse_id": warehouseID, "quantity": 4,
		}, http.StatusUnprocessableEntity},
		{"zero reservation", http.MethodPost, "/inventory/reserve", map[string]interface{}{
			"product_id": productID, "warehouse_id": warehouseID, "quantity": 0,
		}, http.StatusBadRequest},
		{"inventory list needs product", http.MethodGet, "/inventory", nil, http.StatusBadRequest},
		{"bad cursor", http.MethodGet, "/movements?cursor=@@@@", nil, http.StatusBadRequest},
		{"bad movement type", http.MethodGet, "/movements?type=TELEPORT", nil, http.StatusBadRequest},
		{"unknown shipment", http.MethodPut, "/shipments/42/status", map[string]string{"status": "IN_TRANSIT"}, http.StatusNotFound},
		{"availability needs warehouse", http.MethodGet, "/sales-orders/1/availability", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestFailHidesUnclassifiedErrors(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)

	s.api.fail(rec, req, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal server error" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestMovementPagination(t *testing.T) {
	s := newTestServer(t)
	productID, warehouseID := s.seed()
	for i := 0; i < 3; i++ {
		s.must(http.MethodPost, "/inventory/inbound", map[string]interface{}{
			"product_id": productID, "warehouse_id": warehouseID, "quantity": i + 1,
		}, http.StatusCreated, nil)
	}

	type page struct {
		Items      []models.Movement `json:"items"`
		NextCursor string            `json:"next_cursor"`
		HasMore    bool              `json:"has_more"`
	}

	var first page
	s.must(http.MethodGet, fmt.Sprintf("/movements?product_id=%d&limit=2", productID), nil, http.StatusOK, &first)
	if len(first.Items) != 2 || !first.HasMore || first.NextCursor == "" {
		t.Fatalf("first page = %d items, has_more %v", len(first.Items), first.HasMore)
	}

	var second page
	s.must(http.MethodGet, fmt.Sprintf("/movements?product_id=%d&limit=2&cursor=%s", productID, first.NextCursor), nil, http.StatusOK, &second)
	if len(second.Items) != 1 || second.HasMore {
		t.Fatalf("second page = %d items, has_more %v", len(second.Items), second.HasMore)
	}
	if second.Items[0].Quantity != 1 {
		t.Errorf("oldest movement quantity = %d, want 1", second.Items[0].Quantity)
	}

	id := second.Items[0].ID
	s.must(http.MethodDelete, fmt.Sprintf("/movements/%d", id), nil, http.StatusNoContent, nil)
	s.must(http.MethodGet, fmt.Sprintf("/movements/%d", id), nil, http.StatusNotFound, nil)
}

func TestAllocateAcrossWarehouses(t *testing.T) {
	s := newTestServer(t)
	productID, w1 := s.seed()
	var w2 models.Warehouse
	s.must(http.MethodPost, "/warehouses", map[string]string{"code": "W2", "name": "South"}, http.StatusCreated, &w2)

	for _, stock := range []struct {
		warehouse int64
		qty       int
	}{{w1, 5}, {w2.ID, 20}} {
		s.must(http.MethodPost, "/inventory/inbound", map[string]interface{}{
			"product_id": productID, "warehouse_id": stock.warehouse, "quantity": stock.qty,
		}, http.StatusCreated, nil)
	}

	var alloc inventory.Allocation
	s.must(http.MethodPost, "/inventory/allocate", map[string]interface{}{
		"product_id": productID, "quantity": 15, "warehouse_ids": []int64{w1, w2.ID},
	}, http.StatusOK, &alloc)

	if alloc.Remaining != 0 || len(alloc.Items) != 2 {
		t.Fatalf("allocation = %+v", alloc)
	}
	if alloc.Items[0].Quantity != 5 || alloc.Items[1].Quantity != 10 {
		t.Errorf("items = %+v, want 5 then 10", alloc.Items)
	}
	if inv := s.inventory(productID, w2.ID); inv.QtyReserved != 0 {
		t.Errorf("allocation must not reserve, reserved = %d", inv.QtyReserved)
	}
}
