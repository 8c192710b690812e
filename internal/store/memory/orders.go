package memory

import (
	"context"
	"sort"

	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
)

func (t *tx) CreatePurchaseOrder(_ context.Context, po *models.PurchaseOrder) error {
	if err := t.writable(); err != nil {
		return err
	}

	po.ID = t.d.nextID("purchase_orders")
	po.Version = 1
	if po.OrderDate.IsZero() {
		po.OrderDate = t.now()
	}
	for i := range po.Lines {
		po.Lines[i].ID = t.d.nextID("purchase_order_lines")
		po.Lines[i].PurchaseOrderID = po.ID
	}
	t.d.purchaseOrders[po.ID] = copyPurchaseOrder(*po)
	return nil
}

func (t *tx) GetPurchaseOrder(_ context.Context, id int64) (*models.PurchaseOrder, error) {
	po, ok := t.d.purchaseOrders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	po = copyPurchaseOrder(po)
	return &po, nil
}

func (t *tx) UpdatePurchaseOrderStatus(_ context.Context, po *models.PurchaseOrder) error {
	if err := t.writable(); err != nil {
		return err
	}
	current, ok := t.d.purchaseOrders[po.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != po.Version {
		return store.ErrVersionConflict
	}

	po.Version++
	current.Status = po.Status
	current.Version = po.Version
	t.d.purchaseOrders[po.ID] = current
	return nil
}

func (t *tx) AddPurchaseOrderLine(_ context.Context, line *models.PurchaseOrderLine) error {
	if err := t.writable(); err != nil {
		return err
	}
	po, ok := t.d.purchaseOrders[line.PurchaseOrderID]
	if !ok {
		return store.ErrNotFound
	}

	line.ID = t.d.nextID("purchase_order_lines")
	po.Lines = append(po.Lines, *line)
	t.d.purchaseOrders[po.ID] = po
	return nil
}

func (t *tx) DeletePurchaseOrderLine(_ context.Context, purchaseOrderID, lineID int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	po, ok := t.d.purchaseOrders[purchaseOrderID]
	if !ok {
		return store.ErrNotFound
	}

	for i, line := range po.Lines {
		if line.ID == lineID {
			po.Lines = append(po.Lines[:i], po.Lines[i+1:]...)
			t.d.purchaseOrders[po.ID] = po
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *tx) CreateSalesOrder(_ context.Context, o *models.SalesOrder) error {
	if err := t.writable(); err != nil {
		return err
	}

	o.ID = t.d.nextID("sales_orders")
	o.Version = 1
	o.CreatedAt = t.now()
	for i := range o.Lines {
		o.Lines[i].ID = t.d.nextID("sales_order_lines")
		o.Lines[i].SalesOrderID = o.ID
	}
	t.d.salesOrders[o.ID] = copySalesOrder(*o)
	return nil
}

func (t *tx) GetSalesOrder(_ context.Context, id int64) (*models.SalesOrder, error) {
	o, ok := t.d.salesOrders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = copySalesOrder(o)
	return &o, nil
}

func (t *tx) UpdateSalesOrder(_ context.Context, o *models.SalesOrder) error {
	if err := t.writable(); err != nil {
		return err
	}
	current, ok := t.d.salesOrders[o.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != o.Version {
		return store.ErrVersionConflict
	}

	o.Version++
	t.d.salesOrders[o.ID] = copySalesOrder(*o)
	return nil
}

func (t *tx) ListSalesOrders(_ context.Context, states []models.SalesOrderState) ([]models.SalesOrder, error) {
	wanted := make(map[models.SalesOrderState]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}

	var orders []models.SalesOrder
	for _, o := range t.d.salesOrders {
		if len(wanted) == 0 || wanted[o.State] {
			orders = append(orders, copySalesOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (t *tx) CreateShipment(_ context.Context, s *models.Shipment) error {
	if err := t.writable(); err != nil {
		return err
	}

	s.ID = t.d.nextID("shipments")
	s.Version = 1
	s.CreatedAt = t.now()
	t.d.shipments[s.ID] = *s
	return nil
}

func (t *tx) GetShipment(_ context.Context, id int64) (*models.Shipment, error) {
	s, ok := t.d.shipments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (t *tx) UpdateShipment(_ context.Context, s *models.Shipment) error {
	if err := t.writable(); err != nil {
		return err
	}
	current, ok := t.d.shipments[s.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != s.Version {
		return store.ErrVersionConflict
	}

	s.Version++
	t.d.shipments[s.ID] = *s
	return nil
}
