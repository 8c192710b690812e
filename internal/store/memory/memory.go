// Package memory is a process-local implementation of store.Store. All
// transactions are serialised behind one mutex; a failed transaction is
// discarded by restoring the snapshot taken when it began.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
)

type inventoryKey struct {
	productID   int64
	warehouseID int64
}

type data struct {
	ids            map[string]int64
	products       map[int64]models.Product
	warehouses     map[int64]models.Warehouse
	suppliers      map[int64]models.Supplier
	carriers       map[int64]models.Carrier
	inventory      map[int64]models.Inventory
	inventoryByKey map[inventoryKey]int64
	movements      map[int64]models.Movement
	purchaseOrders map[int64]models.PurchaseOrder
	salesOrders    map[int64]models.SalesOrder
	shipments      map[int64]models.Shipment
}

func newData() *data {
	return &data{
		ids:            make(map[string]int64),
		products:       make(map[int64]models.Product),
		warehouses:     make(map[int64]models.Warehouse),
		suppliers:      make(map[int64]models.Supplier),
		carriers:       make(map[int64]models.Carrier),
		inventory:      make(map[int64]models.Inventory),
		inventoryByKey: make(map[inventoryKey]int64),
		movements:      make(map[int64]models.Movement),
		purchaseOrders: make(map[int64]models.PurchaseOrder),
		salesOrders:    make(map[int64]models.SalesOrder),
		shipments:      make(map[int64]models.Shipment),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.ids {
		c.ids[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range d.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range d.carriers {
		c.carriers[k] = v
	}
	for k, v := range d.inventory {
		c.inventory[k] = v
	}
	for k, v := range d.inventoryByKey {
		c.inventoryByKey[k] = v
	}
	for k, v := range d.movements {
		c.movements[k] = v
	}
	for k, v := range d.purchaseOrders {
		c.purchaseOrders[k] = copyPurchaseOrder(v)
	}
	for k, v := range d.salesOrders {
		c.salesOrders[k] = copySalesOrder(v)
	}
	for k, v := range d.shipments {
		c.shipments[k] = v
	}
	return c
}

func (d *data) nextID(seq string) int64 {
	d.ids[seq]++
	return d.ids[seq]
}

type Store struct {
	mu   sync.RWMutex
	data *data
	now  func() time.Time
}

func New() *Store {
	return &Store{
		data: newData(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(&tx{d: working, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = working
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&tx{d: s.data, now: s.now, readOnly: true})
}

func (s *Store) Close() error {
	return nil
}

type tx struct {
	d        *data
	now      func() time.Time
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return nil
}

func copyPurchaseOrder(po models.PurchaseOrder) models.PurchaseOrder {
	po.Lines = append([]models.PurchaseOrderLine(nil), po.Lines...)
	return po
}

func copySalesOrder(o models.SalesOrder) models.SalesOrder {
	o.Lines = append([]models.SalesOrderLine(nil), o.Lines...)
	if o.WarehouseID != nil {
		id := *o.WarehouseID
		o.WarehouseID = &id
	}
	return o
}
