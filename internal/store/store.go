// Package store declares the persistence boundary of the supply-chain core.
// Engines only talk to a Tx handed out by Store.WithTx or Store.View, so every
// top-level operation commits or rolls back as a unit.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/safar/go-supply-chain/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrVersionConflict = errors.New("version conflict")
	ErrReadOnly        = errors.New("write in read-only transaction")
)

type Store interface {
	// WithTx runs fn in a read-write transaction. Inventory rows read through
	// the Tx stay locked until fn returns.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn in a read-only transaction without row locks.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type Tx interface {
	CatalogRepository
	InventoryRepository
	MovementRepository
	PurchaseOrderRepository
	SalesOrderRepository
	ShipmentRepository
}

type CatalogRepository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	ListProducts(ctx context.Context, page, pageSize int) ([]models.Product, int64, error)
	CreateWarehouse(ctx context.Context, w *models.Warehouse) error
	GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
	CreateSupplier(ctx context.Context, s *models.Supplier) error
	GetSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	CreateCarrier(ctx context.Context, c *models.Carrier) error
	GetCarrier(ctx context.Context, id int64) (*models.Carrier, error)
}

type InventoryRepository interface {
	GetInventory(ctx context.Context, productID, warehouseID int64) (*models.Inventory, error)
	GetInventoryByID(ctx context.Context, id int64) (*models.Inventory, error)
	ListInventoryByProduct(ctx context.Context, productID int64) ([]models.Inventory, error)
	// CreateInventory returns ErrDuplicate when the (product, warehouse) pair
	// already has a record.
	CreateInventory(ctx context.Context, inv *models.Inventory) error
	// UpdateInventory writes quantities guarded by inv.Version and bumps it.
	UpdateInventory(ctx context.Context, inv *models.Inventory) error
}

type MovementRepository interface {
	CreateMovement(ctx context.Context, m *models.Movement) error
	GetMovement(ctx context.Context, id int64) (*models.Movement, error)
	ListMovements(ctx context.Context, f MovementFilter) ([]models.Movement, error)
	DeleteMovement(ctx context.Context, id int64) error
}

type PurchaseOrderRepository interface {
	CreatePurchaseOrder(ctx context.Context, po *models.PurchaseOrder) error
	GetPurchaseOrder(ctx context.Context, id int64) (*models.PurchaseOrder, error)
	UpdatePurchaseOrderStatus(ctx context.Context, po *models.PurchaseOrder) error
	AddPurchaseOrderLine(ctx context.Context, line *models.PurchaseOrderLine) error
	DeletePurchaseOrderLine(ctx context.Context, purchaseOrderID, lineID int64) error
}

type SalesOrderRepository interface {
	CreateSalesOrder(ctx context.Context, o *models.SalesOrder) error
	GetSalesOrder(ctx context.Context, id int64) (*models.SalesOrder, error)
	// UpdateSalesOrder persists the header and each line's reservation fields.
	UpdateSalesOrder(ctx context.Context, o *models.SalesOrder) error
	ListSalesOrders(ctx context.Context, states []models.SalesOrderState) ([]models.SalesOrder, error)
}

type ShipmentRepository interface {
	CreateShipment(ctx context.Context, s *models.Shipment) error
	GetShipment(ctx context.Context, id int64) (*models.Shipment, error)
	UpdateShipment(ctx context.Context, s *models.Shipment) error
}

// MovementFilter selects ledger entries. Zero values are ignored.
type MovementFilter struct {
	InventoryID int64
	ProductID   int64
	WarehouseID int64
	Type        models.MovementType
	From        *time.Time
	To          *time.Time
	After       *MovementCursor
	Limit       int
}

func (f MovementFilter) Matches(m *models.Movement) bool {
	if f.InventoryID != 0 && m.InventoryID != f.InventoryID {
		return false
	}
	if f.ProductID != 0 && m.ProductID != f.ProductID {
		return false
	}
	if f.WarehouseID != 0 && m.WarehouseID != f.WarehouseID {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.From != nil && m.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.OccurredAt.After(*f.To) {
		return false
	}
	if f.After != nil && !f.After.Precedes(m) {
		return false
	}
	return true
}
