package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderPending   PurchaseOrderStatus = "PENDING"
	PurchaseOrderConfirmed PurchaseOrderStatus = "CONFIRMED"
	PurchaseOrderDelivered PurchaseOrderStatus = "DELIVERED"
	PurchaseOrderCancelled PurchaseOrderStatus = "CANCELLED"
)

func (s PurchaseOrderStatus) Terminal() bool {
	return s == PurchaseOrderDelivered || s == PurchaseOrderCancelled
}

type PurchaseOrder struct {
	ID               int64               `db:"id" json:"id"`
	SupplierID       int64               `db:"supplier_id" json:"supplier_id"`
	Status           PurchaseOrderStatus `db:"status" json:"status"`
	OrderDate        time.Time           `db:"order_date" json:"order_date"`
	ExpectedDelivery *time.Time          `db:"expected_delivery" json:"expected_delivery,omitempty"`
	Version          int                 `db:"version" json:"version"`
	Lines            []PurchaseOrderLine `db:"-" json:"lines"`
}

func (po *PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range po.Lines {
		total = total.Add(line.Total())
	}
	return total
}

type PurchaseOrderLine struct {
	ID              int64           `db:"id" json:"id"`
	PurchaseOrderID int64           `db:"purchase_order_id" json:"purchase_order_id"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
}

func (l PurchaseOrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type SalesOrderState string

const (
	SalesOrderCreated   SalesOrderState = "CREATED"
	SalesOrderReserved  SalesOrderState = "RESERVED"
	SalesOrderShipped   SalesOrderState = "SHIPPED"
	SalesOrderDelivered SalesOrderState = "DELIVERED"
	SalesOrderCancelled SalesOrderState = "CANCELLED"
)

// SalesOrder carries an explicit state; the stage timestamps are set
// together with it and are informational only.
type SalesOrder struct {
	ID           int64            `db:"id" json:"id"`
	CustomerName string           `db:"customer_name" json:"customer_name"`
	State        SalesOrderState  `db:"state" json:"state"`
	WarehouseID  *int64           `db:"warehouse_id" json:"warehouse_id,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	ReservedAt   *time.Time       `db:"reserved_at" json:"reserved_at,omitempty"`
	ShippedAt    *time.Time       `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time       `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt  *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version      int              `db:"version" json:"version"`
	Lines        []SalesOrderLine `db:"-" json:"lines"`
}

// InferStage derives the stage from the timestamps alone, the way rows
// written before the state column existed are interpreted.
func (o *SalesOrder) InferStage() SalesOrderState {
	switch {
	case o.CancelledAt != nil:
		return SalesOrderCancelled
	case o.DeliveredAt != nil:
		return SalesOrderDelivered
	case o.ShippedAt != nil:
		return SalesOrderShipped
	case o.ReservedAt != nil:
		return SalesOrderReserved
	default:
		return SalesOrderCreated
	}
}

func (o *SalesOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Total())
	}
	return total
}

type SalesOrderLine struct {
	ID           int64           `db:"id" json:"id"`
	SalesOrderID int64           `db:"sales_order_id" json:"sales_order_id"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	Quantity     int             `db:"quantity" json:"quantity"`
	ReservedQty  int             `db:"reserved_qty" json:"reserved_qty"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	Backordered  bool            `db:"backordered" json:"backordered"`
}

func (l SalesOrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type ShipmentStatus string

const (
	ShipmentPlanned   ShipmentStatus = "PLANNED"
	ShipmentInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
)

type Shipment struct {
	ID             int64          `db:"id" json:"id"`
	SalesOrderID   *int64         `db:"sales_order_id" json:"sales_order_id,omitempty"`
	CarrierID      int64          `db:"carrier_id" json:"carrier_id"`
	TrackingNumber string         `db:"tracking_number" json:"tracking_number,omitempty"`
	Status         ShipmentStatus `db:"status" json:"status"`
	ShippedDate    *time.Time     `db:"shipped_date" json:"shipped_date,omitempty"`
	DeliveredDate  *time.Time     `db:"delivered_date" json:"delivered_date,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	Version        int            `db:"version" json:"version"`
}
