package models

import (
	"fmt"
	"time"
)

// Inventory is the stock held for one product in one warehouse.
type Inventory struct {
	ID          int64     `db:"id" json:"id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	QtyOnHand   int       `db:"qty_on_hand" json:"qty_on_hand"`
	QtyReserved int       `db:"qty_reserved" json:"qty_reserved"`
	Version     int       `db:"version" json:"version"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (i *Inventory) Available() int {
	return i.QtyOnHand - i.QtyReserved
}

// CheckInvariant reports whether 0 <= reserved <= on hand holds.
func (i *Inventory) CheckInvariant() error {
	if i.QtyReserved < 0 {
		return fmt.Errorf("inventory %d: reserved quantity %d is negative", i.ID, i.QtyReserved)
	}
	if i.QtyReserved > i.QtyOnHand {
		return fmt.Errorf("inventory %d: reserved quantity %d exceeds on hand %d", i.ID, i.QtyReserved, i.QtyOnHand)
	}
	return nil
}

type MovementType string

const (
	MovementInbound    MovementType = "INBOUND"
	MovementOutbound   MovementType = "OUTBOUND"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementInbound, MovementOutbound, MovementAdjustment:
		return true
	}
	return false
}

// Movement is an immutable ledger entry. For ADJUSTMENT the quantity is the
// signed delta applied to on hand.
type Movement struct {
	ID           int64        `db:"id" json:"id"`
	InventoryID  int64        `db:"inventory_id" json:"inventory_id"`
	ProductID    int64        `db:"product_id" json:"product_id"`
	WarehouseID  int64        `db:"warehouse_id" json:"warehouse_id"`
	Type         MovementType `db:"movement_type" json:"type"`
	Quantity     int          `db:"quantity" json:"quantity"`
	QtyBefore    int          `db:"qty_before" json:"qty_before"`
	QtyAfter     int          `db:"qty_after" json:"qty_after"`
	ReferenceDoc string       `db:"reference_doc" json:"reference_doc,omitempty"`
	Description  string       `db:"description" json:"description,omitempty"`
	OccurredAt   time.Time    `db:"occurred_at" json:"occurred_at"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
