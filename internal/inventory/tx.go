package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/events"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"go.uber.org/zap"
)

// Tx runs engine operations inside a transaction owned by the caller. Every
// operation checks 0 <= reserved <= on hand before and after it mutates a
// record; a violation aborts the transaction.
type Tx struct {
	s       *Service
	tx      store.Tx
	pending []events.StockEvent
}

// Events returns the stock events raised so far.
func (t *Tx) Events() []events.StockEvent {
	return append([]events.StockEvent(nil), t.pending...)
}

// Available returns the available quantity, or zero when no record exists.
func (t *Tx) Available(ctx context.Context, productID, warehouseID int64) (int, error) {
	return availableIn(ctx, t.tx, productID, warehouseID)
}

// ReserveStock holds min(available, qty). A shortfall is reported in the
// result, never as an error.
func (t *Tx) ReserveStock(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc string) (ReservationResult, error) {
	if qty <= 0 {
		return ReservationResult{}, apperr.InvalidInput("reservation quantity must be positive, got %d", qty)
	}

	inv, err := t.getOrCreate(ctx, productID, warehouseID)
	if err != nil {
		return ReservationResult{}, err
	}
	if err := inv.CheckInvariant(); err != nil {
		return ReservationResult{}, err
	}

	reserved := max(min(inv.Available(), qty), 0)
	result := ReservationResult{RequestedQty: qty, ReservedQty: reserved, Shortage: qty - reserved}

	if reserved > 0 {
		inv.QtyReserved += reserved
		if err := t.save(ctx, inv); err != nil {
			return ReservationResult{}, err
		}
		t.raise(events.TypeStockReserved, inv, reserved, referenceDoc, nil)
	}

	if result.Shortage > 0 {
		t.s.logger.Info("partial reservation",
			zap.Int64("product_id", productID),
			zap.Int64("warehouse_id", warehouseID),
			zap.Int("requested", qty),
			zap.Int("reserved", reserved),
			zap.String("reference_doc", referenceDoc),
		)
	}
	return result, nil
}

func (t *Tx) ReleaseReservation(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc string) error {
	if qty <= 0 {
		return apperr.InvalidInput("release quantity must be positive, got %d", qty)
	}

	inv, err := t.get(ctx, productID, warehouseID)
	if err != nil {
		return err
	}
	if err := inv.CheckInvariant(); err != nil {
		return err
	}
	if qty > inv.QtyReserved {
		return apperr.BusinessRule("cannot release %d of product %d in warehouse %d: only %d reserved",
			qty, productID, warehouseID, inv.QtyReserved)
	}

	inv.QtyReserved -= qty
	if err := t.save(ctx, inv); err != nil {
		return err
	}
	t.raise(events.TypeStockReleased, inv, qty, referenceDoc, nil)
	return nil
}

func (t *Tx) RecordInbound(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc, description string) (*models.Movement, error) {
	if qty <= 0 {
		return nil, apperr.InvalidInput("inbound quantity must be positive, got %d", qty)
	}

	inv, err := t.getOrCreate(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return t.move(ctx, inv, models.MovementInbound, qty, qty, 0, referenceDoc, description)
}

// RecordOutbound removes available stock. When the record holds at least qty
// in reservations, those are released with it.
func (t *Tx) RecordOutbound(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc, description string) (*models.Movement, error) {
	if qty <= 0 {
		return nil, apperr.InvalidInput("outbound quantity must be positive, got %d", qty)
	}

	inv, err := t.get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if available := inv.Available(); qty > available {
		return nil, apperr.StockUnavailable("cannot ship %d of product %d from warehouse %d: only %d available",
			qty, productID, warehouseID, available)
	}

	released := 0
	if inv.QtyReserved >= qty {
		released = qty
	}
	return t.move(ctx, inv, models.MovementOutbound, qty, -qty, -released, referenceDoc, description)
}

// FulfillReservation ships stock that is already reserved, consuming the
// reservation and the on-hand quantity together.
func (t *Tx) FulfillReservation(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc, description string) (*models.Movement, error) {
	if qty <= 0 {
		return nil, apperr.InvalidInput("fulfilment quantity must be positive, got %d", qty)
	}

	inv, err := t.get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if qty > inv.QtyReserved {
		return nil, apperr.BusinessRule("cannot fulfil %d of product %d in warehouse %d: only %d reserved",
			qty, productID, warehouseID, inv.QtyReserved)
	}
	return t.move(ctx, inv, models.MovementOutbound, qty, -qty, -qty, referenceDoc, description)
}

// Ship fulfils qty from the reservation when the record still holds it, and
// otherwise takes it from available stock. The second path covers reservations
// already released by an earlier outbound.
func (t *Tx) Ship(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc, description string) (*models.Movement, error) {
	inv, err := t.get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if qty <= inv.QtyReserved {
		return t.FulfillReservation(ctx, productID, warehouseID, qty, referenceDoc, description)
	}
	return t.RecordOutbound(ctx, productID, warehouseID, qty, referenceDoc, description)
}

// RecordAdjustment applies a signed correction to on hand. The result may not
// drop below the reserved quantity.
func (t *Tx) RecordAdjustment(ctx context.Context, productID, warehouseID int64, delta int, referenceDoc, reason string) (*models.Movement, error) {
	if delta == 0 {
		return nil, apperr.InvalidInput("adjustment quantity must not be zero")
	}

	inv, err := t.getOrCreate(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if next := inv.QtyOnHand + delta; next < inv.QtyReserved {
		return nil, apperr.BusinessRule("adjustment of %d would leave %d on hand for product %d in warehouse %d, below %d reserved",
			delta, next, productID, warehouseID, inv.QtyReserved)
	}
	return t.move(ctx, inv, models.MovementAdjustment, delta, delta, 0, referenceDoc, reason)
}

// move applies onHandDelta and reservedDelta to inv, persists it and appends
// the matching ledger entry.
func (t *Tx) move(ctx context.Context, inv *models.Inventory, movementType models.MovementType, qty, onHandDelta, reservedDelta int, referenceDoc, description string) (*models.Movement, error) {
	if err := inv.CheckInvariant(); err != nil {
		return nil, err
	}

	before := inv.QtyOnHand
	inv.QtyOnHand += onHandDelta
	inv.QtyReserved += reservedDelta
	if err := t.save(ctx, inv); err != nil {
		return nil, err
	}

	movement := &models.Movement{
		InventoryID:  inv.ID,
		ProductID:    inv.ProductID,
		WarehouseID:  inv.WarehouseID,
		Type:         movementType,
		Quantity:     qty,
		QtyBefore:    before,
		QtyAfter:     inv.QtyOnHand,
		ReferenceDoc: referenceDoc,
		Description:  description,
		OccurredAt:   t.s.now(),
	}
	if err := t.tx.CreateMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("create movement: %w", err)
	}

	t.raise(events.TypeMovementRecorded, inv, qty, referenceDoc, movement)
	t.s.logger.Debug("movement recorded",
		zap.Int64("movement_id", movement.ID),
		zap.String("type", string(movementType)),
		zap.Int64("product_id", inv.ProductID),
		zap.Int64("warehouse_id", inv.WarehouseID),
		zap.Int("quantity", qty),
		zap.String("reference_doc", referenceDoc),
	)
	return movement, nil
}

func (t *Tx) save(ctx context.Context, inv *models.Inventory) error {
	if err := inv.CheckInvariant(); err != nil {
		return err
	}
	if err := t.tx.UpdateInventory(ctx, inv); err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (t *Tx) get(ctx context.Context, productID, warehouseID int64) (*models.Inventory, error) {
	inv, err := t.tx.GetInventory(ctx, productID, warehouseID)
	if err != nil {
		return nil, apperr.OrNotFound(err, store.ErrNotFound, "no inventory for product %d in warehouse %d", productID, warehouseID)
	}
	return inv, nil
}

// getOrCreate returns the record for the pair, creating an empty one the
// first time the pair is touched.
func (t *Tx) getOrCreate(ctx context.Context, productID, warehouseID int64) (*models.Inventory, error) {
	inv, err := t.tx.GetInventory(ctx, productID, warehouseID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get inventory: %w", err)
	}

	if _, err := t.tx.GetProduct(ctx, productID); err != nil {
		return nil, apperr.OrNotFound(err, store.ErrNotFound, "product %d not found", productID)
	}
	if _, err := t.tx.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, apperr.OrNotFound(err, store.ErrNotFound, "warehouse %d not found", warehouseID)
	}

	inv = &models.Inventory{ProductID: productID, WarehouseID: warehouseID}
	if err := t.tx.CreateInventory(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return t.get(ctx, productID, warehouseID)
		}
		return nil, fmt.Errorf("create inventory: %w", err)
	}
	return inv, nil
}

func (t *Tx) raise(eventType string, inv *models.Inventory, qty int, referenceDoc string, movement *models.Movement) {
	e := events.NewStockEvent(eventType, inv.ProductID, inv.WarehouseID, qty)
	e.QtyOnHand = inv.QtyOnHand
	e.QtyReserved = inv.QtyReserved
	e.ReferenceDoc = referenceDoc
	if movement != nil {
		e.MovementID = movement.ID
		e.MovementType = string(movement.Type)
	}
	t.pending = append(t.pending, e)
}
