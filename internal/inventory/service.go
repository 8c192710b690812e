// Package inventory keeps on-hand and reserved quantities per product and
// warehouse, and the movement ledger that explains every on-hand change.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/events"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"go.uber.org/zap"
)

// ReservationResult reports how much of a reservation request was held.
type ReservationResult struct {
	RequestedQty int `json:"requested_qty"`
	ReservedQty  int `json:"reserved_qty"`
	Shortage     int `json:"shortage"`
}

func (r ReservationResult) Complete() bool {
	return r.Shortage == 0
}

type WarehouseAllocation struct {
	WarehouseID int64 `json:"warehouse_id"`
	Quantity    int   `json:"quantity"`
}

type Allocation struct {
	ProductID int64                 `json:"product_id"`
	Items     []WarehouseAllocation `json:"items"`
	Requested int                   `json:"requested"`
	Allocated int                   `json:"allocated"`
	Remaining int                   `json:"remaining"`
}

type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(st store.Store, publisher events.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:     st,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func CalculateAvailable(inv *models.Inventory) int {
	return inv.Available()
}

// InTx binds the engine to a transaction owned by the caller. Events raised
// by the returned handle are held until the caller passes them to Publish
// after commit.
func (s *Service) InTx(tx store.Tx) *Tx {
	return &Tx{s: s, tx: tx}
}

// Publish sends events on a best-effort basis. Failures are logged.
func (s *Service) Publish(ctx context.Context, evts []events.StockEvent) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Warn("publish stock events failed", zap.Int("count", len(evts)), zap.Error(err))
	}
}

// run executes fn against a fresh handle in its own transaction and publishes
// the handle's events once the transaction has committed.
func (s *Service) run(ctx context.Context, fn func(t *Tx) error) error {
	var pending []events.StockEvent
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		t := s.InTx(tx)
		if err := fn(t); err != nil {
			return err
		}
		pending = t.Events()
		return nil
	})
	if err != nil {
		return err
	}
	s.Publish(ctx, pending)
	return nil
}

func (s *Service) ReserveStock(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc string) (ReservationResult, error) {
	var result ReservationResult
	err := s.run(ctx, func(t *Tx) error {
		var err error
		result, err = t.ReserveStock(ctx, productID, warehouseID, qty, referenceDoc)
		return err
	})
	if err != nil {
		return ReservationResult{}, err
	}
	return result, nil
}

func (s *Service) ReleaseReservation(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc string) error {
	return s.run(ctx, func(t *Tx) error {
		return t.ReleaseReservation(ctx, productID, warehouseID, qty, referenceDoc)
	})
}

func (s *Service) RecordInbound(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc, description string) (*models.Movement, error) {
	var movement *models.Movement
	err := s.run(ctx, func(t *Tx) error {
		var err error
		movement, err = t.RecordInbound(ctx, productID, warehouseID, qty, referenceDoc, description)
		return err
	})
	return movement, err
}

func (s *Service) RecordOutbound(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc, description string) (*models.Movement, error) {
	var movement *models.Movement
	err := s.run(ctx, func(t *Tx) error {
		var err error
		movement, err = t.RecordOutbound(ctx, productID, warehouseID, qty, referenceDoc, description)
		return err
	})
	return movement, err
}

func (s *Service) FulfillReservation(ctx context.Context, productID, warehouseID int64, qty int, referenceDoc, description string) (*models.Movement, error) {
	var movement *models.Movement
	err := s.run(ctx, func(t *Tx) error {
		var err error
		movement, err = t.FulfillReservation(ctx, productID, warehouseID, qty, referenceDoc, description)
		return err
	})
	return movement, err
}

func (s *Service) RecordAdjustment(ctx context.Context, productID, warehouseID int64, delta int, referenceDoc, reason string) (*models.Movement, error) {
	var movement *models.Movement
	err := s.run(ctx, func(t *Tx) error {
		var err error
		movement, err = t.RecordAdjustment(ctx, productID, warehouseID, delta, referenceDoc, reason)
		return err
	})
	return movement, err
}

// AllocateFromMultipleWarehouses plans how totalQty could be drawn from the
// warehouses in priority order. Nothing is reserved.
func (s *Service) AllocateFromMultipleWarehouses(ctx context.Context, productID int64, totalQty int, warehouseIDs []int64) (*Allocation, error) {
	if totalQty <= 0 {
		return nil, apperr.InvalidInput("quantity must be positive, got %d", totalQty)
	}

	allocation := &Allocation{
		ProductID: productID,
		Items:     []WarehouseAllocation{},
		Requested: totalQty,
		Remaining: totalQty,
	}

	err := s.store.View(ctx, func(tx store.Tx) error {
		seen := make(map[int64]bool, len(warehouseIDs))
		for _, warehouseID := range warehouseIDs {
			if allocation.Remaining <= 0 {
				break
			}
			if seen[warehouseID] {
				continue
			}
			seen[warehouseID] = true

			available, err := availableIn(ctx, tx, productID, warehouseID)
			if err != nil {
				return err
			}
			if available <= 0 {
				continue
			}

			take := min(available, allocation.Remaining)
			allocation.Items = append(allocation.Items, WarehouseAllocation{WarehouseID: warehouseID, Quantity: take})
			allocation.Allocated += take
			allocation.Remaining -= take
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if allocation.Remaining > 0 {
		s.logger.Warn("allocation could not cover requested quantity",
			zap.Int64("product_id", productID),
			zap.Int("requested", allocation.Requested),
			zap.Int("allocated", allocation.Allocated),
			zap.Int("remaining", allocation.Remaining),
		)
	}
	return allocation, nil
}

func (s *Service) CalculateAvailableQty(ctx context.Context, inventoryID int64) (int, error) {
	var available int
	err := s.store.View(ctx, func(tx store.Tx) error {
		inv, err := tx.GetInventoryByID(ctx, inventoryID)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "inventory %d not found", inventoryID)
		}
		available = CalculateAvailable(inv)
		return nil
	})
	return available, err
}

func (s *Service) IsOutOfStock(ctx context.Context, productID, warehouseID int64) (bool, error) {
	var available int
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		available, err = availableIn(ctx, tx, productID, warehouseID)
		return err
	})
	if err != nil {
		return false, err
	}
	return available <= 0, nil
}

func (s *Service) GetInventory(ctx context.Context, productID, warehouseID int64) (*models.Inventory, error) {
	var inv *models.Inventory
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.GetInventory(ctx, productID, warehouseID)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "no inventory for product %d in warehouse %d", productID, warehouseID)
		}
		return nil
	})
	return inv, err
}

func (s *Service) ListInventory(ctx context.Context, productID int64) ([]models.Inventory, error) {
	var records []models.Inventory
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		records, err = tx.ListInventoryByProduct(ctx, productID)
		return err
	})
	return records, err
}

// availableIn treats a missing record as zero available.
func availableIn(ctx context.Context, tx store.Tx, productID, warehouseID int64) (int, error) {
	inv, err := tx.GetInventory(ctx, productID, warehouseID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get inventory: %w", err)
	}
	return CalculateAvailable(inv), nil
}
