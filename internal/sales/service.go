// Package sales drives sales orders through reservation, shipment and
// delivery against warehouse stock.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/events"
	"github.com/safar/go-supply-chain/internal/inventory"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LineInput struct {
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type CreateOrderInput struct {
	CustomerName string      `json:"customer_name"`
	Lines        []LineInput `json:"lines"`
}

type BackorderDetail struct {
	LineID    int64 `json:"line_id"`
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Reserved  int   `json:"reserved"`
	Shortage  int   `json:"shortage"`
}

type ReservationSummary struct {
	OrderID       int64             `json:"order_id"`
	FullyReserved bool              `json:"fully_reserved"`
	Backorders    []BackorderDetail `json:"backorders"`
}

type LineAvailability struct {
	LineID    int64 `json:"line_id"`
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
	Covered   bool  `json:"covered"`
}

type Availability struct {
	OrderID         int64              `json:"order_id"`
	WarehouseID     int64              `json:"warehouse_id"`
	CanFullyReserve bool               `json:"can_fully_reserve"`
	Lines           []LineAvailability `json:"lines"`
}

type Service struct {
	store     store.Store
	inventory *inventory.Service
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(st store.Store, inv *inventory.Service, logger *zap.Logger) *Service {
	return &Service{
		store:     st,
		inventory: inv,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.SalesOrder, error) {
	if len(in.Lines) == 0 {
		return nil, apperr.InvalidInput("sales order needs at least one line")
	}

	order := &models.SalesOrder{CustomerName: in.CustomerName, State: models.SalesOrderCreated}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		order.Lines = make([]models.SalesOrderLine, 0, len(in.Lines))
		for i, line := range in.Lines {
			if line.Quantity <= 0 {
				return apperr.InvalidInput("line %d: quantity must be positive, got %d", i, line.Quantity)
			}
			product, err := tx.GetProduct(ctx, line.ProductID)
			if err != nil {
				return apperr.OrNotFound(err, store.ErrNotFound, "line %d: product %d not found", i, line.ProductID)
			}

			price := product.UnitPrice
			if line.UnitPrice != nil {
				if line.UnitPrice.IsNegative() {
					return apperr.InvalidInput("line %d: unit price must not be negative", i)
				}
				price = *line.UnitPrice
			}
			order.Lines = append(order.Lines, models.SalesOrderLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: price,
			})
		}
		return tx.CreateSalesOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sales order created", zap.Int64("order_id", order.ID), zap.Int("lines", len(order.Lines)))
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*models.SalesOrder, error) {
	var order *models.SalesOrder
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	return order, err
}

// ListActiveOrders returns orders that are still in the workflow.
func (s *Service) ListActiveOrders(ctx context.Context) ([]models.SalesOrder, error) {
	var orders []models.SalesOrder
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		orders, err = tx.ListSalesOrders(ctx, []models.SalesOrderState{
			models.SalesOrderCreated,
			models.SalesOrderReserved,
			models.SalesOrderShipped,
		})
		return err
	})
	return orders, err
}

// ReserveOrder reserves every line in warehouseID. Lines that cannot be
// covered in full are marked backordered and keep whatever was reserved; the
// order moves to RESERVED either way. An inactive product aborts the whole
// attempt.
func (s *Service) ReserveOrder(ctx context.Context, orderID, warehouseID int64) (*ReservationSummary, error) {
	var summary *ReservationSummary
	err := s.mutate(ctx, orderID, func(tx store.Tx, inv *inventory.Tx, order *models.SalesOrder) error {
		if order.State != models.SalesOrderCreated {
			return apperr.BusinessRule("sales order %d cannot be reserved: it is %s", order.ID, order.State)
		}

		summary = &ReservationSummary{OrderID: order.ID, Backorders: []BackorderDetail{}}
		for i := range order.Lines {
			line := &order.Lines[i]

			product, err := tx.GetProduct(ctx, line.ProductID)
			if err != nil {
				return apperr.OrNotFound(err, store.ErrNotFound, "product %d not found", line.ProductID)
			}
			if !product.Active {
				return apperr.BusinessRule("product %d (%s) is inactive", product.ID, product.SKU)
			}

			available, err := inv.Available(ctx, line.ProductID, warehouseID)
			if err != nil {
				return err
			}
			ref := inventory.SalesOrderRef(order.ID)
			if available < line.Quantity {
				ref = inventory.SalesOrderPartialRef(order.ID)
			}

			result, err := inv.ReserveStock(ctx, line.ProductID, warehouseID, line.Quantity, ref)
			if err != nil {
				// ReserveStock reports shortfalls in its result and does not
				// return StockUnavailable; should it, the line is a full shortfall.
				if !apperr.IsKind(err, apperr.KindStockUnavailable) {
					return fmt.Errorf("reserve line %d: %w", line.ID, err)
				}
				result = inventory.ReservationResult{RequestedQty: line.Quantity, Shortage: line.Quantity}
			}

			line.ReservedQty = result.ReservedQty
			line.Backordered = result.Shortage > 0
			if line.Backordered {
				summary.Backorders = append(summary.Backorders, BackorderDetail{
					LineID:    line.ID,
					ProductID: line.ProductID,
					Requested: result.RequestedQty,
					Reserved:  result.ReservedQty,
					Shortage:  result.Shortage,
				})
			}
		}

		now := s.now()
		order.State = models.SalesOrderReserved
		order.WarehouseID = &warehouseID
		order.ReservedAt = &now
		summary.FullyReserved = len(summary.Backorders) == 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sales order reserved",
		zap.Int64("order_id", orderID),
		zap.Int64("warehouse_id", warehouseID),
		zap.Bool("fully_reserved", summary.FullyReserved),
		zap.Int("backorders", len(summary.Backorders)),
	)
	return summary, nil
}

// ShipOrder moves the stock of every non-backordered line out of the
// warehouse the order was reserved in. warehouseID may be zero; any other
// value must name that warehouse. Backordered lines stay behind with their
// partial reservation.
func (s *Service) ShipOrder(ctx context.Context, orderID, warehouseID int64) (*models.SalesOrder, error) {
	return s.transition(ctx, orderID, func(tx store.Tx, inv *inventory.Tx, order *models.SalesOrder) error {
		if order.State != models.SalesOrderReserved {
			return apperr.BusinessRule("sales order %d cannot be shipped: it is %s", order.ID, order.State)
		}
		warehouseID, err := reservedWarehouse(order, warehouseID)
		if err != nil {
			return err
		}

		ref := inventory.SalesOrderRef(order.ID)
		for i := range order.Lines {
			line := &order.Lines[i]
			if line.Backordered {
				continue
			}
			if _, err := inv.Ship(ctx, line.ProductID, warehouseID, line.Quantity, ref, "sales order shipment"); err != nil {
				return fmt.Errorf("ship line %d: %w", line.ID, err)
			}
			line.ReservedQty = 0
		}

		now := s.now()
		order.State = models.SalesOrderShipped
		order.ShippedAt = &now
		return nil
	})
}

func (s *Service) DeliverOrder(ctx context.Context, orderID int64) (*models.SalesOrder, error) {
	return s.transition(ctx, orderID, func(_ store.Tx, _ *inventory.Tx, order *models.SalesOrder) error {
		if order.State != models.SalesOrderShipped {
			return apperr.BusinessRule("sales order %d cannot be delivered: it is %s", order.ID, order.State)
		}

		now := s.now()
		order.State = models.SalesOrderDelivered
		order.DeliveredAt = &now
		return nil
	})
}

// CancelOrder withdraws an order that has not shipped. Reserved quantities
// are released line by line from the reserving warehouse; a line that fails
// to release is logged and skipped. The order is kept in CANCELLED state.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, reason string, warehouseID int64) (*models.SalesOrder, error) {
	return s.transition(ctx, orderID, func(_ store.Tx, inv *inventory.Tx, order *models.SalesOrder) error {
		switch order.State {
		case models.SalesOrderShipped, models.SalesOrderDelivered, models.SalesOrderCancelled:
			return apperr.BusinessRule("sales order %d cannot be cancelled: it is %s", order.ID, order.State)
		}

		if order.State == models.SalesOrderReserved {
			warehouseID, err := reservedWarehouse(order, warehouseID)
			if err != nil {
				return err
			}

			ref := inventory.SalesOrderCancelRef(order.ID)
			for i := range order.Lines {
				line := &order.Lines[i]
				if line.ReservedQty == 0 {
					continue
				}
				if err := inv.ReleaseReservation(ctx, line.ProductID, warehouseID, line.ReservedQty, ref); err != nil {
					// Store failures abort the cancel; rule errors are stock drift.
					if apperr.KindOf(err) == apperr.KindUnknown {
						return fmt.Errorf("release line %d: %w", line.ID, err)
					}
					s.logger.Warn("release on cancel failed",
						zap.Int64("order_id", order.ID),
						zap.Int64("line_id", line.ID),
						zap.Int("quantity", line.ReservedQty),
						zap.Error(err),
					)
					continue
				}
				line.ReservedQty = 0
			}
		}

		now := s.now()
		order.State = models.SalesOrderCancelled
		order.CancelledAt = &now
		order.CancelReason = reason
		return nil
	})
}

func (s *Service) CheckAvailability(ctx context.Context, orderID, warehouseID int64) (*Availability, error) {
	result := &Availability{OrderID: orderID, WarehouseID: warehouseID, CanFullyReserve: true}
	err := s.store.View(ctx, func(tx store.Tx) error {
		order, err := getOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		inv := s.inventory.InTx(tx)
		result.Lines = make([]LineAvailability, 0, len(order.Lines))
		for _, line := range order.Lines {
			available, err := inv.Available(ctx, line.ProductID, warehouseID)
			if err != nil {
				return err
			}
			covered := available >= line.Quantity
			if !covered {
				result.CanFullyReserve = false
			}
			result.Lines = append(result.Lines, LineAvailability{
				LineID:    line.ID,
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: max(available, 0),
				Covered:   covered,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type mutation func(tx store.Tx, inv *inventory.Tx, order *models.SalesOrder) error

func (s *Service) transition(ctx context.Context, orderID int64, fn mutation) (*models.SalesOrder, error) {
	var order *models.SalesOrder
	err := s.mutate(ctx, orderID, func(tx store.Tx, inv *inventory.Tx, o *models.SalesOrder) error {
		if err := fn(tx, inv, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sales order updated", zap.Int64("order_id", order.ID), zap.String("state", string(order.State)))
	return order, nil
}

// mutate loads the order, applies fn and saves the order in one transaction.
// Stock events are published after commit.
func (s *Service) mutate(ctx context.Context, orderID int64, fn mutation) error {
	var pending []events.StockEvent
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		order, err := getOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		inv := s.inventory.InTx(tx)
		if err := fn(tx, inv, order); err != nil {
			return err
		}
		if err := tx.UpdateSalesOrder(ctx, order); err != nil {
			return fmt.Errorf("update sales order: %w", err)
		}
		pending = inv.Events()
		return nil
	})
	if err != nil {
		return err
	}

	s.inventory.Publish(ctx, pending)
	return nil
}

// reservedWarehouse resolves the warehouse ship and cancel act on. Zero means
// the one recorded at reservation.
func reservedWarehouse(order *models.SalesOrder, requested int64) (int64, error) {
	if order.WarehouseID == nil {
		return requested, nil
	}
	if requested != 0 && requested != *order.WarehouseID {
		return 0, apperr.BusinessRule("sales order %d was reserved in warehouse %d, not %d",
			order.ID, *order.WarehouseID, requested)
	}
	return *order.WarehouseID, nil
}

func getOrder(ctx context.Context, tx store.Tx, orderID int64) (*models.SalesOrder, error) {
	order, err := tx.GetSalesOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("sales order %d not found", orderID)
		}
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	return order, nil
}
