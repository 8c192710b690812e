// Package purchasing manages purchase orders from approval to receipt of the
// goods into a warehouse.
package purchasing

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
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreatePurchaseOrderInput struct {
	SupplierID       int64       `json:"supplier_id"`
	ExpectedDelivery *time.Time  `json:"expected_delivery,omitempty"`
	Lines            []LineInput `json:"lines"`
}

type CancellationResult struct {
	PurchaseOrderID int64                      `json:"purchase_order_id"`
	PreviousStatus  models.PurchaseOrderStatus `json:"previous_status"`
	Reason          string                     `json:"reason,omitempty"`
	CancelledAt     time.Time                  `json:"cancelled_at"`
}

type ReceivedLine struct {
	LineID     int64 `json:"line_id"`
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
	MovementID int64 `json:"movement_id"`
}

type ReceiptResult struct {
	PurchaseOrderID int64          `json:"purchase_order_id"`
	WarehouseID     int64          `json:"warehouse_id"`
	Lines           []ReceivedLine `json:"lines"`
	ReceivedAt      time.Time      `json:"received_at"`
}

type LineReception struct {
	LineID    int64 `json:"line_id"`
	ProductID int64 `json:"product_id"`
	Ordered   int   `json:"ordered"`
	Received  int   `json:"received"`
	Pending   int   `json:"pending"`
}

type ReceptionStatus struct {
	PurchaseOrderID int64                      `json:"purchase_order_id"`
	Status          models.PurchaseOrderStatus `json:"status"`
	Complete        bool                       `json:"complete"`
	Lines           []LineReception            `json:"lines"`
}

type LineStock struct {
	LineID    int64 `json:"line_id"`
	ProductID int64 `json:"product_id"`
	Ordered   int   `json:"ordered"`
	OnHand    int   `json:"on_hand"`
	Reserved  int   `json:"reserved"`
	Available int   `json:"available"`
	Covered   bool  `json:"covered"`
}

type StockAvailability struct {
	PurchaseOrderID int64       `json:"purchase_order_id"`
	WarehouseID     int64       `json:"warehouse_id"`
	Lines           []LineStock `json:"lines"`
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

func (s *Service) CreatePurchaseOrder(ctx context.Context, in CreatePurchaseOrderInput) (*models.PurchaseOrder, error) {
	po := &models.PurchaseOrder{
		SupplierID:       in.SupplierID,
		Status:           models.PurchaseOrderPending,
		OrderDate:        s.now(),
		ExpectedDelivery: in.ExpectedDelivery,
	}

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetSupplier(ctx, in.SupplierID); err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "supplier %d not found", in.SupplierID)
		}

		po.Lines = make([]models.PurchaseOrderLine, 0, len(in.Lines))
		for i, line := range in.Lines {
			l, err := validateLine(ctx, tx, line)
			if err != nil {
				return fmt.Errorf("line %d: %w", i, err)
			}
			po.Lines = append(po.Lines, *l)
		}
		return tx.CreatePurchaseOrder(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order created",
		zap.Int64("purchase_order_id", po.ID),
		zap.Int64("supplier_id", po.SupplierID),
		zap.Int("lines", len(po.Lines)),
	)
	return po, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var po *models.PurchaseOrder
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		po, err = getPurchaseOrder(ctx, tx, id)
		return err
	})
	return po, err
}

// AddLine appends a line to a purchase order that is still PENDING.
func (s *Service) AddLine(ctx context.Context, id int64, in LineInput) (*models.PurchaseOrder, error) {
	var po *models.PurchaseOrder
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if po, err = getPending(ctx, tx, id); err != nil {
			return err
		}

		line, err := validateLine(ctx, tx, in)
		if err != nil {
			return err
		}
		line.PurchaseOrderID = po.ID
		if err := tx.AddPurchaseOrderLine(ctx, line); err != nil {
			return fmt.Errorf("add purchase order line: %w", err)
		}
		po.Lines = append(po.Lines, *line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Service) RemoveLine(ctx context.Context, id, lineID int64) (*models.PurchaseOrder, error) {
	var po *models.PurchaseOrder
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if po, err = getPending(ctx, tx, id); err != nil {
			return err
		}

		if err := tx.DeletePurchaseOrderLine(ctx, id, lineID); err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "line %d not found on purchase order %d", lineID, id)
		}
		for i, line := range po.Lines {
			if line.ID == lineID {
				po.Lines = append(po.Lines[:i], po.Lines[i+1:]...)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Service) ApprovePurchaseOrder(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var po *models.PurchaseOrder
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if po, err = getPurchaseOrder(ctx, tx, id); err != nil {
			return err
		}

		if po.Status != models.PurchaseOrderPending {
			return apperr.BusinessRule("purchase order %d cannot be approved: it is %s", po.ID, po.Status)
		}
		if len(po.Lines) == 0 {
			return apperr.BusinessRule("purchase order %d has no lines", po.ID)
		}

		po.Status = models.PurchaseOrderConfirmed
		return updateStatus(ctx, tx, po)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order approved", zap.Int64("purchase_order_id", id))
	return po, nil
}

// CancelPurchaseOrder withdraws an order that has not been delivered. The
// reason is reported back but not stored.
func (s *Service) CancelPurchaseOrder(ctx context.Context, id int64, reason string) (*CancellationResult, error) {
	var result *CancellationResult
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		po, err := getPurchaseOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if po.Status.Terminal() {
			return apperr.BusinessRule("purchase order %d cannot be cancelled: it is %s", po.ID, po.Status)
		}

		result = &CancellationResult{
			PurchaseOrderID: po.ID,
			PreviousStatus:  po.Status,
			Reason:          reason,
			CancelledAt:     s.now(),
		}
		po.Status = models.PurchaseOrderCancelled
		return updateStatus(ctx, tx, po)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order cancelled", zap.Int64("purchase_order_id", id), zap.String("reason", reason))
	return result, nil
}

// ReceiveFullOrder books every line into warehouseID as one inbound receipt
// and marks the order DELIVERED. Any failure leaves stock and order as they
// were.
func (s *Service) ReceiveFullOrder(ctx context.Context, id, warehouseID int64) (*ReceiptResult, error) {
	var (
		result  *ReceiptResult
		pending []events.StockEvent
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		po, err := getPurchaseOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if po.Status.Terminal() {
			return apperr.BusinessRule("purchase order %d cannot be received: it is %s", po.ID, po.Status)
		}
		if len(po.Lines) == 0 {
			return apperr.BusinessRule("purchase order %d has no lines", po.ID)
		}

		inv := s.inventory.InTx(tx)
		ref := inventory.PurchaseOrderRef(po.ID)
		result = &ReceiptResult{PurchaseOrderID: po.ID, WarehouseID: warehouseID, ReceivedAt: s.now()}
		for _, line := range po.Lines {
			movement, err := inv.RecordInbound(ctx, line.ProductID, warehouseID, line.Quantity, ref, "purchase order receipt")
			if err != nil {
				return fmt.Errorf("receive line %d: %w", line.ID, err)
			}
			result.Lines = append(result.Lines, ReceivedLine{
				LineID:     line.ID,
				ProductID:  line.ProductID,
				Quantity:   line.Quantity,
				MovementID: movement.ID,
			})
		}

		po.Status = models.PurchaseOrderDelivered
		if err := updateStatus(ctx, tx, po); err != nil {
			return err
		}
		pending = inv.Events()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.inventory.Publish(ctx, pending)
	s.logger.Info("purchase order received",
		zap.Int64("purchase_order_id", id),
		zap.Int64("warehouse_id", warehouseID),
		zap.Int("lines", len(result.Lines)),
	)
	return result, nil
}

// CheckReceptionStatus reports ordered against received quantities. Receipt
// is all or nothing, so a line counts as received only once the order is
// DELIVERED.
func (s *Service) CheckReceptionStatus(ctx context.Context, id int64) (*ReceptionStatus, error) {
	po, err := s.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	delivered := po.Status == models.PurchaseOrderDelivered
	status := &ReceptionStatus{
		PurchaseOrderID: po.ID,
		Status:          po.Status,
		Complete:        delivered,
		Lines:           make([]LineReception, 0, len(po.Lines)),
	}
	for _, line := range po.Lines {
		received := 0
		if delivered {
			received = line.Quantity
		}
		status.Lines = append(status.Lines, LineReception{
			LineID:    line.ID,
			ProductID: line.ProductID,
			Ordered:   line.Quantity,
			Received:  received,
			Pending:   line.Quantity - received,
		})
	}
	return status, nil
}

func (s *Service) GetStockAvailability(ctx context.Context, id, warehouseID int64) (*StockAvailability, error) {
	var result *StockAvailability
	err := s.store.View(ctx, func(tx store.Tx) error {
		po, err := getPurchaseOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		result = &StockAvailability{
			PurchaseOrderID: po.ID,
			WarehouseID:     warehouseID,
			Lines:           make([]LineStock, 0, len(po.Lines)),
		}
		for _, line := range po.Lines {
			ls := LineStock{LineID: line.ID, ProductID: line.ProductID, Ordered: line.Quantity}
			inv, err := tx.GetInventory(ctx, line.ProductID, warehouseID)
			switch {
			case errors.Is(err, store.ErrNotFound):
			case err != nil:
				return fmt.Errorf("get inventory: %w", err)
			default:
				ls.OnHand = inv.QtyOnHand
				ls.Reserved = inv.QtyReserved
				ls.Available = inventory.CalculateAvailable(inv)
			}
			ls.Covered = ls.Available >= line.Quantity
			result.Lines = append(result.Lines, ls)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateLine(ctx context.Context, tx store.Tx, in LineInput) (*models.PurchaseOrderLine, error) {
	if in.Quantity <= 0 {
		return nil, apperr.InvalidInput("quantity must be positive, got %d", in.Quantity)
	}
	if in.UnitPrice.IsNegative() {
		return nil, apperr.InvalidInput("unit price must not be negative")
	}
	if _, err := tx.GetProduct(ctx, in.ProductID); err != nil {
		return nil, apperr.OrNotFound(err, store.ErrNotFound, "product %d not found", in.ProductID)
	}
	return &models.PurchaseOrderLine{ProductID: in.ProductID, Quantity: in.Quantity, UnitPrice: in.UnitPrice}, nil
}

func getPurchaseOrder(ctx context.Context, tx store.Tx, id int64) (*models.PurchaseOrder, error) {
	po, err := tx.GetPurchaseOrder(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("purchase order %d not found", id)
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	return po, nil
}

func getPending(ctx context.Context, tx store.Tx, id int64) (*models.PurchaseOrder, error) {
	po, err := getPurchaseOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != models.PurchaseOrderPending {
		return nil, apperr.BusinessRule("purchase order %d lines are fixed once it is %s", po.ID, po.Status)
	}
	return po, nil
}

func updateStatus(ctx context.Context, tx store.Tx, po *models.PurchaseOrder) error {
	if err := tx.UpdatePurchaseOrderStatus(ctx, po); err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	return nil
}
