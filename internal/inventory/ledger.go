package inventory

import (
	"context"
	"time"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultMovementPageSize = 50
	MaxMovementPageSize     = 200
)

// Ledger is the administrative view of the movement log. Appending or
// deleting entries here never changes inventory balances.
type Ledger struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(st store.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  st,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) CreateMovement(ctx context.Context, m models.Movement) (*models.Movement, error) {
	if m.Quantity <= 0 {
		return nil, apperr.InvalidInput("movement quantity must be positive, got %d", m.Quantity)
	}
	if !m.Type.Valid() {
		return nil, apperr.InvalidInput("unknown movement type %q", m.Type)
	}

	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.GetInventoryByID(ctx, m.InventoryID)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "inventory %d not found", m.InventoryID)
		}

		m.ProductID = inv.ProductID
		m.WarehouseID = inv.WarehouseID
		if m.OccurredAt.IsZero() {
			m.OccurredAt = l.now()
		}
		return tx.CreateMovement(ctx, &m)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("movement appended",
		zap.Int64("movement_id", m.ID),
		zap.Int64("inventory_id", m.InventoryID),
		zap.String("type", string(m.Type)),
		zap.Int("quantity", m.Quantity),
	)
	return &m, nil
}

func (l *Ledger) GetMovement(ctx context.Context, id int64) (*models.Movement, error) {
	var m *models.Movement
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		m, err = tx.GetMovement(ctx, id)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "movement %d not found", id)
		}
		return nil
	})
	return m, err
}

func (l *Ledger) ListByInventory(ctx context.Context, inventoryID int64) ([]models.Movement, error) {
	return l.listAll(ctx, store.MovementFilter{InventoryID: inventoryID})
}

func (l *Ledger) ListByProduct(ctx context.Context, productID int64) ([]models.Movement, error) {
	return l.listAll(ctx, store.MovementFilter{ProductID: productID})
}

func (l *Ledger) ListByWarehouse(ctx context.Context, warehouseID int64) ([]models.Movement, error) {
	return l.listAll(ctx, store.MovementFilter{WarehouseID: warehouseID})
}

func (l *Ledger) ListByType(ctx context.Context, movementType models.MovementType) ([]models.Movement, error) {
	if !movementType.Valid() {
		return nil, apperr.InvalidInput("unknown movement type %q", movementType)
	}
	return l.listAll(ctx, store.MovementFilter{Type: movementType})
}

func (l *Ledger) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Movement, error) {
	if from.After(to) {
		return nil, apperr.InvalidInput("date range start %s is after end %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return l.listAll(ctx, store.MovementFilter{From: &from, To: &to})
}

func (l *Ledger) listAll(ctx context.Context, f store.MovementFilter) ([]models.Movement, error) {
	var movements []models.Movement
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		movements, err = tx.ListMovements(ctx, f)
		return err
	})
	return movements, err
}

// List returns one page of movements, newest first. The next cursor is set
// when more entries follow.
func (l *Ledger) List(ctx context.Context, f store.MovementFilter) (*store.CursorPage, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apperr.InvalidInput("date range start is after end")
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.InvalidInput("unknown movement type %q", f.Type)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultMovementPageSize
	}
	if limit > MaxMovementPageSize {
		limit = MaxMovementPageSize
	}
	f.Limit = limit + 1

	movements, err := l.listAll(ctx, f)
	if err != nil {
		return nil, err
	}

	page := &store.CursorPage{}
	if len(movements) > limit {
		movements = movements[:limit]
		last := movements[limit-1]
		page.HasMore = true
		page.NextCursor = store.EncodeCursor(store.MovementCursor{OccurredAt: last.OccurredAt, ID: last.ID})
	}
	if movements == nil {
		movements = []models.Movement{}
	}
	page.Items = movements
	return page, nil
}

func (l *Ledger) DeleteMovement(ctx context.Context, id int64) error {
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.DeleteMovement(ctx, id); err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "movement %d not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Warn("movement deleted", zap.Int64("movement_id", id))
	return nil
}
