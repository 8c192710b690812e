package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/go-supply-chain/internal/database"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
)

const inventoryColumns = `id, product_id, warehouse_id, qty_on_hand, qty_reserved, version, created_at, updated_at`

const movementColumns = `id, inventory_id, product_id, warehouse_id, movement_type, quantity,
	qty_before, qty_after, reference_doc, description, occurred_at, created_at`

func (t *tx) GetInventory(ctx context.Context, productID, warehouseID int64) (*models.Inventory, error) {
	var inv models.Inventory
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory
		WHERE product_id = $1 AND warehouse_id = $2` + t.lockClause()

	if err := t.tx.GetContext(ctx, &inv, query, productID, warehouseID); err != nil {
		return nil, wrap("get inventory", err)
	}
	return &inv, nil
}

func (t *tx) GetInventoryByID(ctx context.Context, id int64) (*models.Inventory, error) {
	var inv models.Inventory
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE id = $1` + t.lockClause()

	if err := t.tx.GetContext(ctx, &inv, query, id); err != nil {
		return nil, wrap("get inventory by id", err)
	}
	return &inv, nil
}

// ListInventoryByProduct returns the product's rows in warehouse order. Rows
// are locked in that order so concurrent allocations cannot deadlock.
func (t *tx) ListInventoryByProduct(ctx context.Context, productID int64) ([]models.Inventory, error) {
	records := []models.Inventory{}
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory
		WHERE product_id = $1
		ORDER BY warehouse_id` + t.lockClause()

	if err := t.tx.SelectContext(ctx, &records, query, productID); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return records, nil
}

func (t *tx) CreateInventory(ctx context.Context, inv *models.Inventory) error {
	if err := t.writable(); err != nil {
		return err
	}

	// A concurrent first touch of the same pair waits on the unique index and
	// then inserts nothing, leaving the transaction usable.
	query := `
		INSERT INTO inventory (product_id, warehouse_id, qty_on_hand, qty_reserved, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, NOW(), NOW())
		ON CONFLICT (product_id, warehouse_id) DO NOTHING
		RETURNING ` + inventoryColumns

	err := t.tx.GetContext(ctx, inv, query, inv.ProductID, inv.WarehouseID, inv.QtyOnHand, inv.QtyReserved)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("create inventory: %w", store.ErrDuplicate)
	}
	if err != nil {
		return wrap("create inventory", err)
	}
	return nil
}

func (t *tx) UpdateInventory(ctx context.Context, inv *models.Inventory) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		UPDATE inventory
		SET qty_on_hand = $1, qty_reserved = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
		RETURNING version, updated_at`

	rows, err := t.tx.QueryxContext(ctx, query, inv.QtyOnHand, inv.QtyReserved, inv.ID, inv.Version)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("update inventory: %w", err)
		}
		return fmt.Errorf("update inventory %d: %w: %w", inv.ID, store.ErrVersionConflict, database.ErrOptimisticLockFailed)
	}
	if err := rows.Scan(&inv.Version, &inv.UpdatedAt); err != nil {
		return fmt.Errorf("scan inventory version: %w", err)
	}
	return rows.Err()
}

func (t *tx) CreateMovement(ctx context.Context, m *models.Movement) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		INSERT INTO inventory_movements (inventory_id, product_id, warehouse_id, movement_type, quantity,
			qty_before, qty_after, reference_doc, description, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()), NOW())
		RETURNING ` + movementColumns

	var occurredAt interface{}
	if !m.OccurredAt.IsZero() {
		occurredAt = m.OccurredAt
	}

	err := t.tx.GetContext(ctx, m, query,
		m.InventoryID, m.ProductID, m.WarehouseID, m.Type, m.Quantity,
		m.QtyBefore, m.QtyAfter, m.ReferenceDoc, m.Description, occurredAt)
	if err != nil {
		return wrap("create movement", err)
	}
	return nil
}

func (t *tx) GetMovement(ctx context.Context, id int64) (*models.Movement, error) {
	var m models.Movement
	if err := t.tx.GetContext(ctx, &m, `SELECT `+movementColumns+` FROM inventory_movements WHERE id = $1`, id); err != nil {
		return nil, wrap("get movement", err)
	}
	return &m, nil
}

func (t *tx) ListMovements(ctx context.Context, f store.MovementFilter) ([]models.Movement, error) {
	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.InventoryID != 0 {
		conditions = append(conditions, "inventory_id = "+arg(f.InventoryID))
	}
	if f.ProductID != 0 {
		conditions = append(conditions, "product_id = "+arg(f.ProductID))
	}
	if f.WarehouseID != 0 {
		conditions = append(conditions, "warehouse_id = "+arg(f.WarehouseID))
	}
	if f.Type != "" {
		conditions = append(conditions, "movement_type = "+arg(f.Type))
	}
	if f.From != nil {
		conditions = append(conditions, "occurred_at >= "+arg(*f.From))
	}
	if f.To != nil {
		conditions = append(conditions, "occurred_at <= "+arg(*f.To))
	}
	if f.After != nil {
		conditions = append(conditions, fmt.Sprintf("(occurred_at, id) < (%s, %s)", arg(f.After.OccurredAt), arg(f.After.ID)))
	}

	query := `SELECT ` + movementColumns + ` FROM inventory_movements`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	movements := []models.Movement{}
	if err := t.tx.SelectContext(ctx, &movements, query, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

func (t *tx) DeleteMovement(ctx context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx, `DELETE FROM inventory_movements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete movement: %w", store.ErrNotFound)
	}
	return nil
}
