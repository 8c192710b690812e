package memory

import (
	"context"
	"sort"

	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
)

func (t *tx) GetInventory(_ context.Context, productID, warehouseID int64) (*models.Inventory, error) {
	id, ok := t.d.inventoryByKey[inventoryKey{productID: productID, warehouseID: warehouseID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	inv := t.d.inventory[id]
	return &inv, nil
}

func (t *tx) GetInventoryByID(_ context.Context, id int64) (*models.Inventory, error) {
	inv, ok := t.d.inventory[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &inv, nil
}

func (t *tx) ListInventoryByProduct(_ context.Context, productID int64) ([]models.Inventory, error) {
	var records []models.Inventory
	for _, inv := range t.d.inventory {
		if inv.ProductID == productID {
			records = append(records, inv)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].WarehouseID < records[j].WarehouseID })
	return records, nil
}

func (t *tx) CreateInventory(_ context.Context, inv *models.Inventory) error {
	if err := t.writable(); err != nil {
		return err
	}
	key := inventoryKey{productID: inv.ProductID, warehouseID: inv.WarehouseID}
	if _, exists := t.d.inventoryByKey[key]; exists {
		return store.ErrDuplicate
	}

	now := t.now()
	inv.ID = t.d.nextID("inventory")
	inv.Version = 1
	inv.CreatedAt = now
	inv.UpdatedAt = now
	t.d.inventory[inv.ID] = *inv
	t.d.inventoryByKey[key] = inv.ID
	return nil
}

func (t *tx) UpdateInventory(_ context.Context, inv *models.Inventory) error {
	if err := t.writable(); err != nil {
		return err
	}
	current, ok := t.d.inventory[inv.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != inv.Version {
		return store.ErrVersionConflict
	}

	inv.Version++
	inv.UpdatedAt = t.now()
	current.QtyOnHand = inv.QtyOnHand
	current.QtyReserved = inv.QtyReserved
	current.Version = inv.Version
	current.UpdatedAt = inv.UpdatedAt
	t.d.inventory[inv.ID] = current
	return nil
}

func (t *tx) CreateMovement(_ context.Context, m *models.Movement) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.d.inventory[m.InventoryID]; !ok {
		return store.ErrNotFound
	}

	m.ID = t.d.nextID("movements")
	m.CreatedAt = t.now()
	if m.OccurredAt.IsZero() {
		m.OccurredAt = m.CreatedAt
	}
	t.d.movements[m.ID] = *m
	return nil
}

func (t *tx) GetMovement(_ context.Context, id int64) (*models.Movement, error) {
	m, ok := t.d.movements[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (t *tx) ListMovements(_ context.Context, f store.MovementFilter) ([]models.Movement, error) {
	var movements []models.Movement
	for _, m := range t.d.movements {
		if f.Matches(&m) {
			movements = append(movements, m)
		}
	}

	sort.Slice(movements, func(i, j int) bool {
		if movements[i].OccurredAt.Equal(movements[j].OccurredAt) {
			return movements[i].ID > movements[j].ID
		}
		return movements[i].OccurredAt.After(movements[j].OccurredAt)
	})

	if f.Limit > 0 && len(movements) > f.Limit {
		movements = movements[:f.Limit]
	}
	return movements, nil
}

func (t *tx) DeleteMovement(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.d.movements[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.d.movements, id)
	return nil
}
