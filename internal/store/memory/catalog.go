package memory

import (
	"context"
	"sort"

	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
)

func (t *tx) CreateProduct(_ context.Context, p *models.Product) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, existing := range t.d.products {
		if existing.SKU == p.SKU {
			return store.ErrDuplicate
		}
	}

	now := t.now()
	p.ID = t.d.nextID("products")
	p.CreatedAt = now
	p.UpdatedAt = now
	t.d.products[p.ID] = *p
	return nil
}

func (t *tx) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := t.d.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *tx) UpdateProduct(_ context.Context, p *models.Product) error {
	if err := t.writable(); err != nil {
		return err
	}
	current, ok := t.d.products[p.ID]
	if !ok {
		return store.ErrNotFound
	}

	p.SKU = current.SKU
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = t.now()
	t.d.products[p.ID] = *p
	return nil
}

func (t *tx) ListProducts(_ context.Context, page, pageSize int) ([]models.Product, int64, error) {
	ids := make([]int64, 0, len(t.d.products))
	for id := range t.d.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := int64(len(ids))
	offset := (page - 1) * pageSize
	if offset >= len(ids) {
		return []models.Product{}, total, nil
	}
	end := offset + pageSize
	if end > len(ids) {
		end = len(ids)
	}

	products := make([]models.Product, 0, end-offset)
	for _, id := range ids[offset:end] {
		products = append(products, t.d.products[id])
	}
	return products, total, nil
}

func (t *tx) CreateWarehouse(_ context.Context, w *models.Warehouse) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, existing := range t.d.warehouses {
		if existing.Code == w.Code {
			return store.ErrDuplicate
		}
	}

	w.ID = t.d.nextID("warehouses")
	w.CreatedAt = t.now()
	t.d.warehouses[w.ID] = *w
	return nil
}

func (t *tx) GetWarehouse(_ context.Context, id int64) (*models.Warehouse, error) {
	w, ok := t.d.warehouses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (t *tx) ListWarehouses(_ context.Context) ([]models.Warehouse, error) {
	warehouses := make([]models.Warehouse, 0, len(t.d.warehouses))
	for _, w := range t.d.warehouses {
		warehouses = append(warehouses, w)
	}
	sort.Slice(warehouses, func(i, j int) bool { return warehouses[i].ID < warehouses[j].ID })
	return warehouses, nil
}

func (t *tx) CreateSupplier(_ context.Context, s *models.Supplier) error {
	if err := t.writable(); err != nil {
		return err
	}
	s.ID = t.d.nextID("suppliers")
	s.CreatedAt = t.now()
	t.d.suppliers[s.ID] = *s
	return nil
}

func (t *tx) GetSupplier(_ context.Context, id int64) (*models.Supplier, error) {
	s, ok := t.d.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (t *tx) CreateCarrier(_ context.Context, c *models.Carrier) error {
	if err := t.writable(); err != nil {
		return err
	}
	c.ID = t.d.nextID("carriers")
	c.CreatedAt = t.now()
	t.d.carriers[c.ID] = *c
	return nil
}

func (t *tx) GetCarrier(_ context.Context, id int64) (*models.Carrier, error) {
	c, ok := t.d.carriers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}
