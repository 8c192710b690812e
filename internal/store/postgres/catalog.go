package postgres

import (
	"context"
	"fmt"

	"github.com/safar/go-supply-chain/internal/models"
)

const productColumns = `id, sku, name, description, unit_price, active, created_at, updated_at`

func (t *tx) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		INSERT INTO products (sku, name, description, unit_price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + productColumns

	if err := t.tx.GetContext(ctx, p, query, p.SKU, p.Name, p.Description, p.UnitPrice, p.Active); err != nil {
		return wrap("create product", err)
	}
	return nil
}

func (t *tx) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := t.tx.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id); err != nil {
		return nil, wrap("get product", err)
	}
	return &p, nil
}

func (t *tx) UpdateProduct(ctx context.Context, p *models.Product) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, unit_price = $3, active = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + productColumns

	if err := t.tx.GetContext(ctx, p, query, p.Name, p.Description, p.UnitPrice, p.Active, p.ID); err != nil {
		return wrap("update product", err)
	}
	return nil
}

func (t *tx) ListProducts(ctx context.Context, page, pageSize int) ([]models.Product, int64, error) {
	var total int64
	if err := t.tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM products`); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	products := []models.Product{}
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY id
		LIMIT $1 OFFSET $2`

	if err := t.tx.SelectContext(ctx, &products, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (t *tx) CreateWarehouse(ctx context.Context, w *models.Warehouse) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		INSERT INTO warehouses (code, name, location, active, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, code, name, location, active, created_at`

	if err := t.tx.GetContext(ctx, w, query, w.Code, w.Name, w.Location, w.Active); err != nil {
		return wrap("create warehouse", err)
	}
	return nil
}

func (t *tx) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	var w models.Warehouse
	query := `SELECT id, code, name, location, active, created_at FROM warehouses WHERE id = $1`
	if err := t.tx.GetContext(ctx, &w, query, id); err != nil {
		return nil, wrap("get warehouse", err)
	}
	return &w, nil
}

func (t *tx) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	warehouses := []models.Warehouse{}
	query := `SELECT id, code, name, location, active, created_at FROM warehouses ORDER BY id`
	if err := t.tx.SelectContext(ctx, &warehouses, query); err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	return warehouses, nil
}

func (t *tx) CreateSupplier(ctx context.Context, s *models.Supplier) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		INSERT INTO suppliers (name, email, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, email, created_at`

	if err := t.tx.GetContext(ctx, s, query, s.Name, s.Email); err != nil {
		return wrap("create supplier", err)
	}
	return nil
}

func (t *tx) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var s models.Supplier
	if err := t.tx.GetContext(ctx, &s, `SELECT id, name, email, created_at FROM suppliers WHERE id = $1`, id); err != nil {
		return nil, wrap("get supplier", err)
	}
	return &s, nil
}

func (t *tx) CreateCarrier(ctx context.Context, c *models.Carrier) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		INSERT INTO carriers (name, tracking_url, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, tracking_url, created_at`

	if err := t.tx.GetContext(ctx, c, query, c.Name, c.TrackingURL); err != nil {
		return wrap("create carrier", err)
	}
	return nil
}

func (t *tx) GetCarrier(ctx context.Context, id int64) (*models.Carrier, error) {
	var c models.Carrier
	if err := t.tx.GetContext(ctx, &c, `SELECT id, name, tracking_url, created_at FROM carriers WHERE id = $1`, id); err != nil {
		return nil, wrap("get carrier", err)
	}
	return &c, nil
}
