package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-supply-chain/internal/database"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
)

const salesOrderColumns = `id, customer_name, state, warehouse_id, created_at, reserved_at, shipped_at,
	delivered_at, cancelled_at, cancel_reason, version`

const shipmentColumns = `id, sales_order_id, carrier_id, tracking_number, status, shipped_date,
	delivered_date, created_at, version`

func (t *tx) CreatePurchaseOrder(ctx context.Context, po *models.PurchaseOrder) error {
	if err := t.writable(); err != nil {
		return err
	}

	var orderDate interface{}
	if !po.OrderDate.IsZero() {
		orderDate = po.OrderDate
	}

	err := t.tx.QueryRowxContext(ctx,
		`INSERT INTO purchase_orders (supplier_id, status, order_date, expected_delivery, version)
		 VALUES ($1, $2, COALESCE($3, NOW()), $4, 1)
		 RETURNING id, order_date, version`,
		po.SupplierID, po.Status, orderDate, po.ExpectedDelivery).Scan(&po.ID, &po.OrderDate, &po.Version)
	if err != nil {
		return wrap("create purchase order", err)
	}

	for i := range po.Lines {
		po.Lines[i].PurchaseOrderID = po.ID
		if err := t.insertPurchaseOrderLine(ctx, &po.Lines[i]); err != nil {
			return fmt.Errorf("create purchase order line %d: %w", i, err)
		}
	}
	return nil
}

func (t *tx) insertPurchaseOrderLine(ctx context.Context, line *models.PurchaseOrderLine) error {
	return t.tx.QueryRowxContext(ctx,
		`INSERT INTO purchase_order_lines (purchase_order_id, product_id, quantity, unit_price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		line.PurchaseOrderID, line.ProductID, line.Quantity, line.UnitPrice).Scan(&line.ID)
}

func (t *tx) GetPurchaseOrder(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	query := `
		SELECT id, supplier_id, status, order_date, expected_delivery, version
		FROM purchase_orders
		WHERE id = $1` + t.lockClause()

	if err := t.tx.GetContext(ctx, &po, query, id); err != nil {
		return nil, wrap("get purchase order", err)
	}

	po.Lines = []models.PurchaseOrderLine{}
	err := t.tx.SelectContext(ctx, &po.Lines,
		`SELECT id, purchase_order_id, product_id, quantity, unit_price
		 FROM purchase_order_lines
		 WHERE purchase_order_id = $1
		 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase order lines: %w", err)
	}
	return &po, nil
}

func (t *tx) UpdatePurchaseOrderStatus(ctx context.Context, po *models.PurchaseOrder) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx,
		`UPDATE purchase_orders
		 SET status = $1, version = version + 1
		 WHERE id = $2 AND version = $3`,
		po.Status, po.ID, po.Version)
	if err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	if err := expectOne("update purchase order status", result); err != nil {
		return err
	}
	po.Version++
	return nil
}

func (t *tx) AddPurchaseOrderLine(ctx context.Context, line *models.PurchaseOrderLine) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.insertPurchaseOrderLine(ctx, line); err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("add purchase order line: %w", store.ErrNotFound)
		}
		return wrap("add purchase order line", err)
	}
	return nil
}

func (t *tx) DeletePurchaseOrderLine(ctx context.Context, purchaseOrderID, lineID int64) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx,
		`DELETE FROM purchase_order_lines WHERE id = $1 AND purchase_order_id = $2`,
		lineID, purchaseOrderID)
	if err != nil {
		return fmt.Errorf("delete purchase order line: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete purchase order line: %w", store.ErrNotFound)
	}
	return nil
}

func (t *tx) CreateSalesOrder(ctx context.Context, o *models.SalesOrder) error {
	if err := t.writable(); err != nil {
		return err
	}

	err := t.tx.QueryRowxContext(ctx,
		`INSERT INTO sales_orders (customer_name, state, created_at, version)
		 VALUES ($1, $2, NOW(), 1)
		 RETURNING id, created_at, version`,
		o.CustomerName, o.State).Scan(&o.ID, &o.CreatedAt, &o.Version)
	if err != nil {
		return wrap("create sales order", err)
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		line.SalesOrderID = o.ID
		err := t.tx.QueryRowxContext(ctx,
			`INSERT INTO sales_order_lines (sales_order_id, product_id, quantity, reserved_qty, unit_price, backordered)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			line.SalesOrderID, line.ProductID, line.Quantity, line.ReservedQty, line.UnitPrice, line.Backordered).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("create sales order line %d: %w", i, err)
		}
	}
	return nil
}

func (t *tx) GetSalesOrder(ctx context.Context, id int64) (*models.SalesOrder, error) {
	var o models.SalesOrder
	query := `SELECT ` + salesOrderColumns + ` FROM sales_orders WHERE id = $1` + t.lockClause()
	if err := t.tx.GetContext(ctx, &o, query, id); err != nil {
		return nil, wrap("get sales order", err)
	}

	lines, err := t.salesOrderLines(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[id]
	if o.Lines == nil {
		o.Lines = []models.SalesOrderLine{}
	}
	return &o, nil
}

func (t *tx) salesOrderLines(ctx context.Context, orderIDs []int64) (map[int64][]models.SalesOrderLine, error) {
	var lines []models.SalesOrderLine
	err := t.tx.SelectContext(ctx, &lines,
		`SELECT id, sales_order_id, product_id, quantity, reserved_qty, unit_price, backordered
		 FROM sales_order_lines
		 WHERE sales_order_id = ANY($1)
		 ORDER BY sales_order_id, id`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get sales order lines: %w", err)
	}

	grouped := make(map[int64][]models.SalesOrderLine, len(orderIDs))
	for _, line := range lines {
		grouped[line.SalesOrderID] = append(grouped[line.SalesOrderID], line)
	}
	return grouped, nil
}

func (t *tx) UpdateSalesOrder(ctx context.Context, o *models.SalesOrder) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx,
		`UPDATE sales_orders
		 SET state = $1, warehouse_id = $2, reserved_at = $3, shipped_at = $4, delivered_at = $5,
		     cancelled_at = $6, cancel_reason = $7, version = version + 1
		 WHERE id = $8 AND version = $9`,
		o.State, o.WarehouseID, o.ReservedAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt, o.CancelReason, o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("update sales order: %w", err)
	}
	if err := expectOne("update sales order", result); err != nil {
		return err
	}

	for _, line := range o.Lines {
		_, err := t.tx.ExecContext(ctx,
			`UPDATE sales_order_lines SET reserved_qty = $1, backordered = $2 WHERE id = $3 AND sales_order_id = $4`,
			line.ReservedQty, line.Backordered, line.ID, o.ID)
		if err != nil {
			return fmt.Errorf("update sales order line %d: %w", line.ID, err)
		}
	}

	o.Version++
	return nil
}

func (t *tx) ListSalesOrders(ctx context.Context, states []models.SalesOrderState) ([]models.SalesOrder, error) {
	query := `SELECT ` + salesOrderColumns + ` FROM sales_orders`
	var args []interface{}
	if len(states) > 0 {
		names := make([]string, len(states))
		for i, s := range states {
			names[i] = string(s)
		}
		query += ` WHERE state = ANY($1)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY id`

	orders := []models.SalesOrder{}
	if err := t.tx.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	lines, err := t.salesOrderLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (t *tx) CreateShipment(ctx context.Context, s *models.Shipment) error {
	if err := t.writable(); err != nil {
		return err
	}

	query := `
		INSERT INTO shipments (sales_order_id, carrier_id, tracking_number, status, shipped_date, delivered_date, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), 1)
		RETURNING ` + shipmentColumns

	err := t.tx.GetContext(ctx, s, query,
		s.SalesOrderID, s.CarrierID, s.TrackingNumber, s.Status, s.ShippedDate, s.DeliveredDate)
	if err != nil {
		return wrap("create shipment", err)
	}
	return nil
}

func (t *tx) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	var s models.Shipment
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1` + t.lockClause()
	if err := t.tx.GetContext(ctx, &s, query, id); err != nil {
		return nil, wrap("get shipment", err)
	}
	return &s, nil
}

func (t *tx) UpdateShipment(ctx context.Context, s *models.Shipment) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx,
		`UPDATE shipments
		 SET sales_order_id = $1, tracking_number = $2, status = $3, shipped_date = $4,
		     delivered_date = $5, version = version + 1
		 WHERE id = $6 AND version = $7`,
		s.SalesOrderID, s.TrackingNumber, s.Status, s.ShippedDate, s.DeliveredDate, s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	if err := expectOne("update shipment", result); err != nil {
		return err
	}
	s.Version++
	return nil
}
