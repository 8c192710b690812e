// Package catalog maintains the reference data the engines work against:
// products, warehouses, suppliers and carriers.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const MaxPageSize = 100

type ProductInput struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Active      *bool           `json:"active,omitempty"`
}

type WarehouseInput struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type Service struct {
	store  store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" {
		return nil, apperr.InvalidInput("product sku and name are required")
	}
	if in.UnitPrice.IsNegative() {
		return nil, apperr.InvalidInput("unit price must not be negative")
	}

	p := &models.Product{
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		UnitPrice:   in.UnitPrice,
		Active:      in.Active == nil || *in.Active,
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateProduct(ctx, p)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.BusinessRule("product sku %q already exists", p.SKU)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.Int64("product_id", p.ID), zap.String("sku", p.SKU))
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p *models.Product
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "product %d not found", id)
		}
		return nil
	})
	return p, err
}

// SetProductActive toggles whether a product may be reserved for sales orders.
func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) (*models.Product, error) {
	var p *models.Product
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "product %d not found", id)
		}
		p.Active = active
		return tx.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product availability changed", zap.Int64("product_id", id), zap.Bool("active", active))
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = 20
	}

	var (
		products []models.Product
		total    int64
	)
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		products, total, err = tx.ListProducts(ctx, page, pageSize)
		return err
	})
	if err != nil {
		return nil, err
	}
	return store.NewOffsetPage(products, total, page, pageSize), nil
}

func (s *Service) CreateWarehouse(ctx context.Context, in WarehouseInput) (*models.Warehouse, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" || strings.TrimSpace(in.Name) == "" {
		return nil, apperr.InvalidInput("warehouse code and name are required")
	}

	w := &models.Warehouse{Code: in.Code, Name: in.Name, Location: in.Location, Active: true}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateWarehouse(ctx, w)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.BusinessRule("warehouse code %q already exists", w.Code)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("warehouse created", zap.Int64("warehouse_id", w.ID), zap.String("code", w.Code))
	return w, nil
}

func (s *Service) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	var w *models.Warehouse
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		w, err = tx.GetWarehouse(ctx, id)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "warehouse %d not found", id)
		}
		return nil
	})
	return w, err
}

func (s *Service) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		warehouses, err = tx.ListWarehouses(ctx)
		return err
	})
	return warehouses, err
}

func (s *Service) CreateSupplier(ctx context.Context, name, email string) (*models.Supplier, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.InvalidInput("supplier name is required")
	}

	supplier := &models.Supplier{Name: name, Email: email}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateSupplier(ctx, supplier)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var supplier *models.Supplier
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		supplier, err = tx.GetSupplier(ctx, id)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "supplier %d not found", id)
		}
		return nil
	})
	return supplier, err
}

func (s *Service) CreateCarrier(ctx context.Context, name, trackingURL string) (*models.Carrier, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.InvalidInput("carrier name is required")
	}

	carrier := &models.Carrier{Name: name, TrackingURL: trackingURL}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateCarrier(ctx, carrier)
	})
	if err != nil {
		return nil, err
	}
	return carrier, nil
}

func (s *Service) GetCarrier(ctx context.Context, id int64) (*models.Carrier, error) {
	var carrier *models.Carrier
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		carrier, err = tx.GetCarrier(ctx, id)
		if err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "carrier %d not found", id)
		}
		return nil
	})
	return carrier, err
}
