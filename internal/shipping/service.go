// Package shipping tracks shipments through their carrier lifecycle.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
	"go.uber.org/zap"
)

var transitions = map[models.ShipmentStatus][]models.ShipmentStatus{
	models.ShipmentPlanned:   {models.ShipmentInTransit, models.ShipmentCancelled},
	models.ShipmentInTransit: {models.ShipmentDelivered},
}

// CanTransition reports whether a shipment may move from one status to the other.
func CanTransition(from, to models.ShipmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validStatus(s models.ShipmentStatus) bool {
	switch s {
	case models.ShipmentPlanned, models.ShipmentInTransit, models.ShipmentDelivered, models.ShipmentCancelled:
		return true
	}
	return false
}

type CreateShipmentInput struct {
	SalesOrderID   *int64 `json:"sales_order_id,omitempty"`
	CarrierID      int64  `json:"carrier_id"`
	TrackingNumber string `json:"tracking_number"`
}

type Service struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateShipment(ctx context.Context, in CreateShipmentInput) (*models.Shipment, error) {
	shipment := &models.Shipment{
		SalesOrderID:   in.SalesOrderID,
		CarrierID:      in.CarrierID,
		TrackingNumber: in.TrackingNumber,
		Status:         models.ShipmentPlanned,
	}

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCarrier(ctx, in.CarrierID); err != nil {
			return apperr.OrNotFound(err, store.ErrNotFound, "carrier %d not found", in.CarrierID)
		}
		if in.SalesOrderID != nil {
			if _, err := tx.GetSalesOrder(ctx, *in.SalesOrderID); err != nil {
				return apperr.OrNotFound(err, store.ErrNotFound, "sales order %d not found", *in.SalesOrderID)
			}
		}
		return tx.CreateShipment(ctx, shipment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment planned", zap.Int64("shipment_id", shipment.ID), zap.Int64("carrier_id", shipment.CarrierID))
	return shipment, nil
}

func (s *Service) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	var shipment *models.Shipment
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		shipment, err = getShipment(ctx, tx, id)
		return err
	})
	return shipment, err
}

// UpdateStatus moves the shipment along PLANNED -> IN_TRANSIT -> DELIVERED,
// or PLANNED -> CANCELLED, stamping the shipped and delivered dates.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status models.ShipmentStatus) (*models.Shipment, error) {
	if !validStatus(status) {
		return nil, apperr.InvalidInput("unknown shipment status %q", status)
	}

	var shipment *models.Shipment
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if shipment, err = getShipment(ctx, tx, id); err != nil {
			return err
		}
		if !CanTransition(shipment.Status, status) {
			return apperr.BusinessRule("shipment %d cannot move from %s to %s", shipment.ID, shipment.Status, status)
		}

		now := s.now()
		switch status {
		case models.ShipmentInTransit:
			shipment.ShippedDate = &now
		case models.ShipmentDelivered:
			shipment.DeliveredDate = &now
		}
		shipment.Status = status

		if err := tx.UpdateShipment(ctx, shipment); err != nil {
			return fmt.Errorf("update shipment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment status changed", zap.Int64("shipment_id", id), zap.String("status", string(status)))
	return shipment, nil
}

func getShipment(ctx context.Context, tx store.Tx, id int64) (*models.Shipment, error) {
	shipment, err := tx.GetShipment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("shipment %d not found", id)
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return shipment, nil
}
