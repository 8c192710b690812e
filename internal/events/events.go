// Package events publishes stock change notifications once the transaction
// that produced them has committed.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TypeStockReserved    = "inventory.reserved"
	TypeStockReleased    = "inventory.released"
	TypeMovementRecorded = "inventory.movement_recorded"
)

type StockEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	ProductID    int64     `json:"product_id"`
	WarehouseID  int64     `json:"warehouse_id"`
	Quantity     int       `json:"quantity"`
	QtyOnHand    int       `json:"qty_on_hand"`
	QtyReserved  int       `json:"qty_reserved"`
	MovementID   int64     `json:"movement_id,omitempty"`
	MovementType string    `json:"movement_type,omitempty"`
	ReferenceDoc string    `json:"reference_doc,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewStockEvent(eventType string, productID, warehouseID int64, quantity int) StockEvent {
	return StockEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		OccurredAt:  time.Now().UTC(),
	}
}

// Key partitions events by inventory record.
func (e StockEvent) Key() string {
	return fmt.Sprintf("%d:%d", e.ProductID, e.WarehouseID)
}

type Publisher interface {
	Publish(ctx context.Context, events ...StockEvent) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...StockEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []StockEvent
}

func (r *Recorder) Publish(_ context.Context, events ...StockEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []StockEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StockEvent(nil), r.events...)
}

func (r *Recorder) OfType(eventType string) []StockEvent {
	var matched []StockEvent
	for _, e := range r.Events() {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
