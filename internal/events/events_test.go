package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNewStockEvent(t *testing.T) {
	e := NewStockEvent(TypeStockReserved, 7, 3, 12)

	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("event id %q is not a uuid: %v", e.ID, err)
	}
	if e.Key() != "7:3" {
		t.Errorf("Key() = %q, want 7:3", e.Key())
	}
	if e.OccurredAt.IsZero() {
		t.Error("OccurredAt should be set")
	}
}

func TestNewMessage(t *testing.T) {
	e := NewStockEvent(TypeMovementRecorded, 1, 2, 5)
	e.MovementType = "INBOUND"
	e.ReferenceDoc = "PO-9"

	msg, err := newMessage(e)
	if err != nil {
		t.Fatalf("newMessage: %v", err)
	}
	if string(msg.Key) != "1:2" {
		t.Errorf("key = %q, want 1:2", msg.Key)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event-type"] != TypeMovementRecorded {
		t.Errorf("event-type header = %q", headers["event-type"])
	}
	if headers["event-id"] != e.ID {
		t.Errorf("event-id header = %q, want %q", headers["event-id"], e.ID)
	}

	var decoded StockEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if decoded.ReferenceDoc != "PO-9" || decoded.Quantity != 5 {
		t.Errorf("decoded event = %+v", decoded)
	}
}

func TestKafkaPublisherSkipsEmptyBatch(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "stock-events")
	defer p.Close()

	if err := p.Publish(context.Background()); err != nil {
		t.Errorf("empty publish should be a no-op, got %v", err)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	r.Publish(ctx, NewStockEvent(TypeStockReserved, 1, 1, 2), NewStockEvent(TypeStockReleased, 1, 1, 2))
	r.Publish(ctx, NewStockEvent(TypeStockReserved, 2, 1, 1))

	if got := len(r.Events()); got != 3 {
		t.Fatalf("recorded %d events, want 3", got)
	}
	if got := len(r.OfType(TypeStockReserved)); got != 2 {
		t.Errorf("recorded %d reserved events, want 2", got)
	}

	r.Reset()
	if len(r.Events()) != 0 {
		t.Error("Reset should drop recorded events")
	}
}
