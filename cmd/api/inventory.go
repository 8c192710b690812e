package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/safar/go-supply-chain/internal/apperr"
	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/store"
)

type stockRequest struct {
	ProductID    int64  `json:"product_id"`
	WarehouseID  int64  `json:"warehouse_id"`
	Quantity     int    `json:"quantity"`
	ReferenceDoc string `json:"reference_doc"`
	Description  string `json:"description"`
}

type adjustRequest struct {
	ProductID    int64  `json:"product_id"`
	WarehouseID  int64  `json:"warehouse_id"`
	Delta        int    `json:"delta"`
	ReferenceDoc string `json:"reference_doc"`
	Reason       string `json:"reason"`
}

type allocateRequest struct {
	ProductID    int64   `json:"product_id"`
	Quantity     int     `json:"quantity"`
	WarehouseIDs []int64 `json:"warehouse_ids"`
}

type movementRequest struct {
	InventoryID  int64               `json:"inventory_id"`
	Type         models.MovementType `json:"type"`
	Quantity     int                 `json:"quantity"`
	ReferenceDoc string              `json:"reference_doc"`
	Description  string              `json:"description"`
	OccurredAt   *time.Time          `json:"occurred_at,omitempty"`
}

func (a *api) listInventory(w http.ResponseWriter, r *http.Request) {
	productID, err := requireQueryInt64(r, "product_id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	records, err := a.inventory.ListInventory(r.Context(), productID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if records == nil {
		records = []models.Inventory{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (a *api) getInventory(w http.ResponseWriter, r *http.Request) {
	productID, warehouseID, err := stockPair(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	inv, err := a.inventory.GetInventory(r.Context(), productID, warehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (a *api) outOfStock(w http.ResponseWriter, r *http.Request) {
	productID, warehouseID, err := stockPair(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	out, err := a.inventory.IsOutOfStock(r.Context(), productID, warehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"out_of_stock": out})
}

func (a *api) availableQty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	available, err := a.inventory.CalculateAvailableQty(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"available": available})
}

func (a *api) reserveStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	result, err := a.inventory.ReserveStock(r.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.ReferenceDoc)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *api) releaseReservation(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.inventory.ReleaseReservation(r.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.ReferenceDoc); err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *api) recordInbound(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	movement, err := a.inventory.RecordInbound(r.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.ReferenceDoc, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

func (a *api) recordOutbound(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	movement, err := a.inventory.RecordOutbound(r.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.ReferenceDoc, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

func (a *api) fulfillReservation(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	movement, err := a.inventory.FulfillReservation(r.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.ReferenceDoc, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

func (a *api) recordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	movement, err := a.inventory.RecordAdjustment(r.Context(), req.ProductID, req.WarehouseID, req.Delta, req.ReferenceDoc, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

func (a *api) allocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	allocation, err := a.inventory.AllocateFromMultipleWarehouses(r.Context(), req.ProductID, req.Quantity, req.WarehouseIDs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, allocation)
}

func (a *api) createMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	m := models.Movement{
		InventoryID:  req.InventoryID,
		Type:         req.Type,
		Quantity:     req.Quantity,
		ReferenceDoc: req.ReferenceDoc,
		Description:  req.Description,
	}
	if req.OccurredAt != nil {
		m.OccurredAt = req.OccurredAt.UTC()
	}

	movement, err := a.ledger.CreateMovement(r.Context(), m)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

func (a *api) listMovements(w http.ResponseWriter, r *http.Request) {
	filter, err := movementFilter(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	page, err := a.ledger.List(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *api) getMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	movement, err := a.ledger.GetMovement(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, movement)
}

func (a *api) deleteMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.ledger.DeleteMovement(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func stockPair(r *http.Request) (int64, int64, error) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		return 0, 0, err
	}
	warehouseID, err := pathID(r, "warehouse_id")
	if err != nil {
		return 0, 0, err
	}
	return productID, warehouseID, nil
}

func movementFilter(r *http.Request) (store.MovementFilter, error) {
	var (
		f   store.MovementFilter
		err error
	)
	q := r.URL.Query()

	if f.InventoryID, err = queryInt64(r, "inventory_id"); err != nil {
		return f, err
	}
	if f.ProductID, err = queryInt64(r, "product_id"); err != nil {
		return f, err
	}
	if f.WarehouseID, err = queryInt64(r, "warehouse_id"); err != nil {
		return f, err
	}
	f.Type = models.MovementType(q.Get("type"))
	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	if raw := q.Get("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil {
			return f, apperr.InvalidInput("invalid limit %q", raw)
		}
	}
	if f.After, err = store.DecodeCursor(q.Get("cursor")); err != nil {
		return f, apperr.InvalidInput("invalid cursor")
	}
	return f, nil
}
