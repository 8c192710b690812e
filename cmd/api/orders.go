package main

import (
	"net/http"

	"github.com/safar/go-supply-chain/internal/models"
	"github.com/safar/go-supply-chain/internal/purchasing"
	"github.com/safar/go-supply-chain/internal/sales"
	"github.com/safar/go-supply-chain/internal/shipping"
)

type warehouseRequest struct {
	WarehouseID int64 `json:"warehouse_id"`
}

type cancelRequest struct {
	Reason      string `json:"reason"`
	WarehouseID int64  `json:"warehouse_id,omitempty"`
}

func (a *api) createSalesOrder(w http.ResponseWriter, r *http.Request) {
	var req sales.CreateOrderInput
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	order, err := a.sales.CreateOrder(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (a *api) listActiveSalesOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.sales.ListActiveOrders(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.SalesOrder{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (a *api) getSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	order, err := a.sales.GetOrder(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (a *api) reserveSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req warehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	summary, err := a.sales.ReserveOrder(r.Context(), id, req.WarehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (a *api) shipSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req warehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	order, err := a.sales.ShipOrder(r.Context(), id, req.WarehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (a *api) deliverSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	order, err := a.sales.DeliverOrder(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (a *api) cancelSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	order, err := a.sales.CancelOrder(r.Context(), id, req.Reason, req.WarehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (a *api) salesOrderAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	warehouseID, err := requireQueryInt64(r, "warehouse_id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	availability, err := a.sales.CheckAvailability(r.Context(), id, warehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, availability)
}

func (a *api) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req purchasing.CreatePurchaseOrderInput
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	po, err := a.purchasing.CreatePurchaseOrder(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, po)
}

func (a *api) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	po, err := a.purchasing.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

func (a *api) addPurchaseOrderLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req purchasing.LineInput
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	po, err := a.purchasing.AddLine(r.Context(), id, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, po)
}

func (a *api) removePurchaseOrderLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	lineID, err := pathID(r, "line_id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	po, err := a.purchasing.RemoveLine(r.Context(), id, lineID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

func (a *api) approvePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	po, err := a.purchasing.ApprovePurchaseOrder(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

func (a *api) cancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	result, err := a.purchasing.CancelPurchaseOrder(r.Context(), id, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *api) receivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req warehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	receipt, err := a.purchasing.ReceiveFullOrder(r.Context(), id, req.WarehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func (a *api) receptionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	status, err := a.purchasing.CheckReceptionStatus(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (a *api) purchaseOrderStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	warehouseID, err := requireQueryInt64(r, "warehouse_id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	stock, err := a.purchasing.GetStockAvailability(r.Context(), id, warehouseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

func (a *api) createShipment(w http.ResponseWriter, r *http.Request) {
	var req shipping.CreateShipmentInput
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	shipment, err := a.shipping.CreateShipment(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, shipment)
}

func (a *api) getShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	shipment, err := a.shipping.GetShipment(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}

func (a *api) updateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Status models.ShipmentStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	shipment, err := a.shipping.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}
