package main

import (
	"net/http"
	"strconv"

	"github.com/safar/go-supply-chain/internal/catalog"
)

func (a *api) createProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	product, err := a.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (a *api) listProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := a.catalog.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *api) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	product, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (a *api) setProductActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	product, err := a.catalog.SetProductActive(r.Context(), id, req.Active)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (a *api) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req catalog.WarehouseInput
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	warehouse, err := a.catalog.CreateWarehouse(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, warehouse)
}

func (a *api) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := a.catalog.ListWarehouses(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, warehouses)
}

func (a *api) getWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	warehouse, err := a.catalog.GetWarehouse(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, warehouse)
}

func (a *api) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	supplier, err := a.catalog.CreateSupplier(r.Context(), req.Name, req.Email)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, supplier)
}

func (a *api) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	supplier, err := a.catalog.GetSupplier(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

func (a *api) createCarrier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		TrackingURL string `json:"tracking_url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	carrier, err := a.catalog.CreateCarrier(r.Context(), req.Name, req.TrackingURL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, carrier)
}

func (a *api) getCarrier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	carrier, err := a.catalog.GetCarrier(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, carrier)
}
