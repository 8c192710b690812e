package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/safar/go-supply-chain/internal/apperr"
	"go.uber.org/zap"
)

func newRouter(a *api) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(a.logger))

	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/products", a.createProduct).Methods(http.MethodPost)
	router.HandleFunc("/products", a.listProducts).Methods(http.MethodGet)
	router.HandleFunc("/products/{id:[0-9]+}", a.getProduct).Methods(http.MethodGet)
	router.HandleFunc("/products/{id:[0-9]+}/active", a.setProductActive).Methods(http.MethodPut)
	router.HandleFunc("/warehouses", a.createWarehouse).Methods(http.MethodPost)
	router.HandleFunc("/warehouses", a.listWarehouses).Methods(http.MethodGet)
	router.HandleFunc("/warehouses/{id:[0-9]+}", a.getWarehouse).Methods(http.MethodGet)
	router.HandleFunc("/suppliers", a.createSupplier).Methods(http.MethodPost)
	router.HandleFunc("/suppliers/{id:[0-9]+}", a.getSupplier).Methods(http.MethodGet)
	router.HandleFunc("/carriers", a.createCarrier).Methods(http.MethodPost)
	router.HandleFunc("/carriers/{id:[0-9]+}", a.getCarrier).Methods(http.MethodGet)

	router.HandleFunc("/inventory", a.listInventory).Methods(http.MethodGet)
	router.HandleFunc("/inventory/records/{id:[0-9]+}/available", a.availableQty).Methods(http.MethodGet)
	router.HandleFunc("/inventory/{product_id:[0-9]+}/{warehouse_id:[0-9]+}", a.getInventory).Methods(http.MethodGet)
	router.HandleFunc("/inventory/{product_id:[0-9]+}/{warehouse_id:[0-9]+}/out-of-stock", a.outOfStock).Methods(http.MethodGet)
	router.HandleFunc("/inventory/reserve", a.reserveStock).Methods(http.MethodPost)
	router.HandleFunc("/inventory/release", a.releaseReservation).Methods(http.MethodPost)
	router.HandleFunc("/inventory/inbound", a.recordInbound).Methods(http.MethodPost)
	router.HandleFunc("/inventory/outbound", a.recordOutbound).Methods(http.MethodPost)
	router.HandleFunc("/inventory/fulfill", a.fulfillReservation).Methods(http.MethodPost)
	router.HandleFunc("/inventory/adjust", a.recordAdjustment).Methods(http.MethodPost)
	router.HandleFunc("/inventory/allocate", a.allocate).Methods(http.MethodPost)

	router.HandleFunc("/movements", a.createMovement).Methods(http.MethodPost)
	router.HandleFunc("/movements", a.listMovements).Methods(http.MethodGet)
	router.HandleFunc("/movements/{id:[0-9]+}", a.getMovement).Methods(http.MethodGet)
	router.HandleFunc("/movements/{id:[0-9]+}", a.deleteMovement).Methods(http.MethodDelete)

	router.HandleFunc("/sales-orders", a.createSalesOrder).Methods(http.MethodPost)
	router.HandleFunc("/sales-orders", a.listActiveSalesOrders).Methods(http.MethodGet)
	router.HandleFunc("/sales-orders/{id:[0-9]+}", a.getSalesOrder).Methods(http.MethodGet)
	router.HandleFunc("/sales-orders/{id:[0-9]+}/reserve", a.reserveSalesOrder).Methods(http.MethodPost)
	router.HandleFunc("/sales-orders/{id:[0-9]+}/ship", a.shipSalesOrder).Methods(http.MethodPost)
	router.HandleFunc("/sales-orders/{id:[0-9]+}/deliver", a.deliverSalesOrder).Methods(http.MethodPost)
	router.HandleFunc("/sales-orders/{id:[0-9]+}/cancel", a.cancelSalesOrder).Methods(http.MethodPost)
	router.HandleFunc("/sales-orders/{id:[0-9]+}/availability", a.salesOrderAvailability).Methods(http.MethodGet)

	router.HandleFunc("/purchase-orders", a.createPurchaseOrder).Methods(http.MethodPost)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}", a.getPurchaseOrder).Methods(http.MethodGet)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}/lines", a.addPurchaseOrderLine).Methods(http.MethodPost)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}/lines/{line_id:[0-9]+}", a.removePurchaseOrderLine).Methods(http.MethodDelete)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}/approve", a.approvePurchaseOrder).Methods(http.MethodPost)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}/cancel", a.cancelPurchaseOrder).Methods(http.MethodPost)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}/receive", a.receivePurchaseOrder).Methods(http.MethodPost)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}/reception", a.receptionStatus).Methods(http.MethodGet)
	router.HandleFunc("/purchase-orders/{id:[0-9]+}/stock", a.purchaseOrderStock).Methods(http.MethodGet)

	router.HandleFunc("/shipments", a.createShipment).Methods(http.MethodPost)
	router.HandleFunc("/shipments/{id:[0-9]+}", a.getShipment).Methods(http.MethodGet)
	router.HandleFunc("/shipments/{id:[0-9]+}/status", a.updateShipmentStatus).Methods(http.MethodPut)

	return router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindBusinessRule:
		return http.StatusConflict
	case apperr.KindStockUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status of its kind. Unclassified errors are logged
// and reported without detail.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, status, "internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.InvalidInput("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("invalid %s %q", name, mux.Vars(r)[name])
	}
	return id, nil
}

// queryInt64 returns 0 when the parameter is absent.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apperr.InvalidInput("invalid %s %q", name, raw)
	}
	return v, nil
}

func requireQueryInt64(r *http.Request, name string) (int64, error) {
	v, err := queryInt64(r, name)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, apperr.InvalidInput("%s is required", name)
	}
	return v, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.InvalidInput("invalid %s %q: want RFC3339", name, raw)
	}
	return &t, nil
}
