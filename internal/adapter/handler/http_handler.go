package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/core/service"
	"github.com/ynprojects/logistics/internal/port"
)

// HTTPHandler is the thin JSON surface over the fulfillment engine. All
// business rules live in the services; this layer only decodes, dispatches
// and maps the error taxonomy onto status codes.
type HTTPHandler struct {
	orders    *service.OrderService
	shipments *service.ShipmentService
	store     port.Store
}

func NewHTTPHandler(orders *service.OrderService, shipments *service.ShipmentService, store port.Store) *HTTPHandler {
	return &HTTPHandler{orders: orders, shipments: shipments, store: store}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/production-orders", h.CreateProductionOrder)
	mux.HandleFunc("/api/production-orders/status", h.ChangeProductionOrderStatus)
	mux.HandleFunc("/api/production-orders/reverse", h.ReverseProductionOrder)
	mux.HandleFunc("/api/shipments", h.CreateShipment)
	mux.HandleFunc("/api/shipments/status", h.ChangeShipmentStatus)
	mux.HandleFunc("/api/alerts", h.ListAlerts)
}

const dateLayout = "2006-01-02"

type materialLineRequest struct {
	RawMaterialID int64           `json:"raw_material_id"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type createOrderRequest struct {
	StartDate string                `json:"start_date,omitempty"`
	Materials []materialLineRequest `json:"materials"`
	Output    struct {
		ProductID int64           `json:"product_id"`
		Quantity  decimal.Decimal `json:"quantity"`
	} `json:"output"`
}

func (h *HTTPHandler) CreateProductionOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := service.CreateOrderInput{
		Output: service.ProductOutputInput{ProductID: req.Output.ProductID, Quantity: req.Output.Quantity},
	}
	if req.StartDate != "" {
		d, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		in.StartDate = &d
	}
	for _, m := range req.Materials {
		in.Materials = append(in.Materials, service.MaterialLineInput{
			RawMaterialID: m.RawMaterialID,
			Quantity:      m.Quantity,
		})
	}

	order, err := h.orders.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

type changeOrderStatusRequest struct {
	OrderID      int64                        `json:"order_id"`
	TargetStatus domain.ProductionOrderStatus `json:"target_status"`
}

func (h *HTTPHandler) ChangeProductionOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req changeOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 || req.TargetStatus == "" {
		writeError(w, http.StatusBadRequest, "order_id and target_status are required")
		return
	}

	order, err := h.orders.ChangeStatus(r.Context(), req.OrderID, req.TargetStatus)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type reverseOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

func (h *HTTPHandler) ReverseProductionOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reverseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	order, err := h.orders.Reverse(r.Context(), req.OrderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type createShipmentRequest struct {
	Direction           domain.ShipmentDirection `json:"direction"`
	TransportMode       domain.TransportMode     `json:"transport_mode"`
	Quantity            decimal.Decimal          `json:"quantity"`
	ProductID           *int64                   `json:"product_id,omitempty"`
	RawMaterialID       *int64                   `json:"raw_material_id,omitempty"`
	SupplierID          *int64                   `json:"supplier_id,omitempty"`
	CustomerName        string                   `json:"customer_name,omitempty"`
	TrackingNumber      string                   `json:"tracking_number,omitempty"`
	DepartureDate       string                   `json:"departure_date"`
	EstimateArrivalDate string                   `json:"estimate_arrival_date,omitempty"`
}

func (h *HTTPHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := service.CreateShipmentInput{
		Direction:      req.Direction,
		TransportMode:  req.TransportMode,
		Quantity:       req.Quantity,
		ProductID:      req.ProductID,
		RawMaterialID:  req.RawMaterialID,
		SupplierID:     req.SupplierID,
		CustomerName:   req.CustomerName,
		TrackingNumber: req.TrackingNumber,
	}
	if req.DepartureDate != "" {
		d, err := time.Parse(dateLayout, req.DepartureDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid departure_date, expected YYYY-MM-DD")
			return
		}
		in.DepartureDate = d
	}
	if req.EstimateArrivalDate != "" {
		d, err := time.Parse(dateLayout, req.EstimateArrivalDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid estimate_arrival_date, expected YYYY-MM-DD")
			return
		}
		in.EstimateArrivalDate = &d
	}

	shipment, err := h.shipments.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shipment)
}

type changeShipmentStatusRequest struct {
	ShipmentID   int64                 `json:"shipment_id"`
	TargetStatus domain.ShipmentStatus `json:"target_status"`
}

func (h *HTTPHandler) ChangeShipmentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req changeShipmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShipmentID == 0 || req.TargetStatus == "" {
		writeError(w, http.StatusBadRequest, "shipment_id and target_status are required")
		return
	}

	shipment, err := h.shipments.ChangeStatus(r.Context(), req.ShipmentID, req.TargetStatus)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *HTTPHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	alerts, err := h.store.ListAlerts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIllegalTransition), errors.Is(err, domain.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
