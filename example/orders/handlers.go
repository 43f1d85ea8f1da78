package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/spanlink/spanlink"
)

// handlers is the HTTP surface of the order service: CRUD routes plus
// the simulation endpoints used to generate demo traffic.
type handlers struct {
	service  *OrderService
	external *ExternalAPIClient
}

func (h *handlers) register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderId}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderId}/status", h.updateStatus).Methods(http.MethodPut)
	api.HandleFunc("/orders/{orderId}", h.cancelOrder).Methods(http.MethodDelete)

	api.HandleFunc("/external/posts/{postId}", h.getPostWithAuthor).Methods(http.MethodGet)

	sim := api.PathPrefix("/simulate").Subrouter()
	sim.HandleFunc("/create-sample-order", h.createSampleOrder).Methods(http.MethodPost)
	sim.HandleFunc("/order-flow", h.simulateOrderFlow).Methods(http.MethodPost)
	sim.HandleFunc("/generate-traffic", h.generateTraffic).Methods(http.MethodPost)
}

func (h *handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "customerId and items are required")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("customerId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStatus(body.Status); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), mux.Vars(r)["orderId"], body.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CancelOrder(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *handlers) getPostWithAuthor(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.Atoi(mux.Vars(r)["postId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "postId must be an integer")
		return
	}

	result, err := h.external.GetPostWithAuthor(r.Context(), postID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// createSampleOrder creates one randomized order through the normal
// service path, kicking off the full async pipeline.
func (h *handlers) createSampleOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CreateOrder(r.Context(), sampleOrderRequest())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	traceID, _ := spanlink.TraceID(r.Context())
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":   order,
		"traceId": traceID,
	})
}

// simulateOrderFlow creates an order and returns immediately; the
// consumers drive it through the pipeline asynchronously.
func (h *handlers) simulateOrderFlow(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CreateOrder(r.Context(), sampleOrderRequest())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	traceID, _ := spanlink.TraceID(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"orderId": order.ID,
		"traceId": traceID,
		"message": "order flow started; watch the linked traces",
	})
}

// generateTraffic creates a burst of sample orders.
func (h *handlers) generateTraffic(w http.ResponseWriter, r *http.Request) {
	count := 5
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "count must be between 1 and 50")
			return
		}
		count = n
	}

	created := make([]string, 0, count)
	for i := 0; i < count; i++ {
		order, err := h.service.CreateOrder(r.Context(), sampleOrderRequest())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("traffic generation order failed")
			continue
		}
		created = append(created, order.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"requested": count,
		"created":   len(created),
		"orderIds":  created,
	})
}

func (h *handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var sampleProducts = []OrderItem{
	{ProductID: "P-1001", ProductName: "Mechanical Keyboard", Price: 129.99},
	{ProductID: "P-1002", ProductName: "USB-C Dock", Price: 89.50},
	{ProductID: "P-1003", ProductName: "27in Monitor", Price: 349.00},
	{ProductID: "P-1004", ProductName: "Webcam", Price: 59.99},
	{ProductID: "P-1005", ProductName: "Desk Mat", Price: 24.95},
}

func sampleOrderRequest() CreateOrderRequest {
	n := 1 + rand.Intn(3)
	items := make([]OrderItem, n)
	for i := range items {
		item := sampleProducts[rand.Intn(len(sampleProducts))]
		item.Quantity = 1 + rand.Intn(3)
		items[i] = item
	}

	customer := 1 + rand.Intn(100)
	return CreateOrderRequest{
		CustomerID:    fmt.Sprintf("C-%03d", customer),
		CustomerEmail: fmt.Sprintf("customer%d@example.com", customer),
		Items:         items,
	}
}
