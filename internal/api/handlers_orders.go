/**
 * @description
 * This file contains HTTP handlers for the service catalog and order
 * endpoints. Order placement is the money-moving path: the handler hands the
 * request to the application service, which debits the balance and creates
 * the order atomically, and maps each rejection to its HTTP status.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For route parameters.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickearn/api-service/internal/app"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

// ServicesHandler lists the active service catalog.
func (h *Handlers) ServicesHandler(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ActiveServices(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=services msg=\"catalog read failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load services")
		return
	}
	h.writeJSON(w, http.StatusOK, services)
}

// PlaceOrderHandler handles order placement for the authenticated account.
func (h *Handlers) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), user.ID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=place_order outcome=failed account_id=%s err=%v", user.ID, err)
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, "Insufficient balance for this order")
		case errors.Is(err, store.ErrServiceNotFound):
			h.writeError(w, http.StatusNotFound, "Service not found")
		case errors.Is(err, app.ErrServiceInactive):
			h.writeError(w, http.StatusConflict, "Service is not currently available")
		case errors.Is(err, app.ErrQuantityOutOfRange), errors.Is(err, app.ErrInvalidInput):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Unable to place order")
		}
		return
	}

	log.Printf("level=info component=api endpoint=place_order outcome=created account_id=%s order_id=%s amount=%d", user.ID, order.ID, order.Amount)
	h.writeJSON(w, http.StatusCreated, order)
}

// OrdersHandler lists the authenticated account's orders, newest first.
func (h *Handlers) OrdersHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	orders, err := h.service.Orders(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=orders msg=\"order list failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load orders")
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// OrderHandler returns one order. Non-admin callers may only read their own.
func (h *Handlers) OrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID, user.ID, user.Role)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, app.ErrForbidden):
			h.writeError(w, http.StatusForbidden, "Not authorized to view this order")
		default:
			log.Printf("level=error component=api endpoint=order msg=\"order read failed\" order_id=%s err=%v", orderID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to load order")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}
