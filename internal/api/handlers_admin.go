/**
 * @description
 * This file contains HTTP handlers for the admin panel: the dashboard
 * aggregates, user management, the service catalog, order oversight, the
 * API-key inventory, and global usage statistics. All routes in this file
 * sit behind AdminOnlyMiddleware.
 *
 * @dependencies
 * - encoding/json, log, net/http, strconv: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For route parameters.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickearn/api-service/internal/app"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

const defaultRecentOrderLimit = 100

// AdminDashboardHandler returns the admin overview counters.
func (h *Handlers) AdminDashboardHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_dashboard msg=\"aggregate read failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load dashboard")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// AdminUsersHandler lists all accounts.
func (h *Handlers) AdminUsersHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListUsers(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_users msg=\"account list failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load users")
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// AdminUserDetailHandler returns one account with its recent activity.
func (h *Handlers) AdminUserDetailHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	detail, err := h.service.UserDetail(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api endpoint=admin_user_detail msg=\"detail read failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load user detail")
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// AdminUpdateUserHandler applies admin edits to an account. A balance edit is
// routed through the ledger as an adjustment, never written directly.
func (h *Handlers) AdminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	var params domain.UpdateAccountParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.UpdateUser(r.Context(), accountID, params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrInvalidAmount), errors.Is(err, app.ErrInvalidInput):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=admin_update_user msg=\"user update failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update user")
		}
		return
	}

	log.Printf("level=info component=api endpoint=admin_update_user outcome=updated account_id=%s", accountID)
	h.writeJSON(w, http.StatusOK, account)
}

// AdminServicesHandler lists the full catalog including inactive entries.
func (h *Handlers) AdminServicesHandler(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.AllServices(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_services msg=\"catalog read failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load services")
		return
	}
	h.writeJSON(w, http.StatusOK, services)
}

// AdminCreateServiceHandler adds a catalog entry.
func (h *Handlers) AdminCreateServiceHandler(w http.ResponseWriter, r *http.Request) {
	var params domain.UpsertServiceParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svc, err := h.service.CreateService(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateService):
			h.writeError(w, http.StatusConflict, "A service with this name already exists")
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=admin_create_service msg=\"service create failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Unable to create service")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, svc)
}

// AdminUpdateServiceHandler replaces a catalog entry's mutable fields.
func (h *Handlers) AdminUpdateServiceHandler(w http.ResponseWriter, r *http.Request) {
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid service ID")
		return
	}

	var params domain.UpsertServiceParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svc, err := h.service.UpdateService(r.Context(), serviceID, params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrServiceNotFound):
			h.writeError(w, http.StatusNotFound, "Service not found")
		case errors.Is(err, store.ErrDuplicateService):
			h.writeError(w, http.StatusConflict, "A service with this name already exists")
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=admin_update_service msg=\"service update failed\" service_id=%s err=%v", serviceID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update service")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, svc)
}

// AdminOrdersHandler lists the newest orders across all accounts.
func (h *Handlers) AdminOrdersHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentOrderLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	orders, err := h.service.RecentOrders(r.Context(), limit)
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_orders msg=\"order list failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load orders")
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// AdminUpdateOrderStatusHandler advances an order's fulfillment status.
func (h *Handlers) AdminUpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, app.ErrInvalidTransition), errors.Is(err, app.ErrInvalidInput):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, store.ErrOrderStatusConflict):
			h.writeError(w, http.StatusConflict, "Order status changed concurrently; reload and retry")
		default:
			log.Printf("level=error component=api endpoint=admin_update_order msg=\"status update failed\" order_id=%s err=%v", orderID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update order")
		}
		return
	}

	log.Printf("level=info component=api endpoint=admin_update_order outcome=updated order_id=%s status=%s", orderID, order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

// AdminAPIKeysHandler returns the filtered, paginated key inventory.
func (h *Handlers) AdminAPIKeysHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := domain.APIKeyListOptions{
		Search: query.Get("search"),
		Status: query.Get("status"),
	}
	if raw := query.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			opts.Page = parsed
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			opts.Limit = parsed
		}
	}

	items, total, err := h.service.APIKeyInventory(r.Context(), opts)
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_api_keys msg=\"inventory read failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load API keys")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
	})
}

// AdminToggleAPIKeyHandler flips an account's key between active and blocked.
func (h *Handlers) AdminToggleAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	status, err := h.service.ToggleAPIKeyStatus(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, store.ErrAPIKeyNotFound):
			h.writeError(w, http.StatusNotFound, "Account has no API key")
		default:
			log.Printf("level=error component=api endpoint=admin_toggle_api_key msg=\"toggle failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update API key status")
		}
		return
	}

	log.Printf("level=info component=api endpoint=admin_toggle_api_key outcome=updated account_id=%s status=%s", accountID, status)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// AdminUsageStatsHandler returns global usage aggregates, or one account's
// when the account_id query parameter is present.
func (h *Handlers) AdminUsageStatsHandler(w http.ResponseWriter, r *http.Request) {
	var accountID *uuid.UUID
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid account ID")
			return
		}
		accountID = &parsed
	}

	stats, err := h.service.UsageStatsFor(r.Context(), accountID)
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_usage_stats msg=\"stats read failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load usage statistics")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
