/**
 * @description
 * This file contains HTTP handlers for the account-facing API-key endpoints:
 * issuance and silent regeneration, key detail reads, and the account's own
 * usage logs and usage statistics.
 *
 * @dependencies
 * - log, net/http, strconv: Standard Go libraries.
 * - internal/store: For custom error mapping.
 */

package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/quickearn/api-service/internal/store"
)

const defaultUsageLogLimit = 100

// GenerateAPIKeyHandler issues a key for the authenticated account. If a key
// already exists it is silently replaced: the old key stops working, the new
// key starts active with a fresh validity window and a zeroed usage counter.
func (h *Handlers) GenerateAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	details, err := h.service.GenerateAPIKey(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api endpoint=generate_api_key msg=\"key issuance failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to generate API key")
		return
	}

	log.Printf("level=info component=api endpoint=generate_api_key outcome=issued account_id=%s", user.ID)
	h.writeJSON(w, http.StatusCreated, details)
}

// APIKeyHandler returns the authenticated account's current key details.
func (h *Handlers) APIKeyHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	details, err := h.service.APIKeyDetails(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			h.writeError(w, http.StatusNotFound, "No API key has been generated for this account")
			return
		}
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api endpoint=api_key msg=\"key read failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load API key")
		return
	}

	h.writeJSON(w, http.StatusOK, details)
}

// UsageLogsHandler returns the account's recent metered request attempts.
func (h *Handlers) UsageLogsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := defaultUsageLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	logs, err := h.service.UsageLogs(r.Context(), user.ID, limit)
	if err != nil {
		log.Printf("level=error component=api endpoint=usage_logs msg=\"log read failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load usage logs")
		return
	}
	h.writeJSON(w, http.StatusOK, logs)
}

// UsageStatsHandler returns the account's aggregated usage counts.
func (h *Handlers) UsageStatsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	stats, err := h.service.UsageStatsFor(r.Context(), &user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=usage_stats msg=\"stats read failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load usage statistics")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
