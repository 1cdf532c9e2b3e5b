/**
 * @description
 * This file contains the handler for the metered, API-key-gated video lookup
 * endpoint. This is the only endpoint authenticated by an issued API key
 * rather than a session token; every attempt against it is recorded by the
 * usage meter, including rejected ones.
 *
 * @dependencies
 * - log, net/http, strings: Standard Go libraries.
 * - internal/app, internal/domain, pkg/videoprovider: For the lookup flow and error mapping.
 */

package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/quickearn/api-service/internal/app"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
	"github.com/quickearn/api-service/pkg/videoprovider"
)

// apiKeyFromRequest extracts the caller's API key. The X-API-Key header is
// preferred; the `key` query parameter is kept for clients that cannot set
// headers.
func apiKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	return strings.TrimSpace(r.URL.Query().Get("key"))
}

// clientMetaFromRequest captures the request metadata stored on usage logs.
func clientMetaFromRequest(r *http.Request) domain.ClientMeta {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client.
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return domain.ClientMeta{
		UserAgent: r.UserAgent(),
		IPAddress: ip,
	}
}

// VideoLookupHandler serves the metered lookup endpoint.
func (h *Handlers) VideoLookupHandler(w http.ResponseWriter, r *http.Request) {
	key := apiKeyFromRequest(r)
	if key == "" {
		h.writeError(w, http.StatusUnauthorized, "API key required")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	result, err := h.service.MeteredLookup(r.Context(), key, query, clientMetaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAPIKeyNotFound):
			h.writeError(w, http.StatusUnauthorized, "Invalid API key")
		case errors.Is(err, app.ErrAPIKeyExpired):
			h.writeError(w, http.StatusUnauthorized, "API key has expired")
		case errors.Is(err, app.ErrAPIKeyBlocked):
			h.writeError(w, http.StatusForbidden, "API key has been blocked")
		case errors.Is(err, app.ErrRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		case errors.Is(err, videoprovider.ErrUnavailable):
			h.writeError(w, http.StatusBadGateway, "Video provider is unavailable")
		default:
			log.Printf("level=error component=api endpoint=video_lookup msg=\"lookup failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Unable to complete lookup")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
