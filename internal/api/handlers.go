/**
 * @description
 * This file contains the HTTP handlers for the identity and account-facing
 * endpoints: registration, login, profile reads, demo-gateway deposits, and
 * ledger history. Handlers parse incoming requests, call the application
 * service, and translate business errors into HTTP status codes. They act as
 * the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/quickearn/api-service/internal/app"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

const sessionTokenTTL = 24 * time.Hour

// Handlers holds the application service and token secret that handlers use.
type Handlers struct {
	service   *app.Service
	jwtSecret string
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, jwtSecret string) *Handlers {
	return &Handlers{service: service, jwtSecret: jwtSecret}
}

// authResponse is returned from registration and login.
type authResponse struct {
	Token   string                `json:"token"`
	Account domain.AccountSummary `json:"account"`
}

// RegisterHandler handles new account registration.
func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			h.writeError(w, http.StatusConflict, "Username or email is already registered")
			return
		}
		if errors.Is(err, app.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=register msg=\"registration failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to create account")
		return
	}

	token, err := IssueToken(h.jwtSecret, account, sessionTokenTTL)
	if err != nil {
		log.Printf("level=error component=api endpoint=register msg=\"token signing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to create session")
		return
	}

	log.Printf("level=info component=api endpoint=register outcome=created account_id=%s", account.ID)
	h.writeJSON(w, http.StatusCreated, authResponse{Token: token, Account: account.Summary()})
}

// LoginHandler handles credential authentication. Unknown email and wrong
// password produce the same response.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("level=error component=api endpoint=login msg=\"login failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to sign in")
		return
	}

	token, err := IssueToken(h.jwtSecret, account, sessionTokenTTL)
	if err != nil {
		log.Printf("level=error component=api endpoint=login msg=\"token signing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to create session")
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{Token: token, Account: account.Summary()})
}

// MeHandler returns the authenticated account's profile summary.
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	account, err := h.service.Me(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api endpoint=me msg=\"profile read failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load profile")
		return
	}

	h.writeJSON(w, http.StatusOK, account.Summary())
}

// AddBalanceHandler credits the authenticated account through the demo
// payment gateway.
func (h *Handlers) AddBalanceHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.AddBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	change, err := h.service.AddBalance(r.Context(), user.ID, req.Amount, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, app.ErrInvalidAmount) {
			h.writeError(w, http.StatusBadRequest, "Amount must be a positive value")
			return
		}
		log.Printf("level=error component=api endpoint=add_balance msg=\"deposit failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to add balance")
		return
	}

	log.Printf("level=info component=api endpoint=add_balance outcome=credited account_id=%s amount=%d new_balance=%d", user.ID, req.Amount, change.NewBalance)
	h.writeJSON(w, http.StatusOK, change)
}

// TransactionsHandler returns the account's ledger history, newest first.
func (h *Handlers) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	transactions, err := h.service.Transactions(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=transactions msg=\"history read failed\" account_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, transactions)
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

// writeError writes a JSON error envelope.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
