/**
 * @description
 * This file defines the account domain model and its API-key issuance state.
 * An account is the single shared mutable resource of the service: its balance
 * may only change through the ledger, its key fields only through the key
 * issuer, and its usage counter only through the usage meter.
 *
 * @notes
 * - Monetary values are stored as `int64` in cents (the smallest currency
 *   unit), which avoids floating-point inaccuracies with financial data.
 * - Status and role fields use typed string constants so illegal values are
 *   caught at the boundaries instead of deep inside business logic.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies an account as a regular user or an administrator.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// APIKeyStatus is the admin-controlled block state of an issued key.
// Expiry is derived from APIKeyExpiresAt and never stored here.
type APIKeyStatus string

const (
	APIKeyActive  APIKeyStatus = "active"
	APIKeyBlocked APIKeyStatus = "blocked"
)

// Account maps to the `accounts` table.
type Account struct {
	ID               uuid.UUID    `json:"id"`
	Username         string       `json:"username"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"-"`
	Role             Role         `json:"role"`
	Balance          int64        `json:"balance"` // in cents, never negative
	APIKey           *string      `json:"api_key,omitempty"`
	APIKeyStatus     APIKeyStatus `json:"api_key_status"`
	APIKeyCreatedAt  *time.Time   `json:"api_key_created_at,omitempty"`
	APIKeyExpiresAt  *time.Time   `json:"api_key_expires_at,omitempty"`
	APIKeyUsageCount int64        `json:"api_key_usage_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// HasAPIKey reports whether the account currently holds an issued key.
func (a *Account) HasAPIKey() bool {
	return a.APIKey != nil && *a.APIKey != ""
}

// AccountSummary is the view of an account returned to its owner after
// registration, login, and profile reads. It never carries the credential
// hash or the raw API key.
type AccountSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Balance   int64     `json:"balance"`
	HasAPIKey bool      `json:"has_api_key"`
}

// Summary builds the owner-facing view of the account.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Balance:   a.Balance,
		HasAPIKey: a.HasAPIKey(),
	}
}

// RegisterRequest is the DTO for new account registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the DTO for credential authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APIKeyDetails describes an issued key to its owner.
type APIKeyDetails struct {
	APIKey     string       `json:"api_key"`
	Status     APIKeyStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	UsageCount int64        `json:"usage_count"`
}

// UpdateAccountParams carries the optional admin-editable account fields.
// A balance value routes through the ledger as an adjustment delta; it is
// never written to the row directly.
type UpdateAccountParams struct {
	Balance *int64 `json:"balance,omitempty"` // in cents
	Role    *Role  `json:"role,omitempty"`
}

// APIKeyListItem is one row of the admin key listing.
type APIKeyListItem struct {
	AccountID  uuid.UUID    `json:"account_id"`
	Username   string       `json:"username"`
	Email      string       `json:"email"`
	APIKey     string       `json:"api_key"`
	Status     APIKeyStatus `json:"status"`
	CreatedAt  *time.Time   `json:"created_at,omitempty"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	UsageCount int64        `json:"usage_count"`
}

// APIKeyListOptions controls search, status filtering, and pagination for
// the admin key listing.
type APIKeyListOptions struct {
	Search string
	Status string // "active", "blocked", or "" for all
	Page   int
	Limit  int
}
