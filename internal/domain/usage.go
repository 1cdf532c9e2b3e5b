/**
 * @description
 * This file defines the append-only usage log model and the aggregate views
 * served to dashboards. One entry is written per API-key request attempt,
 * including attempts rejected for a blocked or expired key, so abuse against
 * a dead key stays auditable.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsageOutcome is the terminal result of a metered request attempt.
type UsageOutcome string

const (
	UsageSuccess UsageOutcome = "success"
	UsageFailed  UsageOutcome = "failed"
)

// ClientMeta captures request-level metadata attached to every log entry.
type ClientMeta struct {
	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}

// UsageLogEntry maps to the `usage_logs` table. Entries are never mutated
// after creation.
type UsageLogEntry struct {
	ID           uuid.UUID    `json:"id"`
	AccountID    uuid.UUID    `json:"account_id"`
	APIKey       string       `json:"api_key"`
	Query        string       `json:"query"`
	UserAgent    string       `json:"user_agent"`
	IPAddress    string       `json:"ip_address"`
	Status       UsageOutcome `json:"status"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// DailyUsageBucket is one day of request counts for the trailing window.
type DailyUsageBucket struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// UsageStats aggregates request counts for one account, or globally when no
// account filter is set. Counts are eventually consistent with concurrent
// record calls; they serve observability, not financial correctness.
type UsageStats struct {
	Total       int64              `json:"total"`
	Success     int64              `json:"success"`
	Failed      int64              `json:"failed"`
	Last24Hours int64              `json:"last_24_hours"`
	Daily       []DailyUsageBucket `json:"daily"`
}

// KeyInventoryStats summarizes issued keys for the admin dashboard.
type KeyInventoryStats struct {
	TotalKeys   int64 `json:"total_keys"`
	ActiveKeys  int64 `json:"active_keys"`
	BlockedKeys int64 `json:"blocked_keys"`
}
