/**
 * @description
 * This file contains the usage metering logic for the API-key-gated lookup
 * endpoint. Every request attempt — including those rejected for a blocked
 * or expired key — produces exactly one append-only log entry, so abuse
 * against a dead key stays auditable. Successful attempts additionally bump
 * the owning account's usage counter through the repository's atomic
 * increment.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/pkg/videoprovider"
)

// RecordUsage appends one usage log entry and, on success, atomically
// increments the account's usage counter. The two writes are not
// transactionally linked; the counter and the log are eventually consistent
// with each other.
func (s *Service) RecordUsage(ctx context.Context, accountID uuid.UUID, apiKey, query string, meta domain.ClientMeta, outcome domain.UsageOutcome, errorMessage string) error {
	entry := &domain.UsageLogEntry{
		ID:        uuid.New(),
		AccountID: accountID,
		APIKey:    apiKey,
		Query:     query,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		Status:    outcome,
	}
	if errorMessage != "" {
		entry.ErrorMessage = &errorMessage
	}

	if err := s.repo.InsertUsageLog(ctx, entry); err != nil {
		return err
	}
	if outcome == domain.UsageSuccess {
		if err := s.repo.IncrementAPIKeyUsage(ctx, accountID); err != nil {
			return err
		}
	}
	return nil
}

// MeteredLookup is the full metered-endpoint flow: validate the bearer key,
// enforce the per-key rate limit, delegate to the video-resolution provider,
// and record the attempt. Validation failures for a known key are logged
// before the error is returned; the log write is best-effort and never
// suppresses the caller-facing failure.
func (s *Service) MeteredLookup(ctx context.Context, key, query string, meta domain.ClientMeta) (*videoprovider.Result, error) {
	account, err := s.ValidateAPIKey(ctx, key)
	if err != nil {
		if account != nil {
			s.recordBestEffort(ctx, account.ID, key, query, meta, domain.UsageFailed, err.Error())
		}
		return nil, err
	}

	if s.rateLimiter != nil && s.meterLimitPerMinute > 0 {
		count, _, limitErr := s.rateLimiter.ConsumeRateLimit(ctx, "meter", key, s.meterLimitPerMinute, time.Minute)
		if limitErr != nil {
			// Limiter trouble must not take down the endpoint.
			log.Printf("level=warn component=usage msg=\"rate limiter unavailable; allowing request\" err=%v", limitErr)
		} else if count > s.meterLimitPerMinute {
			s.recordBestEffort(ctx, account.ID, key, query, meta, domain.UsageFailed, ErrRateLimited.Error())
			return nil, ErrRateLimited
		}
	}

	result, err := s.provider.Resolve(ctx, query)
	if err != nil {
		message := err.Error()
		if errors.Is(err, videoprovider.ErrUnavailable) {
			message = "video provider unavailable"
		}
		s.recordBestEffort(ctx, account.ID, key, query, meta, domain.UsageFailed, message)
		return nil, err
	}

	if err := s.RecordUsage(ctx, account.ID, key, query, meta, domain.UsageSuccess, ""); err != nil {
		log.Printf("level=warn component=usage msg=\"usage record failed after successful lookup\" account_id=%s err=%v", account.ID, err)
	}
	return result, nil
}

func (s *Service) recordBestEffort(ctx context.Context, accountID uuid.UUID, key, query string, meta domain.ClientMeta, outcome domain.UsageOutcome, errorMessage string) {
	if err := s.RecordUsage(ctx, accountID, key, query, meta, outcome, errorMessage); err != nil {
		log.Printf("level=warn component=usage msg=\"usage record failed\" account_id=%s err=%v", accountID, err)
	}
}

// UsageLogs returns the account's most recent metered request attempts.
func (s *Service) UsageLogs(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.UsageLogEntry, error) {
	return s.repo.FindUsageLogsByAccountID(ctx, accountID, limit)
}

// UsageStatsFor aggregates usage counts for one account, or globally when
// accountID is nil. Pure read; tolerant of concurrent recording.
func (s *Service) UsageStatsFor(ctx context.Context, accountID *uuid.UUID) (*domain.UsageStats, error) {
	return s.repo.UsageStats(ctx, accountID)
}
