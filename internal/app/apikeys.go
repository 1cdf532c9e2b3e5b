/**
 * @description
 * This file contains the API-key issuance logic: generating, rotating,
 * validating, and blocking the one active key each account may hold.
 *
 * Keys are 16 bytes of crypto/rand hex (128 bits of entropy). Global
 * uniqueness is enforced by the database's partial unique index; generation
 * retries once with fresh randomness on the astronomically unlikely
 * collision. Regenerating always installs a new key, resets the block state
 * to active, and invalidates the previous key immediately — there is no
 * grace period.
 */

package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/internal/store"
)

// newAPIKey produces an opaque 32-character hex token with 128 bits of
// entropy, the storefront's wire-stable key format.
func newAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read key randomness: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateAPIKey issues a fresh key for the account, overwriting any prior
// key. The usage counter resets with the key.
func (s *Service) GenerateAPIKey(ctx context.Context, accountID uuid.UUID) (*domain.APIKeyDetails, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	rotated := account.HasAPIKey()

	now := time.Now().UTC()
	expiresAt := now.Add(s.apiKeyValidity)

	var lastErr error
	for attempt := 0; attempt < apiKeyGenerateAttempts; attempt++ {
		key, err := newAPIKey()
		if err != nil {
			return nil, err
		}
		err = s.repo.SetAccountAPIKey(ctx, accountID, key, now, expiresAt)
		if err == nil {
			s.publishEvent(ctx, "apikey.issued", domain.APIKeyIssuedEvent{
				AccountID: accountID,
				ExpiresAt: expiresAt,
				Rotated:   rotated,
			})
			return &domain.APIKeyDetails{
				APIKey:    key,
				Status:    domain.APIKeyActive,
				CreatedAt: now,
				ExpiresAt: expiresAt,
			}, nil
		}
		if !errors.Is(err, store.ErrDuplicateAPIKey) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// APIKeyDetails returns the caller's current key, or ErrAPIKeyNotFound when
// none has been issued.
func (s *Service) APIKeyDetails(ctx context.Context, accountID uuid.UUID) (*domain.APIKeyDetails, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.HasAPIKey() {
		return nil, store.ErrAPIKeyNotFound
	}

	details := &domain.APIKeyDetails{
		APIKey:     *account.APIKey,
		Status:     account.APIKeyStatus,
		UsageCount: account.APIKeyUsageCount,
	}
	if account.APIKeyCreatedAt != nil {
		details.CreatedAt = *account.APIKeyCreatedAt
	}
	if account.APIKeyExpiresAt != nil {
		details.ExpiresAt = *account.APIKeyExpiresAt
	}
	return details, nil
}

// ValidateAPIKey resolves a bearer key to its owning account. Failures are
// ordered: unknown key, then expiry, then block state. Expiry is computed
// from the stored timestamp; it never changes the stored status.
func (s *Service) ValidateAPIKey(ctx context.Context, key string) (*domain.Account, error) {
	if key == "" {
		return nil, store.ErrAPIKeyNotFound
	}
	account, err := s.repo.FindAccountByAPIKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if account.APIKeyExpiresAt != nil && time.Now().After(*account.APIKeyExpiresAt) {
		return account, ErrAPIKeyExpired
	}
	if account.APIKeyStatus == domain.APIKeyBlocked {
		return account, ErrAPIKeyBlocked
	}
	return account, nil
}

// SetAPIKeyBlocked sets the block state of an account's key. Idempotent.
func (s *Service) SetAPIKeyBlocked(ctx context.Context, accountID uuid.UUID, blocked bool) error {
	status := domain.APIKeyActive
	if blocked {
		status = domain.APIKeyBlocked
	}
	return s.repo.SetAPIKeyStatus(ctx, accountID, status)
}

// ToggleAPIKeyStatus flips the key between active and blocked and returns
// the resulting status, matching the admin panel's toggle control.
func (s *Service) ToggleAPIKeyStatus(ctx context.Context, accountID uuid.UUID) (domain.APIKeyStatus, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !account.HasAPIKey() {
		return "", store.ErrAPIKeyNotFound
	}

	next := domain.APIKeyBlocked
	if account.APIKeyStatus == domain.APIKeyBlocked {
		next = domain.APIKeyActive
	}
	if err := s.repo.SetAPIKeyStatus(ctx, accountID, next); err != nil {
		return "", err
	}
	return next, nil
}
