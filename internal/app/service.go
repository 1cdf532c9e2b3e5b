/**
 * @description
 * This file contains the core application service wiring. The `Service`
 * struct owns all storefront business logic — the ledger, orders, API-key
 * issuance, usage metering, identity, and the admin surface — coordinating
 * between the database repository, the video-resolution provider, the
 * message broker, and the optional Redis rate limiter.
 *
 * Balance and usage-counter correctness is delegated to the repository's
 * atomic operations; nothing in this layer reads-then-writes an account's
 * balance directly.
 *
 * @dependencies
 * - context, log, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq, pkg/videoprovider: For external service communication.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/quickearn/api-service/internal/store"
	"github.com/quickearn/api-service/pkg/rabbitmq"
	"github.com/quickearn/api-service/pkg/videoprovider"
)

const (
	// DefaultAPIKeyValidity is the issuance-to-expiry window for API keys
	// when no override is configured.
	DefaultAPIKeyValidity = 30 * 24 * time.Hour

	// apiKeyGenerateAttempts bounds retries when a freshly generated key
	// collides with an existing one. With 128 bits of entropy a single
	// retry is already extravagant.
	apiKeyGenerateAttempts = 3
)

// Service provides the core business logic for the storefront.
type Service struct {
	repo          store.Repository
	provider      videoprovider.Resolver
	eventProducer rabbitmq.Publisher

	apiKeyValidity time.Duration

	rateLimiter         RateLimiter
	meterLimitPerMinute int
}

// NewService creates a new application service instance.
func NewService(repo store.Repository, provider videoprovider.Resolver, producer rabbitmq.Publisher, apiKeyValidity time.Duration) *Service {
	if apiKeyValidity <= 0 {
		apiKeyValidity = DefaultAPIKeyValidity
	}
	return &Service{
		repo:           repo,
		provider:       provider,
		eventProducer:  producer,
		apiKeyValidity: apiKeyValidity,
	}
}

// SetMeterRateLimiter installs a distributed rate limiter for the metered
// endpoint. A nil limiter or nonpositive limit disables limiting.
func (s *Service) SetMeterRateLimiter(limiter RateLimiter, limitPerMinute int) {
	s.rateLimiter = limiter
	s.meterLimitPerMinute = limitPerMinute
}

// publishEvent emits a broker event without letting broker trouble fail the
// committed operation it describes.
func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, rabbitmq.EventsExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=app msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
