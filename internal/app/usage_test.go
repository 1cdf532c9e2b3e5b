package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quickearn/api-service/internal/domain"
	"github.com/quickearn/api-service/pkg/videoprovider"
)

type resolverStub struct {
	result *videoprovider.Result
	err    error
	calls  int
	mu     sync.Mutex
}

func (r *resolverStub) Resolve(ctx context.Context, query string) (*videoprovider.Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type limiterStub struct {
	count int
}

func (l *limiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return l.count, 1, nil
}

var testMeta = domain.ClientMeta{UserAgent: "test-agent", IPAddress: "203.0.113.7"}

func TestMeteredLookup_SuccessLogsAndIncrements(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(0)
	provider := &resolverStub{result: &videoprovider.Result{Title: "Test Video"}}
	svc := NewService(repo, provider, nil, DefaultAPIKeyValidity)

	key, err := svc.GenerateAPIKey(context.Background(), accountID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	result, err := svc.MeteredLookup(context.Background(), key.APIKey, "test song", testMeta)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Title != "Test Video" {
		t.Fatalf("unexpected result %+v", result)
	}

	account, _ := repo.FindAccountByID(context.Background(), accountID)
	if account.APIKeyUsageCount != 1 {
		t.Fatalf("expected usage count 1, got %d", account.APIKeyUsageCount)
	}
	logs, _ := repo.FindUsageLogsByAccountID(context.Background(), accountID, 10)
	if len(logs) != 1 {
		t.Fatalf("expected one log entry, got %d", len(logs))
	}
	entry := logs[0]
	if entry.Status != domain.UsageSuccess || entry.Query != "test song" {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if entry.UserAgent != testMeta.UserAgent || entry.IPAddress != testMeta.IPAddress {
		t.Fatalf("expected client metadata on log entry, got %+v", entry)
	}
}

// A blocked key must still produce a log entry: abuse against a dead key
// stays auditable. The counter does not move.
func TestMeteredLookup_BlockedKeyAttemptIsLogged(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(0)
	provider := &resolverStub{result: &videoprovider.Result{Title: "Test Video"}}
	svc := NewService(repo, provider, nil, DefaultAPIKeyValidity)

	key, err := svc.GenerateAPIKey(context.Background(), accountID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := svc.SetAPIKeyBlocked(context.Background(), accountID, true); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	if _, err := svc.MeteredLookup(context.Background(), key.APIKey, "test song", testMeta); !errors.Is(err, ErrAPIKeyBlocked) {
		t.Fatalf("expected ErrAPIKeyBlocked, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called for a blocked key, got %d calls", provider.calls)
	}

	logs, _ := repo.FindUsageLogsByAccountID(context.Background(), accountID, 10)
	if len(logs) != 1 {
		t.Fatalf("expected the blocked attempt to be logged, got %d entries", len(logs))
	}
	if logs[0].Status != domain.UsageFailed || logs[0].ErrorMessage == nil {
		t.Fatalf("expected failed entry with an error message, got %+v", logs[0])
	}

	account, _ := repo.FindAccountByID(context.Background(), accountID)
	if account.APIKeyUsageCount != 0 {
		t.Fatalf("expected untouched usage counter, got %d", account.APIKeyUsageCount)
	}
}

func TestMeteredLookup_ProviderFailureIsLoggedAsFailed(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(0)
	provider := &resolverStub{err: videoprovider.ErrUnavailable}
	svc := NewService(repo, provider, nil, DefaultAPIKeyValidity)

	key, err := svc.GenerateAPIKey(context.Background(), accountID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if _, err := svc.MeteredLookup(context.Background(), key.APIKey, "test song", testMeta); !errors.Is(err, videoprovider.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	logs, _ := repo.FindUsageLogsByAccountID(context.Background(), accountID, 10)
	if len(logs) != 1 || logs[0].Status != domain.UsageFailed {
		t.Fatalf("expected one failed log entry, got %+v", logs)
	}
	account, _ := repo.FindAccountByID(context.Background(), accountID)
	if account.APIKeyUsageCount != 0 {
		t.Fatalf("expected untouched usage counter, got %d", account.APIKeyUsageCount)
	}
}

func TestMeteredLookup_RateLimitRejectsAndLogs(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(0)
	provider := &resolverStub{result: &videoprovider.Result{Title: "Test Video"}}
	svc := NewService(repo, provider, nil, DefaultAPIKeyValidity)
	svc.SetMeterRateLimiter(&limiterStub{count: 61}, 60)

	key, err := svc.GenerateAPIKey(context.Background(), accountID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if _, err := svc.MeteredLookup(context.Background(), key.APIKey, "test song", testMeta); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called past the limit, got %d calls", provider.calls)
	}
	logs, _ := repo.FindUsageLogsByAccountID(context.Background(), accountID, 10)
	if len(logs) != 1 || logs[0].Status != domain.UsageFailed {
		t.Fatalf("expected one failed log entry, got %+v", logs)
	}
}

// Concurrent successful lookups must each land exactly one increment; the
// counter never loses updates.
func TestMeteredLookup_ConcurrentIncrementsAreLossless(t *testing.T) {
	repo := newFakeRepo()
	accountID := repo.seedAccount(0)
	provider := &resolverStub{result: &videoprovider.Result{Title: "Test Video"}}
	svc := NewService(repo, provider, nil, DefaultAPIKeyValidity)

	key, err := svc.GenerateAPIKey(context.Background(), accountID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.MeteredLookup(context.Background(), key.APIKey, "test song", testMeta); err != nil {
				t.Errorf("lookup failed: %v", err)
			}
		}()
	}
	wg.Wait()

	account, _ := repo.FindAccountByID(context.Background(), accountID)
	if account.APIKeyUsageCount != workers {
		t.Fatalf("expected usage count %d, got %d", workers, account.APIKeyUsageCount)
	}
	stats, _ := repo.UsageStats(context.Background(), &accountID)
	if stats.Total != workers || stats.Success != workers {
		t.Fatalf("expected %d successful entries, got total=%d success=%d", workers, stats.Total, stats.Success)
	}
}

func TestUsageStatsFor_SeparatesAccountAndGlobal(t *testing.T) {
	repo := newFakeRepo()
	firstID := repo.seedAccount(0)
	secondID := repo.seedAccount(0)
	svc := newTestService(repo)

	if err := svc.RecordUsage(context.Background(), firstID, "key-a", "q1", testMeta, domain.UsageSuccess, ""); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := svc.RecordUsage(context.Background(), secondID, "key-b", "q2", testMeta, domain.UsageFailed, "blocked"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	global, err := svc.UsageStatsFor(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if global.Total != 2 || global.Success != 1 || global.Failed != 1 {
		t.Fatalf("unexpected global stats %+v", global)
	}

	scoped, err := svc.UsageStatsFor(context.Background(), &firstID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if scoped.Total != 1 || scoped.Success != 1 {
		t.Fatalf("unexpected scoped stats %+v", scoped)
	}
}
