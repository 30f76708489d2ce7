package ai

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BudgetChecker checks and records token usage against a daily budget per
// scope. A scope is a deployment-chosen key such as "global" or a client id.
type BudgetChecker interface {
	// Check returns true if scope has budget remaining today.
	Check(ctx context.Context, scope string) (bool, error)
	// Record adds tokens to today's usage for scope.
	Record(ctx context.Context, scope string, tokens int) error
	// Usage returns today's usage and the limit for scope. A zero limit
	// means unlimited.
	Usage(ctx context.Context, scope string) (used int64, limit int64, err error)
}

// dayKey buckets usage per UTC day.
func dayKey(scope string, now time.Time) string {
	return scope + ":" + now.UTC().Format("20060102")
}

// InMemoryBudget is a process-local budget tracker for development and
// single-instance deployments.
type InMemoryBudget struct {
	mu     sync.RWMutex
	limit  int64
	limits map[string]int64 // scope -> limit override
	usage  map[string]int64 // day key -> tokens used
	now    func() time.Time
}

// NewInMemoryBudget creates a tracker where every scope gets limit tokens a
// day. A zero limit means unlimited.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit:  limit,
		limits: make(map[string]int64),
		usage:  make(map[string]int64),
		now:    time.Now,
	}
}

// SetBudget overrides the daily limit for one scope.
func (b *InMemoryBudget) SetBudget(scope string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limits[scope] = tokens
}

func (b *InMemoryBudget) limitFor(scope string) int64 {
	if l, ok := b.limits[scope]; ok {
		return l
	}
	return b.limit
}

func (b *InMemoryBudget) Check(_ context.Context, scope string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := b.limitFor(scope)
	if limit <= 0 {
		return true, nil
	}
	return b.usage[dayKey(scope, b.now())] < limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, scope string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[dayKey(scope, b.now())] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, scope string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[dayKey(scope, b.now())], b.limitFor(scope), nil
}

// Counter is the shared counter store RedisBudget keeps usage in.
// *cache.Cache implements it.
type Counter interface {
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// budgetTTL keeps yesterday's counter around long enough to inspect.
const budgetTTL = 48 * time.Hour

// RedisBudget keeps daily usage in Redis so every instance of the server
// shares one budget.
type RedisBudget struct {
	store  Counter
	prefix string
	limit  int64
	now    func() time.Time
}

// NewRedisBudget creates a budget backed by store. A zero limit means
// unlimited, in which case usage is still recorded.
func NewRedisBudget(store Counter, limit int64) *RedisBudget {
	return &RedisBudget{
		store:  store,
		prefix: "minerva:budget:",
		limit:  limit,
		now:    time.Now,
	}
}

func (b *RedisBudget) key(scope string) string {
	return b.prefix + dayKey(scope, b.now())
}

func (b *RedisBudget) Check(ctx context.Context, scope string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.store.GetInt(ctx, b.key(scope))
	if err != nil {
		return false, fmt.Errorf("reading token usage: %w", err)
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, scope string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	if _, err := b.store.IncrBy(ctx, b.key(scope), int64(tokens), budgetTTL); err != nil {
		return fmt.Errorf("recording token usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, scope string) (int64, int64, error) {
	used, err := b.store.GetInt(ctx, b.key(scope))
	if err != nil {
		return 0, 0, fmt.Errorf("reading token usage: %w", err)
	}
	return used, b.limit, nil
}
