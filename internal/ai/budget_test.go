package ai

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInMemoryBudget_Unlimited(t *testing.T) {
	b := NewInMemoryBudget(0)
	ctx := context.Background()

	if err := b.Record(ctx, "global", 1_000_000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	ok, err := b.Check(ctx, "global")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (zero limit means unlimited)")
	}
}

func TestInMemoryBudget_Limits(t *testing.T) {
	tests := []struct {
		name   string
		limit  int64
		record int
		want   bool
	}{
		{"within", 1000, 500, true},
		{"exact", 100, 100, false},
		{"over", 100, 150, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewInMemoryBudget(tt.limit)
			ctx := context.Background()
			if err := b.Record(ctx, "global", tt.record); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			ok, err := b.Check(ctx, "global")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Check() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestInMemoryBudget_ScopeOverride(t *testing.T) {
	b := NewInMemoryBudget(1000)
	b.SetBudget("tight", 10)
	ctx := context.Background()

	_ = b.Record(ctx, "tight", 10)
	_ = b.Record(ctx, "global", 10)

	if ok, _ := b.Check(ctx, "tight"); ok {
		t.Error("tight scope should be exhausted")
	}
	if ok, _ := b.Check(ctx, "global"); !ok {
		t.Error("global scope should have budget left")
	}
}

func TestInMemoryBudget_ResetsDaily(t *testing.T) {
	b := NewInMemoryBudget(100)
	day := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return day }
	ctx := context.Background()

	_ = b.Record(ctx, "global", 100)
	if ok, _ := b.Check(ctx, "global"); ok {
		t.Fatal("budget should be exhausted")
	}

	day = day.Add(2 * time.Hour)
	if ok, _ := b.Check(ctx, "global"); !ok {
		t.Error("budget should reset on a new day")
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget(100)
	if err := b.Record(context.Background(), "global", -5); err == nil {
		t.Error("Record() should reject negative tokens")
	}
}

func TestInMemoryBudget_ConcurrentRecords(t *testing.T) {
	b := NewInMemoryBudget(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Record(ctx, "global", 2)
		}()
	}
	wg.Wait()

	used, _, _ := b.Usage(ctx, "global")
	if used != 100 {
		t.Errorf("used = %d, want 100", used)
	}
}

type memCounter struct {
	mu   sync.Mutex
	vals map[string]int64
	ttls map[string]time.Duration
}

func newMemCounter() *memCounter {
	return &memCounter{vals: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (c *memCounter) IncrBy(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[key] += delta
	c.ttls[key] = ttl
	return c.vals[key], nil
}

func (c *memCounter) GetInt(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vals[key], nil
}

func TestRedisBudget(t *testing.T) {
	store := newMemCounter()
	b := NewRedisBudget(store, 50)
	b.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if err := b.Record(ctx, "global", 30); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if ok, _ := b.Check(ctx, "global"); !ok {
		t.Error("Check() = false after 30 of 50")
	}
	_ = b.Record(ctx, "global", 20)
	if ok, _ := b.Check(ctx, "global"); ok {
		t.Error("Check() = true after 50 of 50")
	}

	key := "minerva:budget:global:20260301"
	if store.vals[key] != 50 {
		t.Errorf("stored usage = %d under %q, want 50", store.vals[key], key)
	}
	if store.ttls[key] != budgetTTL {
		t.Errorf("ttl = %v, want %v", store.ttls[key], budgetTTL)
	}

	used, limit, err := b.Usage(ctx, "global")
	if err != nil || used != 50 || limit != 50 {
		t.Errorf("Usage() = %d, %d, %v", used, limit, err)
	}
}
