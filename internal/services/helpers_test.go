package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/go-enrich-backend/internal/repo"
)

// testClock drives MemoryStore expiry.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockedStore() (*repo.MemoryStore, *testClock) {
	clk := newTestClock()
	m := repo.NewMemoryStore()
	m.Now = clk.Now
	return m, clk
}

var errBackend = errors.New("backend down")

// flakyStore wraps a Store and fails selected operations.
type flakyStore struct {
	repo.Store
	failSet    bool
	failGet    bool
	failDelete bool
}

func (f *flakyStore) Set(ctx context.Context, key string, v []byte, ttl time.Duration) error {
	if f.failSet {
		return errBackend
	}
	return f.Store.Set(ctx, key, v, ttl)
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errBackend
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errBackend
	}
	return f.Store.Delete(ctx, key)
}

func seqIDs(ids ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i%len(ids)]
		i++
		return id
	}
}
