package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memStore struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if m.failGet {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *memStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	cmd.SetVal("OK")
	return cmd
}

type countingLookup struct {
	visits int
	calls  int
	err    error
}

func (c *countingLookup) PriorVisits(context.Context, string, time.Time) (int, error) {
	c.calls++
	return c.visits, c.err
}

var before = time.Date(2024, time.March, 22, 12, 0, 0, 0, time.UTC)

func TestCache_ReadThrough(t *testing.T) {
	store := newMemStore()
	next := &countingLookup{visits: 7}
	c := NewCache(next, store, nil, CacheConfig{TTL: time.Minute})

	for i := 0; i < 3; i++ {
		n, err := c.PriorVisits(context.Background(), "Ann", before)
		if err != nil || n != 7 {
			t.Fatalf("expected 7, got %d (%v)", n, err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one backing lookup, got %d", next.calls)
	}
	key := "loyalty:v1:ann:2024-03-22T12:00:00Z"
	if store.ttls[key] != time.Minute {
		t.Fatalf("expected cached key %s with ttl, got %v", key, store.ttls)
	}

	if _, err := c.PriorVisits(context.Background(), " ANN ", before); err != nil || next.calls != 1 {
		t.Fatalf("customer names should share a key, calls=%d err=%v", next.calls, err)
	}
}

func TestCache_RedisDownFallsThrough(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	next := &countingLookup{visits: 3}
	c := NewCache(next, store, nil, CacheConfig{})

	n, err := c.PriorVisits(context.Background(), "Bob", before)
	if err != nil || n != 3 {
		t.Fatalf("expected 3, got %d (%v)", n, err)
	}
}

func TestCache_LookupErrorIsNotCached(t *testing.T) {
	store := newMemStore()
	next := &countingLookup{err: errors.New("db down")}
	c := NewCache(next, store, nil, CacheConfig{})

	if _, err := c.PriorVisits(context.Background(), "Cid", before); err == nil {
		t.Fatal("expected error")
	}
	if len(store.data) != 0 {
		t.Fatalf("errors must not be cached: %v", store.data)
	}
}
