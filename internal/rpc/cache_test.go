package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cache := NewCache(CacheConfig{Addr: mr.Addr(), TTL: time.Minute})
	t.Cleanup(func() { cache.Close() })

	ctx := context.Background()
	params := []any{}

	if _, ok := cache.Lookup(ctx, "eth_chainId", params); ok {
		t.Fatal("expected cache miss")
	}

	cache.Store(ctx, "eth_chainId", params, json.RawMessage(`"0x539"`))
	payload, ok := cache.Lookup(ctx, "eth_chainId", params)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(payload) != `"0x539"` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestCacheSkipsMutableMethods(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cache := NewCache(CacheConfig{Addr: mr.Addr(), TTL: time.Minute})
	t.Cleanup(func() { cache.Close() })

	ctx := context.Background()
	cache.Store(ctx, "eth_blockNumber", nil, json.RawMessage(`"0x10"`))
	if _, ok := cache.Lookup(ctx, "eth_blockNumber", nil); ok {
		t.Fatal("mutable method must not be cached")
	}

	cache.Store(ctx, "eth_chainId", nil, json.RawMessage("null"))
	if _, ok := cache.Lookup(ctx, "eth_chainId", nil); ok {
		t.Fatal("empty payload must not be cached")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	t.Parallel()

	var cache *Cache
	cache.Store(context.Background(), "eth_chainId", nil, json.RawMessage(`"0x1"`))
	if _, ok := cache.Lookup(context.Background(), "eth_chainId", nil); ok {
		t.Fatal("nil cache must behave as a miss")
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestEngineServesFromCache(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cache := NewCache(CacheConfig{Addr: mr.Addr(), TTL: time.Minute})
	t.Cleanup(func() { cache.Close() })

	caller := &stubCaller{fn: func(call int, result any, _ string, _ []any) error {
		if call > 1 {
			return errors.New("unexpected second trip to the node")
		}
		setPayload(result, `"0x539"`)
		return nil
	}}
	engine := NewEngine(caller, WithCache(cache))

	for i := 0; i < 3; i++ {
		res := engine.Request(context.Background(), "eth_chainId", nil, RetryOptions{}, ResultRules{})
		if !res.OK() {
			t.Fatalf("request %d: %v", i, res.Err())
		}
		if string(res.Data().Result) != `"0x539"` {
			t.Fatalf("unexpected payload %s", res.Data().Result)
		}
	}
	if caller.callCount() != 1 {
		t.Fatalf("expected a single upstream call, got %d", caller.callCount())
	}
}

func TestEngineRevalidatesCacheHits(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cache := NewCache(CacheConfig{Addr: mr.Addr(), TTL: time.Minute})
	t.Cleanup(func() { cache.Close() })

	ctx := context.Background()
	cache.Store(ctx, "eth_chainId", nil, json.RawMessage(`"0x539"`))

	caller := &stubCaller{fn: func(_ int, result any, _ string, _ []any) error {
		setPayload(result, `"0x1"`)
		return nil
	}}
	engine := NewEngine(caller, WithCache(cache))

	// 宽松规则下写入的缓存命中严格规则时必须回源，而不是原样返回。
	rules := ResultRules{Validate: func(payload json.RawMessage) error {
		if string(payload) == `"0x539"` {
			return errors.New("stale chain id")
		}
		return nil
	}}
	res := engine.Request(ctx, "eth_chainId", nil, RetryOptions{}, rules)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if string(res.Data().Result) != `"0x1"` {
		t.Fatalf("unexpected payload %s", res.Data().Result)
	}
	if caller.callCount() != 1 {
		t.Fatalf("expected the rejected hit to fall through to the node, got %d calls", caller.callCount())
	}
}
