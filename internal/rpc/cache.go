package rpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheableMethods 列出返回不可变数据的方法。只有这些方法的结果才会进入缓存，
// 引擎本身对其余请求保持无状态。
var cacheableMethods = map[string]struct{}{
	"eth_chainId":                           {},
	"net_version":                           {},
	"eth_getBlockByHash":                    {},
	"eth_getBlockTransactionCountByHash":    {},
	"eth_getTransactionByBlockHashAndIndex": {},
}

// CacheConfig 描述 Redis 缓存的连接与过期参数。
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// Cache 以 Redis 为后端缓存不可变的 RPC 查询结果。nil 实例的所有方法都
// 安全可调用并等价于未命中。
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCache 创建缓存实例。
func NewCache(cfg CacheConfig) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "omnievm:rpc:"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{rdb: rdb, ttl: ttl, prefix: prefix}
}

// Lookup 查询缓存。未启用缓存、方法不可缓存或任何 Redis 故障都按未命中处理。
func (c *Cache) Lookup(ctx context.Context, method string, params []any) (json.RawMessage, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	if _, ok := cacheableMethods[method]; !ok {
		return nil, false
	}
	key, err := c.key(method, params)
	if err != nil {
		return nil, false
	}
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return json.RawMessage(payload), true
}

// Store 写入缓存。空负载不缓存，Redis 故障静默忽略。
func (c *Cache) Store(ctx context.Context, method string, params []any, payload json.RawMessage) {
	if c == nil || c.rdb == nil {
		return
	}
	if _, ok := cacheableMethods[method]; !ok {
		return
	}
	if isEmptyPayload(payload) {
		return
	}
	key, err := c.key(method, params)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, []byte(payload), c.ttl).Err()
}

// Close 释放 Redis 连接。
func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Cache) key(method string, params []any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return c.prefix + method + ":" + hex.EncodeToString(sum[:]), nil
}
