package equity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lox/pokerrating/internal/deck"
)

// Cache stores showdown percentages of hole cards on a board. Lookups are
// keyed independently of card order.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, value float64) error
}

// CacheKey builds the order independent key for hole cards on a board
func CacheKey(board, hole []deck.Card) string {
	return sortedCards(board) + "/" + sortedCards(hole)
}

func sortedCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, "")
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(context.Context, string) (float64, bool, error) { return 0, false, nil }
func (NopCache) Set(context.Context, string, float64) error         { return nil }

// MemoryCache is an unbounded in-process cache
type MemoryCache struct {
	mu     sync.RWMutex
	values map[string]float64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]float64)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

// Len reports the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

const redisKeyPrefix = "pokerrating:showdown:"

// RedisCache shares showdown percentages between service instances
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache wraps a redis client. A zero ttl keeps entries forever.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool, error) {
	v, err := c.client.Get(ctx, redisKeyPrefix+key).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value float64) error {
	return c.client.Set(ctx, redisKeyPrefix+key, value, c.ttl).Err()
}
