package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResultCache stores serialised results keyed by input tuple
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string) error
}

// RedisCache keeps results in Redis so several server instances can share them
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// Ping checks the connection at startup
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// MemoryCache is an unbounded in-process cache
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]string),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Len returns the number of cached entries
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// CacheKey builds the memo key from the tax year and the clamped inputs.
// Inputs that clamp to the same values share a key.
func CacheKey(taxYear string, raw TaxpayerInputs) string {
	in := raw.Clamped()
	fields := []string{
		in.Salary.String(),
		in.Bonus.String(),
		in.EmployeePensionPercent.String(),
		in.EmployerPensionPercent.String(),
		in.ElectricCarSacrifice.String(),
		in.BikeToWorkSacrifice.String(),
		in.NurseryCostPerHour.String(),
		in.NurseryHoursPerWeek.String(),
		fmt.Sprint(in.ChildrenYoung),
		fmt.Sprint(in.ChildrenMid),
	}
	return "takehome:" + taxYear + ":" + strings.Join(fields, "|")
}

// CachedCalculator memoises Calculator.Compute. Cache errors are logged and
// never change the result: a miss or a broken backend just recomputes.
type CachedCalculator struct {
	calc   *Calculator
	cache  ResultCache
	logger *zap.Logger
}

func NewCachedCalculator(calc *Calculator, cache ResultCache, logger *zap.Logger) *CachedCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCalculator{calc: calc, cache: cache, logger: logger}
}

// Compute returns the cached result for inputs or computes and stores it
func (c *CachedCalculator) Compute(ctx context.Context, inputs TaxpayerInputs) DeductionResult {
	if c.cache == nil {
		return c.calc.Compute(inputs)
	}

	key := CacheKey(c.calc.TaxYear(), inputs)
	if cached, ok := c.cache.Get(ctx, key); ok {
		result, err := decodeCachedResult(cached)
		if err == nil {
			c.logger.Debug("cache hit", zap.String("key", key))
			return result
		}
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
	}

	result := c.calc.Compute(inputs)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("failed to encode result for cache", zap.Error(err))
		return result
	}
	if err := c.cache.Set(ctx, key, string(data)); err != nil {
		c.logger.Warn("failed to store result in cache", zap.String("key", key), zap.Error(err))
	}
	return result
}

func decodeCachedResult(data string) (DeductionResult, error) {
	var result DeductionResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return DeductionResult{}, err
	}
	// Cohort is not serialised; restore it from the fixed field positions
	result.Young.Cohort = CohortYoung
	result.Mid.Cohort = CohortMid
	return result, nil
}
