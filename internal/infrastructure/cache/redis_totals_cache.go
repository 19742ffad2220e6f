package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix     = "finance:totals:"
	defaultScanBatchSize = 100
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisTotalsCache implements finance.TotalsCache using Redis.
// Entries are JSON documents keyed by tenant and company.
type RedisTotalsCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	keyPrefix  string
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisTotalsCacheOption is a functional option for configuring the cache
type RedisTotalsCacheOption func(*RedisTotalsCache)

// WithKeyPrefix sets the key namespace
func WithKeyPrefix(prefix string) RedisTotalsCacheOption {
	return func(c *RedisTotalsCache) {
		c.keyPrefix = prefix
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisTotalsCacheOption {
	return func(c *RedisTotalsCache) {
		c.logger = logger
	}
}

// NewRedisTotalsCache connects to Redis and creates a totals cache
func NewRedisTotalsCache(cfg RedisConfig, ttl time.Duration, opts ...RedisTotalsCacheOption) (*RedisTotalsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisTotalsCacheWithClient(client, ttl, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisTotalsCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client.
func NewRedisTotalsCacheWithClient(client *redis.Client, ttl time.Duration, opts ...RedisTotalsCacheOption) *RedisTotalsCache {
	c := &RedisTotalsCache{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisTotalsCache) key(tenantID finance.TenantID, companyID finance.CompanyID) string {
	return fmt.Sprintf("%s%d:%d", c.keyPrefix, tenantID, companyID)
}

func (c *RedisTotalsCache) tenantPattern(tenantID finance.TenantID) string {
	return fmt.Sprintf("%s%d:*", c.keyPrefix, tenantID)
}

// Get returns cached totals. Any Redis or decoding failure is a miss.
func (c *RedisTotalsCache) Get(ctx context.Context, tenantID finance.TenantID, companyID finance.CompanyID) (*finance.AggregateTotals, bool) {
	key := c.key(tenantID, companyID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Failed to read totals from cache", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var totals finance.AggregateTotals
	if err := json.Unmarshal(data, &totals); err != nil {
		c.logger.Warn("Dropping corrupted totals cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key)
		return nil, false
	}
	// A stored entry belongs to the tenant it is keyed by; anything else is corruption
	if totals.TenantID != tenantID {
		c.logger.Error("Totals cache entry tenant mismatch",
			zap.String("key", key),
			zap.Int64("cached_tenant_id", totals.TenantID.Int64()),
		)
		_ = c.client.Del(ctx, key)
		return nil, false
	}
	return &totals, true
}

// Set stores totals under their tenant and company
func (c *RedisTotalsCache) Set(ctx context.Context, totals *finance.AggregateTotals) error {
	if totals == nil {
		return nil
	}
	data, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("failed to marshal totals: %w", err)
	}
	if err := c.client.Set(ctx, c.key(totals.TenantID, totals.CompanyID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache totals: %w", err)
	}
	return nil
}

// Invalidate drops every cached entry of the tenant, whatever the company
func (c *RedisTotalsCache) Invalidate(ctx context.Context, tenantID finance.TenantID) error {
	iter := c.client.Scan(ctx, 0, c.tenantPattern(tenantID), defaultScanBatchSize).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan totals cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate totals cache: %w", err)
	}
	return nil
}

// Close releases the Redis client if the cache created it
func (c *RedisTotalsCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ finance.TotalsCache = (*RedisTotalsCache)(nil)
