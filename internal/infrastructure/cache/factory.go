package cache

import (
	"fmt"
	"io"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// TotalsCache is a finance.TotalsCache that holds resources
type TotalsCache interface {
	finance.TotalsCache
	io.Closer
}

// TotalsCacheFactory creates totals caches based on configuration
type TotalsCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TotalsCacheFactoryOption is a functional option for configuring the factory
type TotalsCacheFactoryOption func(*TotalsCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) TotalsCacheFactoryOption {
	return func(f *TotalsCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) TotalsCacheFactoryOption {
	return func(f *TotalsCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTotalsCacheFactory creates a new factory
func NewTotalsCacheFactory(cfg config.RedisConfig, ttl time.Duration, opts ...TotalsCacheFactoryOption) *TotalsCacheFactory {
	f := &TotalsCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache returns the configured cache. It returns nil when caching is
// disabled (zero TTL). Redis is preferred when enabled; an unreachable Redis
// falls back to memory unless the fallback was turned off.
func (f *TotalsCacheFactory) CreateCache() (TotalsCache, error) {
	if f.ttl <= 0 {
		f.logger.Info("totals cache disabled")
		return nil, nil
	}
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory totals cache", zap.Duration("ttl", f.ttl))
		return NewInMemoryTotalsCache(f.ttl), nil
	}

	store, err := NewRedisTotalsCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ttl, WithCacheLogger(f.logger))
	if err == nil {
		f.logger.Info("using Redis totals cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for totals cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory totals cache. "+
		"Invalidation will not be shared across instances.",
		zap.Error(err),
	)
	return NewInMemoryTotalsCache(f.ttl), nil
}
