package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
)

// ResponseCache keeps catalog pages in redis so repeated strategies and
// queries do not re-hit the upstream quota. A nil *ResponseCache is valid
// and disables caching.
type ResponseCache struct {
	client redis.UniversalClient
	ttl    config.CacheTTLConfig
	logger *zap.Logger
}

func NewResponseCache(cfg config.RedisConfig, logger *zap.Logger) (*ResponseCache, error) {
	var client redis.UniversalClient

	if len(cfg.Addresses) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addresses[0],
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("catalog response cache connected", zap.Strings("addresses", cfg.Addresses))

	return &ResponseCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Get returns the cached page or nil. Cache errors are logged and treated
// as misses; the catalog call proceeds regardless.
func (rc *ResponseCache) Get(ctx context.Context, key string) *models.CatalogPage {
	if rc == nil {
		return nil
	}

	val, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		observability.CacheMisses.Inc()
		return nil
	}
	if err != nil {
		rc.logger.Warn("cache get error", zap.String("key", key), zap.Error(err))
		return nil
	}

	var page models.CatalogPage
	if err := json.Unmarshal([]byte(val), &page); err != nil {
		rc.logger.Warn("cache unmarshal error", zap.String("key", key), zap.Error(err))
		return nil
	}
	observability.CacheHits.Inc()
	return &page
}

func (rc *ResponseCache) Set(ctx context.Context, key string, page *models.CatalogPage, ttl time.Duration) {
	if rc == nil || page == nil {
		return
	}

	data, err := json.Marshal(page)
	if err != nil {
		rc.logger.Warn("cache marshal error", zap.String("key", key), zap.Error(err))
		return
	}
	if err := rc.client.Set(ctx, key, data, ttl).Err(); err != nil {
		rc.logger.Warn("cache set error", zap.String("key", key), zap.Error(err))
	}
}

func (rc *ResponseCache) HealthCheck(ctx context.Context) error {
	if rc == nil {
		return nil
	}
	return rc.client.Ping(ctx).Err()
}

func (rc *ResponseCache) Close() error {
	if rc == nil {
		return nil
	}
	return rc.client.Close()
}

func (rc *ResponseCache) titleTTL() time.Duration    { return rc.ttlOrDefault(rc.safeTTL().TitleSearch) }
func (rc *ResponseCache) personTTL() time.Duration   { return rc.ttlOrDefault(rc.safeTTL().PersonSearch) }
func (rc *ResponseCache) discoverTTL() time.Duration { return rc.ttlOrDefault(rc.safeTTL().Discover) }
func (rc *ResponseCache) trendingTTL() time.Duration { return rc.ttlOrDefault(rc.safeTTL().Trending) }
func (rc *ResponseCache) popularTTL() time.Duration  { return rc.ttlOrDefault(rc.safeTTL().Popular) }

func (rc *ResponseCache) safeTTL() config.CacheTTLConfig {
	if rc == nil {
		return config.CacheTTLConfig{}
	}
	return rc.ttl
}

func (rc *ResponseCache) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 5 * time.Minute
	}
	return ttl
}

func cacheKey(op string, params url.Values, page int) string {
	raw := fmt.Sprintf("%s:%s:%d", op, params.Encode(), page)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("cat:%s:%x", op, h[:8])
}
