package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// CacheClient wraps Redis with typed caching for external API responses.
// TFDA permit dumps and NHI price lists change weekly at most, so cached
// copies carry long TTLs.
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a cache client and verifies the connection.
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// GetLabel retrieves a cached drug label. The bool reports a cache hit.
func (c *CacheClient) GetLabel(ctx context.Context, drugName string) (*DrugLabel, bool, error) {
	var label DrugLabel
	hit, err := c.getJSON(ctx, labelKey(drugName), &label)
	if err != nil || !hit {
		return nil, false, err
	}
	return &label, true, nil
}

// SetLabel caches a drug label.
func (c *CacheClient) SetLabel(ctx context.Context, drugName string, label *DrugLabel, ttl time.Duration) error {
	return c.setJSON(ctx, labelKey(drugName), label, ttl)
}

// GetPermits retrieves the cached TFDA permit dump.
func (c *CacheClient) GetPermits(ctx context.Context, activeOnly bool) ([]TaiwanPermit, bool, error) {
	var permits []TaiwanPermit
	hit, err := c.getJSON(ctx, permitKey(activeOnly), &permits)
	if err != nil || !hit {
		return nil, false, err
	}
	return permits, true, nil
}

// SetPermits caches the TFDA permit dump.
func (c *CacheClient) SetPermits(ctx context.Context, activeOnly bool, permits []TaiwanPermit, ttl time.Duration) error {
	return c.setJSON(ctx, permitKey(activeOnly), permits, ttl)
}

// GetNHIRecord retrieves a cached NHI price record by code.
func (c *CacheClient) GetNHIRecord(ctx context.Context, nhiCode string) (*NHIDrugRecord, bool, error) {
	var record NHIDrugRecord
	hit, err := c.getJSON(ctx, "external:nhi:"+nhiCode, &record)
	if err != nil || !hit {
		return nil, false, err
	}
	return &record, true, nil
}

// SetNHIRecord caches an NHI price record.
func (c *CacheClient) SetNHIRecord(ctx context.Context, nhiCode string, record *NHIDrugRecord, ttl time.Duration) error {
	return c.setJSON(ctx, "external:nhi:"+nhiCode, record, ttl)
}

// Close releases the Redis connection pool.
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

func (c *CacheClient) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache read failed for %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), out); err != nil {
		// Drop the corrupted entry and treat it as a miss.
		c.redis.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (c *CacheClient) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	return c.redis.Set(ctx, key, data, ttl).Err()
}

// labelKey hashes the query so arbitrary user-entered drug names never land
// in Redis keys verbatim.
func labelKey(drugName string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(drugName))))
	return "external:label:" + hex.EncodeToString(sum[:])
}

func permitKey(activeOnly bool) string {
	if activeOnly {
		return "external:tfda:active_permits"
	}
	return "external:tfda:all_permits"
}
