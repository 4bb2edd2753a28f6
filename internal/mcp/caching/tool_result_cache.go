// Package caching provides result caching for read-only MCP tools.
package caching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheConfig defines configuration for tool result caching
type CacheConfig struct {
	// Redis client for distributed caching; nil disables the Redis tier
	RedisClient *redis.Client
	// Default TTL for cached results
	DefaultTTL time.Duration
	// Maximum number of entries in the in-memory tier
	MaxEntries int
	// Enable/disable caching
	Enabled bool
}

// CachedResult represents a cached tool execution result
type CachedResult struct {
	ToolName  string      `json:"tool_name"`
	Result    interface{} `json:"result"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Hits      int64       `json:"hits"`
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// ToolResultCache caches tool execution results in memory with an
// optional Redis tier behind it.
type ToolResultCache struct {
	config      CacheConfig
	memoryCache map[string]*CachedResult
	memoryMutex sync.RWMutex
	stats       CacheStats
	statsMutex  sync.Mutex
}

// NewToolResultCache creates a new tool result cache instance
func NewToolResultCache(config CacheConfig) *ToolResultCache {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 15 * time.Minute
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = 1000
	}

	return &ToolResultCache{
		config:      config,
		memoryCache: make(map[string]*CachedResult),
	}
}

// GenerateKey creates a unique cache key for tool parameters
func (trc *ToolResultCache) GenerateKey(toolName string, parameters interface{}) string {
	paramBytes, _ := json.Marshal(parameters)
	hash := sha256.Sum256(append([]byte(toolName+"::"), paramBytes...))
	return "toolcache:" + hex.EncodeToString(hash[:])
}

// Get retrieves a cached result if available
func (trc *ToolResultCache) Get(ctx context.Context, toolName string, parameters interface{}) (*CachedResult, bool) {
	if !trc.config.Enabled {
		return nil, false
	}

	key := trc.GenerateKey(toolName, parameters)

	trc.memoryMutex.Lock()
	if cached, exists := trc.memoryCache[key]; exists {
		if time.Now().Before(cached.ExpiresAt) {
			cached.Hits++
			trc.memoryMutex.Unlock()
			trc.recordHit()
			return cached, true
		}
		delete(trc.memoryCache, key)
	}
	trc.memoryMutex.Unlock()

	// Fall through to Redis when configured.
	if trc.config.RedisClient != nil {
		data, err := trc.config.RedisClient.Get(ctx, key).Bytes()
		if err == nil {
			var cached CachedResult
			if json.Unmarshal(data, &cached) == nil && time.Now().Before(cached.ExpiresAt) {
				trc.storeInMemory(key, &cached)
				trc.recordHit()
				return &cached, true
			}
		}
	}

	trc.recordMiss()
	return nil, false
}

// Set stores a tool result in the cache
func (trc *ToolResultCache) Set(ctx context.Context, toolName string, parameters interface{}, result interface{}) {
	if !trc.config.Enabled {
		return
	}

	key := trc.GenerateKey(toolName, parameters)
	now := time.Now()
	cached := &CachedResult{
		ToolName:  toolName,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(trc.config.DefaultTTL),
	}

	trc.storeInMemory(key, cached)

	if trc.config.RedisClient != nil {
		if data, err := json.Marshal(cached); err == nil {
			trc.config.RedisClient.Set(ctx, key, data, trc.config.DefaultTTL)
		}
	}
}

// Invalidate removes a specific cached result
func (trc *ToolResultCache) Invalidate(ctx context.Context, toolName string, parameters interface{}) {
	key := trc.GenerateKey(toolName, parameters)

	trc.memoryMutex.Lock()
	delete(trc.memoryCache, key)
	trc.memoryMutex.Unlock()

	if trc.config.RedisClient != nil {
		trc.config.RedisClient.Del(ctx, key)
	}
}

// Stats returns a snapshot of cache performance counters.
func (trc *ToolResultCache) Stats() CacheStats {
	trc.statsMutex.Lock()
	defer trc.statsMutex.Unlock()
	return trc.stats
}

// Len returns the number of entries in the in-memory tier.
func (trc *ToolResultCache) Len() int {
	trc.memoryMutex.RLock()
	defer trc.memoryMutex.RUnlock()
	return len(trc.memoryCache)
}

// storeInMemory inserts an entry, evicting the oldest when at capacity.
func (trc *ToolResultCache) storeInMemory(key string, cached *CachedResult) {
	trc.memoryMutex.Lock()
	defer trc.memoryMutex.Unlock()

	if len(trc.memoryCache) >= trc.config.MaxEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, v := range trc.memoryCache {
			if oldestKey == "" || v.CreatedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = v.CreatedAt
			}
		}
		if oldestKey != "" {
			delete(trc.memoryCache, oldestKey)
			trc.statsMutex.Lock()
			trc.stats.Evictions++
			trc.statsMutex.Unlock()
		}
	}

	trc.memoryCache[key] = cached
}

func (trc *ToolResultCache) recordHit() {
	trc.statsMutex.Lock()
	trc.stats.Hits++
	trc.statsMutex.Unlock()
}

func (trc *ToolResultCache) recordMiss() {
	trc.statsMutex.Lock()
	trc.stats.Misses++
	trc.statsMutex.Unlock()
}
