package caching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResultCache_SetAndGet(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true, DefaultTTL: time.Minute})
	ctx := context.Background()

	params := map[string]interface{}{"drug_code": "VANCO-INJ", "crcl": 35.0}
	cache.Set(ctx, "get_renal_adjustment", params, map[string]interface{}{"needs_adjustment": true})

	cached, ok := cache.Get(ctx, "get_renal_adjustment", params)
	require.True(t, ok)
	assert.Equal(t, "get_renal_adjustment", cached.ToolName)
	assert.Equal(t, int64(1), cached.Hits)
}

func TestToolResultCache_MissOnDifferentParams(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true})
	ctx := context.Background()

	cache.Set(ctx, "get_drug_info", map[string]interface{}{"drug_code": "WARF-TAB"}, "result")

	_, ok := cache.Get(ctx, "get_drug_info", map[string]interface{}{"drug_code": "ASPIR-TAB"})
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
}

func TestToolResultCache_Expiry(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true, DefaultTTL: 10 * time.Millisecond})
	ctx := context.Background()

	params := map[string]interface{}{"query": "vanco"}
	cache.Set(ctx, "search_formulary", params, "result")

	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get(ctx, "search_formulary", params)
	assert.False(t, ok)
}

func TestToolResultCache_Disabled(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: false})
	ctx := context.Background()

	cache.Set(ctx, "get_drug_info", map[string]interface{}{"drug_code": "WARF-TAB"}, "result")

	_, ok := cache.Get(ctx, "get_drug_info", map[string]interface{}{"drug_code": "WARF-TAB"})
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestToolResultCache_Invalidate(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true})
	ctx := context.Background()

	params := map[string]interface{}{"drug_code": "DIGOX-TAB"}
	cache.Set(ctx, "get_drug_info", params, "result")
	cache.Invalidate(ctx, "get_drug_info", params)

	_, ok := cache.Get(ctx, "get_drug_info", params)
	assert.False(t, ok)
}

func TestToolResultCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true, MaxEntries: 2})
	ctx := context.Background()

	cache.Set(ctx, "tool", map[string]interface{}{"n": 1}, "a")
	time.Sleep(time.Millisecond)
	cache.Set(ctx, "tool", map[string]interface{}{"n": 2}, "b")
	time.Sleep(time.Millisecond)
	cache.Set(ctx, "tool", map[string]interface{}{"n": 3}, "c")

	assert.Equal(t, 2, cache.Len())

	_, ok := cache.Get(ctx, "tool", map[string]interface{}{"n": 1})
	assert.False(t, ok)

	_, ok = cache.Get(ctx, "tool", map[string]interface{}{"n": 3})
	assert.True(t, ok)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
}
