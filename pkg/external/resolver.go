package external

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// DrugResolver resolves free-text drug names to standardized RxNorm records.
type DrugResolver interface {
	Resolve(ctx context.Context, drugName string) (*DrugDetails, error)
	InvalidateCache(drugName string)
	Stats() ResolverStats
}

// ResolverStats reports cache performance for the resolver.
type ResolverStats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	ExternalCalls int64 `json:"external_calls"`
	Errors        int64 `json:"errors"`
}

// CachedDrugResolver resolves names through RxNorm with an in-memory LRU in
// front. Name resolution is the hottest external call in the tool set, and
// the vocabulary is small, so a process-local cache absorbs most of it.
type CachedDrugResolver struct {
	nomenclature DrugNomenclatureAPI
	cache        *lru.Cache
	ttl          time.Duration
	logger       *logrus.Logger

	mu    sync.Mutex
	stats ResolverStats
}

type resolverEntry struct {
	details   *DrugDetails
	expiresAt time.Time
}

// NewCachedDrugResolver creates a resolver with the given cache capacity and
// entry TTL.
func NewCachedDrugResolver(
	nomenclature DrugNomenclatureAPI,
	cacheSize int,
	ttl time.Duration,
	logger *logrus.Logger,
) (*CachedDrugResolver, error) {
	if cacheSize <= 0 {
		cacheSize = 500
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver cache: %w", err)
	}

	return &CachedDrugResolver{
		nomenclature: nomenclature,
		cache:        cache,
		ttl:          ttl,
		logger:       logger,
	}, nil
}

// Resolve returns the standardized record for a drug name. A name RxNorm
// does not recognize resolves to nil without error; negative results are
// cached too, so repeated unknown names stay cheap.
func (r *CachedDrugResolver) Resolve(ctx context.Context, drugName string) (*DrugDetails, error) {
	key := strings.ToLower(strings.TrimSpace(drugName))
	if key == "" {
		return nil, fmt.Errorf("drug name is required")
	}

	if cached, ok := r.cache.Get(key); ok {
		entry := cached.(resolverEntry)
		if time.Now().Before(entry.expiresAt) {
			r.count(func(s *ResolverStats) { s.Hits++ })
			return entry.details, nil
		}
		r.cache.Remove(key)
	}
	r.count(func(s *ResolverStats) { s.Misses++ })

	details, err := r.lookup(ctx, key)
	if err != nil {
		r.count(func(s *ResolverStats) { s.Errors++ })
		return nil, err
	}

	r.cache.Add(key, resolverEntry{
		details:   details,
		expiresAt: time.Now().Add(r.ttl),
	})
	return details, nil
}

// InvalidateCache drops the cached entry for a drug name.
func (r *CachedDrugResolver) InvalidateCache(drugName string) {
	r.cache.Remove(strings.ToLower(strings.TrimSpace(drugName)))
}

// Stats returns a snapshot of the resolver counters.
func (r *CachedDrugResolver) Stats() ResolverStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *CachedDrugResolver) lookup(ctx context.Context, name string) (*DrugDetails, error) {
	r.count(func(s *ResolverStats) { s.ExternalCalls++ })

	concepts, err := r.nomenclature.SearchByName(ctx, name, 1)
	if err != nil {
		return nil, fmt.Errorf("drug name search failed: %w", err)
	}
	if len(concepts) == 0 {
		return nil, nil
	}

	details, err := r.nomenclature.GetByRxCUI(ctx, concepts[0].RxCUI)
	if err != nil {
		return nil, fmt.Errorf("drug detail lookup failed: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"drug_name": name,
		"rxcui":     concepts[0].RxCUI,
	}).Debug("Resolved drug name via RxNorm")

	return details, nil
}

func (r *CachedDrugResolver) count(update func(*ResolverStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	update(&r.stats)
}
