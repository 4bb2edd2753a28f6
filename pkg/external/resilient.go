package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// ResilientDrugDataClient fronts all external drug data sources with one
// circuit breaker per upstream and a shared Redis cache. A tripped breaker
// fails fast instead of stacking requests on a dead API.
type ResilientDrugDataClient struct {
	logger *logrus.Logger

	rxnorm   *RxNormClient
	openFDA  *OpenFDAClient
	tfda     *TFDAClient
	nhi      *NHIClient
	cache    *CacheClient
	resolver *CachedDrugResolver

	rxnormBreaker  *gobreaker.CircuitBreaker
	openFDABreaker *gobreaker.CircuitBreaker
	tfdaBreaker    *gobreaker.CircuitBreaker
}

// NewResilientDrugDataClient builds the client set from configuration.
// cache may be nil when Redis is not deployed.
func NewResilientDrugDataClient(
	config domain.ExternalConfig,
	cache *CacheClient,
	logger *logrus.Logger,
) *ResilientDrugDataClient {
	c := &ResilientDrugDataClient{
		logger:  logger,
		rxnorm:  NewRxNormClient(config.RxNorm),
		openFDA: NewOpenFDAClient(config.OpenFDA),
		tfda:    NewTFDAClient(config.TFDA, cache),
		nhi:     NewNHIClient(config.NHI, cache),
		cache:   cache,
	}

	c.rxnormBreaker = c.newBreaker("rxnorm")
	c.openFDABreaker = c.newBreaker("openfda")
	c.tfdaBreaker = c.newBreaker("tfda")

	// Name resolution runs through the breaker-protected RxNorm path with an
	// LRU in front, so repeated lookups of the same name stay local.
	resolver, err := NewCachedDrugResolver(breakerNomenclature{c}, 500, time.Hour, logger)
	if err != nil {
		// Only reachable with a non-positive cache size, which the
		// constructor defaults away.
		logger.WithError(err).Error("Failed to create drug name resolver")
	}
	c.resolver = resolver

	return c
}

// breakerNomenclature adapts the breaker-wrapped RxNorm methods to the
// nomenclature interface the resolver consumes.
type breakerNomenclature struct {
	c *ResilientDrugDataClient
}

func (b breakerNomenclature) SearchByName(ctx context.Context, name string, maxResults int) ([]DrugConcept, error) {
	return b.c.SearchDrugs(ctx, name, maxResults)
}

func (b breakerNomenclature) GetByRxCUI(ctx context.Context, rxcui string) (*DrugDetails, error) {
	return b.c.GetDrugDetails(ctx, rxcui)
}

func (c *ResilientDrugDataClient) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("External API circuit breaker state changed")
		},
	})
}

// SearchDrugs searches RxNorm concepts by name.
func (c *ResilientDrugDataClient) SearchDrugs(ctx context.Context, name string, maxResults int) ([]DrugConcept, error) {
	result, err := c.rxnormBreaker.Execute(func() (interface{}, error) {
		return c.rxnorm.SearchByName(ctx, name, maxResults)
	})
	if err != nil {
		return nil, wrapBreakerErr("RxNorm search", err)
	}
	return result.([]DrugConcept), nil
}

// GetDrugDetails resolves an RxCUI to drug details.
func (c *ResilientDrugDataClient) GetDrugDetails(ctx context.Context, rxcui string) (*DrugDetails, error) {
	result, err := c.rxnormBreaker.Execute(func() (interface{}, error) {
		return c.rxnorm.GetByRxCUI(ctx, rxcui)
	})
	if err != nil {
		return nil, wrapBreakerErr("RxNorm lookup", err)
	}
	return result.(*DrugDetails), nil
}

// GetLabel fetches a drug label, consulting the cache before openFDA.
func (c *ResilientDrugDataClient) GetLabel(ctx context.Context, drugName string) (*DrugLabel, error) {
	if c.cache != nil {
		if cached, hit, err := c.cache.GetLabel(ctx, drugName); err == nil && hit {
			return cached, nil
		}
	}

	result, err := c.openFDABreaker.Execute(func() (interface{}, error) {
		return c.openFDA.GetLabel(ctx, drugName)
	})
	if err != nil {
		return nil, wrapBreakerErr("openFDA label fetch", err)
	}

	label := result.(*DrugLabel)
	if label != nil && c.cache != nil {
		_ = c.cache.SetLabel(ctx, drugName, label, 0)
	}
	return label, nil
}

// ResolveDrugName resolves a free-text drug name to its standardized RxNorm
// record through the LRU-fronted resolver. Unknown names resolve to nil.
func (c *ResilientDrugDataClient) ResolveDrugName(ctx context.Context, drugName string) (*DrugDetails, error) {
	return c.resolver.Resolve(ctx, drugName)
}

// ResolverStats reports the name resolver's cache counters.
func (c *ResilientDrugDataClient) ResolverStats() ResolverStats {
	return c.resolver.Stats()
}

// DrugInteractionSections implements service.LabelSource behind the breaker.
// The name is canonicalized through the resolver first so brand names and
// spelling variants query openFDA under the standardized name; resolution
// failures fall back to the name as given.
func (c *ResilientDrugDataClient) DrugInteractionSections(ctx context.Context, drugName string) ([]string, error) {
	if details, err := c.resolver.Resolve(ctx, drugName); err == nil && details != nil {
		drugName = details.Name
	}

	result, err := c.openFDABreaker.Execute(func() (interface{}, error) {
		return c.openFDA.DrugInteractionSections(ctx, drugName)
	})
	if err != nil {
		return nil, wrapBreakerErr("openFDA interaction fetch", err)
	}
	return result.([]string), nil
}

// TopAdverseReactions returns FAERS reaction counts for a drug.
func (c *ResilientDrugDataClient) TopAdverseReactions(ctx context.Context, drugName string, limit int) ([]AdverseEventCount, error) {
	result, err := c.openFDABreaker.Execute(func() (interface{}, error) {
		return c.openFDA.TopAdverseReactions(ctx, drugName, limit)
	})
	if err != nil {
		return nil, wrapBreakerErr("openFDA adverse event fetch", err)
	}
	return result.([]AdverseEventCount), nil
}

// SearchTaiwanPermits searches TFDA permits by product name.
func (c *ResilientDrugDataClient) SearchTaiwanPermits(ctx context.Context, name string, limit int) ([]TaiwanPermit, error) {
	result, err := c.tfdaBreaker.Execute(func() (interface{}, error) {
		return c.tfda.SearchByName(ctx, name, limit)
	})
	if err != nil {
		return nil, wrapBreakerErr("TFDA permit search", err)
	}
	return result.([]TaiwanPermit), nil
}

// CheckNHICoverage checks NHI reimbursement for a drug name. The NHI lookup
// is table-backed, so it needs no breaker.
func (c *ResilientDrugDataClient) CheckNHICoverage(ctx context.Context, drugName string) (*CoverageResult, error) {
	return c.nhi.CheckCoverage(ctx, drugName)
}

// GetNHIPrice returns the reimbursement record for an NHI code.
func (c *ResilientDrugDataClient) GetNHIPrice(ctx context.Context, nhiCode string) (*NHIDrugRecord, error) {
	return c.nhi.GetDrugPrice(ctx, nhiCode)
}

func wrapBreakerErr(op string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%s unavailable, circuit open: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
