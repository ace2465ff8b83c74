package factors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"carbonos/carbon-engine-backend/internal/telemetry"
	"carbonos/carbon-engine-backend/pkg/cache"
)

// ErrNoFactor is returned when neither the catalog nor the fallback table has
// a factor for the requested activity.
var ErrNoFactor = errors.New("no emission factor found for activity")

// methodologyLabel tags every calculation with the dataset revision it used.
const methodologyLabel = "ADEME Base Carbone® v2023"

// Resolver finds the best emission factor for an activity and applies it.
// Catalog results are cached; catalog outages are absorbed through the pinned
// fallback table so callers never see an availability error.
type Resolver struct {
	catalog  Catalog
	cache    cache.Cache[string, []Factor]
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewResolver creates a resolver. A nil cache disables caching.
func NewResolver(catalog Catalog, factorCache cache.Cache[string, []Factor], cacheTTL time.Duration, logger *zap.Logger) *Resolver {
	if factorCache == nil {
		factorCache = cache.Noop[string, []Factor]{}
	}
	return &Resolver{
		catalog:  catalog,
		cache:    factorCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Search returns catalog factors for a query, serving from cache when warm and
// from the fallback table when the catalog is down.
func (r *Resolver) Search(ctx context.Context, query SearchQuery) ([]Factor, error) {
	key := cacheKey(query)
	if cached, ok := r.cache.Get(key); ok {
		telemetry.CacheHits.Inc()
		return cached, nil
	}
	telemetry.CacheMisses.Inc()

	telemetry.CatalogLookups.Inc()
	factors, err := r.catalog.Search(ctx, query)
	if err != nil {
		if !errors.Is(err, ErrCatalogUnavailable) {
			return nil, err
		}
		r.logger.Warn("factor catalog unavailable, using fallback table",
			zap.String("activity", query.Activity), zap.Error(err))
		telemetry.CatalogFallbacks.Inc()
		return FallbackFactors(query.Activity), nil
	}
	if len(factors) == 0 {
		// The catalog answered but knows nothing about this activity.
		if fallback := FallbackFactors(query.Activity); fallback != nil {
			telemetry.CatalogFallbacks.Inc()
			return fallback, nil
		}
	}

	r.cache.Set(key, factors, r.cacheTTL)
	return factors, nil
}

// Calculate resolves the best factor for the activity and multiplies it in.
// Quality warnings from the selected factor are attached to the result.
func (r *Resolver) Calculate(ctx context.Context, activity string, quantity float64, unit string) (*Calculation, error) {
	factors, err := r.Search(ctx, SearchQuery{Activity: activity, Limit: 10})
	if err != nil {
		return nil, err
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFactor, activity)
	}

	best := selectBestFactor(factors, activity, unit)
	emissions := quantity * best.Factor

	return &Calculation{
		Activity:        activity,
		Quantity:        quantity,
		Unit:            unit,
		Factor:          best,
		Emissions:       emissions,
		Uncertainty:     emissions * best.Uncertainty,
		Warnings:        FactorWarnings(best),
		CalculationDate: time.Now(),
		Methodology:     methodologyLabel,
	}, nil
}

// InvalidateActivity drops any cached search results for an activity.
func (r *Resolver) InvalidateActivity(activity string) {
	r.cache.Invalidate(cacheKey(SearchQuery{Activity: activity, Limit: 10}))
}

// selectBestFactor scores each candidate and keeps the highest. The first
// candidate wins ties, so catalog ordering decides between equals.
//
// Scoring: +3 name contains the activity, +2 exact unit match, +1 uncertainty
// under 10%, +1 updated within the last year.
func selectBestFactor(factors []Factor, activity, unit string) Factor {
	best := factors[0]
	bestScore := 0
	needle := strings.ToLower(activity)

	for _, factor := range factors {
		score := 0
		if strings.Contains(strings.ToLower(factor.Name), needle) {
			score += 3
		}
		if factor.Unit == unit {
			score += 2
		}
		if factor.Uncertainty < 0.1 {
			score++
		}
		if time.Since(factor.LastUpdated) < 365*24*time.Hour {
			score++
		}
		if score > bestScore {
			bestScore = score
			best = factor
		}
	}

	return best
}

func cacheKey(query SearchQuery) string {
	return fmt.Sprintf("search:%s:%s:%d:%d",
		strings.ToLower(query.Activity), query.Category, query.Limit, query.Offset)
}
