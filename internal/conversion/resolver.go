// Package conversion resolves item-specific unit conversion factors.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"larder/internal/costing"
	applog "larder/internal/log"
	"larder/internal/metrics"
)

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 10 * time.Minute
	unitsKey         = "units"
)

// FactorSource is the catalog slice the resolver reads through.
type FactorSource interface {
	ConversionFactor(ctx context.Context, kind costing.Kind, item, from, to uuid.UUID) (float64, error)
	Units(ctx context.Context) ([]costing.Unit, error)
}

type key struct {
	kind costing.Kind
	item uuid.UUID
	from uuid.UUID
	to   uuid.UUID
}

func (k key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.kind, k.item, k.from, k.to)
}

// Options tune the resolver cache.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Metrics   *metrics.Collector
}

// Resolver memoizes conversion factors for a bounded time. Concurrent lookups of the same key
// share one catalog call.
type Resolver struct {
	source  FactorSource
	factors *expirable.LRU[key, float64]
	units   *expirable.LRU[string, []costing.Unit]
	group   singleflight.Group
	metrics *metrics.Collector
}

// NewResolver builds a resolver over source.
func NewResolver(source FactorSource, opts Options) *Resolver {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Resolver{
		source:  source,
		factors: expirable.NewLRU[key, float64](size, nil, ttl),
		units:   expirable.NewLRU[string, []costing.Unit](1, nil, ttl),
		metrics: opts.Metrics,
	}
}

// Resolve returns the factor converting one recipe unit of the item into its base unit.
func (r *Resolver) Resolve(ctx context.Context, kind costing.Kind, item, from, to uuid.UUID) (float64, error) {
	if from == to {
		r.metrics.ConversionLookup("identity")
		return 1, nil
	}

	k := key{kind: kind, item: item, from: from, to: to}
	if factor, ok := r.factors.Get(k); ok {
		r.metrics.ConversionLookup("hit")
		return factor, nil
	}

	// The shared lookup outlives any single caller; each caller still stops on its own ctx.
	lookupCtx := context.WithoutCancel(ctx)
	results := r.group.DoChan(k.String(), func() (any, error) {
		if factor, ok := r.factors.Get(k); ok {
			return factor, nil
		}
		r.metrics.ConversionLookup("miss")
		factor, err := r.source.ConversionFactor(lookupCtx, kind, item, from, to)
		if err != nil {
			return 0.0, err
		}
		if factor <= 0 {
			return 0.0, fmt.Errorf("conversion %s has non-positive factor %v", k, factor)
		}
		r.factors.Add(k, factor)
		return factor, nil
	})

	var result singleflight.Result
	select {
	case result = <-results:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	value, err, shared := result.Val, result.Err, result.Shared
	if err != nil {
		var missing *costing.ConversionNotFoundError
		if errors.As(err, &missing) {
			r.metrics.ConversionLookup("not_found")
		} else {
			r.metrics.ConversionLookup("error")
		}
		applog.Debug(ctx, "conversion lookup failed", "key", k.String(), "shared", shared, "error", err)
		return 0, err
	}
	return value.(float64), nil
}

// Units returns the global unit list.
func (r *Resolver) Units(ctx context.Context) ([]costing.Unit, error) {
	if units, ok := r.units.Get(unitsKey); ok {
		return append([]costing.Unit(nil), units...), nil
	}
	value, err, _ := r.group.Do(unitsKey, func() (any, error) {
		units, err := r.source.Units(ctx)
		if err != nil {
			return nil, err
		}
		r.units.Add(unitsKey, units)
		return units, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]costing.Unit(nil), value.([]costing.Unit)...), nil
}

// Invalidate drops every cached factor of one item.
func (r *Resolver) Invalidate(kind costing.Kind, item uuid.UUID) int {
	removed := 0
	for _, k := range r.factors.Keys() {
		if k.kind == kind && k.item == item {
			if r.factors.Remove(k) {
				removed++
			}
		}
	}
	return removed
}

// Purge empties both caches.
func (r *Resolver) Purge() {
	r.factors.Purge()
	r.units.Purge()
}

// Len reports the number of cached factors.
func (r *Resolver) Len() int {
	return r.factors.Len()
}
