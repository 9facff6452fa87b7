// Package fitcache memoizes fitness evaluations of genotypes that reappear
// across generations, which is common once a population converges.
package fitcache

import (
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"evoforge/internal/evo"
)

// KeyFunc returns a stable identity for a genotype's current state.
type KeyFunc[G any] func(genotype G) string

// DefaultLimit bounds the entries a run-scoped cache holds.
const DefaultLimit = 100_000

// Problem wraps an evo.Problem and answers Fitness from cache when the key
// was seen before. Errors are never cached.
type Problem[G any] struct {
	evo.Problem[G]

	key    KeyFunc[G]
	limit  int
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// Memoize wraps p. A zero ttl keeps entries until the cache holds limit
// items, at which point it is flushed. A non-positive limit means no bound.
func Memoize[G any](p evo.Problem[G], key KeyFunc[G], ttl time.Duration, limit int) *Problem[G] {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &Problem[G]{
		Problem: p,
		key:     key,
		limit:   limit,
		cache:   cache.New(expiration, cleanup),
	}
}

func (p *Problem[G]) Fitness(genotype G) (float64, error) {
	k := p.key(genotype)
	if v, ok := p.cache.Get(k); ok {
		p.hits.Add(1)
		return v.(float64), nil
	}
	p.misses.Add(1)
	fitness, err := p.Problem.Fitness(genotype)
	if err != nil {
		return 0, err
	}
	if p.limit > 0 && p.cache.ItemCount() >= p.limit {
		p.cache.Flush()
	}
	p.cache.SetDefault(k, fitness)
	return fitness, nil
}

// Stats reports cache hits and misses so far.
func (p *Problem[G]) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

func (p *Problem[G]) Len() int {
	return p.cache.ItemCount()
}
