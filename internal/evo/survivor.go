package evo

import (
	"fmt"
	"math"
	"slices"
)

// selectSurvivors merges a ranked offspring pool into the current population.
func selectSurvivors[G any](cfg Config, current, pool []Individual[G]) ([]Individual[G], error) {
	switch cfg.PopulationModel {
	case Generational:
		return pool, nil
	case SteadyState:
		return steadyState(cfg, current, pool)
	default:
		return nil, fmt.Errorf("%w: population model %s", ErrUnsupportedStrategy, cfg.PopulationModel)
	}
}

// steadyState replaces ReplacementRate of the population with the best of the
// pool. Which incumbents leave depends on the survivor strategy.
func steadyState[G any](cfg Config, current, pool []Individual[G]) ([]Individual[G], error) {
	if len(current) == 0 {
		return pool, nil
	}
	replace := replacementCount(cfg.ReplacementRate, len(current))
	if replace > len(pool) {
		replace = len(pool)
	}

	kept := slices.Clone(current)
	switch cfg.SurvivorSelection {
	case FitnessBased:
		// current is ranked best-first, so the worst sit at the tail.
	case AgeBased:
		// Oldest at the tail; among equals the worse one leaves first.
		slices.SortStableFunc(kept, func(a, b Individual[G]) int {
			if a.Generation != b.Generation {
				if a.Generation > b.Generation {
					return -1
				}
				return 1
			}
			switch {
			case Better(a.Fitness, b.Fitness, cfg.Minimize):
				return -1
			case Better(b.Fitness, a.Fitness, cfg.Minimize):
				return 1
			}
			return 0
		})
	default:
		return nil, fmt.Errorf("%w: survivor selection %s", ErrUnsupportedStrategy, cfg.SurvivorSelection)
	}

	next := append(kept[:len(kept)-replace], pool[:replace]...)
	SortPopulation(next, cfg.Minimize)
	return next, nil
}

func replacementCount(rate float64, size int) int {
	n := int(math.Ceil(rate * float64(size)))
	if n < 1 {
		n = 1
	}
	if n > size {
		n = size
	}
	return n
}
