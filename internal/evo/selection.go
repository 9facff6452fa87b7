package evo

import (
	"fmt"
	"math"
)

// ParentSelector picks parent indices from a population ranked best-first.
// weights holds the transformed fitness of each ranked individual and total
// their sum; higher weight is always better regardless of direction.
type ParentSelector interface {
	Name() string
	Pick(rng Rand, weights []float64, total float64) int
}

// generationScoped selectors hold per-generation state that must be dropped
// before the next round of picks.
type generationScoped interface {
	Reset()
}

// NewParentSelector resolves the configured strategy.
func NewParentSelector(cfg Config) (ParentSelector, error) {
	switch cfg.ParentSelection {
	case RouletteWheel:
		return RouletteWheelSelector{}, nil
	case StochasticUniversalSampling:
		return &UniversalSamplingSelector{}, nil
	case TournamentSelection:
		return TournamentSelector{Size: cfg.TournamentSize}, nil
	case RankSelection:
		return RankSelector{}, nil
	default:
		return nil, fmt.Errorf("%w: parent selection %s", ErrUnsupportedStrategy, cfg.ParentSelection)
	}
}

// SpinWheel walks the ranked weights accumulating them and returns the first
// index whose running sum reaches threshold. Empty weights or a non-positive
// total yield 0.
func SpinWheel(weights []float64, total, threshold float64) int {
	if len(weights) == 0 || degenerate(total) {
		return 0
	}
	if math.IsInf(total, 1) {
		return firstInfinite(weights)
	}
	return spin(weights, threshold)
}

func spin(weights []float64, threshold float64) int {
	p := 0.0
	for i, w := range weights {
		p += w
		if p >= threshold {
			return i
		}
	}
	return 0
}

func degenerate(total float64) bool {
	return math.IsNaN(total) || total <= 0
}

func firstInfinite(weights []float64) int {
	for i, w := range weights {
		if math.IsInf(w, 1) {
			return i
		}
	}
	return 0
}

// RouletteWheelSelector is fitness-proportionate selection.
type RouletteWheelSelector struct{}

func (RouletteWheelSelector) Name() string {
	return RouletteWheel.String()
}

func (RouletteWheelSelector) Pick(rng Rand, weights []float64, total float64) int {
	return SpinWheel(weights, total, rng.Float64()*total)
}

// UniversalSamplingSelector places len(weights) evenly spaced pointers on the
// wheel with a single spin and hands them out one pick at a time.
type UniversalSamplingSelector struct {
	pointers []float64
	next     int
}

func (*UniversalSamplingSelector) Name() string {
	return StochasticUniversalSampling.String()
}

func (s *UniversalSamplingSelector) Reset() {
	s.pointers = s.pointers[:0]
	s.next = 0
}

func (s *UniversalSamplingSelector) Pick(rng Rand, weights []float64, total float64) int {
	if len(weights) == 0 || degenerate(total) || math.IsInf(total, 1) {
		return SpinWheel(weights, total, 0)
	}
	if s.next >= len(s.pointers) {
		s.respin(rng, len(weights), total)
	}
	pointer := s.pointers[s.next]
	s.next++
	return SpinWheel(weights, total, pointer)
}

func (s *UniversalSamplingSelector) respin(rng Rand, n int, total float64) {
	step := total / float64(n)
	start := rng.Float64() * step
	s.pointers = s.pointers[:0]
	for k := 0; k < n; k++ {
		s.pointers = append(s.pointers, start+float64(k)*step)
	}
	s.next = 0
}

// TournamentSelector samples Size individuals uniformly and keeps the best.
// Because the population is ranked, the best is the lowest index.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return TournamentSelection.String()
}

func (s TournamentSelector) Pick(rng Rand, weights []float64, _ float64) int {
	n := len(weights)
	if n == 0 {
		return 0
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > n {
		size = n
	}
	best := rng.IntN(n)
	for i := 1; i < size; i++ {
		if candidate := rng.IntN(n); candidate < best {
			best = candidate
		}
	}
	return best
}

// RankSelector weights the i-th ranked individual by n-i, which keeps the
// selection pressure independent of the fitness scale.
type RankSelector struct{}

func (RankSelector) Name() string {
	return RankSelection.String()
}

func (RankSelector) Pick(rng Rand, weights []float64, _ float64) int {
	n := len(weights)
	if n == 0 {
		return 0
	}
	total := float64(n) * float64(n+1) / 2
	threshold := rng.Float64() * total
	p := 0.0
	for i := 0; i < n; i++ {
		p += float64(n - i)
		if p >= threshold {
			return i
		}
	}
	return n - 1
}
