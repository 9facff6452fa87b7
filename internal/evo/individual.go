package evo

import "fmt"

// Individual wraps one genotype with its fitness and the generation that produced it.
// Fitness is only meaningful after Evaluate; fresh offspring carry 0.
type Individual[G any] struct {
	Fitness    float64
	Generation int32
	Genotype   G

	evaluated bool
}

// NewIndividual wraps a freshly constructed genotype.
func NewIndividual[G any](genotype G, generation int32) Individual[G] {
	return Individual[G]{Genotype: genotype, Generation: generation}
}

// Evaluated reports whether Fitness reflects the current genotype.
func (i *Individual[G]) Evaluated() bool {
	return i.evaluated
}

// Evaluate sets Fitness from the problem's fitness function.
func (i *Individual[G]) Evaluate(p Problem[G]) error {
	fitness, err := p.Fitness(i.Genotype)
	if err != nil {
		return err
	}
	i.Fitness = fitness
	i.evaluated = true
	return nil
}

// Invalidate marks the fitness stale after an in-place change to the genotype.
func (i *Individual[G]) Invalidate() {
	i.Fitness = 0
	i.evaluated = false
}

// Crossover produces an unevaluated offspring stamped with generation.
func (i *Individual[G]) Crossover(other *Individual[G], generation int32, p Problem[G], rng Rand) (Individual[G], error) {
	child, err := p.Crossover(i.Genotype, other.Genotype, rng)
	if err != nil {
		return Individual[G]{}, fmt.Errorf("crossover: %w", err)
	}
	return Individual[G]{Genotype: child, Generation: generation}, nil
}

func (i Individual[G]) String() string {
	return fmt.Sprintf("Individual { F: %.3f, G: %d }", i.Fitness, i.Generation)
}
