package evo

// Problem is the capability set a representation must provide to be evolved.
//
// Crossover must return a fully owned value that shares no mutable state with
// either parent. Fitness must be a pure function of the genotype; any shared
// read-only context (distance tables and the like) belongs to the Problem
// value, not to the genotype.
type Problem[G any] interface {
	Name() string
	Construct(rng Rand) (G, error)
	Mutate(genotype G, rng Rand)
	Crossover(a, b G, rng Rand) (G, error)
	Fitness(genotype G) (float64, error)
	Display(genotype G) string
}
