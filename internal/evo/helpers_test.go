package evo

import (
	"errors"
	"strings"
)

// bits is a OneMax genotype: fitness is the number of set bits.
type bits []bool

type oneMax struct {
	length int
}

func (oneMax) Name() string { return "onemax" }

func (p oneMax) Construct(rng Rand) (bits, error) {
	g := make(bits, p.length)
	for i := range g {
		g[i] = rng.IntN(2) == 1
	}
	return g, nil
}

func (oneMax) Mutate(g bits, rng Rand) {
	i := rng.IntN(len(g))
	g[i] = !g[i]
}

func (oneMax) Crossover(a, b bits, rng Rand) (bits, error) {
	cut := rng.IntN(len(a) + 1)
	child := make(bits, len(a))
	copy(child, a[:cut])
	copy(child[cut:], b[cut:])
	return child, nil
}

func (oneMax) Fitness(g bits) (float64, error) {
	n := 0
	for _, b := range g {
		if b {
			n++
		}
	}
	return float64(n), nil
}

func (oneMax) Display(g bits) string {
	var sb strings.Builder
	for _, b := range g {
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// contextless needs injected data it never receives.
type contextless struct{ oneMax }

func (contextless) Fitness(bits) (float64, error) {
	return 0, ErrMissingContext
}

var errBrokenConstruct = errors.New("broken construct")

type brokenConstruct struct{ oneMax }

func (brokenConstruct) Construct(Rand) (bits, error) {
	return nil, errBrokenConstruct
}

// seqRand replays fixed sequences, cycling when exhausted.
type seqRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *seqRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *seqRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.ii%len(r.ints)]
	r.ii++
	return v % n
}

type event struct {
	kind       string
	generation int
	reason     TerminationReason
}

type recordingObserver struct {
	events []event
	onGen  func(Snapshot)
}

func (o *recordingObserver) Started(RunInfo) {
	o.events = append(o.events, event{kind: "started"})
}

func (o *recordingObserver) Generation(s Snapshot) {
	o.events = append(o.events, event{kind: "generation", generation: s.Stats.Generation})
	if o.onGen != nil {
		o.onGen(s)
	}
}

func (o *recordingObserver) Finished(r Report) {
	o.events = append(o.events, event{kind: "finished", generation: r.Stats.Generation, reason: r.Reason})
}

func population(fitness ...float64) []Individual[bits] {
	out := make([]Individual[bits], len(fitness))
	for i, f := range fitness {
		out[i] = Individual[bits]{Fitness: f, evaluated: true}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 20
	cfg.MaxGenerations = 15
	cfg.TargetFitness = 1000
	cfg.Seed = 7
	return cfg
}
