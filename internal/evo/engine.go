package evo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
)

// Engine owns one population and drives it through generations until a
// termination condition holds. It is not safe for concurrent use.
type Engine[G any] struct {
	problem   Problem[G]
	cfg       Config
	rng       Rand
	clock     clock.PassiveClock
	log       logr.Logger
	observers []Observer
	selector  ParentSelector

	population []Individual[G]
	stats      Stats
	history    []GenerationSummary
	started    time.Time
	ready      bool
}

type Option[G any] func(*Engine[G])

// WithRand replaces the seeded PCG source derived from Config.Seed.
func WithRand[G any](rng Rand) Option[G] {
	return func(e *Engine[G]) { e.rng = rng }
}

func WithClock[G any](c clock.PassiveClock) Option[G] {
	return func(e *Engine[G]) { e.clock = c }
}

func WithLogger[G any](log logr.Logger) Option[G] {
	return func(e *Engine[G]) { e.log = log }
}

func WithObserver[G any](o Observer) Option[G] {
	return func(e *Engine[G]) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// Result is what Run hands back once the loop stops.
type Result[G any] struct {
	Best    Individual[G]
	Stats   Stats
	History []GenerationSummary
	Reason  TerminationReason
}

// NewEngine validates cfg and constructs PopulationSize unevaluated individuals.
func NewEngine[G any](problem Problem[G], cfg Config, opts ...Option[G]) (*Engine[G], error) {
	if problem == nil {
		return nil, &ConfigError{Field: "problem", Reason: "is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	selector, err := NewParentSelector(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine[G]{
		problem:  problem,
		cfg:      cfg,
		clock:    clock.RealClock{},
		log:      logr.Discard(),
		selector: selector,
		stats:    Stats{MaxGenerations: cfg.MaxGenerations},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand(cfg.Seed)
	}

	e.population = make([]Individual[G], 0, cfg.PopulationSize)
	for i := 0; i < cfg.PopulationSize; i++ {
		genotype, err := problem.Construct(e.rng)
		if err != nil {
			return nil, fmt.Errorf("construct individual %d: %w", i, err)
		}
		e.population = append(e.population, NewIndividual(genotype, 0))
	}
	return e, nil
}

// Population returns the current population, best-first once the run started.
func (e *Engine[G]) Population() []Individual[G] {
	return e.population
}

func (e *Engine[G]) Stats() Stats {
	return e.stats
}

func (e *Engine[G]) Config() Config {
	return e.cfg
}

// Best returns the current leader.
func (e *Engine[G]) Best() (Individual[G], error) {
	if len(e.population) == 0 {
		return Individual[G]{}, ErrEmptyPopulation
	}
	return e.population[0], nil
}

// Run evolves until the target fitness or the generation budget is reached.
// ctx is only consulted between generations.
func (e *Engine[G]) Run(ctx context.Context) (Result[G], error) {
	if err := e.start(); err != nil {
		return Result[G]{}, err
	}
	e.log.V(1).Info("evolution started",
		"problem", e.problem.Name(),
		"population", e.cfg.PopulationSize,
		"maxGenerations", e.cfg.MaxGenerations,
		"target", e.cfg.TargetFitness,
		"minimize", e.cfg.Minimize,
		"parentSelection", e.cfg.ParentSelection.String(),
		"populationModel", e.cfg.PopulationModel.String(),
	)
	info := RunInfo{Problem: e.problem.Name(), Config: e.cfg}
	for _, o := range e.observers {
		o.Started(info)
	}

	var reason TerminationReason
	for {
		if err := ctx.Err(); err != nil {
			reason = TerminationCanceled
			e.finish(reason)
			return e.result(reason), err
		}
		if err := e.Step(ctx); err != nil {
			return e.result(""), err
		}
		if r, done := e.terminated(); done {
			reason = r
			break
		}
	}

	e.finish(reason)
	return e.result(reason), nil
}

// Step runs exactly one generation.
func (e *Engine[G]) Step(_ context.Context) error {
	if err := e.start(); err != nil {
		return err
	}
	e.stats.beginGeneration()

	if err := e.evaluate(e.population); err != nil {
		return err
	}
	SortPopulation(e.population, e.cfg.Minimize)

	pool, err := e.reproduce(SelectionWeights(e.population, e.cfg.Minimize))
	if err != nil {
		return err
	}
	e.mutate(pool)

	if !e.cfg.NoElitism {
		pool[len(pool)-1] = e.population[0]
	}

	if err := e.evaluate(pool); err != nil {
		return err
	}
	SortPopulation(pool, e.cfg.Minimize)

	next, err := selectSurvivors(e.cfg, e.population, pool)
	if err != nil {
		return err
	}
	e.population = next

	e.stats.endGeneration(e.population[0].Fitness, e.clock.Since(e.started).Seconds())
	summary := Summarize(e.stats.Generation, e.population)
	summary.Mutations = e.stats.Mutations
	summary.Crossovers = e.stats.Crossovers
	summary.ElapsedSeconds = e.stats.ElapsedSeconds
	e.history = append(e.history, summary)

	e.log.V(2).Info("generation",
		"generation", e.stats.Generation,
		"best", summary.BestFitness,
		"mean", summary.MeanFitness,
		"crossovers", e.stats.Crossovers,
		"mutations", e.stats.Mutations,
	)
	e.notify(summary)
	return nil
}

// start evaluates and ranks the initial population once.
func (e *Engine[G]) start() error {
	if e.ready {
		return nil
	}
	e.started = e.clock.Now()
	if err := e.evaluate(e.population); err != nil {
		return err
	}
	SortPopulation(e.population, e.cfg.Minimize)
	if len(e.population) > 0 {
		e.stats.BestFitness = e.population[0].Fitness
	}
	e.ready = true
	return nil
}

func (e *Engine[G]) evaluate(population []Individual[G]) error {
	for i := range population {
		if population[i].Evaluated() {
			continue
		}
		if err := population[i].Evaluate(e.problem); err != nil {
			return fmt.Errorf("evaluate %s: %w", e.problem.Name(), err)
		}
		e.stats.TotalEvaluations++
	}
	return nil
}

// reproduce fills a pool of PopulationSize offspring. Each slot is either a
// crossover of two selected parents or a copy of one.
func (e *Engine[G]) reproduce(weights []float64, total float64) ([]Individual[G], error) {
	if scoped, ok := e.selector.(generationScoped); ok {
		scoped.Reset()
	}
	tag := int32(e.stats.Generation + 1)
	pool := make([]Individual[G], 0, e.cfg.PopulationSize)
	for len(pool) < e.cfg.PopulationSize {
		a := &e.population[e.selector.Pick(e.rng, weights, total)]

		var child Individual[G]
		var err error
		if Bernoulli(e.rng, e.cfg.CrossoverRate) {
			e.stats.Crossovers++
			b := &e.population[e.selector.Pick(e.rng, weights, total)]
			child, err = a.Crossover(b, tag, e.problem, e.rng)
		} else {
			child, err = a.Crossover(a, tag, e.problem, e.rng)
		}
		if err != nil {
			return nil, err
		}
		pool = append(pool, child)
	}
	return pool, nil
}

func (e *Engine[G]) mutate(pool []Individual[G]) {
	for i := range pool {
		if Bernoulli(e.rng, e.cfg.MutationRate) {
			e.problem.Mutate(pool[i].Genotype, e.rng)
			pool[i].Invalidate()
			e.stats.Mutations++
		}
	}
}

func (e *Engine[G]) terminated() (TerminationReason, bool) {
	if Reached(e.stats.BestFitness, e.cfg.TargetFitness, e.cfg.Minimize) {
		return TerminationTarget, true
	}
	if e.cfg.MaxGenerations > 0 && e.stats.Generation >= e.cfg.MaxGenerations {
		return TerminationMaxGenerations, true
	}
	return "", false
}

func (e *Engine[G]) notify(summary GenerationSummary) {
	if len(e.observers) == 0 {
		return
	}
	best := e.population[0]
	snapshot := Snapshot{
		Stats:       e.stats,
		Summary:     summary,
		Best:        best.String(),
		BestDisplay: func() string { return e.problem.Display(best.Genotype) },
		Fitnesses:   func() []float64 { return Fitnesses(e.population) },
	}
	for _, o := range e.observers {
		o.Generation(snapshot)
	}
	if e.cfg.Debug {
		e.log.V(4).Info("population", "fitness", snapshot.Fitnesses(), "best", snapshot.BestDisplay())
	}
}

func (e *Engine[G]) finish(reason TerminationReason) {
	e.stats.ElapsedSeconds = e.clock.Since(e.started).Seconds()
	report := Report{Stats: e.stats, Reason: reason}
	if len(e.population) > 0 {
		report.Best = e.population[0].String()
		report.BestDisplay = e.problem.Display(e.population[0].Genotype)
	}
	e.log.V(1).Info("evolution finished",
		"reason", string(reason),
		"generations", e.stats.Generation,
		"best", e.stats.BestFitness,
		"elapsedSeconds", e.stats.ElapsedSeconds,
	)
	for _, o := range e.observers {
		o.Finished(report)
	}
}

func (e *Engine[G]) result(reason TerminationReason) Result[G] {
	res := Result[G]{
		Stats:   e.stats,
		History: append([]GenerationSummary(nil), e.history...),
		Reason:  reason,
	}
	if len(e.population) > 0 {
		res.Best = e.population[0]
	}
	return res
}
