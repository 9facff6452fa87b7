package evo

import (
	"fmt"
	"math"
	"strings"
)

type PopulationModel int

const (
	Generational PopulationModel = iota
	SteadyState
)

var populationModelNames = map[PopulationModel]string{
	Generational: "Generational",
	SteadyState:  "SteadyState",
}

func (m PopulationModel) String() string {
	if name, ok := populationModelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("PopulationModel(%d)", int(m))
}

type ParentSelection int

const (
	RouletteWheel ParentSelection = iota
	StochasticUniversalSampling
	TournamentSelection
	RankSelection
)

var parentSelectionNames = map[ParentSelection]string{
	RouletteWheel:               "RouletteWheel",
	StochasticUniversalSampling: "StochasticUniversalSampling",
	TournamentSelection:         "TournamentSelection",
	RankSelection:               "RankSelection",
}

func (s ParentSelection) String() string {
	if name, ok := parentSelectionNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ParentSelection(%d)", int(s))
}

type SurvivorSelection int

const (
	AgeBased SurvivorSelection = iota
	FitnessBased
)

var survivorSelectionNames = map[SurvivorSelection]string{
	AgeBased:     "AgeBased",
	FitnessBased: "FitnessBased",
}

func (s SurvivorSelection) String() string {
	if name, ok := survivorSelectionNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SurvivorSelection(%d)", int(s))
}

// ParsePopulationModel matches names case-insensitively.
func ParsePopulationModel(name string) (PopulationModel, error) {
	for value, candidate := range populationModelNames {
		if strings.EqualFold(candidate, name) {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: population model %q", ErrUnsupportedStrategy, name)
}

// ParseParentSelection matches names case-insensitively.
func ParseParentSelection(name string) (ParentSelection, error) {
	for value, candidate := range parentSelectionNames {
		if strings.EqualFold(candidate, name) {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: parent selection %q", ErrUnsupportedStrategy, name)
}

// ParseSurvivorSelection matches names case-insensitively.
func ParseSurvivorSelection(name string) (SurvivorSelection, error) {
	for value, candidate := range survivorSelectionNames {
		if strings.EqualFold(candidate, name) {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: survivor selection %q", ErrUnsupportedStrategy, name)
}

// Config is fixed for the lifetime of a run.
type Config struct {
	PopulationSize int     `json:"population_size"`
	MaxGenerations int     `json:"max_generations"` // 0 runs until TargetFitness is met
	TargetFitness  float64 `json:"target_fitness"`
	MutationRate   float64 `json:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate"`
	Minimize       bool    `json:"minimize"`
	NoElitism      bool    `json:"no_elitism"`

	ParentSelection   ParentSelection   `json:"parent_selection"`
	SurvivorSelection SurvivorSelection `json:"survivor_selection"`
	PopulationModel   PopulationModel   `json:"population_model"`

	// ReplacementRate is the share of the population a steady-state generation replaces.
	ReplacementRate float64 `json:"replacement_rate"`
	// TournamentSize applies to TournamentSelection only.
	TournamentSize int `json:"tournament_size"`

	Seed  uint64 `json:"seed"`
	Debug bool   `json:"debug"`
}

func DefaultConfig() Config {
	return Config{
		PopulationSize:    50,
		MaxGenerations:    0,
		TargetFitness:     1.0,
		MutationRate:      0.1,
		CrossoverRate:     0.5,
		ParentSelection:   RouletteWheel,
		SurvivorSelection: FitnessBased,
		PopulationModel:   Generational,
		ReplacementRate:   0.5,
		TournamentSize:    3,
	}
}

func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return configErrorf("population_size", "must be > 0, got %d", c.PopulationSize)
	}
	if c.MaxGenerations < 0 {
		return configErrorf("max_generations", "must be >= 0, got %d", c.MaxGenerations)
	}
	if math.IsNaN(c.TargetFitness) {
		return configErrorf("target_fitness", "must be a number")
	}
	if !inUnitInterval(c.MutationRate) {
		return configErrorf("mutation_rate", "must be in [0, 1], got %v", c.MutationRate)
	}
	if !inUnitInterval(c.CrossoverRate) {
		return configErrorf("crossover_rate", "must be in [0, 1], got %v", c.CrossoverRate)
	}
	if _, ok := parentSelectionNames[c.ParentSelection]; !ok {
		return &ConfigError{Field: "parent_selection", Reason: fmt.Sprintf("unknown value %d", int(c.ParentSelection)), Err: ErrUnsupportedStrategy}
	}
	if _, ok := survivorSelectionNames[c.SurvivorSelection]; !ok {
		return &ConfigError{Field: "survivor_selection", Reason: fmt.Sprintf("unknown value %d", int(c.SurvivorSelection)), Err: ErrUnsupportedStrategy}
	}
	if _, ok := populationModelNames[c.PopulationModel]; !ok {
		return &ConfigError{Field: "population_model", Reason: fmt.Sprintf("unknown value %d", int(c.PopulationModel)), Err: ErrUnsupportedStrategy}
	}
	if c.PopulationModel == SteadyState && (c.ReplacementRate <= 0 || c.ReplacementRate > 1) {
		return configErrorf("replacement_rate", "must be in (0, 1] for steady state, got %v", c.ReplacementRate)
	}
	if c.ParentSelection == TournamentSelection && c.TournamentSize < 0 {
		return configErrorf("tournament_size", "must be >= 0, got %d", c.TournamentSize)
	}
	return nil
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
