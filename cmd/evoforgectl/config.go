package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"evoforge/internal/evo"
	"evoforge/pkg/evoforge"
)

// runFlags mirrors evo.Config on the command line. Defaults shown in help are
// the engine defaults; a flag only takes effect when set explicitly, so
// problem defaults and config files are not overwritten by flag defaults.
type runFlags struct {
	problem           *string
	problemSize       *int
	runID             *string
	populationSize    *int
	maxGenerations    *int
	targetFitness     *float64
	mutationRate      *float64
	crossoverRate     *float64
	minimize          *bool
	noElitism         *bool
	parentSelection   *string
	survivorSelection *string
	populationModel   *string
	replacementRate   *float64
	tournamentSize    *int
	seed              *uint64
	debug             *bool
	cacheFitness      *bool
	plot              *string
}

func registerRunFlags(fs *pflag.FlagSet) *runFlags {
	d := evo.DefaultConfig()
	return &runFlags{
		problem:           fs.String("problem", "nqueens", "problem to evolve; list them with the problems command"),
		problemSize:       fs.Int("problem-size", 0, "problem size; 0 uses the problem default"),
		runID:             fs.String("run-id", "", "explicit run id (default: random uuid)"),
		populationSize:    fs.IntP("population-size", "p", d.PopulationSize, "population size"),
		maxGenerations:    fs.IntP("max-generations", "g", d.MaxGenerations, "generation budget; 0 runs until the target is met"),
		targetFitness:     fs.Float64P("target-fitness", "t", d.TargetFitness, "stop once the best fitness reaches this value"),
		mutationRate:      fs.Float64P("mutation-rate", "m", d.MutationRate, "per-offspring mutation probability"),
		crossoverRate:     fs.Float64P("crossover-rate", "c", d.CrossoverRate, "per-offspring two-parent crossover probability"),
		minimize:          fs.Bool("minimize", d.Minimize, "treat lower fitness as better"),
		noElitism:         fs.Bool("no-elitism", d.NoElitism, "do not carry the best individual into the next generation"),
		parentSelection:   fs.String("parent-selection", d.ParentSelection.String(), "RouletteWheel|StochasticUniversalSampling|TournamentSelection|RankSelection"),
		survivorSelection: fs.String("survivor-selection", d.SurvivorSelection.String(), "AgeBased|FitnessBased (steady state only)"),
		populationModel:   fs.String("population-model", d.PopulationModel.String(), "Generational|SteadyState"),
		replacementRate:   fs.Float64("replacement-rate", d.ReplacementRate, "fraction of the population replaced per steady-state generation"),
		tournamentSize:    fs.Int("tournament-size", d.TournamentSize, "contestants per tournament"),
		seed:              fs.Uint64("seed", d.Seed, "rng seed; 0 picks a random seed"),
		debug:             fs.BoolP("debug", "d", d.Debug, "print the configuration, fitness vector and best genotype"),
		cacheFitness:      fs.Bool("cache-fitness", false, "memoize fitness by genotype"),
		plot:              fs.String("plot", "", "write a fitness plot to this path (.html, .png, .svg, .pdf)"),
	}
}

// fileConfig is the run config file layout. Pointer fields distinguish
// "absent" from zero.
type fileConfig struct {
	Problem           string   `json:"problem,omitempty"`
	ProblemSize       *int     `json:"problem_size,omitempty"`
	RunID             string   `json:"run_id,omitempty"`
	PopulationSize    *int     `json:"population_size,omitempty"`
	MaxGenerations    *int     `json:"max_generations,omitempty"`
	TargetFitness     *float64 `json:"target_fitness,omitempty"`
	MutationRate      *float64 `json:"mutation_rate,omitempty"`
	CrossoverRate     *float64 `json:"crossover_rate,omitempty"`
	Minimize          *bool    `json:"minimize,omitempty"`
	NoElitism         *bool    `json:"no_elitism,omitempty"`
	ParentSelection   string   `json:"parent_selection,omitempty"`
	SurvivorSelection string   `json:"survivor_selection,omitempty"`
	PopulationModel   string   `json:"population_model,omitempty"`
	ReplacementRate   *float64 `json:"replacement_rate,omitempty"`
	TournamentSize    *int     `json:"tournament_size,omitempty"`
	Seed              *uint64  `json:"seed,omitempty"`
	Debug             *bool    `json:"debug,omitempty"`
	CacheFitness      *bool    `json:"cache_fitness,omitempty"`
	Plot              string   `json:"plot,omitempty"`
}

func loadFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}
	var cfg fileConfig
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// buildRunRequest layers problem defaults, the optional config file and
// explicitly set flags, in that order.
func buildRunRequest(fs *pflag.FlagSet, flags *runFlags, configPath string) (evoforge.RunRequest, error) {
	var file fileConfig
	if configPath != "" {
		var err error
		if file, err = loadFileConfig(configPath); err != nil {
			return evoforge.RunRequest{}, fmt.Errorf("load config: %w", err)
		}
	}

	problemName := *flags.problem
	if !fs.Changed("problem") && file.Problem != "" {
		problemName = file.Problem
	}
	req, err := evoforge.DefaultRunRequest(problemName)
	if err != nil {
		return evoforge.RunRequest{}, err
	}
	if err := applyFileConfig(&req, file); err != nil {
		return evoforge.RunRequest{}, err
	}
	if err := overrideFromFlags(&req, fs, flags); err != nil {
		return evoforge.RunRequest{}, err
	}
	return req, nil
}

func applyFileConfig(req *evoforge.RunRequest, file fileConfig) error {
	cfg := &req.Config
	if file.ProblemSize != nil {
		req.ProblemSize = *file.ProblemSize
	}
	if file.RunID != "" {
		req.RunID = file.RunID
	}
	if file.PopulationSize != nil {
		cfg.PopulationSize = *file.PopulationSize
	}
	if file.MaxGenerations != nil {
		cfg.MaxGenerations = *file.MaxGenerations
	}
	if file.TargetFitness != nil {
		cfg.TargetFitness = *file.TargetFitness
	}
	if file.MutationRate != nil {
		cfg.MutationRate = *file.MutationRate
	}
	if file.CrossoverRate != nil {
		cfg.CrossoverRate = *file.CrossoverRate
	}
	if file.Minimize != nil {
		cfg.Minimize = *file.Minimize
	}
	if file.NoElitism != nil {
		cfg.NoElitism = *file.NoElitism
	}
	if file.ReplacementRate != nil {
		cfg.ReplacementRate = *file.ReplacementRate
	}
	if file.TournamentSize != nil {
		cfg.TournamentSize = *file.TournamentSize
	}
	if file.Seed != nil {
		cfg.Seed = *file.Seed
	}
	if file.Debug != nil {
		cfg.Debug = *file.Debug
	}
	if file.CacheFitness != nil {
		req.CacheFitness = *file.CacheFitness
	}
	if file.Plot != "" {
		req.PlotPath = file.Plot
	}
	return applyStrategies(cfg, file.ParentSelection, file.SurvivorSelection, file.PopulationModel)
}

func overrideFromFlags(req *evoforge.RunRequest, fs *pflag.FlagSet, flags *runFlags) error {
	cfg := &req.Config
	var parent, survivor, model string
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "problem-size":
			req.ProblemSize = *flags.problemSize
		case "run-id":
			req.RunID = *flags.runID
		case "population-size":
			cfg.PopulationSize = *flags.populationSize
		case "max-generations":
			cfg.MaxGenerations = *flags.maxGenerations
		case "target-fitness":
			cfg.TargetFitness = *flags.targetFitness
		case "mutation-rate":
			cfg.MutationRate = *flags.mutationRate
		case "crossover-rate":
			cfg.CrossoverRate = *flags.crossoverRate
		case "minimize":
			cfg.Minimize = *flags.minimize
		case "no-elitism":
			cfg.NoElitism = *flags.noElitism
		case "parent-selection":
			parent = *flags.parentSelection
		case "survivor-selection":
			survivor = *flags.survivorSelection
		case "population-model":
			model = *flags.populationModel
		case "replacement-rate":
			cfg.ReplacementRate = *flags.replacementRate
		case "tournament-size":
			cfg.TournamentSize = *flags.tournamentSize
		case "seed":
			cfg.Seed = *flags.seed
		case "debug":
			cfg.Debug = *flags.debug
		case "cache-fitness":
			req.CacheFitness = *flags.cacheFitness
		case "plot":
			req.PlotPath = *flags.plot
		}
	})
	return applyStrategies(cfg, parent, survivor, model)
}

// applyStrategies parses non-empty strategy names into cfg.
func applyStrategies(cfg *evo.Config, parent, survivor, model string) error {
	if parent != "" {
		v, err := evo.ParseParentSelection(parent)
		if err != nil {
			return err
		}
		cfg.ParentSelection = v
	}
	if survivor != "" {
		v, err := evo.ParseSurvivorSelection(survivor)
		if err != nil {
			return err
		}
		cfg.SurvivorSelection = v
	}
	if model != "" {
		v, err := evo.ParsePopulationModel(model)
		if err != nil {
			return err
		}
		cfg.PopulationModel = v
	}
	return nil
}
