package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunConfig is the configuration snapshot stored with a run.
type RunConfig struct {
	PopulationSize    int     `json:"population_size"`
	MaxGenerations    int     `json:"max_generations"`
	TargetFitness     float64 `json:"target_fitness"`
	MutationRate      float64 `json:"mutation_rate"`
	CrossoverRate     float64 `json:"crossover_rate"`
	Minimize          bool    `json:"minimize"`
	NoElitism         bool    `json:"no_elitism"`
	ParentSelection   string  `json:"parent_selection"`
	SurvivorSelection string  `json:"survivor_selection"`
	PopulationModel   string  `json:"population_model"`
	ReplacementRate   float64 `json:"replacement_rate,omitempty"`
	TournamentSize    int     `json:"tournament_size,omitempty"`
	Seed              uint64  `json:"seed"`
}

// RunRecord is the outcome of one finished run. Population state is not kept.
type RunRecord struct {
	VersionedRecord
	ID               string    `json:"id"`
	Problem          string    `json:"problem"`
	ProblemSize      int       `json:"problem_size"`
	Config           RunConfig `json:"config"`
	Generations      int       `json:"generations"`
	BestFitness      float64   `json:"best_fitness"`
	BestDisplay      string    `json:"best_display"`
	TotalMutations   int       `json:"total_mutations"`
	TotalCrossovers  int       `json:"total_crossovers"`
	TotalEvaluations int       `json:"total_evaluations"`
	ElapsedSeconds   float64   `json:"elapsed_seconds"`
	Termination      string    `json:"termination"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// GenerationRecord is the fitness distribution after one generation.
type GenerationRecord struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"best_fitness"`
	WorstFitness   float64 `json:"worst_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	StdDevFitness  float64 `json:"stddev_fitness"`
	Mutations      int     `json:"mutations"`
	Crossovers     int     `json:"crossovers"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}
