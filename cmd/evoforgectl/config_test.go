package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/evo"
	"evoforge/pkg/evoforge"
)

func parseRunFlags(t *testing.T, args ...string) func(configPath string) (evoforge.RunRequest, error) {
	t.Helper()
	fs := newFlagSet("run")
	flags := registerRunFlags(fs)
	require.NoError(t, fs.Parse(args))
	return func(configPath string) (evoforge.RunRequest, error) {
		return buildRunRequest(fs, flags, configPath)
	}
}

func TestBuildRunRequestProblemDefaults(t *testing.T) {
	build := parseRunFlags(t, "--problem", "tsp")
	req, err := build("")
	require.NoError(t, err)
	assert.Equal(t, "tsp", req.Problem)
	assert.Equal(t, 20, req.ProblemSize)
	assert.True(t, req.Config.Minimize)
	assert.Equal(t, 0.0, req.Config.TargetFitness)
	assert.Equal(t, 50, req.Config.PopulationSize)
}

func TestBuildRunRequestShortFlags(t *testing.T) {
	build := parseRunFlags(t, "-p", "80", "-g", "30", "-t", "0.9", "-m", "0.2", "-c", "0.7", "-d",
		"--parent-selection", "rankselection", "--survivor-selection", "agebased", "--population-model", "steadystate",
		"--no-elitism", "--cache-fitness")
	req, err := build("")
	require.NoError(t, err)
	cfg := req.Config
	assert.Equal(t, 80, cfg.PopulationSize)
	assert.Equal(t, 30, cfg.MaxGenerations)
	assert.Equal(t, 0.9, cfg.TargetFitness)
	assert.Equal(t, 0.2, cfg.MutationRate)
	assert.Equal(t, 0.7, cfg.CrossoverRate)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.NoElitism)
	assert.Equal(t, evo.RankSelection, cfg.ParentSelection)
	assert.Equal(t, evo.AgeBased, cfg.SurvivorSelection)
	assert.Equal(t, evo.SteadyState, cfg.PopulationModel)
	assert.True(t, req.CacheFitness)
}

func TestBuildRunRequestConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"problem":"nqueens","problem_size":12,"mutation_rate":0.3,"minimize":false,"seed":42}`), 0o644))

	build := parseRunFlags(t, "--seed", "7", "--run-id", "abc")
	req, err := build(path)
	require.NoError(t, err)
	assert.Equal(t, 12, req.ProblemSize)
	assert.Equal(t, 0.3, req.Config.MutationRate)
	assert.Equal(t, uint64(7), req.Config.Seed)
	assert.Equal(t, "abc", req.RunID)
	// Unset flags keep the file's values even though their defaults differ.
	assert.Equal(t, 0.5, req.Config.CrossoverRate)
}

func TestBuildRunRequestFlagProblemWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("problem: tsp\n"), 0o644))

	build := parseRunFlags(t, "--problem", "nqueens")
	req, err := build(path)
	require.NoError(t, err)
	assert.Equal(t, "nqueens", req.Problem)
	assert.False(t, req.Config.Minimize)
}

func TestBuildRunRequestErrors(t *testing.T) {
	build := parseRunFlags(t, "--problem", "sudoku")
	_, err := build("")
	require.Error(t, err)

	build = parseRunFlags(t)
	_, err = build(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "load config")

	build = parseRunFlags(t, "--population-model", "island")
	_, err = build("")
	require.ErrorIs(t, err, evo.ErrUnsupportedStrategy)
}
