package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/model"
	"evoforge/internal/stats"
)

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func runJSON(t *testing.T, args ...string) runSummaryOutput {
	t.Helper()
	out, err := captureStdout(func() error {
		return run(context.Background(), append(args, "--json"))
	})
	require.NoError(t, err)
	var summary runSummaryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	return summary
}

func TestRunCommandWritesArtifactsAndIndex(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--store", "memory",
			"--problem", "nqueens",
			"--problem-size", "6",
			"-p", "20",
			"-g", "5",
			"--seed", "3",
			"--status-interval", "0s",
		})
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "evoforge v"+version+"\n"))
	assert.Contains(t, out, "Attempting to evolve nqueens (6) to target fitness 1.000 in maximum 5 generations")
	assert.Contains(t, out, "fitness in")
	assert.Contains(t, out, "run_id=")

	entries, err := stats.ListRunIndex(defaultArtifactsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	runID := entries[0].RunID

	for _, file := range []string{"run.json", "history.json", "summary.json", "fitness_series.csv"} {
		_, err := os.Stat(filepath.Join(defaultArtifactsDir, runID, file))
		require.NoError(t, err, file)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"runs"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "nqueens")

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"history", "--latest", "--json"})
	})
	require.NoError(t, err)
	var history []model.GenerationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.NotEmpty(t, history)
	assert.Equal(t, 1, history[0].Generation)

	_, err = captureStdout(func() error {
		return run(context.Background(), []string{"plot", "--run-id", runID, "--out", "fitness.html"})
	})
	require.NoError(t, err)
	_, err = os.Stat("fitness.html")
	require.NoError(t, err)

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"export", "--latest", "--out-dir", "out"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "exported run_id="+runID)
	_, err = os.Stat(filepath.Join("out", runID, "history.json"))
	require.NoError(t, err)
}

func TestRunCommandSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	dbPath := filepath.Join(dir, "evoforge.db")
	summary := runJSON(t, "run",
		"--store", "sqlite",
		"--db-path", dbPath,
		"--problem", "tsp",
		"--problem-size", "7",
		"-p", "16",
		"-g", "4",
		"--seed", "11",
		"--cache-fitness",
	)
	assert.Equal(t, "tsp", summary.Problem)
	assert.Equal(t, 4, summary.Generations)
	assert.Equal(t, "max_generations", summary.Termination)

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
}

func TestRunCommandConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	config := []byte(strings.Join([]string{
		"problem: tsp",
		"problem_size: 6",
		"population_size: 12",
		"max_generations: 9",
		"parent_selection: tournamentselection",
		"population_model: SteadyState",
		"replacement_rate: 0.25",
		"seed: 5",
		"run_id: from-config",
	}, "\n"))
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, config, 0o644))

	summary := runJSON(t, "run", "--store", "memory", "--config", path, "-g", "2")
	assert.Equal(t, "from-config", summary.RunID)
	assert.Equal(t, "tsp", summary.Problem)
	assert.Equal(t, 6, summary.ProblemSize)
	assert.Equal(t, 2, summary.Generations)

	var record model.RunRecord
	data, err := os.ReadFile(filepath.Join(defaultArtifactsDir, "from-config", "run.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "TournamentSelection", record.Config.ParentSelection)
	assert.Equal(t, "SteadyState", record.Config.PopulationModel)
	assert.Equal(t, 12, record.Config.PopulationSize)
	assert.True(t, record.Config.Minimize)
}

func TestRunCommandRejectsBadInput(t *testing.T) {
	t.Chdir(t.TempDir())

	err := run(context.Background(), []string{"run", "--store", "memory", "--parent-selection", "lottery"})
	require.Error(t, err)

	err = run(context.Background(), []string{"run", "--store", "memory", "-m", "2"})
	require.ErrorContains(t, err, "mutation_rate")

	require.NoError(t, os.WriteFile("bad.yaml", []byte("populaton_size: 3\n"), 0o644))
	err = run(context.Background(), []string{"run", "--store", "memory", "--config", "bad.yaml"})
	require.ErrorContains(t, err, "load config")

	err = run(context.Background(), []string{"history"})
	require.Error(t, err)
}

func TestCommandDispatch(t *testing.T) {
	require.ErrorContains(t, run(context.Background(), nil), "missing command")
	require.ErrorContains(t, run(context.Background(), []string{"bogus"}), "unknown command: bogus")

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"version"})
	})
	require.NoError(t, err)
	assert.Equal(t, "evoforge v"+version+"\n", out)

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"problems"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "nqueens")
	assert.Contains(t, out, "minimize")
}

func TestRunsWithoutIndex(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs"})
	})
	require.NoError(t, err)
	assert.Equal(t, "no runs found\n", out)
}
