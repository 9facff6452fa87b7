package evoforge

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	testingclock "k8s.io/utils/clock/testing"

	"evoforge/internal/evo"
	"evoforge/internal/problem"
	"evoforge/internal/stats"
)

func newTestClient(t *testing.T, out *bytes.Buffer) *Client {
	t.Helper()
	base := t.TempDir()
	opts := Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "runs"),
		ExportsDir:   filepath.Join(base, "exports"),
		Logger:       testr.New(t),
		Clock:        testingclock.NewFakePassiveClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
	}
	if out != nil {
		opts.Out = out
	}
	client, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func nqueensRequest(t *testing.T, size, generations int, seed uint64) RunRequest {
	t.Helper()
	req, err := DefaultRunRequest(problem.NameNQueens)
	require.NoError(t, err)
	req.ProblemSize = size
	req.Config.PopulationSize = 30
	req.Config.MaxGenerations = generations
	req.Config.Seed = seed
	return req
}

func TestDefaultRunRequest(t *testing.T) {
	req, err := DefaultRunRequest(problem.NameTravelingSalesman)
	require.NoError(t, err)
	assert.True(t, req.Config.Minimize)
	assert.Equal(t, 0.0, req.Config.TargetFitness)
	assert.Equal(t, 20, req.ProblemSize)
	assert.Equal(t, 1000, req.Config.MaxGenerations)

	_, err = DefaultRunRequest("sudoku")
	require.ErrorIs(t, err, problem.ErrUnknownProblem)
}

func TestClientRunStoresRunHistoryAndArtifacts(t *testing.T) {
	var out bytes.Buffer
	client := newTestClient(t, &out)
	ctx := context.Background()

	summary, err := client.Run(ctx, nqueensRequest(t, 6, 20, 7))
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
	require.GreaterOrEqual(t, summary.Stats.Generation, 1)
	require.LessOrEqual(t, summary.Stats.Generation, 20)
	require.Len(t, summary.History, summary.Stats.Generation)
	require.Contains(t, []evo.TerminationReason{evo.TerminationTarget, evo.TerminationMaxGenerations}, summary.Termination)
	require.Greater(t, summary.Stats.BestFitness, 0.0)
	require.LessOrEqual(t, summary.Stats.BestFitness, 1.0)

	assert.Contains(t, out.String(), "Attempting to evolve nqueens (6) to target fitness 1.000 in maximum 20 generations")
	assert.Contains(t, out.String(), "fitness in")

	run, err := client.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "nqueens", run.Problem)
	assert.Equal(t, 6, run.ProblemSize)
	assert.Equal(t, "RouletteWheel", run.Config.ParentSelection)
	assert.Equal(t, string(summary.Termination), run.Termination)

	history, err := client.History(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, summary.History, history)

	runs, err := client.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	latest, err := client.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, latest)

	_, err = os.Stat(filepath.Join(summary.ArtifactsDir, "run.json"))
	require.NoError(t, err)
	index, err := stats.ListRunIndex(client.artifactsDir)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, summary.RunID, index[0].RunID)

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, exported.RunID)
	_, err = os.Stat(filepath.Join(exported.Directory, "history.json"))
	require.NoError(t, err)

	plotPath := filepath.Join(t.TempDir(), "fitness.html")
	require.NoError(t, client.Plot(ctx, summary.RunID, plotPath))
	_, err = os.Stat(plotPath)
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, summary.RunID))
	_, err = client.GetRun(ctx, summary.RunID)
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestClientRunIsDeterministicForSeed(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	first, err := client.Run(ctx, nqueensRequest(t, 10, 15, 99))
	require.NoError(t, err)
	second, err := client.Run(ctx, nqueensRequest(t, 10, 15, 99))
	require.NoError(t, err)

	require.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.BestDisplay, second.BestDisplay)
}

func TestClientRunTravelingSalesmanWithCacheAndPlot(t *testing.T) {
	client := newTestClient(t, nil)
	req, err := DefaultRunRequest(problem.NameTravelingSalesman)
	require.NoError(t, err)
	req.RunID = "tsp-run"
	req.ProblemSize = 8
	req.Config.PopulationSize = 20
	req.Config.MaxGenerations = 5
	req.Config.Seed = 3
	req.CacheFitness = true
	req.PlotPath = filepath.Join(t.TempDir(), "tsp.png")

	summary, err := client.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "tsp-run", summary.RunID)
	assert.Equal(t, evo.TerminationMaxGenerations, summary.Termination)
	assert.Equal(t, 5, summary.Stats.Generation)
	assert.Equal(t, int64(summary.Stats.TotalEvaluations), summary.CacheHits+summary.CacheMisses)
	assert.Positive(t, summary.Stats.BestFitness)
	assert.GreaterOrEqual(t, summary.Summary.Improvement, 0.0)

	_, err = os.Stat(req.PlotPath)
	require.NoError(t, err)
}

func TestClientRunRecordsMetrics(t *testing.T) {
	client := newTestClient(t, nil)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	req := nqueensRequest(t, 8, 3, 5)
	req.Config.TargetFitness = 2 // unreachable, forces all generations
	req.Meter = provider.Meter("test")
	_, err := client.Run(context.Background(), req)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var generations int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "evoforge.generations" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				generations += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), generations)
}

func TestClientRunCanceledStillStores(t *testing.T) {
	client := newTestClient(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := client.Run(ctx, nqueensRequest(t, 8, 0, 1))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, evo.TerminationCanceled, summary.Termination)
	assert.Zero(t, summary.Stats.Generation)

	run, err := client.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "canceled", run.Termination)
}

func TestClientRunRejectsBadInput(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.Run(ctx, RunRequest{Problem: "sudoku", Config: evo.DefaultConfig()})
	require.ErrorIs(t, err, problem.ErrUnknownProblem)

	req := nqueensRequest(t, 8, 1, 1)
	req.Config.MutationRate = 1.5
	_, err = client.Run(ctx, req)
	require.ErrorIs(t, err, evo.ErrConfiguration)

	_, err = client.History(ctx, "missing")
	require.ErrorIs(t, err, ErrRunNotFound)

	_, err = client.Export(ctx, ExportRequest{})
	require.Error(t, err)
}

func TestLatestRunIDWithoutRuns(t *testing.T) {
	_, err := newTestClient(t, nil).LatestRunID(context.Background())
	require.ErrorIs(t, err, ErrNoRuns)
}
