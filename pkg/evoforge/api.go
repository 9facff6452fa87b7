// Package evoforge is the public entry point for running and inspecting
// evolutions.
package evoforge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"k8s.io/utils/clock"

	"evoforge/internal/evo"
	"evoforge/internal/fitcache"
	"evoforge/internal/model"
	"evoforge/internal/problem"
	"evoforge/internal/report"
	"evoforge/internal/stats"
	"evoforge/internal/storage"
	"evoforge/internal/telemetry"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "evoforge.db"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrNoRuns      = errors.New("no runs available")
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	// Out receives the console report. Nil keeps runs silent.
	Out    io.Writer
	Logger logr.Logger
	Clock  clock.PassiveClock
}

type Client struct {
	store        storage.Store
	artifactsDir string
	exportsDir   string
	out          io.Writer
	log          logr.Logger
	clock        clock.PassiveClock

	initOnce sync.Once
	initErr  error
}

// RunRequest describes one evolution. Start from DefaultRunRequest so the
// configuration carries the problem's defaults.
type RunRequest struct {
	RunID       string
	Problem     string
	ProblemSize int
	Config      evo.Config

	// CacheFitness memoizes fitness by genotype for the duration of the run.
	CacheFitness bool
	// PlotPath, when set, receives a fitness plot (.html or an image type).
	PlotPath string
	// Meter, when set, records engine metrics.
	Meter metric.Meter
	// StatusInterval throttles console status lines; zero means one second.
	StatusInterval time.Duration
	Observers      []evo.Observer
}

type RunSummary struct {
	RunID        string
	Problem      string
	ProblemSize  int
	Stats        evo.Stats
	Termination  evo.TerminationReason
	Best         string
	BestDisplay  string
	History      []model.GenerationRecord
	Summary      stats.Summary
	ArtifactsDir string
	CacheHits    int64
	CacheMisses  int64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		out:          opts.Out,
		log:          log,
		clock:        clk,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// DefaultRunRequest returns the engine defaults adjusted to the problem's
// direction, target and size.
func DefaultRunRequest(problemName string) (RunRequest, error) {
	info, err := problem.Lookup(problemName)
	if err != nil {
		return RunRequest{}, err
	}
	cfg := evo.DefaultConfig()
	cfg.Minimize = info.Minimize
	cfg.TargetFitness = info.DefaultTarget
	cfg.MaxGenerations = info.DefaultGenerations
	return RunRequest{
		Problem:     info.Name,
		ProblemSize: info.DefaultSize,
		Config:      cfg,
	}, nil
}

// Run evolves req.Problem and persists the outcome. A canceled context still
// stores the partial run and returns its summary alongside ctx.Err().
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	info, err := problem.Lookup(req.Problem)
	if err != nil {
		return RunSummary{}, err
	}
	if req.ProblemSize <= 0 {
		req.ProblemSize = info.DefaultSize
	}
	if err := req.Config.Validate(); err != nil {
		return RunSummary{}, err
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	if req.Config.Seed == 0 {
		// Recorded with the run so it can be replayed.
		req.Config.Seed = rand.Uint64()
	}
	log := c.log.WithValues("run", runID, "problem", info.Name)

	observers, err := c.observers(req)
	if err != nil {
		return RunSummary{}, err
	}
	startedAt := c.clock.Now().UTC()
	env := runEnv{
		cfg:       req.Config,
		rng:       evo.NewRand(req.Config.Seed),
		clock:     c.clock,
		log:       log,
		observers: observers,
		cache:     req.CacheFitness,
	}

	var out outcome
	switch info.Name {
	case problem.NameNQueens:
		q, perr := problem.NewNQueens(req.ProblemSize)
		if perr != nil {
			return RunSummary{}, perr
		}
		out, err = runEngine[problem.Board](ctx, q, q.Key, env)
	case problem.NameTravelingSalesman:
		cities := problem.RandomCities(req.ProblemSize, env.rng)
		s, perr := problem.NewTravelingSalesman(len(cities), problem.NewDistanceTable(cities))
		if perr != nil {
			return RunSummary{}, perr
		}
		out, err = runEngine[problem.Tour](ctx, s, s.Key, env)
	default:
		err = fmt.Errorf("%w: %s", problem.ErrUnknownProblem, info.Name)
	}
	if err != nil && !out.canceled {
		return RunSummary{}, err
	}
	runErr := err

	history := historyRecords(out.history)
	record := model.RunRecord{
		ID:               runID,
		Problem:          info.Name,
		ProblemSize:      req.ProblemSize,
		Config:           runConfigRecord(req.Config),
		Generations:      out.stats.Generation,
		BestFitness:      out.stats.BestFitness,
		BestDisplay:      out.display,
		TotalMutations:   out.stats.TotalMutations,
		TotalCrossovers:  out.stats.TotalCrossovers,
		TotalEvaluations: out.stats.TotalEvaluations,
		ElapsedSeconds:   out.stats.ElapsedSeconds,
		Termination:      string(out.reason),
		StartedAt:        startedAt,
		FinishedAt:       c.clock.Now().UTC(),
	}
	// Persistence must survive a canceled run context.
	persistCtx := context.WithoutCancel(ctx)
	if err := c.store.SaveRun(persistCtx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := c.store.SaveHistory(persistCtx, runID, history); err != nil {
		return RunSummary{}, fmt.Errorf("save history %s: %w", runID, err)
	}

	summary := stats.Summarize(history, req.Config.Minimize)
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run:     record,
		History: history,
		Summary: summary,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntryFor(record)); err != nil {
		return RunSummary{}, err
	}
	if req.PlotPath != "" && len(history) > 0 {
		if err := stats.PlotFitness(req.PlotPath, fmt.Sprintf("%s (%d)", info.Name, req.ProblemSize), history); err != nil {
			return RunSummary{}, fmt.Errorf("plot fitness: %w", err)
		}
	}
	log.V(1).Info("run stored", "artifacts", runDir, "termination", record.Termination)

	return RunSummary{
		RunID:        runID,
		Problem:      info.Name,
		ProblemSize:  req.ProblemSize,
		Stats:        out.stats,
		Termination:  out.reason,
		Best:         out.best,
		BestDisplay:  out.display,
		History:      history,
		Summary:      summary,
		ArtifactsDir: filepath.Clean(runDir),
		CacheHits:    out.hits,
		CacheMisses:  out.misses,
	}, runErr
}

func (c *Client) observers(req RunRequest) ([]evo.Observer, error) {
	var observers []evo.Observer
	if c.out != nil {
		interval := req.StatusInterval
		if interval <= 0 {
			interval = time.Second
		}
		observers = append(observers, report.NewConsole(c.out,
			report.WithProblemSize(req.ProblemSize),
			report.WithDebug(req.Config.Debug),
			report.WithInterval(interval),
		))
	}
	if req.Meter != nil {
		m, err := telemetry.NewMetricsObserver(req.Meter)
		if err != nil {
			return nil, fmt.Errorf("metrics observer: %w", err)
		}
		observers = append(observers, m)
	}
	return append(observers, req.Observers...), nil
}

// Runs lists stored runs newest first. A non-positive limit returns all.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (model.RunRecord, error) {
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// LatestRunID returns the id of the most recently started run.
func (c *Client) LatestRunID(ctx context.Context) (string, error) {
	runs, err := c.Runs(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[0].ID, nil
}

func (c *Client) History(ctx context.Context, runID string) ([]model.GenerationRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return history, nil
}

// Plot renders a stored run's history to path.
func (c *Client) Plot(ctx context.Context, runID, path string) error {
	run, err := c.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	history, err := c.History(ctx, runID)
	if err != nil {
		return err
	}
	return stats.PlotFitness(path, fmt.Sprintf("%s (%d) %s", run.Problem, run.ProblemSize, run.ID), history)
}

func (c *Client) Delete(ctx context.Context, runID string) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	return c.store.DeleteRun(ctx, runID)
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID := req.RunID
	if req.Latest {
		id, err := c.LatestRunID(ctx)
		if err != nil {
			return ExportSummary{}, err
		}
		runID = id
	}
	dir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}

type runEnv struct {
	cfg       evo.Config
	rng       evo.Rand
	clock     clock.PassiveClock
	log       logr.Logger
	observers []evo.Observer
	cache     bool
}

type outcome struct {
	stats    evo.Stats
	history  []evo.GenerationSummary
	reason   evo.TerminationReason
	best     string
	display  string
	hits     int64
	misses   int64
	canceled bool
}

func runEngine[G any](ctx context.Context, p evo.Problem[G], key fitcache.KeyFunc[G], env runEnv) (outcome, error) {
	var cached *fitcache.Problem[G]
	if env.cache {
		cached = fitcache.Memoize(p, key, 0, fitcache.DefaultLimit)
		p = cached
	}
	opts := []evo.Option[G]{
		evo.WithRand[G](env.rng),
		evo.WithClock[G](env.clock),
		evo.WithLogger[G](env.log),
	}
	for _, o := range env.observers {
		opts = append(opts, evo.WithObserver[G](o))
	}

	engine, err := evo.NewEngine(p, env.cfg, opts...)
	if err != nil {
		return outcome{}, err
	}
	res, runErr := engine.Run(ctx)
	out := outcome{
		stats:    res.Stats,
		history:  res.History,
		reason:   res.Reason,
		best:     res.Best.String(),
		display:  p.Display(res.Best.Genotype),
		canceled: res.Reason == evo.TerminationCanceled,
	}
	if cached != nil {
		out.hits, out.misses = cached.Stats()
	}
	return out, runErr
}

func historyRecords(history []evo.GenerationSummary) []model.GenerationRecord {
	out := make([]model.GenerationRecord, len(history))
	for i, g := range history {
		out[i] = model.GenerationRecord{
			Generation:     g.Generation,
			BestFitness:    g.BestFitness,
			WorstFitness:   g.WorstFitness,
			MeanFitness:    g.MeanFitness,
			StdDevFitness:  g.StdDevFitness,
			Mutations:      g.Mutations,
			Crossovers:     g.Crossovers,
			ElapsedSeconds: g.ElapsedSeconds,
		}
	}
	return out
}

func runConfigRecord(cfg evo.Config) model.RunConfig {
	return model.RunConfig{
		PopulationSize:    cfg.PopulationSize,
		MaxGenerations:    cfg.MaxGenerations,
		TargetFitness:     cfg.TargetFitness,
		MutationRate:      cfg.MutationRate,
		CrossoverRate:     cfg.CrossoverRate,
		Minimize:          cfg.Minimize,
		NoElitism:         cfg.NoElitism,
		ParentSelection:   cfg.ParentSelection.String(),
		SurvivorSelection: cfg.SurvivorSelection.String(),
		PopulationModel:   cfg.PopulationModel.String(),
		ReplacementRate:   cfg.ReplacementRate,
		TournamentSize:    cfg.TournamentSize,
		Seed:              cfg.Seed,
	}
}
