package main

import (
	"context"
	"encoding/json"
	"errors"
	goflag "flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"evoforge/internal/model"
	"evoforge/internal/problem"
	"evoforge/internal/stats"
	"evoforge/internal/storage"
	"evoforge/internal/telemetry"
	"evoforge/pkg/evoforge"
)

const (
	name    = "evoforge"
	version = "0.3.0"

	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "evoforge.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "problems":
		return runProblems(ctx, args[1:])
	case "version":
		fmt.Fprintf(os.Stdout, "%s v%s\n", name, version)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newFlagSet(command string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

// addKlogFlags exposes -v, --logtostderr and friends on fs.
func addKlogFlags(fs *pflag.FlagSet) {
	gofs := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(gofs)
	fs.AddGoFlagSet(gofs)
}

func runRun(ctx context.Context, args []string) error {
	fs := newFlagSet("run")
	flags := registerRunFlags(fs)
	configPath := fs.String("config", "", "optional run config file (yaml or json)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "directory for run artifacts and the run index")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running (e.g. :9090)")
	statusInterval := fs.Duration("status-interval", time.Second, "minimum elapsed time between status lines")
	quiet := fs.BoolP("quiet", "q", false, "suppress the console report")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	addKlogFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := buildRunRequest(fs, flags, *configPath)
	if err != nil {
		return err
	}
	req.StatusInterval = *statusInterval

	opts := evoforge.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: *artifactsDir,
		Logger:       klog.Background(),
	}
	if !*quiet && !*jsonOut {
		opts.Out = os.Stdout
		fmt.Fprintf(os.Stdout, "%s v%s\n", name, version)
	}
	client, err := evoforge.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *metricsAddr != "" {
		provider, handler, err := telemetry.InitPrometheus(name)
		if err != nil {
			return err
		}
		defer func() {
			_ = provider.Shutdown(context.WithoutCancel(ctx))
		}()
		shutdown, err := serveMetrics(*metricsAddr, handler)
		if err != nil {
			return err
		}
		defer shutdown()
		req.Meter = provider.Meter(telemetry.ScopeName)
	}

	summary, runErr := client.Run(ctx, req)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runSummaryJSON(summary)); err != nil {
			return err
		}
	} else if !*quiet {
		fmt.Fprintf(os.Stdout, "run_id=%s termination=%s evaluations=%s artifacts=%s\n",
			summary.RunID,
			summary.Termination,
			humanize.Comma(int64(summary.Stats.TotalEvaluations)),
			summary.ArtifactsDir,
		)
		if req.CacheFitness {
			fmt.Fprintf(os.Stdout, "fitness_cache hits=%d misses=%d\n", summary.CacheHits, summary.CacheMisses)
		}
	}
	return runErr
}

func serveMetrics(addr string, handler http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "metrics server stopped")
		}
	}()
	klog.V(1).InfoS("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

type runSummaryOutput struct {
	RunID            string        `json:"run_id"`
	Problem          string        `json:"problem"`
	ProblemSize      int           `json:"problem_size"`
	Termination      string        `json:"termination"`
	Generations      int           `json:"generations"`
	BestFitness      float64       `json:"best_fitness"`
	Best             string        `json:"best"`
	BestDisplay      string        `json:"best_display"`
	TotalMutations   int           `json:"total_mutations"`
	TotalCrossovers  int           `json:"total_crossovers"`
	TotalEvaluations int           `json:"total_evaluations"`
	ElapsedSeconds   float64       `json:"elapsed_seconds"`
	Summary          stats.Summary `json:"summary"`
	ArtifactsDir     string        `json:"artifacts_dir"`
}

func runSummaryJSON(s evoforge.RunSummary) runSummaryOutput {
	return runSummaryOutput{
		RunID:            s.RunID,
		Problem:          s.Problem,
		ProblemSize:      s.ProblemSize,
		Termination:      string(s.Termination),
		Generations:      s.Stats.Generation,
		BestFitness:      s.Stats.BestFitness,
		Best:             s.Best,
		BestDisplay:      s.BestDisplay,
		TotalMutations:   s.Stats.TotalMutations,
		TotalCrossovers:  s.Stats.TotalCrossovers,
		TotalEvaluations: s.Stats.TotalEvaluations,
		ElapsedSeconds:   s.Stats.ElapsedSeconds,
		Summary:          s.Summary,
		ArtifactsDir:     s.ArtifactsDir,
	}
}

func runRuns(_ context.Context, args []string) error {
	fs := newFlagSet("runs")
	limit := fs.Int("limit", 20, "max runs to list")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "directory holding the run index")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(*artifactsDir)
	if err != nil {
		return err
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "no runs found")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tPROBLEM\tSIZE\tPOP\tGENS\tBEST\tTERMINATION")
	for _, e := range entries {
		created := e.CreatedAtUTC
		if ts, err := time.Parse(time.RFC3339, e.CreatedAtUTC); err == nil {
			created = humanize.Time(ts)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.6f\t%s\n",
			e.RunID, created, e.Problem, e.ProblemSize, e.PopulationSize, e.Generations, e.BestFitness, e.Termination)
	}
	return tw.Flush()
}

func runHistory(_ context.Context, args []string) error {
	fs := newFlagSet("history")
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 0, "max generations to show (0 shows all)")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "directory holding run artifacts")
	jsonOut := fs.Bool("json", false, "emit history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}

	id, err := resolveRunID(*artifactsDir, *runID, *latest)
	if err != nil {
		return err
	}
	history, err := loadHistory(*artifactsDir, id)
	if err != nil {
		return err
	}
	if *limit > 0 && len(history) > *limit {
		history = history[:*limit]
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GEN\tBEST\tMEAN\tSTDDEV\tWORST\tC\tM")
	for _, g := range history {
		fmt.Fprintf(tw, "%d\t%.6f\t%.6f\t%.6f\t%.6f\t%d\t%d\n",
			g.Generation, g.BestFitness, g.MeanFitness, g.StdDevFitness, g.WorstFitness, g.Crossovers, g.Mutations)
	}
	return tw.Flush()
}

func runPlot(_ context.Context, args []string) error {
	fs := newFlagSet("plot")
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	out := fs.StringP("out", "o", "", "output path; .html renders an interactive chart, .png/.svg/.pdf a static one")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "directory holding run artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("plot requires --out")
	}

	id, err := resolveRunID(*artifactsDir, *runID, *latest)
	if err != nil {
		return err
	}
	history, err := loadHistory(*artifactsDir, id)
	if err != nil {
		return err
	}
	if err := stats.PlotFitness(*out, id, history); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "plotted run_id=%s generations=%d out=%s\n", id, len(history), filepath.Clean(*out))
	return nil
}

func runExport(_ context.Context, args []string) error {
	fs := newFlagSet("export")
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	outDir := fs.String("out-dir", defaultExportsDir, "export destination")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "directory holding run artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := resolveRunID(*artifactsDir, *runID, *latest)
	if err != nil {
		return err
	}
	dir, err := stats.ExportRunArtifacts(*artifactsDir, id, *outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "exported run_id=%s dir=%s\n", id, filepath.Clean(dir))
	return nil
}

func runProblems(_ context.Context, args []string) error {
	fs := newFlagSet("problems")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tDIRECTION\tTARGET\tDESCRIPTION")
	for _, n := range problem.Names() {
		info, err := problem.Lookup(n)
		if err != nil {
			return err
		}
		direction := "maximize"
		if info.Minimize {
			direction = "minimize"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%g\t%s\n", info.Name, info.DefaultSize, direction, info.DefaultTarget, info.Description)
	}
	return tw.Flush()
}

func resolveRunID(artifactsDir, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either --run-id or --latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("requires --run-id or --latest")
	}
	entries, err := stats.ListRunIndex(artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", evoforge.ErrNoRuns
	}
	return entries[0].RunID, nil
}

// loadHistory reads the artifacts written at the end of every run, which
// exist whichever store backend the run used.
func loadHistory(artifactsDir, runID string) ([]model.GenerationRecord, error) {
	artifacts, ok, err := stats.ReadRunArtifacts(artifactsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", evoforge.ErrRunNotFound, runID)
	}
	return artifacts.History, nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: evoforgectl <run|runs|history|plot|export|problems|version> [flags]", msg)
}
