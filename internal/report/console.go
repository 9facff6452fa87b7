// Package report renders run progress for humans.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"evoforge/internal/evo"
)

const clearLine = "\r\033[K"

// Console is an evo.Observer that prints a start banner, a throttled status
// line and a final summary. Throttling uses the elapsed time the engine
// reports, so it never reads a clock of its own.
type Console struct {
	out         io.Writer
	size        int
	debug       bool
	interval    float64
	interactive bool

	lastPrint float64
	pending   bool
}

type ConsoleOption func(*Console)

// WithProblemSize sets the size shown in the banner.
func WithProblemSize(n int) ConsoleOption {
	return func(c *Console) { c.size = n }
}

// WithDebug prints the fitness vector and the best genotype with every
// status line, and the configuration at start.
func WithDebug(debug bool) ConsoleOption {
	return func(c *Console) { c.debug = debug }
}

// WithInterval sets the minimum elapsed time between status lines.
func WithInterval(d time.Duration) ConsoleOption {
	return func(c *Console) { c.interval = d.Seconds() }
}

// WithInteractive overrides terminal detection.
func WithInteractive(interactive bool) ConsoleOption {
	return func(c *Console) { c.interactive = interactive }
}

func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		out:         out,
		interval:    1,
		interactive: IsTerminal(out),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) Started(info evo.RunInfo) {
	c.lastPrint = 0
	c.pending = false
	if c.debug {
		fmt.Fprintf(c.out, "%+v\n", info.Config)
	}
	name := info.Problem
	if c.size > 0 {
		name = fmt.Sprintf("%s (%d)", info.Problem, c.size)
	}
	if info.Config.MaxGenerations == 0 {
		fmt.Fprintf(c.out, "Attempting to evolve %s until target fitness %.3f is met\n",
			name, info.Config.TargetFitness)
		return
	}
	fmt.Fprintf(c.out, "Attempting to evolve %s to target fitness %.3f in maximum %d generations\n",
		name, info.Config.TargetFitness, info.Config.MaxGenerations)
}

func (c *Console) Generation(snapshot evo.Snapshot) {
	elapsed := snapshot.Stats.ElapsedSeconds
	if elapsed-c.lastPrint <= c.interval {
		return
	}
	c.lastPrint = elapsed

	line := fmt.Sprintf("%s Best: %s", snapshot.Stats, snapshot.Best)
	if c.interactive && !c.debug {
		fmt.Fprint(c.out, clearLine+line)
		c.pending = true
		return
	}
	fmt.Fprintln(c.out, line)
	if c.debug {
		if snapshot.Fitnesses != nil {
			fmt.Fprintf(c.out, "%v\n", snapshot.Fitnesses())
		}
		if snapshot.BestDisplay != nil {
			fmt.Fprintln(c.out, snapshot.BestDisplay())
		}
	}
}

func (c *Console) Finished(report evo.Report) {
	if c.pending {
		fmt.Fprintln(c.out)
		c.pending = false
	}
	verb := "Reached"
	if report.Reason == evo.TerminationCanceled {
		verb = "Stopped at"
	}
	s := report.Stats
	fmt.Fprintf(c.out, "%s %.3f fitness in %s generations after %.3fs with %s mutations and %s crossovers\n",
		verb,
		s.BestFitness,
		humanize.Comma(int64(s.Generation)),
		s.ElapsedSeconds,
		humanize.Comma(int64(s.TotalMutations)),
		humanize.Comma(int64(s.TotalCrossovers)),
	)
	if report.BestDisplay != "" {
		fmt.Fprintln(c.out, report.BestDisplay)
	}
}
