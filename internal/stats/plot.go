package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"evoforge/internal/model"
)

// PlotFitness renders history to path. ".html" produces an interactive
// chart; every other extension supported by gonum/plot (png, svg, pdf, ...)
// produces a static image.
func PlotFitness(path, title string, history []model.GenerationRecord) error {
	if len(history) == 0 {
		return fmt.Errorf("plot %s: empty history", title)
	}
	if strings.EqualFold(filepath.Ext(path), ".html") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := PlotFitnessHTML(f, title, history); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return PlotFitnessImage(path, title, history)
}

// PlotFitnessImage draws best and mean fitness per generation. Non-finite
// points are skipped.
func PlotFitnessImage(path, title string, history []model.GenerationRecord) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"

	bestPts := make(plotter.XYs, 0, len(history))
	meanPts := make(plotter.XYs, 0, len(history))
	for _, g := range history {
		x := float64(g.Generation)
		if finite(g.BestFitness) {
			bestPts = append(bestPts, plotter.XY{X: x, Y: g.BestFitness})
		}
		if finite(g.MeanFitness) {
			meanPts = append(meanPts, plotter.XY{X: x, Y: g.MeanFitness})
		}
	}

	bestLine, err := plotter.NewLine(bestPts)
	if err != nil {
		return fmt.Errorf("best line: %w", err)
	}
	meanLine, err := plotter.NewLine(meanPts)
	if err != nil {
		return fmt.Errorf("mean line: %w", err)
	}
	meanLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), bestLine, meanLine)
	p.Legend.Add("best", bestLine)
	p.Legend.Add("mean", meanLine)
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// PlotFitnessHTML writes a go-echarts line chart of best, mean and worst
// fitness to w.
func PlotFitnessHTML(w io.Writer, title string, history []model.GenerationRecord) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "generation"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "fitness",
			Scale:     opts.Bool(true),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}),
	)

	generations := make([]int, len(history))
	best := make([]opts.LineData, len(history))
	mean := make([]opts.LineData, len(history))
	worst := make([]opts.LineData, len(history))
	for i, g := range history {
		generations[i] = g.Generation
		best[i] = opts.LineData{Value: chartValue(g.BestFitness)}
		mean[i] = opts.LineData{Value: chartValue(g.MeanFitness)}
		worst[i] = opts.LineData{Value: chartValue(g.WorstFitness)}
	}

	line.SetXAxis(generations).
		AddSeries("best", best).
		AddSeries("mean", mean).
		AddSeries("worst", worst)
	return line.Render(w)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// chartValue maps non-finite values to "-", which echarts renders as a gap.
func chartValue(v float64) any {
	if !finite(v) {
		return "-"
	}
	return v
}
