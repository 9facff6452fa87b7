package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"evoforge/internal/model"
)

const (
	runIndexFile   = "run_index.json"
	runFile        = "run.json"
	historyFile    = "history.json"
	summaryFile    = "summary.json"
	fitnessCSVFile = "fitness_series.csv"
)

var ErrRunIDRequired = errors.New("run id is required")

// RunArtifacts is everything written to disk for one finished run.
type RunArtifacts struct {
	Run     model.RunRecord          `json:"run"`
	History []model.GenerationRecord `json:"history"`
	Summary Summary                  `json:"summary"`
}

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	Problem        string  `json:"problem"`
	ProblemSize    int     `json:"problem_size"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	Seed           uint64  `json:"seed"`
	BestFitness    float64 `json:"best_fitness"`
	Termination    string  `json:"termination"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	Sequence       int64   `json:"sequence"`
}

// IndexEntryFor derives the index line of a run record.
func IndexEntryFor(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:          run.ID,
		Problem:        run.Problem,
		ProblemSize:    run.ProblemSize,
		PopulationSize: run.Config.PopulationSize,
		Generations:    run.Generations,
		Seed:           run.Config.Seed,
		BestFitness:    run.BestFitness,
		Termination:    run.Termination,
		CreatedAtUTC:   run.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// WriteRunArtifacts writes run.json, history.json, summary.json and the
// best-fitness CSV under baseDir/<run id> and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runID := strings.TrimSpace(artifacts.Run.ID)
	if runID == "" {
		return "", ErrRunIDRequired
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	history := artifacts.History
	if history == nil {
		history = []model.GenerationRecord{}
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), history); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, history); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadRunArtifacts loads what WriteRunArtifacts stored. The bool is false
// when the run directory has no run.json.
func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, bool, error) {
	var out RunArtifacts
	ok, err := readJSON(filepath.Join(baseDir, runID, runFile), &out.Run)
	if err != nil || !ok {
		return RunArtifacts{}, ok, err
	}
	if _, err := readJSON(filepath.Join(baseDir, runID, historyFile), &out.History); err != nil {
		return RunArtifacts{}, false, err
	}
	if _, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &out.Summary); err != nil {
		return RunArtifacts{}, false, err
	}
	return out, true, nil
}

// ExportRunArtifacts copies a run directory into outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", ErrRunIDRequired
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{runFile, historyFile, summaryFile, fitnessCSVFile} {
		from := filepath.Join(src, file)
		if _, err := os.Stat(from); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if err := copyFile(from, filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// AppendRunIndex adds entry to the index, or replaces the entry with the same
// run id. Every write stamps a sequence number above all existing ones.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return ErrRunIDRequired
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	var index []RunIndexEntry
	if _, err := readJSON(filepath.Join(baseDir, runIndexFile), &index); err != nil {
		return err
	}
	var last int64
	for _, existing := range index {
		last = max(last, existing.Sequence)
	}
	entry.Sequence = last + 1

	replaced := false
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index = append(index, entry)
	}
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first. Entries with equal
// timestamps are ordered by the later write first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	if _, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC == entries[j].CreatedAtUTC {
			return entries[i].Sequence > entries[j].Sequence
		}
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

// WriteFitnessSeries writes generation,best,mean,stddev,worst rows.
func WriteFitnessSeries(runDir string, history []model.GenerationRecord) error {
	file, err := os.Create(filepath.Join(runDir, fitnessCSVFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness", "mean_fitness", "stddev_fitness", "worst_fitness"}); err != nil {
		return err
	}
	for _, g := range history {
		if err := writer.Write([]string{
			strconv.Itoa(g.Generation),
			formatFloat(g.BestFitness),
			formatFloat(g.MeanFitness),
			formatFloat(g.StdDevFitness),
			formatFloat(g.WorstFitness),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFitnessSeries returns the best-fitness column of a run's CSV.
func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, fitnessCSVFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, fmt.Errorf("fitness series row %q: %w", record[0], err)
		}
		series = append(series, value)
	}
	return series, true, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
