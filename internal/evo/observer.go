package evo

// RunInfo is handed to observers before the first generation.
type RunInfo struct {
	Problem string
	Config  Config
}

// Snapshot describes the population at a generation boundary. The lazy fields
// are only computed when an observer asks for them.
type Snapshot struct {
	Stats       Stats
	Summary     GenerationSummary
	Best        string
	BestDisplay func() string
	Fitnesses   func() []float64
}

// Report is the terminal state of a run.
type Report struct {
	Stats       Stats
	Reason      TerminationReason
	Best        string
	BestDisplay string
}

// Observer receives run lifecycle events. Observers must not consume the
// run's random source.
type Observer interface {
	Started(info RunInfo)
	Generation(snapshot Snapshot)
	Finished(report Report)
}

type TerminationReason string

const (
	TerminationTarget         TerminationReason = "target_reached"
	TerminationMaxGenerations TerminationReason = "max_generations"
	TerminationCanceled       TerminationReason = "canceled"
)
