package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/model"
)

func TestSummarizeMaximize(t *testing.T) {
	s := Summarize(sampleHistory(), false)
	require.Equal(t, 3, s.Generations)
	assert.Equal(t, 0.5, s.InitialBest)
	assert.Equal(t, 0.8, s.FinalBest)
	assert.Equal(t, 0.8, s.BestOverall)
	assert.InDelta(t, 0.3, s.Improvement, 1e-12)
	assert.InDelta(t, 0.633333, s.BestMean, 1e-6)
	assert.Greater(t, s.BestStdDev, 0.0)
}

func TestSummarizeMinimize(t *testing.T) {
	history := []model.GenerationRecord{
		{Generation: 1, BestFitness: 900},
		{Generation: 2, BestFitness: 700},
		{Generation: 3, BestFitness: 650},
	}
	s := Summarize(history, true)
	assert.Equal(t, 650.0, s.BestOverall)
	assert.Equal(t, 250.0, s.Improvement)
}

func TestSummarizeDegenerate(t *testing.T) {
	require.Equal(t, Summary{}, Summarize(nil, false))

	s := Summarize([]model.GenerationRecord{{Generation: 1, BestFitness: 0.4}}, false)
	assert.Equal(t, 0.4, s.BestMean)
	assert.Zero(t, s.BestStdDev)
	assert.Zero(t, s.Improvement)
}
