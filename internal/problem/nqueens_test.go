package problem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoforge/internal/evo"
)

func TestNQueensFitness(t *testing.T) {
	q, err := NewNQueens(4)
	require.NoError(t, err)
	require.Equal(t, 6, q.MaxPairs())

	solved, err := q.Fitness(Board{1, 3, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, solved)

	// every pair shares a row
	flat, err := q.Fitness(Board{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.5, flat)
}

func TestClashes(t *testing.T) {
	assert.Equal(t, 0, Clashes(Board{1, 3, 0, 2}))
	assert.Equal(t, 1, Clashes(Board{0, 0}))
	assert.Equal(t, 1, Clashes(Board{0, 1}))
	assert.Equal(t, 3, Clashes(Board{0, 1, 2}))
}

func TestNewNQueensRejectsTinyBoards(t *testing.T) {
	_, err := NewNQueens(1)
	require.Error(t, err)
}

func TestOnePointCrossover(t *testing.T) {
	a := Board{1, 2, 3, 4}
	b := Board{5, 6, 7, 8}

	assert.Equal(t, Board{1, 2, 7, 8}, OnePointCrossover(a, b, 2))
	assert.Equal(t, Board{5, 6, 7, 8}, OnePointCrossover(a, b, 0))

	child := OnePointCrossover(a, b, 4)
	assert.Equal(t, a, child)
	child[0] = 9
	assert.Equal(t, 1, a[0], "child must not alias a parent")
}

func TestNQueensCrossoverSizeMismatch(t *testing.T) {
	q, err := NewNQueens(4)
	require.NoError(t, err)
	_, err = q.Crossover(Board{0, 1, 2, 3}, Board{0, 1}, evo.NewRand(1))
	require.Error(t, err)
}

func TestNQueensMutateKeepsRowsOnBoard(t *testing.T) {
	q, err := NewNQueens(8)
	require.NoError(t, err)
	rng := evo.NewRand(3)
	board, err := q.Construct(rng)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		q.Mutate(board, rng)
		for _, row := range board {
			require.GreaterOrEqual(t, row, 0)
			require.Less(t, row, q.Size)
		}
	}
}

func TestNQueensDisplay(t *testing.T) {
	q, err := NewNQueens(2)
	require.NoError(t, err)
	assert.Equal(t, "[1, 0]\n[0, 1]", q.Display(Board{0, 1}))
	assert.Equal(t, "[0 1]", q.Key(Board{0, 1}))
}

func TestNQueensRunImproves(t *testing.T) {
	q, err := NewNQueens(20)
	require.NoError(t, err)
	cfg := evo.DefaultConfig()
	cfg.PopulationSize = 20
	cfg.MaxGenerations = 50
	cfg.Seed = 11

	engine, err := evo.NewEngine[Board](q, cfg)
	require.NoError(t, err)
	res, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, res.Best.Fitness, 0.0)
	assert.LessOrEqual(t, res.Best.Fitness, 1.0)
	assert.LessOrEqual(t, res.Stats.Generation, cfg.MaxGenerations)
	assert.GreaterOrEqual(t, res.History[len(res.History)-1].BestFitness, res.History[0].BestFitness)
}
