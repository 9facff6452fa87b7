package problem

import (
	"fmt"
	"strings"

	"evoforge/internal/evo"
)

// Board is an N-queens genome: Board[col] is the row of the queen in col.
type Board []int

// NQueens places N queens on an NxN board, one per column, and scores a board
// by how few pairs attack each other. A clash-free board scores 1.
type NQueens struct {
	Size int
}

func NewNQueens(size int) (*NQueens, error) {
	if size < 2 {
		return nil, fmt.Errorf("n-queens size must be >= 2, got %d", size)
	}
	return &NQueens{Size: size}, nil
}

func (q *NQueens) Name() string {
	return NameNQueens
}

// MaxPairs is the number of distinct queen pairs, n choose 2.
func (q *NQueens) MaxPairs() int {
	return q.Size * (q.Size - 1) / 2
}

func (q *NQueens) Construct(rng evo.Rand) (Board, error) {
	board := make(Board, q.Size)
	for i := range board {
		board[i] = rng.IntN(q.Size)
	}
	return board, nil
}

// Mutate either moves one queen to a random row or swaps two columns.
func (q *NQueens) Mutate(board Board, rng evo.Rand) {
	a := rng.IntN(len(board))
	b := rng.IntN(len(board))
	if evo.Bernoulli(rng, 0.5) {
		board[a] = b % q.Size
		return
	}
	board[a], board[b] = board[b], board[a]
}

// Crossover copies a up to a random cut and b from the cut onward.
func (q *NQueens) Crossover(a, b Board, rng evo.Rand) (Board, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("board size mismatch: %d != %d", len(a), len(b))
	}
	return OnePointCrossover(a, b, rng.IntN(len(a))), nil
}

// OnePointCrossover returns a fresh board equal to a before index and b from index on.
func OnePointCrossover(a, b Board, index int) Board {
	child := make(Board, len(a))
	copy(child[:index], a[:index])
	copy(child[index:], b[index:])
	return child
}

func (q *NQueens) Fitness(board Board) (float64, error) {
	maxPairs := float64(q.MaxPairs())
	return maxPairs / (maxPairs + float64(Clashes(board))), nil
}

// Clashes counts attacking pairs sharing a row or a diagonal.
func Clashes(board Board) int {
	clashes := 0
	for x := range board {
		for i := 0; i < x; i++ {
			dy := board[i] - board[x]
			if dy == 0 || abs(dy) == x-i {
				clashes++
			}
		}
	}
	return clashes
}

func (q *NQueens) Display(board Board) string {
	var sb strings.Builder
	for row := 0; row < len(board); row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteByte('[')
		for col := range board {
			if col > 0 {
				sb.WriteString(", ")
			}
			if board[col] == row {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// Key identifies a board for fitness memoization.
func (q *NQueens) Key(board Board) string {
	return fmt.Sprint([]int(board))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
