package problem

import (
	"fmt"
	"math"

	"evoforge/internal/evo"
)

const cityGridSize = 500

// City is a point on the integer grid the salesman travels.
type City struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RandomCities scatters n cities uniformly on a 500x500 grid.
func RandomCities(n int, rng evo.Rand) []City {
	cities := make([]City, n)
	for i := range cities {
		cities[i] = City{X: rng.IntN(cityGridSize), Y: rng.IntN(cityGridSize)}
	}
	return cities
}

// DistanceTable is a dense, read-only matrix of euclidean distances shared by
// every tour of a run.
type DistanceTable struct {
	n int
	d []float64
}

func NewDistanceTable(cities []City) *DistanceTable {
	n := len(cities)
	d := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx := float64(cities[y].X - cities[x].X)
			dy := float64(cities[y].Y - cities[x].Y)
			d[y*n+x] = math.Sqrt(dx*dx + dy*dy)
		}
	}
	return &DistanceTable{n: n, d: d}
}

// NewDistanceTableFromMatrix copies a square matrix of distances.
func NewDistanceTableFromMatrix(rows [][]float64) (*DistanceTable, error) {
	n := len(rows)
	d := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("distance matrix row %d has %d entries, want %d", i, len(row), n)
		}
		d = append(d, row...)
	}
	return &DistanceTable{n: n, d: d}, nil
}

func (t *DistanceTable) Len() int {
	return t.n
}

func (t *DistanceTable) Distance(from, to int) float64 {
	return t.d[from*t.n+to]
}

// Tour is a permutation of city indices; the salesman returns to the start.
type Tour []int

// TravelingSalesman minimizes the length of a closed tour. The distance table
// is injected by the caller and never copied into tours.
type TravelingSalesman struct {
	Cities    int
	Distances *DistanceTable
}

func NewTravelingSalesman(cities int, distances *DistanceTable) (*TravelingSalesman, error) {
	if cities < 3 {
		return nil, fmt.Errorf("traveling salesman needs >= 3 cities, got %d", cities)
	}
	return &TravelingSalesman{Cities: cities, Distances: distances}, nil
}

func (s *TravelingSalesman) Name() string {
	return NameTravelingSalesman
}

func (s *TravelingSalesman) Construct(rng evo.Rand) (Tour, error) {
	return randomTour(s.Cities, rng), nil
}

func randomTour(n int, rng evo.Rand) Tour {
	tour := make(Tour, n)
	for i := range tour {
		tour[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		tour[i], tour[j] = tour[j], tour[i]
	}
	return tour
}

// Mutate either reshuffles the order of cities (a swap most of the time, a
// fresh random tour otherwise) or rotates a sub-range of the tour.
func (s *TravelingSalesman) Mutate(tour Tour, rng evo.Rand) {
	n := len(tour)
	if n < 2 {
		return
	}
	if n < 3 || evo.Bernoulli(rng, 0.5) {
		if evo.Bernoulli(rng, 0.8) {
			a := rng.IntN(n)
			b := rng.IntN(n)
			for a == b {
				b = rng.IntN(n)
			}
			tour[a], tour[b] = tour[b], tour[a]
			return
		}
		copy(tour, randomTour(n, rng))
		return
	}
	from := rng.IntN(n - 2)
	to := from + 1 + rng.IntN(n-from-1)
	shift := rng.IntN(n)
	shiftRange(tour, from, to, shift)
}

// ShiftElements walks tour[from:to] backwards swapping each element with the
// one shift places ahead, wrapping around the end of the tour.
func ShiftElements(tour Tour, from, to, shift int) error {
	if from >= to {
		return fmt.Errorf("shift range is empty: from=%d to=%d", from, to)
	}
	if from < 0 || to > len(tour) {
		return fmt.Errorf("shift range [%d, %d) out of bounds for %d cities", from, to, len(tour))
	}
	shiftRange(tour, from, to, shift)
	return nil
}

// shiftRange requires 0 <= from < to <= len(tour).
func shiftRange(tour Tour, from, to, shift int) {
	for i := to - 1; i >= from; i-- {
		pos := (i + shift) % len(tour)
		tour[i], tour[pos] = tour[pos], tour[i]
	}
}

// Crossover keeps a up to a random cut and fills the rest with the remaining
// cities in the order they appear in b, so the child is always a permutation.
func (s *TravelingSalesman) Crossover(a, b Tour, rng evo.Rand) (Tour, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("tour length mismatch: %d != %d", len(a), len(b))
	}
	return OrderedCrossover(a, b, rng.IntN(len(a))), nil
}

// OrderedCrossover returns a fresh tour: a[:index] followed by the cities
// missing from it, taken in b's order.
func OrderedCrossover(a, b Tour, index int) Tour {
	child := make(Tour, 0, len(a))
	used := make(map[int]struct{}, len(a))
	for _, city := range a[:index] {
		child = append(child, city)
		used[city] = struct{}{}
	}
	for _, city := range b {
		if _, ok := used[city]; ok {
			continue
		}
		child = append(child, city)
		used[city] = struct{}{}
	}
	return child
}

// Fitness is the closed tour length.
func (s *TravelingSalesman) Fitness(tour Tour) (float64, error) {
	if s.Distances == nil {
		return 0, fmt.Errorf("%w: traveling salesman distance table", evo.ErrMissingContext)
	}
	n := len(tour)
	if s.Distances.Len() != n {
		return 0, fmt.Errorf("distance table covers %d cities, tour has %d", s.Distances.Len(), n)
	}
	distance := 0.0
	for i := 0; i < n; i++ {
		distance += s.Distances.Distance(tour[i], tour[(i+1)%n])
	}
	return distance, nil
}

func (s *TravelingSalesman) Display(tour Tour) string {
	return fmt.Sprint([]int(tour))
}

func (s *TravelingSalesman) Key(tour Tour) string {
	return fmt.Sprint([]int(tour))
}
