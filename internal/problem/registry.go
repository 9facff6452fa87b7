package problem

import (
	"errors"
	"fmt"
	"sort"
)

const (
	NameNQueens           = "nqueens"
	NameTravelingSalesman = "tsp"
)

var ErrUnknownProblem = errors.New("unknown problem")

// Info describes a built-in problem and the run defaults that suit it.
type Info struct {
	Name          string
	Description   string
	DefaultSize   int
	Minimize      bool
	DefaultTarget float64
	// DefaultGenerations bounds problems whose target is unreachable in
	// practice. Zero means run until the target is met.
	DefaultGenerations int
}

var builtins = map[string]Info{
	NameNQueens: {
		Name:          NameNQueens,
		Description:   "place N non-attacking queens on an NxN board (fitness 1 = solved)",
		DefaultSize:   8,
		DefaultTarget: 1.0,
	},
	NameTravelingSalesman: {
		Name:               NameTravelingSalesman,
		Description:        "shortest closed tour through random cities on a 500x500 grid",
		DefaultSize:        20,
		Minimize:           true,
		DefaultTarget:      0,
		DefaultGenerations: 1000,
	},
}

// Lookup resolves a problem by name. "eightqueens" is kept as an alias.
func Lookup(name string) (Info, error) {
	if name == "eightqueens" {
		info := builtins[NameNQueens]
		info.DefaultSize = 8
		return info, nil
	}
	info, ok := builtins[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownProblem, name)
	}
	return info, nil
}

// Names lists the built-in problems in a stable order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
