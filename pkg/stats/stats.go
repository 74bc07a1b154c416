// Package stats computes degree statistics of canonical graphs.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

// Summary holds the scalar statistics recorded for an accepted graph.
type Summary struct {
	MaxDegree int     `json:"max_degree" bson:"max_degree"`
	AvgDegree float64 `json:"avg_degree" bson:"avg_degree"`
	Density   float64 `json:"density" bson:"density"`
}

// Summarize computes the degree summary of g. Degrees count distinct
// neighbors, ignoring direction and self-loops. Graphs with fewer than two
// vertices have no defined density and return an error.
func Summarize(g *graph.Graph) (Summary, error) {
	n := g.Order()
	if n < 2 {
		return Summary{}, errs.New(errs.ErrCodeInvalidInput, "statistics need at least 2 vertices, got %d", n)
	}

	degrees := make([]float64, n)
	for i, d := range g.Degrees() {
		degrees[i] = float64(d)
	}
	m := float64(g.UndirectedSize())

	return Summary{
		MaxDegree: int(floats.Max(degrees)),
		AvgDegree: stat.Mean(degrees, nil),
		Density:   2 * m / (float64(n) * float64(n-1)),
	}, nil
}
