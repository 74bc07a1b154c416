// Package validate decides whether a parsed graph is usable.
//
// [Rules.Check] applies the rules in a fixed order and stops at the first
// failure:
//
//  1. too small: order below MinOrder
//  2. no edges: the undirected, loop-free view has no edges
//  3. not connected: more than one connected component
//  4. too large: order above MaxOrder, when MaxOrder is set
//
// Connectivity is computed on the undirected collapse with a breadth-first
// walk from the first vertex, in O(order + size).
package validate

import (
	"fmt"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

// Reason names the rule a graph failed.
type Reason string

const (
	TooSmall     Reason = "too small"
	NoEdges      Reason = "no edges"
	NotConnected Reason = "not connected"
	TooLarge     Reason = "too large"
)

const (
	// DefaultMinOrder rejects graphs with fewer than two vertices.
	DefaultMinOrder = 2
	// StrictMinOrder is the lower bound used by the filtering tools.
	StrictMinOrder = 3
)

// Rules configures validation. A zero MaxOrder means unbounded.
type Rules struct {
	MinOrder int `toml:"min_order" json:"min_order" validate:"gte=0"`
	MaxOrder int `toml:"max_order" json:"max_order" validate:"gte=0"`
}

// DefaultRules returns the rules used by the pipeline.
func DefaultRules() Rules {
	return Rules{MinOrder: DefaultMinOrder}
}

// Rejection is a filtering decision, not a failure. It implements error so
// callers can log it uniformly.
type Rejection struct {
	Reason Reason
	Detail string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Check returns nil if g passes every rule, or the first rule it fails.
func (r Rules) Check(g *graph.Graph) *Rejection {
	n := g.Order()
	if n < r.MinOrder {
		return &Rejection{TooSmall, fmt.Sprintf("order %d is below the minimum %d", n, r.MinOrder)}
	}
	if g.UndirectedSize() == 0 {
		return &Rejection{NoEdges, fmt.Sprintf("order %d with no edges", n)}
	}

	u := undirected(g)
	if !connected(u, n) {
		c := len(topo.ConnectedComponents(u))
		return &Rejection{NotConnected, fmt.Sprintf("%d connected components", c)}
	}

	if r.MaxOrder > 0 && n > r.MaxOrder {
		return &Rejection{TooLarge, fmt.Sprintf("order %d is above the maximum %d", n, r.MaxOrder)}
	}
	return nil
}

// Connected reports whether the undirected, loop-free view of g is a single
// component. The empty graph is connected.
func Connected(g *graph.Graph) bool {
	return connected(undirected(g), g.Order())
}

func connected(u *simple.UndirectedGraph, order int) bool {
	if order == 0 {
		return true
	}
	visited := 0
	bf := traverse.BreadthFirst{
		Visit: func(gonum.Node) { visited++ },
	}
	bf.Walk(u, simple.Node(0), nil)
	return visited == order
}

// undirected builds the gonum view of g with vertex positions as node IDs.
func undirected(g *graph.Graph) *simple.UndirectedGraph {
	u := simple.NewUndirectedGraph()
	for i := 0; i < g.Order(); i++ {
		u.AddNode(simple.Node(i))
	}
	for i := 0; i < g.Order(); i++ {
		for _, j := range g.Neighbors(i) {
			if j > i {
				u.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	return u
}
