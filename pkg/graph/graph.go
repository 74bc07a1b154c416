package graph

import (
	"errors"
	"slices"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// ErrEmptyLabel is returned by [Graph.AddVertex] and [Graph.AddEdge] when a
// vertex label is empty.
var ErrEmptyLabel = errors.New("vertex label must not be empty")

// Arc is a stored edge between vertex positions. For undirected graphs the
// endpoints are kept in the order they were first added.
type Arc struct {
	From int
	To   int
}

// IsLoop reports whether the arc joins a vertex to itself.
func (a Arc) IsLoop() bool { return a.From == a.To }

// Edge is an [Arc] expressed with vertex labels.
type Edge struct {
	From string
	To   string
}

type pair struct{ lo, hi int }

func newPair(u, v int) pair {
	if u > v {
		u, v = v, u
	}
	return pair{u, v}
}

// Graph is an unweighted graph with insertion-ordered string labels.
// The zero value is not usable; create graphs with [New].
type Graph struct {
	directed bool

	index  *linkedhashmap.Map // label -> position, in first-seen order
	labels []string

	arcs   []Arc
	arcSet map[Arc]struct{}
	loops  int

	nbrs  [][]int
	links map[pair]struct{}
}

// New returns an empty graph.
func New(directed bool) *Graph {
	return &Graph{
		directed: directed,
		index:    linkedhashmap.New(),
		arcSet:   make(map[Arc]struct{}),
		links:    make(map[pair]struct{}),
	}
}

// Directed reports whether arcs keep their orientation.
func (g *Graph) Directed() bool { return g.directed }

// AddVertex registers label and returns its position. Re-adding a known
// label returns the existing position.
func (g *Graph) AddVertex(label string) (int, error) {
	if label == "" {
		return 0, ErrEmptyLabel
	}
	if i, ok := g.index.Get(label); ok {
		return i.(int), nil
	}
	i := len(g.labels)
	g.index.Put(label, i)
	g.labels = append(g.labels, label)
	g.nbrs = append(g.nbrs, nil)
	return i, nil
}

// AddEdge adds an edge between u and v, registering unknown endpoints first
// (u before v). It reports whether a new edge was stored.
func (g *Graph) AddEdge(u, v string) (bool, error) {
	i, err := g.AddVertex(u)
	if err != nil {
		return false, err
	}
	j, err := g.AddVertex(v)
	if err != nil {
		return false, err
	}
	return g.addArc(i, j), nil
}

// AddArc adds an edge between two existing vertex positions.
// It panics if either position is out of range.
func (g *Graph) AddArc(from, to int) bool {
	if from < 0 || from >= len(g.labels) || to < 0 || to >= len(g.labels) {
		panic("graph: vertex position out of range")
	}
	return g.addArc(from, to)
}

func (g *Graph) addArc(i, j int) bool {
	key := Arc{i, j}
	if !g.directed {
		p := newPair(i, j)
		key = Arc{p.lo, p.hi}
	}
	if _, ok := g.arcSet[key]; ok {
		return false
	}
	g.arcSet[key] = struct{}{}
	g.arcs = append(g.arcs, Arc{i, j})

	if i == j {
		g.loops++
		return true
	}
	p := newPair(i, j)
	if _, ok := g.links[p]; !ok {
		g.links[p] = struct{}{}
		g.nbrs[i] = append(g.nbrs[i], j)
		g.nbrs[j] = append(g.nbrs[j], i)
	}
	return true
}

// Order returns the number of vertices.
func (g *Graph) Order() int { return len(g.labels) }

// Size returns the number of stored edges, self-loops included.
func (g *Graph) Size() int { return len(g.arcs) }

// UndirectedSize returns the number of edges in the undirected, loop-free
// collapse of the graph.
func (g *Graph) UndirectedSize() int { return len(g.links) }

// SelfLoops returns the number of stored self-loops.
func (g *Graph) SelfLoops() int { return g.loops }

// Index returns the position of label.
func (g *Graph) Index(label string) (int, bool) {
	i, ok := g.index.Get(label)
	if !ok {
		return 0, false
	}
	return i.(int), true
}

// Label returns the label of the vertex at position i.
func (g *Graph) Label(i int) string { return g.labels[i] }

// Vertices returns all labels in first-seen order.
func (g *Graph) Vertices() []string {
	out := make([]string, 0, g.index.Size())
	it := g.index.Iterator()
	for it.Next() {
		out = append(out, it.Key().(string))
	}
	return out
}

// Arcs returns the stored edges in insertion order.
func (g *Graph) Arcs() []Arc { return slices.Clone(g.arcs) }

// Edges returns the stored edges in insertion order, as labels.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.arcs))
	for k, a := range g.arcs {
		out[k] = Edge{From: g.labels[a.From], To: g.labels[a.To]}
	}
	return out
}

// HasEdge reports whether an edge from u to v is stored. For undirected
// graphs the orientation is ignored.
func (g *Graph) HasEdge(u, v string) bool {
	i, ok := g.Index(u)
	if !ok {
		return false
	}
	j, ok := g.Index(v)
	if !ok {
		return false
	}
	key := Arc{i, j}
	if !g.directed {
		p := newPair(i, j)
		key = Arc{p.lo, p.hi}
	}
	_, ok = g.arcSet[key]
	return ok
}

// Neighbors returns the positions adjacent to i in the undirected,
// loop-free view, in the order the connecting edges were first added.
func (g *Graph) Neighbors(i int) []int { return slices.Clone(g.nbrs[i]) }

// Degree returns the number of distinct neighbors of i, ignoring direction
// and self-loops.
func (g *Graph) Degree(i int) int { return len(g.nbrs[i]) }

// Degrees returns the degree of every vertex, by position.
func (g *Graph) Degrees() []int {
	out := make([]int, len(g.nbrs))
	for i, n := range g.nbrs {
		out[i] = len(n)
	}
	return out
}
