package mtx

import (
	"errors"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

// MaxDenseOrder bounds the dense fallback. An n×n matrix of float64 takes
// 8n² bytes.
const MaxDenseOrder = 4096

// Interpretation names the strategy that produced a graph.
type Interpretation int

const (
	Sparse Interpretation = iota
	Dense
)

func (i Interpretation) String() string {
	if i == Dense {
		return "dense"
	}
	return "sparse"
}

// Parse reads a Matrix Market stream and interprets it as a graph.
func Parse(r io.Reader) (*graph.Graph, error) {
	return ParseLimited(r, DefaultMaxOrder)
}

// ParseLimited is [Parse] with the order bound of [ReadLimited].
func ParseLimited(r io.Reader, maxOrder int) (*graph.Graph, error) {
	m, err := ReadLimited(r, maxOrder)
	if err != nil {
		return nil, err
	}
	g, _, err := Interpret(m)
	return g, err
}

// Interpret tries the sparse interpretation first and falls back to the
// dense one.
func Interpret(m *Matrix) (*graph.Graph, Interpretation, error) {
	g, sparseErr := FromSparse(m)
	if sparseErr == nil {
		return g, Sparse, nil
	}
	g, denseErr := FromDense(m)
	if denseErr == nil {
		return g, Dense, nil
	}
	return nil, Sparse, errs.Wrap(errs.ErrCodeInvalidFormat,
		errors.Join(sparseErr, denseErr),
		"matrix is neither a sparse nor a dense adjacency matrix")
}

// FromSparse reads the coordinate entries of a square matrix as arcs.
func FromSparse(m *Matrix) (*graph.Graph, error) {
	if m.Header.Layout != LayoutCoordinate {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "sparse interpretation needs coordinate layout, got %s", m.Header.Layout)
	}
	if !m.Square() {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "sparse interpretation needs a square matrix, got %dx%d", m.Rows, m.Cols)
	}

	g, err := newGraph(m.Rows, m.Header.Directed())
	if err != nil {
		return nil, err
	}
	for _, e := range m.Entries {
		g.AddArc(e.Row, e.Col)
	}
	return g, nil
}

// FromDense builds the full adjacency matrix and reads every nonzero cell as
// an arc, in row-major order.
func FromDense(m *Matrix) (*graph.Graph, error) {
	if !m.Square() {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "dense interpretation needs a square matrix, got %dx%d", m.Rows, m.Cols)
	}
	n := m.Rows
	if n > MaxDenseOrder {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "dense interpretation limited to order %d, got %d", MaxDenseOrder, n)
	}

	directed := m.Header.Directed()
	g, err := newGraph(n, directed)
	if err != nil || n == 0 {
		return g, err
	}

	d := mat.NewDense(n, n, nil)
	switch m.Header.Layout {
	case LayoutCoordinate:
		for _, e := range m.Entries {
			d.Set(e.Row, e.Col, 1)
			if !directed {
				d.Set(e.Col, e.Row, 1)
			}
		}
	case LayoutArray:
		fillArray(d, m)
	}

	for i := 0; i < n; i++ {
		start := 0
		if !directed {
			start = i
		}
		for j := start; j < n; j++ {
			if d.At(i, j) != 0 {
				g.AddArc(i, j)
			}
		}
	}
	return g, nil
}

// fillArray expands array values into d. Callers have checked the value
// count against the matrix shape.
func fillArray(d *mat.Dense, m *Matrix) {
	n := m.Rows
	if m.Header.Symmetry == SymmetryGeneral {
		for k, v := range m.Values {
			d.Set(k%n, k/n, v)
		}
		return
	}

	offset := 0
	if m.Header.Symmetry == SymmetrySkew {
		offset = 1
	}
	k := 0
	for j := 0; j < n; j++ {
		for i := j + offset; i < n; i++ {
			v := m.Values[k]
			k++
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
}

func newGraph(n int, directed bool) (*graph.Graph, error) {
	g := graph.New(directed)
	for i := 0; i < n; i++ {
		if _, err := g.AddVertex(strconv.Itoa(i)); err != nil {
			return nil, err
		}
	}
	return g, nil
}
