package canon

import (
	"bufio"
	"bytes"
	"io"
	"slices"
	"strconv"
	"strings"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

// EdgeLines returns the serialized edge lines of a canonical graph, without
// terminators, in the given order.
func EdgeLines(g *graph.Graph, ord Ordering) ([]string, error) {
	if err := Check(g); err != nil {
		return nil, err
	}

	lines := make([]string, 0, g.Size())
	for u := 0; u < g.Order(); u++ {
		for _, v := range g.Neighbors(u) {
			if v > u {
				lines = append(lines, strconv.Itoa(u)+" "+strconv.Itoa(v))
			}
		}
	}

	switch ord {
	case Lexicographic:
		slices.Sort(lines)
	case Insertion:
	default:
		return nil, errs.New(errs.ErrCodeInvalidInput, "invalid ordering: %q", ord)
	}
	return lines, nil
}

// Write serializes a canonical graph to w.
func Write(w io.Writer, g *graph.Graph, ord Ordering) error {
	lines, err := EdgeLines(g, ord)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.Itoa(g.Order()))
	bw.WriteByte('\n')
	bw.WriteString(strconv.Itoa(len(lines)))
	bw.WriteByte('\n')
	for _, l := range lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Marshal serializes a canonical graph.
func Marshal(g *graph.Graph, ord Ordering) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g, ord); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read parses canonical text. Every vertex is registered before any edge,
// so the result is canonical whatever the edge order.
func Read(r io.Reader) (*graph.Graph, error) {
	sc := bufio.NewScanner(r)
	lineNo := 0
	next := func() (string, bool) {
		for sc.Scan() {
			lineNo++
			if line := strings.TrimSpace(sc.Text()); line != "" {
				return line, true
			}
		}
		return "", false
	}
	count := func(what string) (int, error) {
		line, ok := next()
		if !ok {
			return 0, errs.New(errs.ErrCodeInvalidFormat, "missing %s line", what)
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 {
			return 0, errs.New(errs.ErrCodeInvalidFormat, "line %d: invalid %s %q", lineNo, what, line)
		}
		return n, nil
	}

	order, err := count("order")
	if err != nil {
		return nil, err
	}
	size, err := count("size")
	if err != nil {
		return nil, err
	}

	g := graph.New(false)
	for i := 0; i < order; i++ {
		_, _ = g.AddVertex(strconv.Itoa(i))
	}

	for line, ok := next(); ok; line, ok = next() {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: expected \"u v\", got %q", lineNo, line)
		}
		u, err1 := strconv.Atoi(fields[0])
		v, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || u < 0 || v < 0 || u >= order || v >= order {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: invalid edge %q for order %d", lineNo, line, order)
		}
		if u == v {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: self-loop %q", lineNo, line)
		}
		if !g.AddArc(u, v) {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: duplicate edge %q", lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeUnreadable, err, "read canonical graph")
	}
	if g.Size() != size {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "header declares %d edges, found %d", size, g.Size())
	}
	return g, nil
}

// Unmarshal parses canonical text from data.
func Unmarshal(data []byte) (*graph.Graph, error) {
	return Read(bytes.NewReader(data))
}
