package mtx

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
)

// maxLineLength bounds a single line of input.
const maxLineLength = 16 << 20

// DefaultMaxOrder bounds the row and column counts of a size line. Every
// declared row becomes a vertex, so the bound is checked before anything is
// allocated.
const DefaultMaxOrder = 1 << 20

// Entry is a zero-based coordinate of a stored entry.
type Entry struct {
	Row int
	Col int
}

// Matrix is the structural content of a Matrix Market file.
type Matrix struct {
	Header Header
	Rows   int
	Cols   int

	// NNZ is the entry count declared on a coordinate size line.
	NNZ int

	// Entries holds coordinate entries in file order.
	Entries []Entry

	// Values holds array cells in file order (column-major, packed to the
	// lower triangle for symmetric layouts). Complex cells are reduced to
	// |re|+|im|, so only zero versus nonzero is meaningful.
	Values []float64
}

// Square reports whether the matrix has as many rows as columns.
func (m *Matrix) Square() bool { return m.Rows == m.Cols }

// Read parses a Matrix Market stream with [DefaultMaxOrder].
func Read(r io.Reader) (*Matrix, error) {
	return ReadLimited(r, DefaultMaxOrder)
}

// ReadLimited parses a Matrix Market stream, rejecting size lines with more
// than maxOrder rows or columns. A maxOrder of 0 or less means
// [DefaultMaxOrder].
func ReadLimited(r io.Reader, maxOrder int) (*Matrix, error) {
	if maxOrder <= 0 {
		maxOrder = DefaultMaxOrder
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	m := &Matrix{Header: defaultHeader()}
	var (
		lineNo  int
		started bool
		sized   bool
		pending *float64 // real part of a complex cell awaiting its imaginary part
	)

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if !started && line != "" {
			started = true
			if isBanner(line) {
				h, err := parseBanner(line)
				if err != nil {
					return nil, err
				}
				m.Header = h
				continue
			}
		}
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}

		fields := strings.Fields(line)
		if !sized {
			if err := m.readSize(lineNo, fields, maxOrder); err != nil {
				return nil, err
			}
			sized = true
			continue
		}

		if m.Header.Layout == LayoutCoordinate {
			if err := m.readEntry(lineNo, fields); err != nil {
				return nil, err
			}
			continue
		}
		for _, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, errs.New(errs.ErrCodeInvalidFormat, "line %d: invalid value %q", lineNo, tok)
			}
			if m.Header.Declared != FieldComplex {
				m.Values = append(m.Values, v)
			} else if pending == nil {
				pending = &v
			} else {
				m.Values = append(m.Values, math.Abs(*pending)+math.Abs(v))
				pending = nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeUnreadable, err, "read matrix")
	}
	if !sized {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "missing size line")
	}
	if pending != nil {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "complex value missing imaginary part")
	}
	return m, m.checkCount()
}

func (m *Matrix) readSize(lineNo int, fields []string, maxOrder int) error {
	want := 3
	if m.Header.Layout == LayoutArray {
		want = 2
	}
	if len(fields) < want {
		return errs.New(errs.ErrCodeInvalidFormat, "line %d: size line needs %d integers, got %q", lineNo, want, strings.Join(fields, " "))
	}

	dims := make([]int, want)
	for i := range dims {
		n, err := strconv.Atoi(fields[i])
		if err != nil || n < 0 {
			return errs.New(errs.ErrCodeInvalidFormat, "line %d: invalid size %q", lineNo, fields[i])
		}
		dims[i] = n
	}
	if dims[0] > maxOrder || dims[1] > maxOrder {
		return errs.New(errs.ErrCodeInvalidFormat, "line %d: %dx%d matrix exceeds the order limit %d", lineNo, dims[0], dims[1], maxOrder)
	}
	m.Rows, m.Cols = dims[0], dims[1]
	if want == 3 {
		m.NNZ = dims[2]
	}
	return nil
}

func (m *Matrix) readEntry(lineNo int, fields []string) error {
	if len(fields) < 2 {
		return errs.New(errs.ErrCodeInvalidFormat, "line %d: entry needs a row and a column", lineNo)
	}
	if len(m.Entries) == m.NNZ {
		return errs.New(errs.ErrCodeInvalidFormat, "line %d: more entries than the declared %d", lineNo, m.NNZ)
	}

	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return errs.New(errs.ErrCodeInvalidFormat, "line %d: invalid row %q", lineNo, fields[0])
	}
	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return errs.New(errs.ErrCodeInvalidFormat, "line %d: invalid column %q", lineNo, fields[1])
	}
	if row < 1 || row > m.Rows || col < 1 || col > m.Cols {
		return errs.New(errs.ErrCodeInvalidFormat, "line %d: entry (%d, %d) outside %dx%d matrix", lineNo, row, col, m.Rows, m.Cols)
	}

	m.Entries = append(m.Entries, Entry{Row: row - 1, Col: col - 1})
	return nil
}

func (m *Matrix) checkCount() error {
	if m.Header.Layout == LayoutCoordinate {
		if len(m.Entries) != m.NNZ {
			return errs.New(errs.ErrCodeInvalidFormat, "expected %d entries, found %d", m.NNZ, len(m.Entries))
		}
		return nil
	}

	want, err := m.arrayCells()
	if err != nil {
		return err
	}
	if len(m.Values) != want {
		return errs.New(errs.ErrCodeInvalidFormat, "expected %d array values, found %d", want, len(m.Values))
	}
	return nil
}

// arrayCells returns how many values an array layout stores.
func (m *Matrix) arrayCells() (int, error) {
	n := m.Rows
	switch m.Header.Symmetry {
	case SymmetryGeneral:
		return m.Rows * m.Cols, nil
	case SymmetrySkew:
		if !m.Square() {
			return 0, errs.New(errs.ErrCodeInvalidFormat, "%s array must be square", m.Header.Symmetry)
		}
		return n * (n - 1) / 2, nil
	default:
		if !m.Square() {
			return 0, errs.New(errs.ErrCodeInvalidFormat, "%s array must be square", m.Header.Symmetry)
		}
		return n * (n + 1) / 2, nil
	}
}
