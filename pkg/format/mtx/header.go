package mtx

import (
	"strings"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
)

// Layout values.
const (
	LayoutCoordinate = "coordinate"
	LayoutArray      = "array"
)

// Field values.
const (
	FieldReal    = "real"
	FieldDouble  = "double"
	FieldComplex = "complex"
	FieldInteger = "integer"
	FieldPattern = "pattern"
)

// Symmetry values.
const (
	SymmetryGeneral   = "general"
	SymmetrySymmetric = "symmetric"
	SymmetrySkew      = "skew-symmetric"
	SymmetryHermitian = "hermitian"
)

const bannerWord = "MatrixMarket"

// Header is the parsed banner of a Matrix Market file.
type Header struct {
	Layout   string
	Field    string // always FieldPattern after normalization
	Declared string // field as written in the file
	Symmetry string
	Banner   bool // false when the file had no banner
}

// Rewritten reports whether the declared field was normalized to pattern.
func (h Header) Rewritten() bool { return h.Declared != h.Field }

// Directed reports whether entries keep their orientation.
func (h Header) Directed() bool { return h.Symmetry == SymmetryGeneral }

func defaultHeader() Header {
	return Header{
		Layout:   LayoutCoordinate,
		Field:    FieldPattern,
		Declared: FieldPattern,
		Symmetry: SymmetryGeneral,
	}
}

// isBanner reports whether line looks like a banner, including the
// single-% variant.
func isBanner(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "%") {
		return false
	}
	return strings.EqualFold(strings.TrimLeft(fields[0], "%"), bannerWord)
}

// parseBanner parses a banner line and normalizes its field.
func parseBanner(line string) (Header, error) {
	tokens := strings.Fields(strings.ToLower(line))
	if len(tokens) < 5 {
		return Header{}, errs.New(errs.ErrCodeInvalidFormat, "malformed banner %q", line)
	}
	if tokens[1] != "matrix" {
		return Header{}, errs.New(errs.ErrCodeInvalidFormat, "unsupported object %q", tokens[1])
	}

	h := Header{
		Layout:   tokens[2],
		Declared: tokens[3],
		Symmetry: tokens[4],
		Banner:   true,
	}

	switch h.Layout {
	case LayoutCoordinate, LayoutArray:
	default:
		return Header{}, errs.New(errs.ErrCodeInvalidFormat, "unsupported layout %q", h.Layout)
	}

	switch h.Declared {
	case FieldReal, FieldDouble, FieldComplex, FieldInteger, FieldPattern:
		h.Field = FieldPattern
	default:
		return Header{}, errs.New(errs.ErrCodeInvalidFormat, "unsupported field %q", h.Declared)
	}

	switch h.Symmetry {
	case SymmetryGeneral, SymmetrySymmetric, SymmetrySkew, SymmetryHermitian:
	default:
		return Header{}, errs.New(errs.ErrCodeInvalidFormat, "unsupported symmetry %q", h.Symmetry)
	}

	if h.Layout == LayoutArray && h.Declared == FieldPattern {
		return Header{}, errs.New(errs.ErrCodeInvalidFormat, "array layout cannot have pattern field")
	}
	return h, nil
}
