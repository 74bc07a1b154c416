package format

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format/edgelist"
	"github.com/tahmid-khan/cvc-approximation/pkg/format/mtx"
	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

// Options configures parsing.
type Options struct {
	// IntegerLabels requires integer vertex tokens in edge lists.
	IntegerLabels bool

	// Patches is applied before parsing. Nil means [DefaultPatches]; use an
	// empty table to disable patching.
	Patches PatchTable

	// MaxOrder bounds the order a Matrix Market size line may declare.
	// Zero means mtx.DefaultMaxOrder.
	MaxOrder int
}

func (o Options) patches() PatchTable {
	if o.Patches == nil {
		return DefaultPatches()
	}
	return o.Patches
}

// PatchesFor returns the patches that apply to the file called name.
func (o Options) PatchesFor(name string) []Patch {
	return o.patches()[filepath.Base(name)]
}

// Parser reads one file format.
type Parser interface {
	// Parse reads a whole file body into a graph.
	Parse(r io.Reader) (*graph.Graph, error)
	// Supports reports whether this parser handles the given file name.
	Supports(filename string) bool
	// Format returns the format this parser reads.
	Format() Format
}

type mtxParser struct{ maxOrder int }

func (p mtxParser) Parse(r io.Reader) (*graph.Graph, error) { return mtx.ParseLimited(r, p.maxOrder) }
func (mtxParser) Supports(name string) bool                 { return filepath.Ext(name) == MatrixMarket.Extension() }
func (mtxParser) Format() Format                            { return MatrixMarket }

type edgeListParser struct{ opts edgelist.Options }

func (p edgeListParser) Parse(r io.Reader) (*graph.Graph, error) { return edgelist.Parse(r, p.opts) }
func (edgeListParser) Supports(name string) bool                 { return filepath.Ext(name) == EdgeList.Extension() }
func (edgeListParser) Format() Format                            { return EdgeList }

// Parsers returns a parser for every supported format.
func Parsers(opts Options) []Parser {
	return []Parser{
		mtxParser{maxOrder: opts.MaxOrder},
		edgeListParser{opts: edgelist.Options{IntegerLabels: opts.IntegerLabels}},
	}
}

// ParserFor returns the parser of a known format.
func ParserFor(f Format, opts Options) (Parser, error) {
	for _, p := range Parsers(opts) {
		if p.Format() == f {
			return p, nil
		}
	}
	return nil, errs.New(errs.ErrCodeUnsupportedFormat, "no parser for format %s", f)
}

// DetectParser finds a parser that supports the given file path.
func DetectParser(path string, parsers ...Parser) (Parser, error) {
	name := filepath.Base(path)
	for _, p := range parsers {
		if p.Supports(name) {
			return p, nil
		}
	}
	return nil, errs.New(errs.ErrCodeUnsupportedFormat, "file extension not recognized: %q", filepath.Ext(name))
}

// ParseFile reads the file at path and parses it according to its
// extension.
func ParseFile(path string, opts Options) (*graph.Graph, Format, error) {
	p, err := DetectParser(path, Parsers(opts)...)
	if err != nil {
		return nil, Unknown, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, p.Format(), errs.Wrap(errs.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, p.Format(), errs.Wrap(errs.ErrCodeUnreadable, err, "read %s", path)
	}

	g, err := parseBytes(p, filepath.Base(path), data, opts)
	return g, p.Format(), err
}

// Parse parses data as the file called name. The name selects both the
// format and the patches to apply.
func Parse(name string, data []byte, opts Options) (*graph.Graph, error) {
	p, err := DetectParser(name, Parsers(opts)...)
	if err != nil {
		return nil, err
	}
	return parseBytes(p, filepath.Base(name), data, opts)
}

// ParseAs parses data in a known format, without consulting the patch table.
func ParseAs(f Format, data []byte, opts Options) (*graph.Graph, error) {
	p, err := ParserFor(f, opts)
	if err != nil {
		return nil, err
	}
	opts.Patches = PatchTable{}
	return parseBytes(p, "", data, opts)
}

func parseBytes(p Parser, name string, data []byte, opts Options) (g *graph.Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = errs.Wrap(errs.ErrCodeInvalidFormat, fmt.Errorf("%v", r), "parse %s: parser panic", displayName(name))
		}
	}()

	data = opts.patches().Apply(name, data)
	g, err = p.Parse(bytes.NewReader(data))
	if err != nil {
		code := errs.GetCode(err)
		if code == "" {
			code = errs.ErrCodeInvalidFormat
		}
		return nil, errs.Wrap(code, err, "parse %s", displayName(name))
	}
	return g, nil
}

func displayName(name string) string {
	if name == "" {
		return "input"
	}
	return name
}
