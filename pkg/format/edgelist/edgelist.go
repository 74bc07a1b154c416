// Package edgelist reads plain edge-list (.edges) files.
//
// Each line holds one edge record "<u> <v> [...]". A % and everything after
// it is a comment. Commas separate tokens just like whitespace. Only the
// first two tokens are used; extra tokens (weights, timestamps) are ignored,
// and lines with fewer than two tokens are skipped.
//
// Tokens are vertex labels taken verbatim. With [Options.IntegerLabels] they
// must be integers and are normalized ("007" and "7" name the same vertex).
// The resulting graph is undirected.
package edgelist

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

const maxLineLength = 1 << 20

// Options configures edge-list parsing.
type Options struct {
	// IntegerLabels requires integer tokens and normalizes them.
	IntegerLabels bool
}

// Parse reads an edge list into an undirected graph.
func Parse(r io.Reader, opts Options) (*graph.Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	g := graph.New(false)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		u, v, ok := Tokens(sc.Text())
		if !ok {
			continue
		}
		if opts.IntegerLabels {
			var err error
			if u, err = normalize(u); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "line %d", lineNo)
			}
			if v, err = normalize(v); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "line %d", lineNo)
			}
		}
		if _, err := g.AddEdge(u, v); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "line %d", lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeUnreadable, err, "read edge list")
	}
	return g, nil
}

// Tokens extracts the two endpoint tokens of a line. It reports false for
// blank lines, comments, and lines with fewer than two tokens.
func Tokens(line string) (u, v string, ok bool) {
	if i := strings.IndexByte(line, '%'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

func normalize(tok string) (string, error) {
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return "", errs.New(errs.ErrCodeInvalidFormat, "%q is not an integer label", tok)
	}
	return strconv.FormatInt(n, 10), nil
}
