// Package format turns graph dataset files into graphs.
//
// # Overview
//
// Two on-disk formats are supported, chosen by file extension:
//
//   - [MatrixMarket] (.mtx), read by package mtx
//   - [EdgeList] (.edges), read by package edgelist
//
// The extension is resolved once into a [Format]; anything else fails with
// an UNSUPPORTED_FORMAT error before the file is read.
//
// # Patches
//
// A few published datasets are malformed in known ways (a stray leading
// character, a wrong size line). A [PatchTable] maps file names to line
// transforms that are applied to the file contents in memory before parsing.
// The source file is never modified. [DefaultPatches] holds the known fixes;
// more can be added from configuration.
//
// # Errors
//
// Every failure is returned as a *errors.Error whose code is one of
// UNSUPPORTED_FORMAT, INVALID_FORMAT, FILE_NOT_FOUND or UNREADABLE. A panic
// inside a parser is recovered and reported as INVALID_FORMAT. No partial
// graph is ever returned.
package format

import (
	"path/filepath"
	"strings"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
)

// Format identifies an input file format.
type Format int

const (
	Unknown Format = iota
	MatrixMarket
	EdgeList
)

// String returns the short name of the format, which is also its extension
// without the dot.
func (f Format) String() string {
	switch f {
	case MatrixMarket:
		return "mtx"
	case EdgeList:
		return "edges"
	default:
		return "unknown"
	}
}

// Extension returns the file extension of the format, including the dot.
func (f Format) Extension() string {
	if f == Unknown {
		return ""
	}
	return "." + f.String()
}

// Formats lists the supported formats.
var Formats = []Format{MatrixMarket, EdgeList}

// Detect resolves the format of a file from its extension.
func Detect(path string) (Format, error) {
	ext := filepath.Ext(path)
	for _, f := range Formats {
		if ext == f.Extension() {
			return f, nil
		}
	}
	return Unknown, errs.New(errs.ErrCodeUnsupportedFormat, "file extension not recognized: %q", ext)
}

// ParseFormat resolves a format from its short name ("mtx" or "edges").
// A leading dot is accepted.
func ParseFormat(name string) (Format, error) {
	name = strings.TrimPrefix(strings.ToLower(name), ".")
	for _, f := range Formats {
		if name == f.String() {
			return f, nil
		}
	}
	return Unknown, errs.New(errs.ErrCodeUnsupportedFormat, "unknown format %q (must be one of: mtx, edges)", name)
}

// Supported reports whether path has a supported extension.
func Supported(path string) bool {
	_, err := Detect(path)
	return err == nil
}
