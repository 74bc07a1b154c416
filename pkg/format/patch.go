package format

import (
	"maps"
	"slices"
	"strings"
)

// Patch is a transform applied to one line of a file. Line is 1-based.
// When Replace is set the whole line is replaced; otherwise the first Strip
// characters are removed.
type Patch struct {
	Line    int    `toml:"line" json:"line" validate:"min=1"`
	Strip   int    `toml:"strip,omitempty" json:"strip,omitempty" validate:"min=0"`
	Replace string `toml:"replace,omitempty" json:"replace,omitempty"`
}

func (p Patch) apply(line string) string {
	if p.Replace != "" {
		return p.Replace
	}
	r := []rune(line)
	return string(r[min(p.Strip, len(r)):])
}

// PatchTable maps a base file name to the patches applied to it.
type PatchTable map[string][]Patch

// DefaultPatches returns the corrections for known-malformed datasets from
// the Network Repository.
func DefaultPatches() PatchTable {
	return PatchTable{
		// stray leading character on a header or comment line
		"ca-CSphd.mtx":       {{Line: 3, Strip: 1}},
		"ca-HepPh.mtx":       {{Line: 2, Strip: 1}},
		"ca-netscience.mtx":  {{Line: 2, Strip: 1}},
		"ca-sandi_auths.mtx": {{Line: 3, Strip: 1}},
		"ca-Erdos992.mtx":    {{Line: 3, Strip: 1}},

		// size lines that disagree with the entries
		"DSJC1000-5.mtx":  {{Line: 2, Replace: "1000 1000 249826"}},
		"DSJC500-5.mtx":   {{Line: 2, Replace: "500 500 62624"}},
		"p-hat1000-3.mtx": {{Line: 2, Replace: "1000 1000 371746"}},
		"p-hat500-1.mtx":  {{Line: 2, Replace: "500 500 31569"}},
	}
}

// Merge returns a new table holding the entries of t overlaid with other.
// Entries in other replace entries of t for the same file.
func (t PatchTable) Merge(other PatchTable) PatchTable {
	out := make(PatchTable, len(t)+len(other))
	maps.Copy(out, t)
	maps.Copy(out, other)
	return out
}

// Names returns the patched file names in sorted order.
func (t PatchTable) Names() []string {
	return slices.Sorted(maps.Keys(t))
}

// Apply returns data with the patches for name applied. Patches that point
// past the end of the file are ignored. Line terminators are preserved.
func (t PatchTable) Apply(name string, data []byte) []byte {
	patches := t[name]
	if len(patches) == 0 {
		return data
	}

	lines := strings.SplitAfter(string(data), "\n")
	n := len(lines)
	if lines[n-1] == "" {
		n--
	}
	for _, p := range patches {
		i := p.Line - 1
		if i < 0 || i >= n {
			continue
		}
		body, eol := splitEOL(lines[i])
		lines[i] = p.apply(body) + eol
	}
	return []byte(strings.Join(lines, ""))
}

func splitEOL(line string) (body, eol string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	}
	return line, ""
}
