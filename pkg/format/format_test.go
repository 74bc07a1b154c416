package format

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"ca-netscience.mtx", MatrixMarket, false},
		{"/data/bio-mouse-gene.edges", EdgeList, false},
		{"graph.MTX", Unknown, true},
		{"graph.txt", Unknown, true},
		{"graph", Unknown, true},
		{"archive.zip", Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Detect(tt.path)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.True(t, errs.Is(err, errs.ErrCodeUnsupportedFormat))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MTX")
	require.NoError(t, err)
	assert.Equal(t, MatrixMarket, f)

	f, err = ParseFormat(".edges")
	require.NoError(t, err)
	assert.Equal(t, EdgeList, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "mtx", MatrixMarket.String())
	assert.Equal(t, ".edges", EdgeList.Extension())
	assert.Equal(t, "", Unknown.Extension())
}

func TestPatchApply(t *testing.T) {
	table := PatchTable{
		"a.mtx": {{Line: 2, Strip: 1}},
		"b.mtx": {{Line: 2, Replace: "3 3 1"}},
		"c.mtx": {{Line: 9, Strip: 1}},
		"d.mtx": {{Line: 1, Strip: 5}},
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"a.mtx", "%%MatrixMarket\n%% bad\n1 2\n", "%%MatrixMarket\n% bad\n1 2\n"},
		{"b.mtx", "%%MatrixMarket\r\n3 3 9\r\n1 2\r\n", "%%MatrixMarket\r\n3 3 1\r\n1 2\r\n"},
		{"c.mtx", "one\ntwo\n", "one\ntwo\n"},
		{"d.mtx", "ab\n", "\n"},
		{"unlisted.mtx", "x\n", "x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Apply(tt.name, []byte(tt.in))
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestPatchPastEndOfFileWithoutTrailingNewline(t *testing.T) {
	table := PatchTable{"x.mtx": {{Line: 3, Replace: "oops"}}}
	assert.Equal(t, "a\nb", string(table.Apply("x.mtx", []byte("a\nb"))))
	assert.Equal(t, "a\nb\n", string(table.Apply("x.mtx", []byte("a\nb\n"))))
}

func TestPatchFixesSizeLine(t *testing.T) {
	// size line overstates the entry count
	body := "%%MatrixMarket matrix coordinate pattern symmetric\n500 500 3\n2 1\n"
	table := PatchTable{"p-hat500-1.mtx": {{Line: 2, Replace: "500 500 1"}}}

	_, err := Parse("p-hat500-1.mtx", []byte(body), Options{Patches: PatchTable{}})
	require.Error(t, err)

	g, err := Parse("p-hat500-1.mtx", []byte(body), Options{Patches: table})
	require.NoError(t, err)
	assert.Equal(t, 500, g.Order())
	assert.Equal(t, 1, g.Size())

	assert.Contains(t, DefaultPatches(), "p-hat500-1.mtx")
}

func TestPatchMerge(t *testing.T) {
	base := DefaultPatches()
	merged := base.Merge(PatchTable{
		"ca-HepPh.mtx":    {{Line: 4, Strip: 2}},
		"bio-extra.edges": {{Line: 1, Strip: 1}},
	})

	assert.Equal(t, []Patch{{Line: 4, Strip: 2}}, merged["ca-HepPh.mtx"])
	assert.Contains(t, merged.Names(), "bio-extra.edges")
	assert.Equal(t, []Patch{{Line: 2, Strip: 1}}, base["ca-HepPh.mtx"], "merge must not mutate the receiver")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	mtxPath := filepath.Join(dir, "path.mtx")
	require.NoError(t, os.WriteFile(mtxPath, []byte("%%MatrixMarket matrix coordinate pattern symmetric\n3 3 2\n2 1\n3 2\n"), 0o644))
	edgesPath := filepath.Join(dir, "pair.edges")
	require.NoError(t, os.WriteFile(edgesPath, []byte("% comment\n1,2\n3 4\n\n"), 0o644))

	g, f, err := ParseFile(mtxPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, MatrixMarket, f)
	assert.Equal(t, 3, g.Order())

	g, f, err = ParseFile(edgesPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, EdgeList, f)
	assert.Equal(t, 2, g.Size())
}

func TestParseFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := ParseFile(filepath.Join(dir, "graph.txt"), Options{})
	assert.True(t, errs.Is(err, errs.ErrCodeUnsupportedFormat))
	assert.Contains(t, err.Error(), "file extension not recognized")

	_, f, err := ParseFile(filepath.Join(dir, "missing.mtx"), Options{})
	assert.Equal(t, MatrixMarket, f)
	assert.True(t, errs.Is(err, errs.ErrCodeFileNotFound))

	bad := filepath.Join(dir, "bad.mtx")
	require.NoError(t, os.WriteFile(bad, []byte("%%MatrixMarket matrix coordinate pattern general\n2 3 1\n1 2\n"), 0o644))
	g, _, err := ParseFile(bad, Options{})
	assert.Nil(t, g)
	assert.True(t, errs.IsFormatError(err))
	assert.Contains(t, err.Error(), "bad.mtx")
}

func TestParseAsIgnoresPatches(t *testing.T) {
	g, err := ParseAs(EdgeList, []byte("a b\nb c\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Order())

	_, err = ParseAs(Unknown, nil, Options{})
	assert.True(t, errs.Is(err, errs.ErrCodeUnsupportedFormat))
}

func TestParseOrderLimit(t *testing.T) {
	data := []byte("%%MatrixMarket matrix coordinate pattern symmetric\n40 40 1\n2 1\n")

	g, err := ParseAs(MatrixMarket, data, Options{})
	require.NoError(t, err)
	assert.Equal(t, 40, g.Order())

	_, err = ParseAs(MatrixMarket, data, Options{MaxOrder: 39})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidFormat))
	assert.Contains(t, err.Error(), "order limit 39")
}

type panicParser struct{}

func (panicParser) Parse(io.Reader) (*graph.Graph, error) { panic("index out of range") }
func (panicParser) Supports(string) bool                  { return true }
func (panicParser) Format() Format                        { return EdgeList }

func TestParserPanicIsRecovered(t *testing.T) {
	g, err := parseBytes(panicParser{}, "boom.edges", []byte("1 2\n"), Options{})
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidFormat))
	assert.Contains(t, err.Error(), "index out of range")
}

func TestPatchesFor(t *testing.T) {
	assert.Equal(t, []Patch{{Line: 2, Strip: 1}}, Options{}.PatchesFor("data/ca-netscience.mtx"))
	assert.Empty(t, Options{Patches: PatchTable{}}.PatchesFor("ca-netscience.mtx"))
	assert.Empty(t, Options{}.PatchesFor("soc-karate.mtx"))
}
