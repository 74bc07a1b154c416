package render

import (
	"strings"
	"testing"

	"github.com/tahmid-khan/cvc-approximation/pkg/canon"
	"github.com/tahmid-khan/cvc-approximation/pkg/graph"
)

func triangle(t *testing.T, directed bool) *graph.Graph {
	t.Helper()
	g := graph.New(directed)
	for _, e := range [][2]string{{"x", "y"}, {"y", "z"}, {"z", "x"}} {
		if _, err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOTUndirected(t *testing.T) {
	dot := ToDOT(canon.Canonicalize(triangle(t, false)), Options{})

	if !strings.HasPrefix(dot, "graph G {\n") {
		t.Errorf("ToDOT() should start an undirected graph:\n%s", dot)
	}
	for _, want := range []string{`"0" -- "1";`, `"1" -- "2";`, `"2" -- "0";`, `  "2";`} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "->") {
		t.Error("undirected DOT should not contain arrows")
	}
}

func TestToDOTDirected(t *testing.T) {
	dot := ToDOT(triangle(t, true), Options{})
	if !strings.HasPrefix(dot, "digraph G {") || !strings.Contains(dot, `"x" -> "y";`) {
		t.Errorf("ToDOT() directed:\n%s", dot)
	}
}

func TestToDOTLabels(t *testing.T) {
	src := triangle(t, false)
	g := canon.Canonicalize(src)
	dot := ToDOT(g, Options{Labels: canon.Relabeling(src), Degrees: true})

	if !strings.Contains(dot, `"0" [label="x\n2"];`) {
		t.Errorf("ToDOT() should label vertex 0 with its source name and degree:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "rewrites tag",
			svg:  `<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00">x</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">x</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg>x</svg>`,
			want: `<svg>x</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">x</svg>`,
			want: `<svg viewBox="0 0 0 0">x</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeViewBox([]byte(tt.svg)); string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(ToDOT(canon.Canonicalize(triangle(t, false)), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	if _, err := RenderSVG(`not valid DOT {{{`); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}
