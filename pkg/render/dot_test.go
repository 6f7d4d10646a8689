package render

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/pathminer/pkg/combine"
	"github.com/matzehuels/pathminer/pkg/network"
	"github.com/matzehuels/pathminer/pkg/search"
)

// star is hub "h" with leaves a, b, c and a tail c-d.
func star(t *testing.T) *network.Graph {
	t.Helper()
	g := network.New()
	for _, e := range [][2]string{{"h", "a"}, {"h", "b"}, {"h", "c"}, {"c", "d"}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOT(t *testing.T) {
	g := star(t)
	r := search.Result{Fitness: 3, Vertices: []string{"a", "b", "h"}, Exceptions: []string{"h"}}

	dot := ToDOT(g, r, Options{Title: "best"})
	for _, want := range []string{
		"graph G {",
		`"a" [label="a", class="member"`,
		`"h" [label="h", class="exception"`,
		`"h" -- "a";`,
		`"h" -- "b";`,
		`label="best";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"c"`) {
		t.Error("non-members should not be drawn without context")
	}
}

func TestToDOTContext(t *testing.T) {
	g := star(t)
	r := search.Result{Fitness: 2, Vertices: []string{"a", "h"}}

	dot := ToDOT(g, r, Options{Context: true})
	if !strings.Contains(dot, `"c" [label="c", class="context"`) {
		t.Errorf("neighbour c should be drawn as context:\n%s", dot)
	}
	if !strings.Contains(dot, `"h" -- "c" [style=dashed`) && !strings.Contains(dot, `"c" -- "h" [style=dashed`) {
		t.Errorf("context edges should be dashed:\n%s", dot)
	}
	if strings.Contains(dot, `"d"`) {
		t.Error("context is one hop only")
	}
}

func TestToDOTDetailed(t *testing.T) {
	g := star(t)
	err := g.AddDataset(network.Dataset{Name: "d0", Cases: 2, Expression: map[string][]int{
		"h": {1, 0}, "a": {1, 1},
	}})
	if err != nil {
		t.Fatal(err)
	}
	r := search.Result{Vertices: []string{"a", "h"}}

	if dot := ToDOT(g, r, Options{Detailed: true}); strings.Contains(dot, "penalty") {
		t.Error("details need a refreshed network")
	}

	pred, err := combine.Compile(combine.OR, "", g.DatasetNames())
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Refresh(network.RefreshOptions{Predicate: pred, Heuristic: network.HeuristicTotal}); err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(g, r, Options{Detailed: true})
	if !strings.Contains(dot, `h\npenalty: 1\nexpr: 0.50`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	dot := ToDOT(star(t), search.Result{Vertices: []string{"a", "h"}}, Options{})

	out, err := Render(ctx, dot, "dot")
	if err != nil || string(out) != dot {
		t.Errorf("dot passthrough: %v", err)
	}

	svg, err := Render(ctx, dot, "SVG")
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("output is not SVG")
	}

	if _, err := Render(ctx, dot, "gif"); err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.00 50.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("unexpected root: %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Error("svg without viewBox should be untouched")
	}
}
