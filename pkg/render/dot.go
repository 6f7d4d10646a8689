package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pathminer/pkg/network"
	"github.com/matzehuels/pathminer/pkg/search"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the penalty and the expression ratio of every vertex to
	// its label. It needs a refreshed network and is ignored otherwise.
	Detailed bool
	// Context also draws the neighbours of the subnetwork that are not part
	// of it.
	Context bool
	// Title is drawn above the diagram.
	Title string
}

// Vertex roles, also used as DOT class names.
const (
	roleMember    = "member"
	roleException = "exception"
	roleContext   = "context"
)

// ToDOT converts a result into an undirected Graphviz graph. Vertices of the
// result that are unknown to g are skipped.
func ToDOT(g *network.Graph, r search.Result, opts Options) string {
	role := make(map[int]string, len(r.Vertices))
	for _, id := range r.Vertices {
		if v, ok := g.Index(id); ok {
			role[v] = roleMember
		}
	}
	for _, id := range r.Exceptions {
		if v, ok := g.Index(id); ok {
			role[v] = roleException
		}
	}
	if opts.Context {
		core := make([]int, 0, len(role))
		for v := range role {
			core = append(core, v)
		}
		for _, v := range core {
			for _, u := range g.Neighbors(v) {
				if _, ok := role[u]; !ok {
					role[u] = roleContext
				}
			}
		}
	}

	drawn := make([]int, 0, len(role))
	for v := range role {
		drawn = append(drawn, v)
	}
	slices.Sort(drawn)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fontname=\"Helvetica\", fontsize=14];\n")
	buf.WriteString("  edge [color=\"#555555\"];\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	detailed := opts.Detailed && g.Refreshed()
	for _, v := range drawn {
		label := fmtLabel(g, v, detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", g.ID(v), strings.Join(fmtAttrs(role[v], label), ", "))
	}

	buf.WriteString("\n")
	for _, u := range drawn {
		for _, v := range g.Neighbors(u) {
			if v <= u {
				continue
			}
			rv, ok := role[v]
			if !ok {
				continue
			}
			if role[u] == roleContext && rv == roleContext {
				continue
			}
			attrs := ""
			if role[u] == roleContext || rv == roleContext {
				attrs = " [style=dashed, color=\"#bbbbbb\"]"
			}
			fmt.Fprintf(&buf, "  %q -- %q%s;\n", g.ID(u), g.ID(v), attrs)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(g *network.Graph, v int, detailed bool) string {
	if !detailed {
		return g.ID(v)
	}
	return fmt.Sprintf("%s\npenalty: %d\nexpr: %.2f", g.ID(v), g.Penalty(v), g.Expression(v))
}

func fmtAttrs(role, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label), fmt.Sprintf("class=%q", role)}
	switch role {
	case roleException:
		attrs = append(attrs, "fillcolor=\"#f4a261\"", "color=\"#c0392b\"", "penwidth=2")
	case roleContext:
		attrs = append(attrs, "fillcolor=\"#f2f2f2\"", "fontcolor=\"#999999\"", "style=\"filled,dashed\"")
	default:
		attrs = append(attrs, "fillcolor=\"#8ecae6\"")
	}
	return attrs
}

// RenderSVG lays out DOT source and returns SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderFormat(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out DOT source and returns a PNG image.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.PNG)
}

// Render dispatches on a format name: "dot", "svg" or "png".
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return RenderSVG(ctx, dot)
	case "png":
		return RenderPNG(ctx, dot)
	}
	return nil, fmt.Errorf("unsupported format %q (must be one of: dot, svg, png)", format)
}

func renderFormat(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales to its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
