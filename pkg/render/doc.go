// Package render draws solve results as node-link diagrams.
//
// [ToDOT] turns one [search.Result] into Graphviz DOT source over the
// result's vertices. Exception vertices are highlighted, and with
// Options.Context the one-hop neighbourhood of the subnetwork is drawn
// faded so the reader can see where the subnetwork attaches to the rest of
// the interaction network.
//
//	dot := render.ToDOT(g, results[0], render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Dependencies
//
// Layout and rasterisation run in-process through
// [github.com/goccy/go-graphviz]; no Graphviz installation is needed.
package render
