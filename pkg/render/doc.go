// Package render converts rendered diagrams between output formats.
//
// The node-link renderer in [nodelink] produces Graphviz DOT and SVG. [ToPDF]
// and [ToPNG] convert that SVG further using the external rsvg-convert tool
// (from librsvg):
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
package render
