// Package nodelink renders relaxed architecture diagrams as node-link
// drawings.
//
// # Overview
//
// Nodes keep the positions computed by the repulsion layout. [ToDOT] pins
// every node with pos="x,-y!" and selects the neato engine, so Graphviz only
// routes edges and never moves a node. Node cards take their colors from
// [diagram.TypeStyles]; edges keep the stroke assigned by the mapper.
//
// # Usage
//
//	dot := nodelink.ToDOT(layout, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Detailed: add the service and provider lines under each label
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion lives in the parent render package and
// requires librsvg (rsvg-convert).
package nodelink
