// Package diagram maps architecture records onto positioned diagram nodes
// and styled edges.
//
// [Map] is the entry point. It seeds every node on a horizontal layer chosen
// by its type, spaces the nodes of one layer evenly around x=0 in input
// order, and colors each edge after the type of its source node:
//
//	d := diagram.Map(a)
//	res := repulsion.Run(diagram.Entities(d), repulsion.DefaultConfig())
//	d = d.WithPositions(res.Entities)
//
// Map never fails. It tolerates records that [arch.Architecture.Validate]
// would reject: a nil architecture yields an empty diagram, edges to unknown
// nodes keep the default stroke, and a duplicated ID reuses the first seed
// position assigned to it.
//
// The style tables ([TypeStyles], [EdgeColors], [CostColors]) are shared with
// the renderers so that SVG, DOT and the terminal canvas agree on colors.
package diagram
