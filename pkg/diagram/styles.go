package diagram

import "github.com/matzehuels/archflow/pkg/arch"

// =============================================================================
// Seed Layout
// =============================================================================

// Spacing is the horizontal distance between neighbours on one layer.
const Spacing = 220.0

// DefaultLayerY is the layer used for node types without an entry in LayerY.
const DefaultLayerY = 300.0

// LayerY maps node types to the y coordinate of their layer.
var LayerY = map[arch.NodeType]float64{
	arch.TypeFrontend: 0,
	arch.TypeCloud:    150,
	arch.TypeBackend:  350,
	arch.TypeDatabase: 550,
	arch.TypeCache:    550,
	arch.TypeQueue:    550,
	arch.TypeStorage:  550,
	arch.TypeExternal: 750,
}

// LayerOf returns the layer y coordinate for t.
func LayerOf(t arch.NodeType) float64 {
	if y, ok := LayerY[t]; ok {
		return y
	}
	return DefaultLayerY
}

// =============================================================================
// Colors
// =============================================================================

// DefaultEdgeColor strokes edges whose source type has no entry in EdgeColors.
const DefaultEdgeColor = "#6366f1"

// EdgeStrokeWidth is the stroke width of every edge.
const EdgeStrokeWidth = 1.5

// EdgeColors maps the source node type of an edge to its stroke.
var EdgeColors = map[arch.NodeType]string{
	arch.TypeFrontend: "#6366f1",
	arch.TypeCloud:    "#3b82f6",
	arch.TypeBackend:  "#22c55e",
	arch.TypeDatabase: "#ef4444",
	arch.TypeCache:    "#f97316",
	arch.TypeQueue:    "#a855f7",
	arch.TypeStorage:  "#06b6d4",
	arch.TypeExternal: "#6b7280",
}

// EdgeColor returns the stroke for edges leaving a node of type t.
func EdgeColor(t arch.NodeType) string {
	if c, ok := EdgeColors[t]; ok {
		return c
	}
	return DefaultEdgeColor
}

// TypeStyle is the card palette of one node type.
type TypeStyle struct {
	Background string `json:"bg"`
	Border     string `json:"border"`
	Badge      string `json:"badge"`
	BadgeText  string `json:"badgeText"`
	Icon       string `json:"icon"` // icon name, e.g. "FaServer"
}

// TypeStyles maps node types to their card palette.
var TypeStyles = map[arch.NodeType]TypeStyle{
	arch.TypeFrontend: {Background: "#1e1b4b", Border: "#4f46e5", Badge: "#312e81", BadgeText: "#a5b4fc", Icon: "FaReact"},
	arch.TypeCloud:    {Background: "#1c3150", Border: "#3b82f6", Badge: "#1e3a5f", BadgeText: "#93c5fd", Icon: "FaCloud"},
	arch.TypeBackend:  {Background: "#1a2e1a", Border: "#22c55e", Badge: "#14532d", BadgeText: "#86efac", Icon: "FaServer"},
	arch.TypeDatabase: {Background: "#2d1b1b", Border: "#ef4444", Badge: "#450a0a", BadgeText: "#fca5a5", Icon: "FaDatabase"},
	arch.TypeCache:    {Background: "#2d2010", Border: "#f97316", Badge: "#431407", BadgeText: "#fdba74", Icon: "FaBolt"},
	arch.TypeQueue:    {Background: "#1f1a2e", Border: "#a855f7", Badge: "#3b0764", BadgeText: "#d8b4fe", Icon: "FaStream"},
	arch.TypeStorage:  {Background: "#1a2535", Border: "#06b6d4", Badge: "#083344", BadgeText: "#67e8f9", Icon: "FaHdd"},
	arch.TypeExternal: {Background: "#1f1f1f", Border: "#6b7280", Badge: "#111827", BadgeText: "#d1d5db", Icon: "FaGlobe"},
}

// StyleOf returns the palette for t, falling back to the backend palette.
func StyleOf(t arch.NodeType) TypeStyle {
	if s, ok := TypeStyles[t]; ok {
		return s
	}
	return TypeStyles[arch.DefaultType]
}

// Cost categories, in display order.
const (
	CostCompute       = "Compute"
	CostDatabase      = "Database"
	CostStorage       = "Storage"
	CostOtherServices = "OtherServices"
)

// CostColors maps cost categories to their legend color.
var CostColors = map[string]string{
	CostCompute:       "#6366f1",
	CostDatabase:      "#ef4444",
	CostStorage:       "#06b6d4",
	CostOtherServices: "#f97316",
}

// CostItem is one labelled, colored line of a cost breakdown.
type CostItem struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Color    string `json:"color"`
}

// CostBreakdown lists the set categories of c in display order.
func CostBreakdown(c arch.CloudCost) []CostItem {
	var items []CostItem
	add := func(cat, amount string) {
		if amount != "" {
			items = append(items, CostItem{Category: cat, Amount: amount, Color: CostColors[cat]})
		}
	}
	add(CostCompute, c.Compute)
	add(CostDatabase, c.Database)
	add(CostStorage, c.Storage)
	add(CostOtherServices, c.OtherServices)
	return items
}
