package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/layout/repulsion"
)

const (
	// dragNudge is how far one arrow press moves the selected node, in
	// diagram units.
	dragNudge = 40.0

	// dragRelease is how long after the last arrow press the node is let go.
	dragRelease = 400 * time.Millisecond

	defaultCanvasWidth  = 80
	defaultCanvasHeight = 24
	labelWidth          = 12
	tablePanelWidth     = 40
)

// Canvas styles
var (
	canvasBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFaint)
	canvasEdgeStyle   = lipgloss.NewStyle().Foreground(colorFaint)
	canvasSelStyle    = lipgloss.NewStyle().Bold(true).Reverse(true)
)

// =============================================================================
// Key Bindings
// =============================================================================

type canvasKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Reload key.Binding
	Reseed key.Binding
	Quit   key.Binding
}

var canvasKeys = canvasKeyMap{
	Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "select")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous")),
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "drag up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "drag down")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "drag left")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "drag right")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Reseed: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "reseed")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k canvasKeyMap) ShortHelp() []key.Binding {
	drag := key.NewBinding(key.WithKeys("up", "down", "left", "right"), key.WithHelp("←↑↓→", "drag"))
	return []key.Binding{k.Next, drag, k.Reload, k.Reseed, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k canvasKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev},
		{k.Up, k.Down, k.Left, k.Right},
		{k.Reload, k.Reseed, k.Quit},
	}
}

// =============================================================================
// Messages
// =============================================================================

// frameMsg asks the model to run one simulation step for the run identified
// by token. Frames of an older run are dropped.
type frameMsg struct{ token uint64 }

// releaseMsg lets go of the dragged node unless a newer drag superseded it.
type releaseMsg struct{ seq uint64 }

// reloadMsg carries a freshly read architecture file.
type reloadMsg struct {
	arch *arch.Architecture
	err  error
}

// =============================================================================
// CanvasModel - Live simulation in the terminal
// =============================================================================

// CanvasModel is the bubbletea model behind "archflow watch". It owns the
// entity positions and advances the simulation by one Step per frame.
type CanvasModel struct {
	path     string
	cfg      repulsion.Config
	interval time.Duration
	load     func(path string) (*arch.Architecture, error)

	arch     *arch.Architecture
	diagram  diagram.Diagram
	entities []repulsion.Entity
	idKey    string

	token     uint64
	step      int
	running   bool
	converged bool

	selected int
	dragSeq  uint64
	status   string
	help     help.Model

	width, height int
}

// NewCanvasModel creates a model for a, read from path. load re-reads the
// file when the user asks for a reload.
func NewCanvasModel(path string, a *arch.Architecture, cfg repulsion.Config, interval time.Duration, load func(string) (*arch.Architecture, error)) CanvasModel {
	m := CanvasModel{
		path:     path,
		cfg:      cfg.WithDefaults(),
		interval: interval,
		load:     load,
		width:    defaultCanvasWidth,
		height:   defaultCanvasHeight,
		help:     help.New(),
	}
	m.seed(a)
	m.token = 1
	m.running = true
	return m
}

// seed maps a and places every entity at its seeded position.
func (m *CanvasModel) seed(a *arch.Architecture) {
	m.arch = a
	m.diagram = diagram.Map(a)
	m.entities = diagram.Entities(m.diagram)
	m.idKey = repulsion.IDKey(m.entities)
	if m.selected >= len(m.entities) {
		m.selected = 0
	}
}

// restart starts a new run from step zero. Frames of the previous run are
// ignored from now on.
func (m *CanvasModel) restart() tea.Cmd {
	m.token++
	m.step = 0
	m.running = true
	m.converged = false
	return m.nextFrame()
}

func (m CanvasModel) nextFrame() tea.Cmd {
	token := m.token
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return frameMsg{token: token} })
}

// Init schedules the first frame of the initial run.
func (m CanvasModel) Init() tea.Cmd {
	return m.nextFrame()
}

func (m CanvasModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		return m.frame(msg)
	case releaseMsg:
		if msg.seq != m.dragSeq {
			return m, nil
		}
		entities := m.cloneEntities()
		for i := range entities {
			entities[i].Dragging = false
		}
		m.entities = entities
		return m, nil
	case reloadMsg:
		return m.reload(msg)
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-tablePanelWidth-4, 20)
		m.height = max(msg.Height-6, 8)
		m.help.Width = msg.Width
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m CanvasModel) frame(msg frameMsg) (tea.Model, tea.Cmd) {
	if msg.token != m.token || !m.running {
		return m, nil
	}
	if m.step >= m.cfg.MaxSteps {
		m.running = false
		return m, nil
	}
	next, moved := repulsion.Step(m.entities, m.step, m.cfg)
	if !moved {
		m.running = false
		m.converged = true
		return m, nil
	}
	m.entities = next
	m.step++
	return m, m.nextFrame()
}

// reload replaces the architecture. The run restarts only when the node ID
// set changed; otherwise positions stay and only node types are refreshed.
func (m CanvasModel) reload(msg reloadMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "reload failed: " + msg.err.Error()
		return m, nil
	}
	fresh := diagram.Map(msg.arch)
	entities := diagram.Entities(fresh)
	if repulsion.IDKey(entities) == m.idKey {
		types := make(map[string]string, len(entities))
		for _, e := range entities {
			types[e.ID] = e.Type
		}
		kept := m.cloneEntities()
		for i := range kept {
			kept[i].Type = types[kept[i].ID]
		}
		m.entities = kept
		m.arch = msg.arch
		m.diagram = fresh
		m.status = "reloaded, positions kept"
		return m, nil
	}
	m.seed(msg.arch)
	m.status = fmt.Sprintf("reloaded, %d nodes", len(m.entities))
	return m, m.restart()
}

func (m CanvasModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, canvasKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, canvasKeys.Next):
		if n := len(m.entities); n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case key.Matches(msg, canvasKeys.Prev):
		if n := len(m.entities); n > 0 {
			m.selected = (m.selected + n - 1) % n
		}
	case key.Matches(msg, canvasKeys.Reload):
		path, load := m.path, m.load
		m.status = "reloading " + path
		return m, func() tea.Msg {
			a, err := load(path)
			return reloadMsg{arch: a, err: err}
		}
	case key.Matches(msg, canvasKeys.Reseed):
		m.seed(m.arch)
		m.status = "reseeded"
		return m, m.restart()
	case key.Matches(msg, canvasKeys.Up):
		return m.drag(0, -dragNudge)
	case key.Matches(msg, canvasKeys.Down):
		return m.drag(0, dragNudge)
	case key.Matches(msg, canvasKeys.Left):
		return m.drag(-dragNudge, 0)
	case key.Matches(msg, canvasKeys.Right):
		return m.drag(dragNudge, 0)
	}
	return m, nil
}

// drag moves the selected node and flags it as dragging so the simulation
// leaves it alone until it is released.
func (m CanvasModel) drag(dx, dy float64) (tea.Model, tea.Cmd) {
	if len(m.entities) == 0 {
		return m, nil
	}
	entities := m.cloneEntities()
	e := &entities[m.selected]
	e.Dragging = true
	e.X += dx
	e.Y += dy
	m.entities = entities

	m.dragSeq++
	seq := m.dragSeq
	return m, tea.Tick(dragRelease, func(time.Time) tea.Msg { return releaseMsg{seq: seq} })
}

// cloneEntities copies the positions so earlier model values stay intact.
func (m CanvasModel) cloneEntities() []repulsion.Entity {
	out := make([]repulsion.Entity, len(m.entities))
	copy(out, m.entities)
	return out
}

// =============================================================================
// View
// =============================================================================

func (m CanvasModel) View() string {
	var b strings.Builder

	title := "untitled project"
	if m.arch != nil && m.arch.ProjectName != "" {
		title = m.arch.ProjectName
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(m.statusLine()))
	b.WriteString("\n")

	canvas := canvasBorderStyle.Render(m.renderCanvas())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, canvas, " ", m.renderTable()))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(StyleWarning.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(canvasKeys))
	return b.String()
}

func (m CanvasModel) statusLine() string {
	state := "stopped"
	switch {
	case m.running:
		state = "settling"
	case m.converged:
		state = "converged"
	}
	return fmt.Sprintf("run %d · step %d/%d · %s · %d nodes", m.token, m.step, m.cfg.MaxSteps, state, len(m.entities))
}

type cell struct {
	ch    rune
	style *lipgloss.Style
}

// renderCanvas projects entity positions onto a character grid: edges as
// dots, nodes as colored labels centered on their position.
func (m CanvasModel) renderCanvas() string {
	w, h := m.width, m.height
	grid := make([][]cell, h)
	for y := range grid {
		grid[y] = make([]cell, w)
		for x := range grid[y] {
			grid[y][x] = cell{ch: ' '}
		}
	}
	if len(m.entities) == 0 {
		return gridString(grid)
	}

	project := m.projection(w, h)
	pos := make(map[string][2]int, len(m.entities))
	for _, e := range m.entities {
		x, y := project(e.X, e.Y)
		pos[e.ID] = [2]int{x, y}
	}

	for _, e := range m.diagram.Edges {
		from, ok1 := pos[e.Source]
		to, ok2 := pos[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		plotLine(grid, from, to, &canvasEdgeStyle)
	}

	for i, e := range m.entities {
		style := typeStyle(arch.NodeType(e.Type))
		if i == m.selected {
			style = style.Inherit(canvasSelStyle)
		}
		label := m.label(e.ID)
		if e.Dragging {
			label = "*" + label
		}
		p := pos[e.ID]
		plotText(grid, p[0]-len([]rune(label))/2, p[1], label, &style)
	}
	return gridString(grid)
}

// projection maps diagram coordinates into the w×h grid, keeping the
// aspect ratio roughly square given cells twice as tall as wide.
func (m CanvasModel) projection(w, h int) func(x, y float64) (int, int) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, e := range m.entities {
		minX, maxX = math.Min(minX, e.X), math.Max(maxX, e.X)
		minY, maxY = math.Min(minY, e.Y), math.Max(maxY, e.Y)
	}
	spanX := math.Max(maxX-minX, 1)
	spanY := math.Max(maxY-minY, 1)
	padX := float64(labelWidth / 2)
	usableW := math.Max(float64(w)-2*padX, 1)
	usableH := math.Max(float64(h-1), 1)
	scale := math.Min(usableW/spanX, 2*usableH/spanY)

	return func(x, y float64) (int, int) {
		gx := int(math.Round(padX + (x-minX)*scale))
		gy := int(math.Round((y - minY) * scale / 2))
		return clamp(gx, 0, w-1), clamp(gy, 0, h-1)
	}
}

func (m CanvasModel) label(id string) string {
	l := id
	if n, ok := m.diagram.Node(id); ok && n.Data.Label != "" {
		l = n.Data.Label
	}
	r := []rune(l)
	if len(r) > labelWidth {
		r = append(r[:labelWidth-1], '…')
	}
	return string(r)
}

func (m CanvasModel) renderTable() string {
	rows := make([][]string, 0, len(m.entities))
	for i, e := range m.entities {
		cursor := " "
		if i == m.selected {
			cursor = "▸"
		}
		rows = append(rows, []string{cursor, m.label(e.ID), e.Type, fmt.Sprintf("%.0f,%.0f", e.X, e.Y)})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorFaint)).
		Headers("", "Node", "Type", "Pos").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= len(m.entities) {
				return lipgloss.NewStyle()
			}
			if col == 2 {
				return typeStyle(arch.NodeType(m.entities[row].Type))
			}
			if row == m.selected {
				return lipgloss.NewStyle().Foreground(colorSky).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorMuted)
		}).
		Render()
}

// =============================================================================
// Grid Helpers
// =============================================================================

func plotLine(grid [][]cell, from, to [2]int, style *lipgloss.Style) {
	dx, dy := to[0]-from[0], to[1]-from[1]
	n := max(abs(dx), abs(dy))
	for i := 1; i < n; i++ {
		x := from[0] + dx*i/n
		y := from[1] + dy*i/n
		if grid[y][x].ch == ' ' {
			grid[y][x] = cell{ch: '·', style: style}
		}
	}
}

func plotText(grid [][]cell, x, y int, s string, style *lipgloss.Style) {
	row := grid[y]
	x = clamp(x, 0, max(len(row)-len([]rune(s)), 0))
	for i, r := range []rune(s) {
		if x+i >= len(row) {
			break
		}
		row[x+i] = cell{ch: r, style: style}
	}
}

// gridString renders the grid, styling runs of cells that share a style.
func gridString(grid [][]cell) string {
	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteByte('\n')
		}
		var run []rune
		var runStyle *lipgloss.Style
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runStyle == nil {
				b.WriteString(string(run))
			} else {
				b.WriteString(runStyle.Render(string(run)))
			}
			run = run[:0]
		}
		for _, c := range row {
			if c.style != runStyle {
				flush()
				runStyle = c.style
			}
			run = append(run, c.ch)
		}
		flush()
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
