package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/errors"
)

// stdout receives command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// =============================================================================
// Palette
// =============================================================================

var (
	colorAccent = lipgloss.Color("#6366f1") // default edge indigo
	colorGreen  = lipgloss.Color("#10b981")
	colorAmber  = lipgloss.Color("#f59e0b")
	colorRed    = lipgloss.Color("#ef4444")
	colorSky    = lipgloss.Color("#38bdf8")
	colorText   = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("245")
	colorFaint  = lipgloss.Color("240")
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleLink      = lipgloss.NewStyle().Foreground(colorSky).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue     = lipgloss.NewStyle().Foreground(colorText)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorAmber)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleKey         = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorSky)
	styleSep         = StyleDim.Render(" · ")
)

// statusIcons pairs each status line kind with its glyph.
var statusIcons = map[string]string{
	"success": lipgloss.NewStyle().Foreground(colorGreen).Render("✓"),
	"error":   lipgloss.NewStyle().Foreground(colorRed).Render("✗"),
	"warning": lipgloss.NewStyle().Foreground(colorAmber).Render("!"),
	"info":    lipgloss.NewStyle().Foreground(colorMuted).Render("›"),
}

// =============================================================================
// Status Lines
// =============================================================================

func status(kind, msg string) {
	fmt.Fprintln(stdout, statusIcons[kind]+" "+msg)
}

func printSuccess(format string, args ...any) { status("success", fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { status("error", fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { status("info", fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	status("warning", StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints an "→ path" line for a written artifact.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(stdout) }

// ReportError prints err as a status line. Coded errors show their message
// with the code dimmed after it.
func ReportError(w io.Writer, err error) {
	msg := errors.UserMessage(err)
	if code := errors.GetCode(err); code != "" {
		msg += " " + StyleDim.Render("("+string(code)+")")
	}
	fmt.Fprintln(w, statusIcons["error"]+" "+msg)
}

// =============================================================================
// Diagram Summaries
// =============================================================================

// printStats prints "N nodes · M edges · cached|fresh". Zero counts are
// left out.
func printStats(nodeCount, edgeCount int, cached bool) {
	var parts []string
	if nodeCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d nodes", nodeCount)))
	}
	if edgeCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d edges", edgeCount)))
	}
	if cached {
		parts = append(parts, StyleSuccess.Render("cached"))
	} else {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorMuted).Render("fresh"))
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, styleSep))
}

// printSimulation prints how the relaxation ended.
func printSimulation(sim diagram.Simulation) {
	end := StyleSuccess.Render("converged")
	if !sim.Converged {
		end = StyleWarning.Render("step budget spent")
	}
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf("%d steps", sim.Steps))+styleSep+end)
}

// printCost prints the monthly estimate with a colored swatch per category.
func printCost(c arch.CloudCost) {
	if c.IsZero() {
		return
	}
	for _, item := range diagram.CostBreakdown(c) {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(item.Color)).Render("■")
		fmt.Fprintln(stdout, "  "+swatch+" "+StyleDim.Render(fmt.Sprintf("%-14s", item.Category))+StyleValue.Render(item.Amount))
	}
	if c.EstimatedMonthlyCost != "" {
		fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf("%-16s", "Monthly"))+StyleHighlight.Render(c.EstimatedMonthlyCost))
	}
}

// typeStyle colors text with the border color of a node type's card.
func typeStyle(t arch.NodeType) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(diagram.StyleOf(t).Border))
}
