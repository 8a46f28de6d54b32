// Package cli implements the archflow command line.
//
// Commands cover the whole flow from a product idea to a relaxed diagram:
//   - generate asks the generation service for an architecture record
//   - layout maps a record onto diagram layers and runs the repulsion
//     simulation to completion
//   - render writes JSON, DOT, SVG, PDF or PNG from a layout
//   - run does all three at once
//   - watch animates the simulation in the terminal and follows the file
//   - serve starts the HTTP API with live canvases
//   - sample, cache, config and completion are housekeeping
//
// Status lines go to stdout with lipgloss styles. Diagnostics go through a
// charmbracelet logger that travels in the command context; -v lowers it to
// debug and routes the observability hooks to it.
package cli
