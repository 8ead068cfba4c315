// Package viz renders recorded scope traces as terminal charts.
//
// The package implements the display service scope sinks draw through:
//
//   - [Display]: collects time series via Trace and plots them on Render
//   - ASCII line charts built with asciigraph, styled with lipgloss
//   - [Sparkline]: compact single-row chart for live views
//
// A Display is handed to the run through the simulation options; sinks
// acquire tracers at start and feed samples on every accepted step.
package viz
