// Package ui provides terminal rendering for the OPM500 command-line
// tools.
//
// The package is built on lipgloss for styling and golang.org/x/term
// for terminal size detection. It renders three kinds of output:
//
//   - InstrumentCard: a bordered card showing the identity and active
//     configuration of a connected instrument
//   - Measurement rendering: single readings and timestamped rows of a
//     repeated measurement series
//   - Result: bordered success/failure boxes with optional
//     troubleshooting tips
//
// Interactive detection: when stdout is not a terminal, measurement
// rendering falls back to plain text so output can be piped into other
// tools.
//
// All render functions return strings; callers decide where to print
// them.
package ui
