// Package picker provides an interactive terminal picker for selecting
// an attached OPM500 instrument.
//
// The picker is a Bubble Tea program: it scans the serial ports for
// instruments, presents the matches as a navigable list, and supports
// rescanning and manual port entry for adapters whose USB metadata does
// not identify the model. Run blocks until a selection is made or the
// user quits.
//
// The CLI falls back to the picker when no --port flag is given and
// stdout is an interactive terminal.
package picker
