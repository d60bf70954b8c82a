package ui

import (
	"fmt"
	"time"

	"github.com/artifex-eng/opm500/internal/opm"
)

// RenderMeasurement renders a single reading. Interactive terminals get
// a styled value; pipes get the plain display form so output stays
// machine-readable.
func RenderMeasurement(m opm.Measurement) string {
	if !IsInteractive() {
		return m.String()
	}
	return ReadingStyle.Render(fmt.Sprintf("%g", m.Value)) + " " + ReadingUnitStyle.Render(m.Unit.String())
}

// RenderTimestampedMeasurement renders one row of a repeated
// measurement series with a wall-clock prefix.
func RenderTimestampedMeasurement(at time.Time, m opm.Measurement) string {
	stamp := at.Format("15:04:05.000")
	if !IsInteractive() {
		return fmt.Sprintf("%s  %s", stamp, m.String())
	}
	return SubtitleStyle.Render(stamp) + "  " + RenderMeasurement(m)
}
