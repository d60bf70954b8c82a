package opm

import (
	"fmt"
	"math"
)

// Measurement is one calibrated reading in the selected display unit
type Measurement struct {
	Value float64
	Unit  Unit
}

// String returns the measurement in display form, e.g. "1.5 µW"
func (m Measurement) String() string {
	return fmt.Sprintf("%g %s", m.Value, m.Unit)
}

// Measure takes one reading and converts it into the selected display
// unit. When the gain mode is automatic the reading is first passed
// through the gain search, which may adjust the level and re-measure.
func (d *Device) Measure() (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return Measurement{}, err
	}

	raw, err := d.rawMeasurementLocked()
	if err != nil {
		return Measurement{}, err
	}

	if d.gain == GainAuto {
		raw, err = d.autogain(raw)
		if err != nil {
			return Measurement{}, err
		}
	}

	return d.convertReading(raw)
}

// convertReading runs the measurement pipeline on a raw reading token
// using the current configuration. Caller holds the lock.
func (d *Device) convertReading(raw string) (Measurement, error) {
	magnitude, suffix, err := splitRawReading(raw)
	if err != nil {
		return Measurement{}, err
	}

	// Normalize to the nanoampere base
	if suffix == "uA" {
		magnitude *= 1000
	}

	// Raw current units bypass the wavelength correction
	sensitivity := 1.0
	if !d.unit.IsCurrent() {
		sensitivity = d.correctionFactor
	}
	magnitude /= sensitivity * d.filterFactor

	switch d.unit {
	case Nanoampere, Nanowatt, NanowattPerSqCm:
		magnitude = roundTo(magnitude, 3)
	case Microampere, Microwatt, MicrowattPerSqCm:
		magnitude /= 1e3
		magnitude = roundTo(magnitude, 6)
	case Milliampere, Milliwatt, MilliwattPerSqCm:
		magnitude /= 1e6
		magnitude = roundTo(magnitude, 9)
	case DecibelMilliwatt:
		arg := magnitude / 1e6
		if arg <= 0 {
			return Measurement{}, NewDomainError(
				fmt.Sprintf("cannot express non-positive power %g as dBm", arg))
		}
		magnitude = roundTo(10*math.Log10(arg), 5)
	default:
		// Ampere, Watt, Watt/cm²
		magnitude /= 1e9
		magnitude = roundTo(magnitude, 12)
	}

	// Irradiance: divide by the illuminated area in cm², derived from
	// the aperture diameter in mm.
	if d.unit.IsIrradiance() {
		magnitude /= (d.apertureMM * d.apertureMM / 400) * math.Pi
	}

	return Measurement{Value: magnitude, Unit: d.unit}, nil
}

// roundTo rounds to the given number of decimal places
func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
