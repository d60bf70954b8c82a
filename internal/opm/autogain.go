package opm

import (
	"fmt"
	"strconv"
	"strings"
)

// autogainOp records the direction of the previous gain adjustment
type autogainOp int

const (
	agNone autogainOp = iota
	agDecrement
	agIncrement
)

// fullScale maps each gain level (1..6) to the maximum representable
// reading at that level, chosen so that magnitude/fullScale is directly
// a percentage. Levels 4..6 repeat levels 1..3; the instrument
// documentation states the ranges wrap, this is not a typo.
var fullScale = map[int]float64{
	1: 122.85,
	2: 12.285,
	3: 1.2285,
	4: 122.85,
	5: 12.285,
	6: 1.2285,
}

// autogain adjusts the gain level until the reading sits inside the
// usable band of its range, then returns the final raw reading. The
// search is a bounded loop: never more than one adjustment per discrete
// gain level, and a forced stop after two increments in a row so the
// search cannot oscillate between two adjacent levels.
//
// Caller holds the lock and has verified the session is connected.
func (d *Device) autogain(reading string) (string, error) {
	last := agNone

	for iter := 0; iter < gainLevelCount; iter++ {
		if d.gainLevel == 0 {
			// Level not known yet: ask the instrument
			if _, err := d.readGainLocked(); err != nil {
				return "", err
			}
		}

		magnitude, _, err := splitRawReading(reading)
		if err != nil {
			return "", err
		}

		scale, ok := fullScale[d.gainLevel]
		if !ok {
			return "", NewProtocolError(fmt.Sprintf("gain level %d out of range", d.gainLevel))
		}
		percent := magnitude / scale

		switch {
		case percent > 90.0 && d.gainLevel > 1:
			reading, err = d.stepGain(d.gainLevel - 1)
			if err != nil {
				return "", err
			}
			last = agDecrement

		case percent < 8.0 && d.gainLevel < d.maxGainLevel:
			forced := last == agIncrement
			reading, err = d.stepGain(d.gainLevel + 1)
			if err != nil {
				return "", err
			}
			last = agIncrement
			if forced {
				// Second increment in a row: take the fresh reading and
				// stop before the search can bounce back down.
				return reading, nil
			}

		default:
			return reading, nil
		}
	}

	return reading, nil
}

// stepGain applies a new gain level and takes a fresh raw reading
func (d *Device) stepGain(level int) (string, error) {
	g, ok := gainFromLevel(level)
	if !ok {
		return "", NewProtocolError(fmt.Sprintf("gain level %d out of range", level))
	}
	if err := d.setGainLocked(g); err != nil {
		return "", err
	}
	return d.rawMeasurementLocked()
}

// splitRawReading splits a raw reading token such as "1,0nA" into its
// numeric magnitude and two-character unit suffix. The magnitude uses a
// comma as decimal separator.
func splitRawReading(token string) (float64, string, error) {
	if len(token) < 3 {
		return 0, "", NewProtocolError(fmt.Sprintf("malformed raw reading: %q", token))
	}

	suffix := token[len(token)-2:]
	if suffix != "nA" && suffix != "uA" {
		return 0, "", NewProtocolError(fmt.Sprintf("unexpected unit suffix in raw reading %q", token))
	}

	magnitude, err := strconv.ParseFloat(strings.ReplaceAll(token[:len(token)-2], ",", "."), 64)
	if err != nil {
		return 0, "", NewProtocolError(fmt.Sprintf("malformed magnitude in raw reading %q", token))
	}

	return magnitude, suffix, nil
}
