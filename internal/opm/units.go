package opm

import (
	"fmt"
)

// Unit is a closed enumeration of the display units a measurement can be
// reported in.
type Unit int

const (
	Nanoampere Unit = iota
	Microampere
	Milliampere
	Ampere
	Nanowatt
	Microwatt
	Milliwatt
	Watt
	NanowattPerSqCm
	MicrowattPerSqCm
	MilliwattPerSqCm
	WattPerSqCm
	DecibelMilliwatt
)

// unitSymbols maps every unit to its display symbol. The map is the
// single source of truth for String and ParseUnit.
var unitSymbols = map[Unit]string{
	Nanoampere:       "nA",
	Microampere:      "µA",
	Milliampere:      "mA",
	Ampere:           "A",
	Nanowatt:         "nW",
	Microwatt:        "µW",
	Milliwatt:        "mW",
	Watt:             "W",
	NanowattPerSqCm:  "nW/cm²",
	MicrowattPerSqCm: "µW/cm²",
	MilliwattPerSqCm: "mW/cm²",
	WattPerSqCm:      "W/cm²",
	DecibelMilliwatt: "dBm",
}

// unitAliases accepts plain-ASCII spellings for units whose symbol
// carries µ or ², so shell users do not have to type them.
var unitAliases = map[string]Unit{
	"uA":     Microampere,
	"uW":     Microwatt,
	"nW/cm2": NanowattPerSqCm,
	"uW/cm²": MicrowattPerSqCm,
	"uW/cm2": MicrowattPerSqCm,
	"mW/cm2": MilliwattPerSqCm,
	"W/cm2":  WattPerSqCm,
}

// String returns the display symbol for the unit
func (u Unit) String() string {
	if s, ok := unitSymbols[u]; ok {
		return s
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// Description returns the long form of the unit, e.g.
// "Microampere (µA)".
func (u Unit) Description() string {
	names := map[Unit]string{
		Nanoampere:       "Nanoampere",
		Microampere:      "Microampere",
		Milliampere:      "Milliampere",
		Ampere:           "Ampere",
		Nanowatt:         "Nanowatts",
		Microwatt:        "Microwatts",
		Milliwatt:        "Milliwatts",
		Watt:             "Watts",
		NanowattPerSqCm:  "Nanowatts per square centimeter",
		MicrowattPerSqCm: "Microwatts per square centimeter",
		MilliwattPerSqCm: "Milliwatts per square centimeter",
		WattPerSqCm:      "Watts per square centimeter",
		DecibelMilliwatt: "Decibel-milliwatts",
	}
	if n, ok := names[u]; ok {
		return fmt.Sprintf("%s (%s)", n, u)
	}
	return u.String()
}

// IsCurrent reports whether the unit is a raw current unit. Raw current
// units bypass the wavelength correction factor.
func (u Unit) IsCurrent() bool {
	switch u {
	case Nanoampere, Microampere, Milliampere, Ampere:
		return true
	}
	return false
}

// IsIrradiance reports whether the unit is power per area. Irradiance
// values are divided by the illuminated aperture area.
func (u Unit) IsIrradiance() bool {
	switch u {
	case NanowattPerSqCm, MicrowattPerSqCm, MilliwattPerSqCm, WattPerSqCm:
		return true
	}
	return false
}

// ParseUnit maps a unit symbol (or ASCII alias) to its Unit value
func ParseUnit(s string) (Unit, error) {
	for u, symbol := range unitSymbols {
		if s == symbol {
			return u, nil
		}
	}
	if u, ok := unitAliases[s]; ok {
		return u, nil
	}
	return 0, NewValidationError(fmt.Sprintf("unrecognized unit %q", s))
}

// Units returns all display units in catalogue order
func Units() []Unit {
	return []Unit{
		Nanoampere, Microampere, Milliampere, Ampere,
		Nanowatt, Microwatt, Milliwatt, Watt,
		NanowattPerSqCm, MicrowattPerSqCm, MilliwattPerSqCm, WattPerSqCm,
		DecibelMilliwatt,
	}
}

// Bandwidth is a closed enumeration of the instrument's analog
// bandwidth settings.
type Bandwidth int

const (
	Bandwidth10kHz Bandwidth = iota
	Bandwidth1kHz
	Bandwidth100Hz
	Bandwidth10Hz
)

// bandwidthCommands maps every bandwidth to its device command code
var bandwidthCommands = map[Bandwidth]string{
	Bandwidth10kHz: "B1",
	Bandwidth1kHz:  "B2",
	Bandwidth100Hz: "B3",
	Bandwidth10Hz:  "B4",
}

// String returns the bandwidth in display form, e.g. "10 kHz"
func (b Bandwidth) String() string {
	switch b {
	case Bandwidth10kHz:
		return "10 kHz"
	case Bandwidth1kHz:
		return "1 kHz"
	case Bandwidth100Hz:
		return "100 Hz"
	case Bandwidth10Hz:
		return "10 Hz"
	default:
		return fmt.Sprintf("Bandwidth(%d)", int(b))
	}
}

// command returns the device command code for the bandwidth
func (b Bandwidth) command() (string, error) {
	code, ok := bandwidthCommands[b]
	if !ok {
		return "", NewValidationError(fmt.Sprintf("unrecognized bandwidth value %d", int(b)))
	}
	return code, nil
}

// bandwidthFromCode maps a device reply code ("B1".."B4") back to a
// Bandwidth value.
func bandwidthFromCode(code string) (Bandwidth, bool) {
	for b, c := range bandwidthCommands {
		if c == code {
			return b, true
		}
	}
	return 0, false
}

// ParseBandwidth maps a display string ("10 kHz", "1 kHz", "100 Hz",
// "10 Hz") to its Bandwidth value.
func ParseBandwidth(s string) (Bandwidth, error) {
	for _, b := range []Bandwidth{Bandwidth10kHz, Bandwidth1kHz, Bandwidth100Hz, Bandwidth10Hz} {
		if s == b.String() {
			return b, nil
		}
	}
	return 0, NewValidationError(fmt.Sprintf("unrecognized bandwidth %q", s))
}

// Gain is a closed enumeration of the six discrete amplification levels
// plus the automatic search mode.
type Gain int

const (
	GainX1 Gain = iota + 1
	GainX10
	GainX100
	GainX1000
	GainX10000
	GainX100000
	GainAuto
)

// gainLevelCount is the number of discrete gain levels. It bounds the
// autogain search and names the full usable range restored by
// auto-zero-reset.
const gainLevelCount = 6

// String returns the gain in display form, e.g. "x10" or "auto-gain"
func (g Gain) String() string {
	switch g {
	case GainX1:
		return "x1"
	case GainX10:
		return "x10"
	case GainX100:
		return "x100"
	case GainX1000:
		return "x1000"
	case GainX10000:
		return "x10000"
	case GainX100000:
		return "x100000"
	case GainAuto:
		return "auto-gain"
	default:
		return fmt.Sprintf("Gain(%d)", int(g))
	}
}

// level returns the numeric gain level (1..6). Zero means the gain has
// no fixed level (auto mode).
func (g Gain) level() int {
	if g >= GainX1 && g <= GainX100000 {
		return int(g)
	}
	return 0
}

// command returns the device command code ("V1".."V6") for a fixed
// gain level. GainAuto has no command; the search is host-side.
func (g Gain) command() (string, error) {
	level := g.level()
	if level == 0 {
		return "", NewValidationError(fmt.Sprintf("unrecognized gain value %d", int(g)))
	}
	return fmt.Sprintf("V%d", level), nil
}

// gainFromLevel maps a numeric level (1..6) to its Gain value
func gainFromLevel(level int) (Gain, bool) {
	if level >= 1 && level <= gainLevelCount {
		return Gain(level), true
	}
	return 0, false
}

// gainFromCode maps a device reply code ("V1".."V6") back to a Gain value
func gainFromCode(code string) (Gain, bool) {
	if len(code) != 2 || code[0] != 'V' || code[1] < '1' || code[1] > '6' {
		return 0, false
	}
	return gainFromLevel(int(code[1] - '0'))
}

// ParseGain maps a display string ("x1".."x100000", "auto-gain") to its
// Gain value.
func ParseGain(s string) (Gain, error) {
	for _, g := range []Gain{GainX1, GainX10, GainX100, GainX1000, GainX10000, GainX100000, GainAuto} {
		if s == g.String() {
			return g, nil
		}
	}
	if s == "auto" {
		return GainAuto, nil
	}
	return 0, NewValidationError(fmt.Sprintf("unrecognized gain %q", s))
}

// AutoZeroState describes which offset calibration has last been applied
type AutoZeroState int

const (
	AutoZeroNone AutoZeroState = iota
	AutoZeroDone
	AutoZeroResetDone
)

// String returns the auto-zero state in display form
func (s AutoZeroState) String() string {
	switch s {
	case AutoZeroNone:
		return "None"
	case AutoZeroDone:
		return "Auto zero"
	case AutoZeroResetDone:
		return "Auto zero reset"
	default:
		return fmt.Sprintf("AutoZeroState(%d)", int(s))
	}
}
