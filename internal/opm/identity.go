package opm

import (
	"regexp"
	"strconv"
)

// Identity holds the structured fields extracted from the instrument's
// free-text info block. Fields missing from the block keep their
// sentinel value: "" for text, -1 for wavelengths. Identity is set once
// during initialization and never mutated afterwards.
type Identity struct {
	// FirmwareVersion is the firmware release, e.g. "1.2"
	FirmwareVersion string

	// SerialNumber is the instrument serial number, e.g. "12345"
	SerialNumber string

	// ManufactureDate is the date of manufacturing as printed by the
	// device, e.g. "03/2024". Stored verbatim, no calendar validation.
	ManufactureDate string

	// MinWavelengthNM is the lower bound of the detector range in
	// nanometers, or -1 when the block carries no detector section
	MinWavelengthNM int

	// MaxWavelengthNM is the upper bound of the detector range in
	// nanometers, or -1 when the block carries no detector section
	MaxWavelengthNM int
}

// Each field is scanned independently so a missing field never perturbs
// extraction of the others.
var (
	idModelMarker = regexp.MustCompile(`(?im)^OPM500`)
	idFirmware    = regexp.MustCompile(`(?is)fw.*?([0-9]+\.[0-9]+)`)
	idSerial      = regexp.MustCompile(`(?is)serial:.*?([0-9]+)`)
	idDate        = regexp.MustCompile(`(?is)date of manufacturing:.*?([0-9]{1,2}/[0-9]{2,4})`)
	idDetector    = regexp.MustCompile(`(?is)detector:.*?([0-9]+)nm.*?([0-9]+)nm`)
)

// ParseIdentity extracts the structured identity fields from an info
// block returned by the identity query. The block is valid only if one
// of its lines begins with the device model marker; anything else fails
// with a protocol error.
func ParseIdentity(text string) (Identity, error) {
	if !idModelMarker.MatchString(text) {
		return Identity{}, NewProtocolError("info block is missing the OPM500 model marker")
	}

	id := Identity{
		MinWavelengthNM: -1,
		MaxWavelengthNM: -1,
	}

	if m := idFirmware.FindStringSubmatch(text); m != nil {
		id.FirmwareVersion = m[1]
	}

	if m := idSerial.FindStringSubmatch(text); m != nil {
		id.SerialNumber = m[1]
	}

	if m := idDate.FindStringSubmatch(text); m != nil {
		id.ManufactureDate = m[1]
	}

	if m := idDetector.FindStringSubmatch(text); m != nil {
		// Both bounds are digit runs, so the conversions cannot fail;
		// errors are kept visible to satisfy the explicit found/not-found
		// contract.
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo == nil && errHi == nil {
			id.MinWavelengthNM = lo
			id.MaxWavelengthNM = hi
		}
	}

	return id, nil
}

// DetectorRangeKnown reports whether the identity block carried a
// detector wavelength range.
func (id Identity) DetectorRangeKnown() bool {
	return id.MinWavelengthNM >= 0 && id.MaxWavelengthNM >= 0
}
