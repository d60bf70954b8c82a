package opm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mandatory settle delays after auto-zero acknowledgments. The
// instrument re-references its input stage and must not be addressed
// while doing so.
const (
	settleAutoZeroGain = 200 * time.Millisecond
	settleAutoZeroFull = 500 * time.Millisecond
	settleAutoZeroRst  = 50 * time.Millisecond
)

// Every setter in this file follows the same pattern: send a fixed
// command code, receive the response, and commit the in-memory state
// only when the response equals the expected acknowledgment. A
// mismatched acknowledgment reports a protocol error and leaves the
// state untouched.

// Info queries the instrument's free-text identity block
func (d *Device) Info() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return "", err
	}
	return d.infoLocked()
}

func (d *Device) infoLocked() (string, error) {
	return d.ch.exchange("$I")
}

// PolarityInverted queries the input polarity from the instrument and
// refreshes the cached value.
func (d *Device) PolarityInverted() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return false, err
	}

	resp, err := d.ch.exchange("$F")
	if err != nil {
		return false, err
	}

	switch resp {
	case "F0":
		d.polarityInverted = false
		return false, nil
	case "F1":
		d.polarityInverted = true
		return true, nil
	default:
		return false, NewProtocolError(fmt.Sprintf("unexpected polarity reply: %q", resp))
	}
}

// SetPolarity selects normal or inverted input polarity
func (d *Device) SetPolarity(inverted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return err
	}

	code := "N"
	if inverted {
		code = "C"
	}

	resp, err := d.ch.exchange("$" + code)
	if err != nil {
		return err
	}
	if resp != code+" OK" {
		return NewProtocolError(fmt.Sprintf("polarity set rejected: %q", resp))
	}

	d.polarityInverted = inverted
	return nil
}

// SetBandwidth selects one of the four analog bandwidth settings
func (d *Device) SetBandwidth(b Bandwidth) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return err
	}

	code, err := b.command()
	if err != nil {
		return err
	}

	resp, err := d.ch.exchange(code)
	if err != nil {
		return err
	}
	if resp != code+" OK" {
		return NewProtocolError(fmt.Sprintf("bandwidth set rejected: %q", resp))
	}

	d.bandwidth = b
	return nil
}

// ReadBandwidth queries the active bandwidth from the instrument and
// refreshes the cached value.
func (d *Device) ReadBandwidth() (Bandwidth, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return 0, err
	}

	resp, err := d.ch.exchange("B?")
	if err != nil {
		return 0, err
	}

	b, ok := bandwidthFromCode(resp)
	if !ok {
		return 0, NewProtocolError(fmt.Sprintf("unexpected bandwidth reply: %q", resp))
	}

	d.bandwidth = b
	return b, nil
}

// SetGain selects a fixed gain level or the automatic search mode.
// Selecting GainAuto transmits nothing: the search is host-side and the
// mode is recorded unconditionally.
func (d *Device) SetGain(g Gain) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return err
	}

	if g == GainAuto {
		d.gain = GainAuto
		return nil
	}

	return d.setGainLocked(g)
}

// setGainLocked applies a fixed gain level on the wire. When the mode is
// Auto the tracked numeric level is updated but the mode stays Auto.
// Caller holds the lock.
func (d *Device) setGainLocked(g Gain) error {
	code, err := g.command()
	if err != nil {
		return err
	}

	resp, err := d.ch.exchange(code)
	if err != nil {
		return err
	}
	if resp != code+" OK" {
		return NewProtocolError(fmt.Sprintf("gain set rejected: %q", resp))
	}

	if d.gain != GainAuto {
		d.gain = g
	}
	d.gainLevel = g.level()
	return nil
}

// ReadGain queries the active gain level from the instrument. The reply
// spans two lines; the second carries the level code. The tracked
// numeric level is always refreshed, the gain mode only when it is not
// Auto.
func (d *Device) ReadGain() (Gain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return 0, err
	}
	return d.readGainLocked()
}

func (d *Device) readGainLocked() (Gain, error) {
	resp, err := d.ch.exchange("V?")
	if err != nil {
		return 0, err
	}

	lines := strings.Split(resp, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "V? OK" {
		return 0, NewProtocolError(fmt.Sprintf("unexpected gain reply: %q", resp))
	}

	g, ok := gainFromCode(strings.TrimSpace(lines[1]))
	if !ok {
		return 0, NewProtocolError(fmt.Sprintf("unexpected gain level code: %q", lines[1]))
	}

	if d.gain != GainAuto {
		d.gain = g
	}
	d.gainLevel = g.level()
	return g, nil
}

// SetWavelength selects the measurement wavelength in nanometers. The
// value is validated against the detector range before anything is
// transmitted; out-of-range values are rejected without a command
// exchange. On success the instrument answers with the
// wavelength-dependent correction factor, which is committed atomically
// with the wavelength.
func (d *Device) SetWavelength(nm int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return err
	}
	return d.setWavelengthLocked(nm)
}

func (d *Device) setWavelengthLocked(nm int) error {
	if nm < d.identity.MinWavelengthNM || nm > d.identity.MaxWavelengthNM {
		return NewValidationError(fmt.Sprintf(
			"wavelength %d nm outside detector range [%d, %d]",
			nm, d.identity.MinWavelengthNM, d.identity.MaxWavelengthNM))
	}

	// The firmware expects the command code followed by the four digits
	// of the zero-padded wavelength, each transmitted on its own.
	if err := d.ch.send("L"); err != nil {
		return err
	}
	for _, digit := range fmt.Sprintf("%04d", nm) {
		if err := d.ch.send(string(digit)); err != nil {
			return err
		}
	}

	resp, err := d.ch.receive()
	if err != nil {
		return err
	}
	if !strings.Contains(resp, "KF:") {
		return NewProtocolError(fmt.Sprintf("wavelength set rejected: %q", resp))
	}

	factor := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(resp, "KF:", ""), ",", "."))
	kf, err := strconv.ParseFloat(factor, 64)
	if err != nil {
		return NewProtocolError(fmt.Sprintf("malformed correction factor in %q", resp))
	}

	d.wavelengthNM = nm
	d.correctionFactor = kf
	return nil
}

// AutoZero performs an immediate offset calibration. The instrument
// either reports a reduced usable gain range ("Gain: <digit>") or plain
// acknowledgment, which restores the full range. The call blocks for
// the mandated settle delay after the acknowledgment.
func (d *Device) AutoZero() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return err
	}

	resp, err := d.ch.exchange("$A")
	if err != nil {
		return err
	}

	switch {
	case strings.Contains(resp, "Gain: "):
		digit := resp[len(resp)-1]
		if digit < '0' || digit > '9' {
			return NewProtocolError(fmt.Sprintf("malformed gain limit in %q", resp))
		}
		d.autoZero = AutoZeroDone
		d.maxGainLevel = int(digit - '0')
		time.Sleep(settleAutoZeroGain)
		return nil

	case resp == "A OK":
		d.autoZero = AutoZeroDone
		d.maxGainLevel = gainLevelCount
		time.Sleep(settleAutoZeroFull)
		return nil

	default:
		return NewProtocolError(fmt.Sprintf("auto-zero rejected: %q", resp))
	}
}

// AutoZeroReset performs the offset calibration that always restores
// the full gain range. The call blocks for the mandated settle delay
// after the acknowledgment.
func (d *Device) AutoZeroReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return err
	}
	return d.autoZeroResetLocked()
}

func (d *Device) autoZeroResetLocked() error {
	resp, err := d.ch.exchange("$R")
	if err != nil {
		return err
	}
	if resp != "R OK" {
		return NewProtocolError(fmt.Sprintf("auto-zero-reset rejected: %q", resp))
	}

	d.autoZero = AutoZeroDone
	d.maxGainLevel = gainLevelCount
	time.Sleep(settleAutoZeroRst)
	return nil
}

// RawMeasurement queries one raw reading and returns the stripped token,
// e.g. "1,0nA" or "1,0uA".
func (d *Device) RawMeasurement() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireConnected(); err != nil {
		return "", err
	}
	return d.rawMeasurementLocked()
}

func (d *Device) rawMeasurementLocked() (string, error) {
	resp, err := d.ch.exchange("$E")
	if err != nil {
		return "", err
	}
	// The token is prefixed with a literal 'I'
	return strings.TrimSpace(strings.TrimPrefix(resp, "I")), nil
}

// SetUnit selects the display unit for measurements. Purely host-side;
// no command exchange.
func (d *Device) SetUnit(u Unit) error {
	if _, ok := unitSymbols[u]; !ok {
		return NewValidationError(fmt.Sprintf("unrecognized unit value %d", int(u)))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.unit = u
	return nil
}

// SetFilterFactor records the attenuation factor of an external filter
// in front of the detector. Must be positive.
func (d *Device) SetFilterFactor(factor float64) error {
	if factor <= 0 {
		return NewValidationError(fmt.Sprintf("filter factor must be positive, got %g", factor))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.filterFactor = factor
	return nil
}

// SetApertureMM records the diameter of the measurement head's input
// area in millimeters. Must be positive.
func (d *Device) SetApertureMM(mm float64) error {
	if mm <= 0 {
		return NewValidationError(fmt.Sprintf("aperture must be positive, got %g mm", mm))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.apertureMM = mm
	return nil
}
