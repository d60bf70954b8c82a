package opm

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/artifex-eng/opm500/internal/logging"
	"github.com/artifex-eng/opm500/internal/transport"
)

// ConnectionState describes whether a Device owns a live transport handle
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
)

// String returns the connection state in display form
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

// Configuration defaults, restored wholesale on disconnect
const (
	DefaultFilterFactor     = 1.0
	DefaultApertureMM       = 7.0
	DefaultCorrectionFactor = 1.0
	DefaultWavelengthNM     = 660
)

// Config is a read-only snapshot of the in-memory device configuration
type Config struct {
	Unit             Unit
	FilterFactor     float64
	ApertureMM       float64
	Bandwidth        Bandwidth
	Gain             Gain
	CorrectionFactor float64
	WavelengthNM     int
	PolarityInverted bool
	AutoZero         AutoZeroState
	MaxGainLevel     int
}

// Device is a session with one OPM500 instrument. It owns the transport
// handle exclusively while connected and holds the in-memory
// configuration, which is mutated only by acknowledged setter calls.
//
// All operations are strictly synchronous with a single outstanding
// request; the internal lock serializes callers. Independent Device
// values (one per physical instrument) share no state.
type Device struct {
	mu    sync.Mutex
	ch    *channel
	state ConnectionState

	descriptor string
	identity   Identity

	unit             Unit
	filterFactor     float64
	apertureMM       float64
	bandwidth        Bandwidth
	gain             Gain
	correctionFactor float64
	wavelengthNM     int
	polarityInverted bool
	autoZero         AutoZeroState
	maxGainLevel     int

	// gainLevel tracks the numeric level last applied or read back,
	// independent of the gain mode. Zero means unknown.
	gainLevel int
}

// NewDevice creates a disconnected session with default configuration
func NewDevice() *Device {
	d := &Device{}
	d.restoreDefaults()
	return d
}

// restoreDefaults resets the configuration to the documented defaults.
// Invoked at construction, on disconnect, and on initialization failure.
// Caller holds the lock (or owns the Device exclusively).
func (d *Device) restoreDefaults() {
	d.unit = Microampere
	d.filterFactor = DefaultFilterFactor
	d.apertureMM = DefaultApertureMM
	d.bandwidth = Bandwidth10kHz
	d.gain = GainX1
	d.correctionFactor = DefaultCorrectionFactor
	d.wavelengthNM = DefaultWavelengthNM
	d.polarityInverted = false
	d.autoZero = AutoZeroNone
	d.maxGainLevel = gainLevelCount
	d.gainLevel = 0
	d.identity = Identity{MinWavelengthNM: -1, MaxWavelengthNM: -1}
}

// ListDescriptors returns a descriptor for every attached OPM500
// instrument, in the form "<description> - <serial-number>".
func ListDescriptors() ([]string, error) {
	descriptors, err := transport.ListDescriptors()
	if err != nil {
		return nil, NewConnectionError("failed to scan for instruments", err)
	}
	return descriptors, nil
}

// Connect opens the instrument named by the descriptor (or raw port
// name), performs the handshake, reads the identity block, and applies
// the default configuration (auto-zero-reset, default wavelength,
// default gain). On any failure the session is torn down and the error
// returned; the Device may then be reused for another Connect.
func (d *Device) Connect(target string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == Connected {
		return NewConnectionError("already connected", nil)
	}
	if strings.TrimSpace(target) == "" {
		return NewValidationError("no port or descriptor given")
	}

	tr, err := transport.Open(target)
	if err != nil {
		return NewConnectionError(fmt.Sprintf("cannot open %s", target), err)
	}

	return d.attach(tr, target)
}

// ConnectTransport attaches the session to an already-open transport
// handle and runs the same handshake and initialization as Connect.
// The session takes ownership of the handle.
func (d *Device) ConnectTransport(tr transport.Transport, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == Connected {
		return NewConnectionError("already connected", nil)
	}

	return d.attach(tr, name)
}

// attach performs handshake plus initialization over an open transport.
// Caller holds the lock.
func (d *Device) attach(tr transport.Transport, name string) error {
	d.ch = newChannel(tr, name)
	d.descriptor = name

	if err := d.handshake(); err != nil {
		d.teardown()
		return err
	}

	if err := d.initialize(); err != nil {
		d.teardown()
		return err
	}

	d.state = Connected
	logging.Info("Instrument connected",
		zap.String("target", name),
		zap.String("serial", d.identity.SerialNumber),
		zap.String("firmware", d.identity.FirmwareVersion),
	)
	return nil
}

// handshake sends the handshake command and verifies its acknowledgment.
// Caller holds the lock.
func (d *Device) handshake() error {
	resp, err := d.ch.exchange("$U")
	if err != nil {
		return err
	}
	if resp != "U OK" {
		return NewConnectionError(fmt.Sprintf("handshake rejected: %q", resp), nil)
	}
	return nil
}

// initialize reads and parses the identity block, then applies the
// defaults the instrument expects after power-up: auto-zero-reset,
// default wavelength, default gain. Caller holds the lock.
func (d *Device) initialize() error {
	info, err := d.infoLocked()
	if err != nil {
		return err
	}

	identity, err := ParseIdentity(info)
	if err != nil {
		return err
	}
	d.identity = identity

	if err := d.autoZeroResetLocked(); err != nil {
		return err
	}

	if err := d.setWavelengthLocked(DefaultWavelengthNM); err != nil {
		return err
	}

	if err := d.setGainLocked(GainX1); err != nil {
		return err
	}

	return nil
}

// Disconnect closes the transport handle and restores the configuration
// defaults. Disconnecting an already-disconnected session is a no-op.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.teardown()
}

// teardown closes the handle (if any) and resets state. Caller holds
// the lock.
func (d *Device) teardown() error {
	var closeErr error
	if d.ch != nil && d.ch.tr != nil {
		closeErr = d.ch.tr.Close()
	}
	d.ch = nil
	d.state = Disconnected
	d.descriptor = ""
	d.restoreDefaults()

	if closeErr != nil {
		return NewConnectionError("failed to close port", closeErr)
	}
	return nil
}

// requireConnected fails with a connection error unless the session is
// live. Caller holds the lock.
func (d *Device) requireConnected() error {
	if d.state != Connected || d.ch == nil {
		return NewConnectionError("not connected", nil)
	}
	return nil
}

// State returns the current connection state
func (d *Device) State() ConnectionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Identity returns the identity read during initialization. Zero-valued
// (with -1 wavelength sentinels) while disconnected.
func (d *Device) Identity() Identity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.identity
}

// Configuration returns a snapshot of the in-memory configuration
func (d *Device) Configuration() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Config{
		Unit:             d.unit,
		FilterFactor:     d.filterFactor,
		ApertureMM:       d.apertureMM,
		Bandwidth:        d.bandwidth,
		Gain:             d.gain,
		CorrectionFactor: d.correctionFactor,
		WavelengthNM:     d.wavelengthNM,
		PolarityInverted: d.polarityInverted,
		AutoZero:         d.autoZero,
		MaxGainLevel:     d.maxGainLevel,
	}
}
