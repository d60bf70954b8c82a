package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for instruments and measurement preferences.
type Registry struct {
	Version     int                    `yaml:"version"`
	Instruments map[string]*Instrument `yaml:"instruments,omitempty"` // Keyed by instrument serial number
	Preferences *Preferences           `yaml:"preferences,omitempty"`
}

// Instrument represents user-defined metadata for a single power meter.
// This is keyed by the instrument's serial number in the Registry.
type Instrument struct {
	Nickname string           `yaml:"nickname,omitempty"`  // User-friendly name
	LastPort string           `yaml:"last_port,omitempty"` // Last known serial port
	LastSeen time.Time        `yaml:"last_seen,omitempty"` // Last scan/connection time
	Setup    *MeasurementMeta `yaml:"setup,omitempty"`     // Last used measurement setup
}

// MeasurementMeta represents the last used measurement setup for an
// instrument. This is purely client-side information; the instrument
// loses its configuration on power-down.
type MeasurementMeta struct {
	Unit         string  `yaml:"unit,omitempty"`          // Display unit symbol (e.g. "µW")
	WavelengthNM int     `yaml:"wavelength_nm,omitempty"` // Measurement wavelength
	FilterFactor float64 `yaml:"filter_factor,omitempty"` // External filter attenuation
	ApertureMM   float64 `yaml:"aperture_mm,omitempty"`   // Measurement head aperture diameter
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultUnit         string `yaml:"default_unit"`          // Unit applied when an instrument has no stored setup
	DefaultWavelengthNM int    `yaml:"default_wavelength_nm"` // Wavelength applied when an instrument has no stored setup
	RememberSetup       bool   `yaml:"remember_setup"`        // Store the measurement setup per instrument on disconnect
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Instruments: make(map[string]*Instrument),
		Preferences: &Preferences{
			DefaultUnit:         "µA",
			DefaultWavelengthNM: 660,
			RememberSetup:       true,
		},
	}
}

// GetInstrument retrieves instrument metadata by serial number.
// Returns nil if the instrument doesn't exist in the registry.
func (r *Registry) GetInstrument(serial string) *Instrument {
	return r.Instruments[serial]
}

// EnsureInstrument ensures an instrument entry exists in the registry.
// If the instrument doesn't exist, creates a new entry with default values.
// Returns the entry (existing or newly created).
func (r *Registry) EnsureInstrument(serial string) *Instrument {
	if r.Instruments == nil {
		r.Instruments = make(map[string]*Instrument)
	}

	if instrument, exists := r.Instruments[serial]; exists {
		return instrument
	}

	instrument := &Instrument{}
	r.Instruments[serial] = instrument
	return instrument
}

// UpdateInstrumentLastSeen updates the last seen timestamp and port for
// an instrument.
func (r *Registry) UpdateInstrumentLastSeen(serial, port string) {
	instrument := r.EnsureInstrument(serial)
	instrument.LastSeen = time.Now()
	instrument.LastPort = port
}

// SetInstrumentNickname sets a user-friendly nickname for an instrument.
func (r *Registry) SetInstrumentNickname(serial, nickname string) {
	instrument := r.EnsureInstrument(serial)
	instrument.Nickname = nickname
}

// UpdateMeasurementSetup stores the last used measurement setup for an
// instrument.
func (r *Registry) UpdateMeasurementSetup(serial, unit string, wavelengthNM int, filterFactor, apertureMM float64) {
	instrument := r.EnsureInstrument(serial)
	instrument.Setup = &MeasurementMeta{
		Unit:         unit,
		WavelengthNM: wavelengthNM,
		FilterFactor: filterFactor,
		ApertureMM:   apertureMM,
	}
}
