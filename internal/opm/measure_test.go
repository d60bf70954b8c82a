package opm

import (
	"math"
	"testing"
)

// pipelineDevice returns a disconnected device with the conversion
// inputs set directly. The pipeline itself never touches the wire.
func pipelineDevice(unit Unit, correction, filter, aperture float64) *Device {
	d := NewDevice()
	d.unit = unit
	d.correctionFactor = correction
	d.filterFactor = filter
	d.apertureMM = aperture
	return d
}

// TestConvertReadingUnits tests the scale and rounding of each unit
// family
func TestConvertReadingUnits(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		raw  string
		want float64
	}{
		{"Nanoampere", Nanoampere, "123,4nA", 123.4},
		{"Microampere", Microampere, "1000,0nA", 1.0},
		{"Milliampere", Milliampere, "1000,0nA", 0.001},
		{"Ampere", Ampere, "1000,0nA", 1e-6},
		{"Nanowatt", Nanowatt, "123,4nA", 123.4},
		{"Microwatt", Microwatt, "2500,0nA", 2.5},
		{"Milliwatt", Milliwatt, "2500,0nA", 0.0025},
		{"Watt", Watt, "2500,0nA", 2.5e-6},
		{"Microampere from uA token", Microampere, "1,0uA", 1.0},
		{"Nanoampere from uA token", Nanoampere, "2,5uA", 2500.0},
		{"Zero dBm at one microwatt", DecibelMilliwatt, "1000,0uA", 0.0},
		{"Ten dBm", DecibelMilliwatt, "10000,0uA", 10.0},
		{"Nanoampere rounding", Nanoampere, "1,23456nA", 1.235},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := pipelineDevice(tt.unit, 1.0, 1.0, DefaultApertureMM)
			m, err := d.convertReading(tt.raw)
			if err != nil {
				t.Fatalf("convertReading(%q) error = %v", tt.raw, err)
			}
			if m.Value != tt.want {
				t.Errorf("convertReading(%q) = %v, want %g %s", tt.raw, m, tt.want, tt.unit)
			}
			if m.Unit != tt.unit {
				t.Errorf("unit = %v, want %v", m.Unit, tt.unit)
			}
		})
	}
}

// TestConvertReadingCorrectionFactor tests that the wavelength
// correction applies to power units only
func TestConvertReadingCorrectionFactor(t *testing.T) {
	d := pipelineDevice(Nanowatt, 2.0, 1.0, DefaultApertureMM)
	m, err := d.convertReading("100,0nA")
	if err != nil {
		t.Fatalf("convertReading() error = %v", err)
	}
	if m.Value != 50.0 {
		t.Errorf("power reading = %v, want 50 nW", m)
	}

	d = pipelineDevice(Nanoampere, 2.0, 1.0, DefaultApertureMM)
	m, err = d.convertReading("100,0nA")
	if err != nil {
		t.Fatalf("convertReading() error = %v", err)
	}
	if m.Value != 100.0 {
		t.Errorf("current reading = %v, want 100 nA unscaled", m)
	}
}

// TestConvertReadingFilterFactor tests that the external filter factor
// applies to every unit family
func TestConvertReadingFilterFactor(t *testing.T) {
	for _, unit := range []Unit{Nanoampere, Nanowatt} {
		d := pipelineDevice(unit, 1.0, 2.0, DefaultApertureMM)
		m, err := d.convertReading("100,0nA")
		if err != nil {
			t.Fatalf("convertReading() error = %v", err)
		}
		if m.Value != 50.0 {
			t.Errorf("%s reading = %v, want 50", unit, m)
		}
	}
}

// TestConvertReadingIrradiance tests the aperture area division
func TestConvertReadingIrradiance(t *testing.T) {
	area := (DefaultApertureMM * DefaultApertureMM / 400) * math.Pi

	d := pipelineDevice(MicrowattPerSqCm, 1.0, 1.0, DefaultApertureMM)
	m, err := d.convertReading("1000,0nA")
	if err != nil {
		t.Fatalf("convertReading() error = %v", err)
	}
	if want := 1.0 / area; m.Value != want {
		t.Errorf("irradiance = %v, want %g", m, want)
	}

	// A wider aperture spreads the same power over more area
	d = pipelineDevice(MicrowattPerSqCm, 1.0, 1.0, 14.0)
	m, err = d.convertReading("1000,0nA")
	if err != nil {
		t.Fatalf("convertReading() error = %v", err)
	}
	if want := 1.0 / ((14.0 * 14.0 / 400) * math.Pi); m.Value != want {
		t.Errorf("irradiance = %v, want %g", m, want)
	}
}

// TestConvertReadingNonPositiveDecibel tests that non-positive power
// cannot be expressed logarithmically
func TestConvertReadingNonPositiveDecibel(t *testing.T) {
	for _, raw := range []string{"0,0nA", "-5,0nA"} {
		d := pipelineDevice(DecibelMilliwatt, 1.0, 1.0, DefaultApertureMM)
		_, err := d.convertReading(raw)
		if !IsDomainError(err) {
			t.Errorf("convertReading(%q) error = %v, want domain error", raw, err)
		}
	}
}

// TestMeasureFixedGain tests an end-to-end measurement without the
// gain search
func TestMeasureFixedGain(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)
	mark := len(f.writes)

	f.reply("I2,5uA")
	m, err := d.Measure()
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if m.Value != 2.5 || m.Unit != Microampere {
		t.Errorf("Measure() = %v, want 2.5 µA", m)
	}

	got := f.writes[mark:]
	if len(got) != 1 || got[0] != "$E" {
		t.Errorf("Measure() wrote %v, want [$E]", got)
	}
}

// TestMeasureDisconnected tests that measuring a dead session fails
// fast
func TestMeasureDisconnected(t *testing.T) {
	d := NewDevice()
	if _, err := d.Measure(); !IsConnectionError(err) {
		t.Errorf("Measure() error = %v, want connection error", err)
	}
}

// TestMeasurementString tests the display form
func TestMeasurementString(t *testing.T) {
	tests := []struct {
		m    Measurement
		want string
	}{
		{Measurement{Value: 1.5, Unit: Microwatt}, "1.5 µW"},
		{Measurement{Value: -3, Unit: DecibelMilliwatt}, "-3 dBm"},
		{Measurement{Value: 0.001, Unit: Milliampere}, "0.001 mA"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
