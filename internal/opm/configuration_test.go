package opm

import (
	"strings"
	"testing"
)

// TestConnectInitializes tests the handshake + identity + defaults flow
func TestConnectInitializes(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	if d.State() != Connected {
		t.Fatalf("State() = %v, want %v", d.State(), Connected)
	}

	id := d.Identity()
	if id.SerialNumber != "12345" || id.FirmwareVersion != "1.2" {
		t.Errorf("Identity() = %+v", id)
	}
	if id.MinWavelengthNM != 200 || id.MaxWavelengthNM != 1100 {
		t.Errorf("detector range = [%d, %d], want [200, 1100]", id.MinWavelengthNM, id.MaxWavelengthNM)
	}

	cfg := d.Configuration()
	if cfg.Unit != Microampere {
		t.Errorf("default unit = %v, want %v", cfg.Unit, Microampere)
	}
	if cfg.Bandwidth != Bandwidth10kHz {
		t.Errorf("default bandwidth = %v, want %v", cfg.Bandwidth, Bandwidth10kHz)
	}
	if cfg.Gain != GainX1 {
		t.Errorf("default gain = %v, want %v", cfg.Gain, GainX1)
	}
	if cfg.FilterFactor != 1.0 || cfg.ApertureMM != 7.0 {
		t.Errorf("filter/aperture = %g/%g, want 1.0/7.0", cfg.FilterFactor, cfg.ApertureMM)
	}
	if cfg.WavelengthNM != 660 {
		t.Errorf("default wavelength = %d, want 660", cfg.WavelengthNM)
	}
	if cfg.AutoZero != AutoZeroDone {
		t.Errorf("auto-zero state = %v, want %v", cfg.AutoZero, AutoZeroDone)
	}
	if cfg.MaxGainLevel != 6 {
		t.Errorf("max gain level = %d, want 6", cfg.MaxGainLevel)
	}

	// Connect wire traffic: $U, $I, $R, L+4 digits, V1
	want := []string{"$U", "$I", "$R", "L", "0", "6", "6", "0", "V1"}
	if strings.Join(f.writes, " ") != strings.Join(want, " ") {
		t.Errorf("connect wrote %v, want %v", f.writes, want)
	}
}

// TestConnectHandshakeRejected tests teardown on a refused handshake
func TestConnectHandshakeRejected(t *testing.T) {
	f := &fakeTransport{}
	f.reply("U?")

	d := NewDevice()
	err := d.ConnectTransport(f, "fake")
	if !IsConnectionError(err) {
		t.Fatalf("ConnectTransport() error = %v, want connection error", err)
	}
	if d.State() != Disconnected {
		t.Errorf("State() = %v after failed handshake, want %v", d.State(), Disconnected)
	}
	if !f.closed {
		t.Error("transport should be closed after a failed handshake")
	}
}

// TestConnectBadIdentity tests teardown when the info block has no
// model marker
func TestConnectBadIdentity(t *testing.T) {
	f := &fakeTransport{}
	f.reply("U OK")
	f.reply("PM400 FW9.9")

	d := NewDevice()
	err := d.ConnectTransport(f, "fake")
	if !IsProtocolError(err) {
		t.Fatalf("ConnectTransport() error = %v, want protocol error", err)
	}
	if d.State() != Disconnected || !f.closed {
		t.Error("session should be torn down after a bad identity block")
	}
}

// TestConnectTwice tests that a second connect on a live session is
// rejected
func TestConnectTwice(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	err := d.ConnectTransport(&fakeTransport{}, "other")
	if !IsConnectionError(err) {
		t.Errorf("second connect error = %v, want connection error", err)
	}
	if d.State() != Connected {
		t.Error("original session should survive a rejected second connect")
	}
}

// TestDisconnectRestoresDefaults tests that disconnect closes the port
// and resets the configuration wholesale
func TestDisconnectRestoresDefaults(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	// Drift the configuration away from the defaults
	f.reply("B3 OK")
	if err := d.SetBandwidth(Bandwidth100Hz); err != nil {
		t.Fatalf("SetBandwidth() error = %v", err)
	}
	if err := d.SetUnit(Milliwatt); err != nil {
		t.Fatalf("SetUnit() error = %v", err)
	}
	if err := d.SetFilterFactor(2.5); err != nil {
		t.Fatalf("SetFilterFactor() error = %v", err)
	}

	if err := d.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if !f.closed {
		t.Error("transport should be closed on disconnect")
	}

	cfg := d.Configuration()
	if cfg.Unit != Microampere || cfg.Bandwidth != Bandwidth10kHz || cfg.Gain != GainX1 {
		t.Errorf("configuration after disconnect = %+v, want defaults", cfg)
	}
	if cfg.FilterFactor != 1.0 || cfg.ApertureMM != 7.0 {
		t.Errorf("filter/aperture after disconnect = %g/%g, want 1.0/7.0", cfg.FilterFactor, cfg.ApertureMM)
	}
	if cfg.CorrectionFactor != 1.0 || cfg.WavelengthNM != 660 {
		t.Errorf("correction/wavelength after disconnect = %g/%d, want 1.0/660", cfg.CorrectionFactor, cfg.WavelengthNM)
	}

	// Operations on the dead session are connection errors
	if _, err := d.RawMeasurement(); !IsConnectionError(err) {
		t.Errorf("RawMeasurement() after disconnect error = %v, want connection error", err)
	}
}

// TestSetWavelength tests the digit-by-digit transmission and the
// atomic wavelength/correction-factor commit
func TestSetWavelength(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)
	mark := len(f.writes)

	f.reply("KF:1,023")
	if err := d.SetWavelength(660); err != nil {
		t.Fatalf("SetWavelength() error = %v", err)
	}

	got := f.writes[mark:]
	want := []string{"L", "0", "6", "6", "0"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("SetWavelength(660) wrote %v, want %v", got, want)
	}

	cfg := d.Configuration()
	if cfg.WavelengthNM != 660 {
		t.Errorf("wavelength = %d, want 660", cfg.WavelengthNM)
	}
	if cfg.CorrectionFactor != 1.023 {
		t.Errorf("correction factor = %g, want 1.023", cfg.CorrectionFactor)
	}
}

// TestSetWavelengthOutOfRange tests that out-of-range values are
// rejected before any command is transmitted
func TestSetWavelengthOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		nm   int
	}{
		{"Below detector range", 150},
		{"Above detector range", 1200},
		{"Negative", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeTransport{}
			d := connectedDevice(t, f)
			mark := len(f.writes)

			err := d.SetWavelength(tt.nm)
			if !IsValidationError(err) {
				t.Fatalf("SetWavelength(%d) error = %v, want validation error", tt.nm, err)
			}
			if len(f.writes) != mark {
				t.Errorf("SetWavelength(%d) transmitted %v, want nothing", tt.nm, f.writes[mark:])
			}
			if cfg := d.Configuration(); cfg.WavelengthNM != 660 {
				t.Errorf("wavelength changed to %d on a rejected set", cfg.WavelengthNM)
			}
		})
	}
}

// TestSetWavelengthRoundTrip tests set-then-read-back across the
// detector range
func TestSetWavelengthRoundTrip(t *testing.T) {
	for _, nm := range []int{200, 405, 660, 1064, 1100} {
		f := &fakeTransport{}
		d := connectedDevice(t, f)

		f.reply("KF:0,987")
		if err := d.SetWavelength(nm); err != nil {
			t.Fatalf("SetWavelength(%d) error = %v", nm, err)
		}
		cfg := d.Configuration()
		if cfg.WavelengthNM != nm {
			t.Errorf("wavelength = %d, want %d", cfg.WavelengthNM, nm)
		}
		if cfg.CorrectionFactor != 0.987 {
			t.Errorf("correction factor = %g, want 0.987", cfg.CorrectionFactor)
		}
	}
}

// TestSetWavelengthRejectedAck tests that a reply without the
// correction factor leaves both fields untouched
func TestSetWavelengthRejectedAck(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	f.reply("KF:1,023")
	if err := d.SetWavelength(780); err != nil {
		t.Fatalf("SetWavelength(780) error = %v", err)
	}

	f.reply("L ??")
	err := d.SetWavelength(532)
	if !IsProtocolError(err) {
		t.Fatalf("SetWavelength(532) error = %v, want protocol error", err)
	}

	cfg := d.Configuration()
	if cfg.WavelengthNM != 780 || cfg.CorrectionFactor != 1.023 {
		t.Errorf("rejected set mutated state: wavelength=%d factor=%g", cfg.WavelengthNM, cfg.CorrectionFactor)
	}
}

// TestPolarity tests the polarity query and setter
func TestPolarity(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	f.reply("F0")
	inverted, err := d.PolarityInverted()
	if err != nil || inverted {
		t.Errorf("PolarityInverted() = %v, %v, want false, nil", inverted, err)
	}

	f.reply("C OK")
	if err := d.SetPolarity(true); err != nil {
		t.Fatalf("SetPolarity(true) error = %v", err)
	}
	if w := f.writes[len(f.writes)-1]; w != "$C" {
		t.Errorf("SetPolarity(true) wrote %q, want $C", w)
	}
	if !d.Configuration().PolarityInverted {
		t.Error("polarity not recorded as inverted")
	}

	f.reply("F1")
	inverted, err = d.PolarityInverted()
	if err != nil || !inverted {
		t.Errorf("PolarityInverted() = %v, %v, want true, nil", inverted, err)
	}

	f.reply("N NO")
	if err := d.SetPolarity(false); !IsProtocolError(err) {
		t.Errorf("SetPolarity(false) error = %v, want protocol error", err)
	}
	if !d.Configuration().PolarityInverted {
		t.Error("rejected polarity set mutated state")
	}
}

// TestBandwidth tests the bandwidth setter and query
func TestBandwidth(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	f.reply("B4 OK")
	if err := d.SetBandwidth(Bandwidth10Hz); err != nil {
		t.Fatalf("SetBandwidth() error = %v", err)
	}
	if got := d.Configuration().Bandwidth; got != Bandwidth10Hz {
		t.Errorf("bandwidth = %v, want %v", got, Bandwidth10Hz)
	}

	f.reply("B2 NO")
	if err := d.SetBandwidth(Bandwidth1kHz); !IsProtocolError(err) {
		t.Errorf("SetBandwidth() error = %v, want protocol error", err)
	}
	if got := d.Configuration().Bandwidth; got != Bandwidth10Hz {
		t.Errorf("rejected set mutated bandwidth to %v", got)
	}

	f.reply("B3")
	got, err := d.ReadBandwidth()
	if err != nil {
		t.Fatalf("ReadBandwidth() error = %v", err)
	}
	if got != Bandwidth100Hz || d.Configuration().Bandwidth != Bandwidth100Hz {
		t.Errorf("ReadBandwidth() = %v, want %v", got, Bandwidth100Hz)
	}
}

// TestSetGain tests fixed levels, the mode-preserving commit rule, and
// the wire-free auto mode
func TestSetGain(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	f.reply("V4 OK")
	if err := d.SetGain(GainX1000); err != nil {
		t.Fatalf("SetGain() error = %v", err)
	}
	if got := d.Configuration().Gain; got != GainX1000 {
		t.Errorf("gain = %v, want %v", got, GainX1000)
	}

	// Auto mode transmits nothing
	mark := len(f.writes)
	if err := d.SetGain(GainAuto); err != nil {
		t.Fatalf("SetGain(GainAuto) error = %v", err)
	}
	if len(f.writes) != mark {
		t.Errorf("SetGain(GainAuto) transmitted %v, want nothing", f.writes[mark:])
	}
	if got := d.Configuration().Gain; got != GainAuto {
		t.Errorf("gain = %v, want %v", got, GainAuto)
	}

	// Applying a fixed level while in auto mode keeps the mode
	f.reply("V2 OK")
	if err := d.SetGain(GainX10); err != nil {
		t.Fatalf("SetGain() error = %v", err)
	}
	if got := d.Configuration().Gain; got != GainAuto {
		t.Errorf("gain mode = %v after level apply in auto mode, want %v", got, GainAuto)
	}
}

// TestReadGain tests the two-line gain query reply
func TestReadGain(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	f.push("V? OK\nV3\r")
	got, err := d.ReadGain()
	if err != nil {
		t.Fatalf("ReadGain() error = %v", err)
	}
	if got != GainX100 {
		t.Errorf("ReadGain() = %v, want %v", got, GainX100)
	}
	if d.Configuration().Gain != GainX100 {
		t.Errorf("gain mode not refreshed by query")
	}

	// In auto mode the query refreshes only the tracked level
	if err := d.SetGain(GainAuto); err != nil {
		t.Fatalf("SetGain(GainAuto) error = %v", err)
	}
	f.push("V? OK\nV5\r")
	if _, err := d.ReadGain(); err != nil {
		t.Fatalf("ReadGain() error = %v", err)
	}
	if got := d.Configuration().Gain; got != GainAuto {
		t.Errorf("gain mode = %v after query in auto mode, want %v", got, GainAuto)
	}
	if d.gainLevel != 5 {
		t.Errorf("tracked level = %d, want 5", d.gainLevel)
	}

	// Malformed replies are protocol errors
	f.reply("V3")
	if _, err := d.ReadGain(); !IsProtocolError(err) {
		t.Errorf("ReadGain() error = %v, want protocol error", err)
	}
}

// TestAutoZero tests both acknowledgment shapes of the immediate
// auto-zero
func TestAutoZero(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	// Reduced usable gain range
	f.reply("Gain: 4")
	if err := d.AutoZero(); err != nil {
		t.Fatalf("AutoZero() error = %v", err)
	}
	cfg := d.Configuration()
	if cfg.AutoZero != AutoZeroDone {
		t.Errorf("auto-zero state = %v, want %v", cfg.AutoZero, AutoZeroDone)
	}
	if cfg.MaxGainLevel != 4 {
		t.Errorf("max gain level = %d, want 4", cfg.MaxGainLevel)
	}

	// Plain acknowledgment restores the full range
	f.reply("A OK")
	if err := d.AutoZero(); err != nil {
		t.Fatalf("AutoZero() error = %v", err)
	}
	if got := d.Configuration().MaxGainLevel; got != 6 {
		t.Errorf("max gain level = %d, want 6", got)
	}

	// Anything else is a protocol error and leaves the range alone
	f.reply("Gain: 4")
	if err := d.AutoZero(); err != nil {
		t.Fatalf("AutoZero() error = %v", err)
	}
	f.reply("A NO")
	if err := d.AutoZero(); !IsProtocolError(err) {
		t.Errorf("AutoZero() error = %v, want protocol error", err)
	}
	if got := d.Configuration().MaxGainLevel; got != 4 {
		t.Errorf("rejected auto-zero mutated max gain level to %d", got)
	}
}

// TestAutoZeroReset tests the full-range offset calibration
func TestAutoZeroReset(t *testing.T) {
	f := &fakeTransport{}
	d := connectedDevice(t, f)

	f.reply("Gain: 3")
	if err := d.AutoZero(); err != nil {
		t.Fatalf("AutoZero() error = %v", err)
	}

	f.reply("R OK")
	if err := d.AutoZeroReset(); err != nil {
		t.Fatalf("AutoZeroReset() error = %v", err)
	}
	cfg := d.Configuration()
	if cfg.MaxGainLevel != 6 {
		t.Errorf("max gain level = %d, want 6", cfg.MaxGainLevel)
	}
	if cfg.AutoZero != AutoZeroDone {
		t.Errorf("auto-zero state = %v, want %v", cfg.AutoZero, AutoZeroDone)
	}
}

// TestRawMeasurement tests the token strip of the measurement query
func TestRawMeasurement(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"Nanoampere token", "I1,0nA", "1,0nA"},
		{"Microampere token", "I1,0uA", "1,0uA"},
		{"Negative token", "I-2,5nA", "-2,5nA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeTransport{}
			d := connectedDevice(t, f)

			f.reply(tt.reply)
			got, err := d.RawMeasurement()
			if err != nil {
				t.Fatalf("RawMeasurement() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RawMeasurement() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestHostSideSetters tests the validation-on-write host-side setters
func TestHostSideSetters(t *testing.T) {
	d := NewDevice()

	if err := d.SetUnit(DecibelMilliwatt); err != nil {
		t.Errorf("SetUnit() error = %v", err)
	}
	if err := d.SetUnit(Unit(99)); !IsValidationError(err) {
		t.Errorf("SetUnit(99) error = %v, want validation error", err)
	}

	if err := d.SetFilterFactor(0.5); err != nil {
		t.Errorf("SetFilterFactor() error = %v", err)
	}
	if err := d.SetFilterFactor(0); !IsValidationError(err) {
		t.Errorf("SetFilterFactor(0) error = %v, want validation error", err)
	}

	if err := d.SetApertureMM(9.5); err != nil {
		t.Errorf("SetApertureMM() error = %v", err)
	}
	if err := d.SetApertureMM(-1); !IsValidationError(err) {
		t.Errorf("SetApertureMM(-1) error = %v, want validation error", err)
	}
}
