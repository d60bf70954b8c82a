package opm

import (
	"testing"
)

// TestParseIdentityFullBlock tests the complete single-line identity
// block the instrument prints
func TestParseIdentityFullBlock(t *testing.T) {
	id, err := ParseIdentity("OPM500 FW1.2 Serial: 12345 Date of manufacturing: 03/2024 Detector: 200nm-1100nm")
	if err != nil {
		t.Fatalf("ParseIdentity() error = %v", err)
	}

	want := Identity{
		FirmwareVersion: "1.2",
		SerialNumber:    "12345",
		ManufactureDate: "03/2024",
		MinWavelengthNM: 200,
		MaxWavelengthNM: 1100,
	}
	if id != want {
		t.Errorf("ParseIdentity() = %+v, want %+v", id, want)
	}
}

// TestParseIdentityMultiLine tests a block with the fields spread over
// several lines
func TestParseIdentityMultiLine(t *testing.T) {
	block := "OPM500 optical power meter\n" +
		"FW 2.10\n" +
		"Serial: 987654\n" +
		"Date of manufacturing: 12/24\n" +
		"Detector: Si 320nm - 1060nm\n"

	id, err := ParseIdentity(block)
	if err != nil {
		t.Fatalf("ParseIdentity() error = %v", err)
	}

	want := Identity{
		FirmwareVersion: "2.10",
		SerialNumber:    "987654",
		ManufactureDate: "12/24",
		MinWavelengthNM: 320,
		MaxWavelengthNM: 1060,
	}
	if id != want {
		t.Errorf("ParseIdentity() = %+v, want %+v", id, want)
	}
}

// TestParseIdentityMissingFields tests that each absent field takes its
// sentinel without perturbing the others
func TestParseIdentityMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  Identity
	}{
		{
			name:  "No detector section",
			block: "OPM500 FW1.2 Serial: 12345",
			want: Identity{
				FirmwareVersion: "1.2",
				SerialNumber:    "12345",
				MinWavelengthNM: -1,
				MaxWavelengthNM: -1,
			},
		},
		{
			name:  "Marker only",
			block: "OPM500",
			want: Identity{
				MinWavelengthNM: -1,
				MaxWavelengthNM: -1,
			},
		},
		{
			name:  "No serial",
			block: "OPM500 FW3.0\nDetector: 400nm-700nm",
			want: Identity{
				FirmwareVersion: "3.0",
				MinWavelengthNM: 400,
				MaxWavelengthNM: 700,
			},
		},
		{
			name:  "Detector with single bound is incomplete",
			block: "OPM500 Detector: 200nm",
			want: Identity{
				MinWavelengthNM: -1,
				MaxWavelengthNM: -1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseIdentity(tt.block)
			if err != nil {
				t.Fatalf("ParseIdentity() error = %v", err)
			}
			if id != tt.want {
				t.Errorf("ParseIdentity() = %+v, want %+v", id, tt.want)
			}
		})
	}
}

// TestParseIdentityMarker tests the mandatory model marker
func TestParseIdentityMarker(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		wantErr bool
	}{
		{"Uppercase marker", "OPM500 FW1.0", false},
		{"Lowercase marker", "opm500 fw1.0", false},
		{"Marker on a later line", "Artifex Engineering\nOPM500 FW1.0", false},
		{"Marker not at line start", "The OPM500 is ready", true},
		{"Missing marker", "PM400 FW1.0 Serial: 1", true},
		{"Empty block", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIdentity(tt.block)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIdentity(%q) error = %v, wantErr %v", tt.block, err, tt.wantErr)
			}
			if err != nil && !IsProtocolError(err) {
				t.Errorf("expected protocol error, got %v", err)
			}
		})
	}
}

// TestDetectorRangeKnown tests the identity range predicate
func TestDetectorRangeKnown(t *testing.T) {
	known := Identity{MinWavelengthNM: 200, MaxWavelengthNM: 1100}
	if !known.DetectorRangeKnown() {
		t.Error("DetectorRangeKnown() = false for a known range")
	}

	unknown := Identity{MinWavelengthNM: -1, MaxWavelengthNM: -1}
	if unknown.DetectorRangeKnown() {
		t.Error("DetectorRangeKnown() = true for sentinel bounds")
	}
}
