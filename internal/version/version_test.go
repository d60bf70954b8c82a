package version

import (
	"strings"
	"testing"
)

// TestDefaultsPopulated tests that init leaves no empty identity
func TestDefaultsPopulated(t *testing.T) {
	if Version == "" {
		t.Error("Version is empty after init")
	}
	if Commit == "" {
		t.Error("Commit is empty after init")
	}
}

// TestFull tests the combined display string
func TestFull(t *testing.T) {
	full := Full()
	if !strings.Contains(full, Version) {
		t.Errorf("Full() = %q, missing version %q", full, Version)
	}
	if !strings.Contains(full, Commit) {
		t.Errorf("Full() = %q, missing commit %q", full, Commit)
	}
}
