// Package config provides user configuration management for the OPM500 tools.
//
// This package manages a YAML-based configuration file that stores user-defined
// metadata for OPM500 power meters, including nicknames, last known ports, the
// last used measurement setup, and application preferences. The configuration
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/opm500/config.yaml or $HOME/.config/opm500/config.yaml
//   - macOS: $HOME/.config/opm500/config.yaml
//   - Windows: %LOCALAPPDATA%\opm500\config.yaml
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Add or update instrument metadata
//	registry.SetInstrumentNickname("12345", "Bench meter")
//	registry.UpdateMeasurementSetup("12345", "µW", 780, 1.0, 7.0)
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
