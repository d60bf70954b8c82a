package transport

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/artifex-eng/opm500/internal/logging"

	"go.uber.org/zap"
)

// ModelName is the product string that identifies an OPM500 adapter
// among the attached USB-serial devices.
const ModelName = "OPM500"

// descriptorSep joins the adapter description and serial number in a
// device descriptor, e.g. "OPM500 - 12345".
const descriptorSep = " - "

// ListDescriptors enumerates attached USB-serial adapters and returns a
// descriptor for every OPM500 instrument found. Adapters whose product
// string does not contain the model name are skipped.
func ListDescriptors() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial adapters: %w", err)
	}

	var descriptors []string
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if !MatchesModel(port.Product) {
			continue
		}
		descriptors = append(descriptors, FormatDescriptor(port.Product, port.SerialNumber))
	}

	logging.Debug("Adapter scan complete",
		zap.Int("adapters", len(ports)),
		zap.Int("instruments", len(descriptors)),
	)

	return descriptors, nil
}

// MatchesModel reports whether an adapter description belongs to an
// OPM500 instrument.
func MatchesModel(description string) bool {
	return strings.Contains(description, ModelName)
}

// FormatDescriptor builds the canonical device descriptor string
// "<description> - <serial-number>".
func FormatDescriptor(description, serial string) string {
	return description + descriptorSep + serial
}

// IsDescriptor reports whether target looks like a device descriptor
// rather than a raw OS port name.
func IsDescriptor(target string) bool {
	return strings.Contains(target, descriptorSep) && MatchesModel(target)
}

// SerialFromDescriptor extracts the adapter serial number from a device
// descriptor. It fails on strings that do not carry the separator.
func SerialFromDescriptor(descriptor string) (string, error) {
	idx := strings.LastIndex(descriptor, descriptorSep)
	if idx < 0 {
		return "", fmt.Errorf("malformed device descriptor %q", descriptor)
	}
	serial := strings.TrimSpace(descriptor[idx+len(descriptorSep):])
	if serial == "" {
		return "", fmt.Errorf("device descriptor %q has no serial number", descriptor)
	}
	return serial, nil
}

// ResolveDescriptor maps a device descriptor to the OS port name of the
// adapter with the matching serial number.
func ResolveDescriptor(descriptor string) (string, error) {
	serial, err := SerialFromDescriptor(descriptor)
	if err != nil {
		return "", err
	}

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial adapters: %w", err)
	}

	for _, port := range ports {
		if port.IsUSB && port.SerialNumber == serial {
			return port.Name, nil
		}
	}

	return "", fmt.Errorf("no attached instrument with serial number %s", serial)
}
