// Package opm drives Artifex OPM500 optical power meters over a serial link.
//
// This package implements the instrument's ASCII command dialect: session
// handshake and identity read-out, the stateful configuration exchanges
// (wavelength, gain, bandwidth, polarity, auto-zero), the host-side
// automatic gain search, and the pipeline that converts raw current
// readings into calibrated values in a user-selected unit.
//
// # Sessions
//
// A Device is a session with one physical instrument. It owns the serial
// handle exclusively while connected:
//
//	descriptors, err := opm.ListDescriptors()
//	if err != nil || len(descriptors) == 0 {
//	    log.Fatal("no instrument found")
//	}
//
//	dev := opm.NewDevice()
//	if err := dev.Connect(descriptors[0]); err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Disconnect()
//
// Connect performs the handshake, parses the identity block, runs an
// auto-zero-reset, and applies the default wavelength and gain. Any
// failure tears the session down again. Disconnect restores the
// documented configuration defaults wholesale.
//
// # Configuration
//
// Every setter is one command/acknowledge exchange. State is committed
// only when the instrument answers with the exact expected
// acknowledgment; a mismatch reports a protocol error and leaves the
// configuration untouched, so callers may simply retry:
//
//	if err := dev.SetWavelength(780); err != nil {
//	    log.Fatal(err)
//	}
//	if err := dev.SetGain(opm.GainAuto); err != nil {
//	    log.Fatal(err)
//	}
//
// Setting the wavelength also records the wavelength-dependent
// correction factor the instrument returns; both commit atomically.
//
// # Measurements
//
//	if err := dev.SetUnit(opm.Microwatt); err != nil {
//	    log.Fatal(err)
//	}
//	m, err := dev.Measure()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(m) // e.g. "1.5 µW"
//
// With the automatic gain mode selected, Measure first runs a bounded
// search that steps the gain level until the reading sits inside the
// usable band of its range.
//
// # Concurrency
//
// The protocol permits exactly one outstanding request per session; all
// Device operations serialize on an internal lock and block until their
// response arrives or the roughly eight second receive budget runs out.
// There is no cancellation. Independent Device values, one per physical
// instrument, share no state and may be used concurrently.
//
// # Errors
//
// All failures are *DeviceError values categorized as connection,
// timeout, protocol, validation, or domain errors; use the IsXxx
// predicates or errors.As to discriminate. Protocol and timeout errors
// are retryable: they never corrupt configuration state.
package opm
