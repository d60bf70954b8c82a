// Package transport provides the serial byte-stream link to OPM500 instruments.
//
// This package owns everything below the command protocol: enumeration of
// attached USB-serial adapters, opening a port with the instrument's line
// parameters (115200 baud, 8 data bits, no parity, 1 stop bit, no flow
// control), and the raw purge/write/poll/read/close primitives the command
// channel is built on.
//
// # Discovery
//
// Attached instruments are discovered by enumerating USB-serial adapters and
// filtering on the OPM500 product string. Each match is reported as a
// descriptor of the form "<description> - <serial-number>":
//
//	descriptors, err := transport.ListDescriptors()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range descriptors {
//	    fmt.Println(d) // e.g. "OPM500 - 12345"
//	}
//
// # Opening
//
// Open accepts either a descriptor returned by ListDescriptors or a raw
// port name such as "/dev/ttyUSB0" or "COM3":
//
//	port, err := transport.Open("OPM500 - 12345")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// # Polling Model
//
// The instrument protocol is strictly request/response with a caller-driven
// poll loop, so Port exposes BytesAvailable and a non-blocking Read rather
// than a blocking stream. The underlying serial library has no queue-status
// call; availability is emulated by draining the port with a short read
// timeout into an internal pending buffer.
package transport
