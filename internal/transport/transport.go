package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/artifex-eng/opm500/internal/logging"
)

const (
	// BaudRate is the fixed line speed of the OPM500 firmware dialect
	BaudRate = 115200

	// probeTimeout is the read timeout used to emulate a queue-status poll.
	// A read returns after at most this long with whatever bytes arrived.
	probeTimeout = time.Millisecond

	// probeSize is the chunk size for draining the port into the pending buffer
	probeSize = 256
)

// Transport is the byte-stream handle consumed by the command channel.
// Implementations must be used from a single goroutine at a time; the
// protocol permits exactly one outstanding request per handle.
type Transport interface {
	// Write transmits the given bytes to the instrument
	Write(p []byte) (int, error)

	// BytesAvailable reports how many received bytes are ready to read
	BytesAvailable() (int, error)

	// Read consumes up to n buffered bytes
	Read(n int) ([]byte, error)

	// ResetInput discards any received bytes that have not been read yet
	ResetInput() error

	// Close releases the handle
	Close() error
}

// Port is a Transport backed by a physical serial port.
type Port struct {
	name    string
	port    serial.Port
	pending []byte
}

// Open opens a serial connection to an OPM500 instrument and applies the
// instrument's line parameters.
//
// target may be a descriptor returned by ListDescriptors
// (e.g. "OPM500 - 12345") or a raw port name (e.g. "/dev/ttyUSB0").
func Open(target string) (*Port, error) {
	name := target
	if IsDescriptor(target) {
		resolved, err := ResolveDescriptor(target)
		if err != nil {
			return nil, err
		}
		name = resolved
	}

	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", name, err)
	}

	// Short timeout turns Read into a poll: it returns with whatever bytes
	// arrived, possibly none. The command channel supplies the retry budget.
	if err := p.SetReadTimeout(probeTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to configure read timeout on %s: %w", name, err)
	}

	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to purge %s: %w", name, err)
	}

	logging.LogPortEvent(name, "opened")

	return &Port{name: name, port: p}, nil
}

// Name returns the OS port name (e.g. "/dev/ttyUSB0")
func (p *Port) Name() string {
	return p.name
}

// Write transmits the given bytes to the instrument
func (p *Port) Write(data []byte) (int, error) {
	n, err := p.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write on %s failed: %w", p.name, err)
	}
	return n, nil
}

// BytesAvailable reports how many received bytes are ready to read.
// It drains the port once before answering so freshly arrived bytes
// are visible to the caller's poll loop.
func (p *Port) BytesAvailable() (int, error) {
	if len(p.pending) == 0 {
		if err := p.fill(); err != nil {
			return 0, err
		}
	}
	return len(p.pending), nil
}

// Read consumes up to n buffered bytes
func (p *Port) Read(n int) ([]byte, error) {
	if len(p.pending) == 0 {
		if err := p.fill(); err != nil {
			return nil, err
		}
	}
	if n > len(p.pending) {
		n = len(p.pending)
	}
	out := p.pending[:n:n]
	p.pending = p.pending[n:]
	return out, nil
}

// ResetInput discards buffered and in-flight received bytes
func (p *Port) ResetInput() error {
	p.pending = nil
	if err := p.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("purge on %s failed: %w", p.name, err)
	}
	return nil
}

// Close releases the port
func (p *Port) Close() error {
	logging.LogPortEvent(p.name, "closed")
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("close on %s failed: %w", p.name, err)
	}
	return nil
}

// fill performs one short-timeout read and appends the result to the
// pending buffer. A zero-byte read is not an error; it means nothing
// has arrived yet.
func (p *Port) fill() error {
	buf := make([]byte, probeSize)
	n, err := p.port.Read(buf)
	if err != nil {
		return fmt.Errorf("read on %s failed: %w", p.name, err)
	}
	if n > 0 {
		logging.LogRawBytes("serial rx", buf[:n])
		p.pending = append(p.pending, buf[:n]...)
	}
	return nil
}
