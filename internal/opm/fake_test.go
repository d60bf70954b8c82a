package opm

import (
	"errors"
	"testing"
)

// fakeTransport is a scripted transport for driving the protocol in
// tests. Responses are queued as fragments; each BytesAvailable poll
// surfaces at most one fragment, so split responses exercise the
// accumulate-until-terminator path.
type fakeTransport struct {
	fragments [][]byte // pending response fragments, oldest first
	cur       []byte   // fragment currently visible to the reader
	writes    []string // every Write, in order
	resets    int
	closed    bool
	writeErr  error
	readErr   error
}

// push queues one response fragment
func (f *fakeTransport) push(fragment string) {
	f.fragments = append(f.fragments, []byte(fragment))
}

// reply queues one complete terminated response
func (f *fakeTransport) reply(resp string) {
	f.push(resp + "\r")
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

func (f *fakeTransport) BytesAvailable() (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.cur) == 0 && len(f.fragments) > 0 {
		f.cur = f.fragments[0]
		f.fragments = f.fragments[1:]
	}
	return len(f.cur), nil
}

func (f *fakeTransport) Read(n int) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if n > len(f.cur) {
		n = len(f.cur)
	}
	out := f.cur[:n:n]
	f.cur = f.cur[n:]
	return out, nil
}

func (f *fakeTransport) ResetInput() error {
	// A purge drops bytes already received, not responses the scripted
	// instrument has yet to send.
	f.cur = nil
	f.resets++
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

// gainWrites returns the gain set commands transmitted so far
func (f *fakeTransport) gainWrites() []string {
	var out []string
	for _, w := range f.writes {
		if len(w) == 2 && w[0] == 'V' && w[1] != '?' {
			out = append(out, w)
		}
	}
	return out
}

// infoBlock is the identity response used throughout the tests
const infoBlock = "OPM500 FW1.2 Serial: 12345 Date of manufacturing: 03/2024 Detector: 200nm-1100nm"

// scriptConnect queues the five responses Connect consumes: handshake,
// identity block, auto-zero-reset, default wavelength, default gain.
func scriptConnect(f *fakeTransport) {
	f.reply("U OK")
	f.reply(infoBlock)
	f.reply("R OK")
	f.reply("KF:1,000")
	f.reply("V1 OK")
}

// connectedDevice returns a Device attached to the fake transport with
// the connect sequence already scripted and consumed.
func connectedDevice(t *testing.T, f *fakeTransport) *Device {
	t.Helper()
	scriptConnect(f)
	d := NewDevice()
	if err := d.ConnectTransport(f, "fake"); err != nil {
		t.Fatalf("ConnectTransport() error = %v", err)
	}
	return d
}

var errFakeIO = errors.New("fake I/O failure")
