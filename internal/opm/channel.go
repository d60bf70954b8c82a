package opm

import (
	"fmt"
	"strings"
	"time"

	"github.com/artifex-eng/opm500/internal/logging"
	"github.com/artifex-eng/opm500/internal/transport"
)

const (
	// DefaultPollInterval is the fixed receive poll interval
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultRecvRetries is the receive retry budget. Together with the
	// poll interval this bounds a response wait at roughly eight seconds.
	DefaultRecvRetries = 800

	// terminator frames every device response
	terminator = '\r'
)

// channel is the synchronous command/response link to the instrument.
// It owns the retry/timeout policy; exactly one request may be
// outstanding at a time, which the owning session enforces with its
// lock.
type channel struct {
	tr           transport.Transport
	port         string
	pollInterval time.Duration
	maxRetries   int
}

func newChannel(tr transport.Transport, port string) *channel {
	return &channel{
		tr:           tr,
		port:         port,
		pollInterval: DefaultPollInterval,
		maxRetries:   DefaultRecvRetries,
	}
}

// send discards any buffered input, then writes the ASCII bytes of the
// command. It fails with a connection error when no transport is open.
func (c *channel) send(command string) error {
	if c == nil || c.tr == nil {
		return NewConnectionError("send failed: port not open", nil)
	}

	if err := c.tr.ResetInput(); err != nil {
		return NewConnectionError(fmt.Sprintf("failed to purge input before %q", command), err)
	}

	logging.LogCommand(c.port, command)

	if _, err := c.tr.Write([]byte(command)); err != nil {
		return NewConnectionError(fmt.Sprintf("failed to write %q", command), err)
	}
	return nil
}

// receive polls for response bytes on the fixed interval up to the retry
// budget, accumulating until the buffer ends with the carriage-return
// terminator. The decoded text is returned with the terminator stripped
// and surrounding whitespace trimmed. Exhausting the budget without a
// terminator fails with a timeout error.
func (c *channel) receive() (string, error) {
	if c == nil || c.tr == nil {
		return "", NewConnectionError("receive failed: port not open", nil)
	}

	start := time.Now()
	var buf []byte

	for i := 0; i < c.maxRetries; i++ {
		n, err := c.tr.BytesAvailable()
		if err != nil {
			return "", NewConnectionError("failed to poll for response bytes", err)
		}

		if n > 0 {
			chunk, err := c.tr.Read(n)
			if err != nil {
				return "", NewConnectionError("failed to read response bytes", err)
			}
			buf = append(buf, chunk...)

			if len(buf) > 0 && buf[len(buf)-1] == terminator {
				// Interior carriage returns are stripped as well; multi-line
				// replies keep their newline separators.
				resp := strings.TrimSpace(strings.ReplaceAll(string(buf), "\r", ""))
				logging.LogResponse(c.port, resp, time.Since(start))
				return resp, nil
			}
			// Partial response: poll again immediately, the device is
			// mid-transmission.
			continue
		}

		time.Sleep(c.pollInterval)
	}

	return "", NewTimeoutError("no terminated response within the retry budget")
}

// exchange performs one command/response round trip
func (c *channel) exchange(command string) (string, error) {
	if err := c.send(command); err != nil {
		return "", err
	}
	return c.receive()
}
