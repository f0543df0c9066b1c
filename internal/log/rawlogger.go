// Package log provides the daemon's structured logger setup plus a raw
// HID-transaction trace hook used when protocol-level debugging is
// enabled.
package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// ProtocolTracer handles the optional hex trace of every HID request and
// response. It is gated by the enabled flag given to NewProtocolTracer so
// it can be left compiled in without costing anything when disabled.
type ProtocolTracer interface {
	Trace(send bool, deviceKey string, data []byte)
	Enabled() bool
}

type protocolTracer struct {
	w       io.Writer
	enabled bool
	mu      sync.Mutex
}

// NewProtocolTracer builds a ProtocolTracer that writes hex dumps to w.
// If w is nil or enabled is false, Trace is a no-op.
func NewProtocolTracer(w io.Writer, enabled bool) ProtocolTracer {
	return &protocolTracer{w: w, enabled: enabled && w != nil}
}

func (t *protocolTracer) Enabled() bool { return t.enabled }

// Trace emits a single-line hex dump of one HID report. send=true means
// host->device, send=false means device->host.
func (t *protocolTracer) Trace(send bool, deviceKey string, data []byte) {
	if !t.enabled || len(data) == 0 {
		return
	}

	dir := "dev<-host"
	if !send {
		dir = "dev->host"
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %s: %d bytes, hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		deviceKey,
		dir,
		len(data),
		hexbuf.String())

	t.mu.Lock()
	_, _ = t.w.Write([]byte(line))
	t.mu.Unlock()
}
