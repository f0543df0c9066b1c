package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
)

// Headset destination bytes: the first byte of every headset report,
// selecting whether the addressed memory is transient RAM or persisted
// EEPROM, and which direction the transfer runs.
const (
	HeadsetReadRAM    byte = 0x00
	HeadsetReadEEPROM byte = 0x20
	HeadsetWriteRAM   byte = 0x40
)

const (
	// HeadsetReportOut is the size of a headset request report (output
	// report 4): destination + length + 2-byte big-endian address + up
	// to 33 bytes of payload.
	HeadsetReportOut = 37
	// HeadsetReportIn is the size of a headset response report (input
	// report 5).
	HeadsetReportIn = 33

	headsetReportIDOut = 4
	headsetReportIDIn  = 5
)

// HeadsetDelay is the fixed inter-command pacing delay for the headset
// transport, longer than the standard transport's 7ms default.
const HeadsetDelay = 25 * time.Millisecond

// HeadsetReadTimeout bounds the blocking read for a headset response.
const HeadsetReadTimeout = 500 * time.Millisecond

// HeadsetCommand names one (destination, length, address) triple, the
// headset protocol's command unit in place of the standard (class, id)
// pair.
type HeadsetCommand struct {
	Destination byte
	Length      byte
	Address     uint16
}

// BuildHeadsetRequest lays out a headset request report: destination,
// length, big-endian address, then the variable-length argument tail.
// The returned slice is always HeadsetReportOut bytes, zero-padded.
func BuildHeadsetRequest(cmd HeadsetCommand, args []byte) []byte {
	buf := make([]byte, HeadsetReportOut)
	buf[0] = cmd.Destination
	buf[1] = cmd.Length
	buf[2] = byte(cmd.Address >> 8)
	buf[3] = byte(cmd.Address)
	copy(buf[4:], args)
	return buf
}

// HeadsetTransport drives one request (and, for reads, one response)
// exchange over a hid.Adapter using the 33/37-byte headset framing
// instead of the standard 90-byte report. It shares the same
// open/pace/retry vocabulary as Transport so device code built on top
// doesn't need to know the framing differs.
type HeadsetTransport struct {
	Adapter   hid.Adapter
	Tracer    log.ProtocolTracer
	DeviceKey string

	Open func() error

	lastCmd time.Time
}

// Write issues a headset command with no response read, used for
// WRITE_RAM commands.
func (t *HeadsetTransport) Write(ctx context.Context, cmd HeadsetCommand, args []byte) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}
	if err := t.pace(ctx); err != nil {
		return err
	}

	req := BuildHeadsetRequest(cmd, args)
	if t.Tracer != nil && t.Tracer.Enabled() {
		t.Tracer.Trace(true, t.DeviceKey, req)
	}
	_, err := t.Adapter.SendFeatureReport(req, headsetReportIDOut)
	if err != nil {
		return fmt.Errorf("protocol: headset write: %w", err)
	}
	return nil
}

// Read issues a headset command and reads back cmd.Length bytes of
// response payload, used for READ_RAM/READ_EEPROM commands.
func (t *HeadsetTransport) Read(ctx context.Context, cmd HeadsetCommand, args []byte) ([]byte, error) {
	if err := t.Write(ctx, cmd, args); err != nil {
		return nil, err
	}
	if err := t.pace(ctx); err != nil {
		return nil, err
	}

	reply, err := t.getFeatureReportWithTimeout()
	if err != nil {
		return nil, fmt.Errorf("protocol: headset read: %w", err)
	}
	if t.Tracer != nil && t.Tracer.Enabled() {
		t.Tracer.Trace(false, t.DeviceKey, reply)
	}
	if len(reply) == 0 {
		return nil, fmt.Errorf("protocol: headset read: empty reply")
	}
	if reply[0] != headsetReportIDIn {
		return nil, fmt.Errorf("protocol: headset read: unexpected report id %#x", reply[0])
	}

	n := int(cmd.Length)
	if 1+n > len(reply) {
		n = len(reply) - 1
	}
	return reply[1 : 1+n], nil
}

// getFeatureReportWithTimeout bounds the blocking feature-report read by
// HeadsetReadTimeout, since hidapi's synchronous call has no native
// deadline of its own.
func (t *HeadsetTransport) getFeatureReportWithTimeout() ([]byte, error) {
	type result struct {
		reply []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := t.Adapter.GetFeatureReport(headsetReportIDIn, HeadsetReportIn)
		done <- result{reply, err}
	}()

	select {
	case r := <-done:
		return r.reply, r.err
	case <-time.After(HeadsetReadTimeout):
		return nil, fmt.Errorf("timed out waiting for headset response")
	}
}

func (t *HeadsetTransport) ensureOpen() error {
	if t.Adapter.IsOpen() {
		return nil
	}
	if t.Open == nil {
		return fmt.Errorf("protocol: headset adapter closed and no Open hook set")
	}
	return t.Open()
}

func (t *HeadsetTransport) pace(ctx context.Context) error {
	if !t.lastCmd.IsZero() {
		wait := t.lastCmd.Add(HeadsetDelay).Sub(time.Now())
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	t.lastCmd = time.Now()
	return nil
}
