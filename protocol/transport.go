package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/internal/util"
)

const (
	maxRetries   = 3
	retryPause   = 100 * time.Millisecond
	featureReportID = 0
)

// TimeoutFunc is invoked when a command's final read hits StatusTimeout.
// Wireless devices use this to flip an offline flag and recycle their HID
// handle on the next call; the core transport never treats a timeout as
// fatal on its own.
type TimeoutFunc func(status Status, data []byte)

// Transport drives one request/response exchange over a hid.Adapter,
// pacing successive commands by at least the device's inter-command
// delay and retrying transient failures.
type Transport struct {
	Adapter   hid.Adapter
	Pacer     *util.Pacer
	Tracer    log.ProtocolTracer
	DeviceKey string

	// Open is called to (re)open the adapter if it is not currently
	// open. Devices supply this so the transport never has to know a
	// device's HID path directly.
	Open func() error
}

// Run drives one logical exchange: it ensures the handle is open, paces
// against the last command time, writes the request, and — unless more
// packets of the same transfer remain — waits out the delay again and
// reads back a reply. Non-OK/non-UNSUPPORTED statuses are retried up to
// maxRetries times with retryPause between attempts. UNSUPPORTED is
// accepted as a non-fatal "no result". TIMEOUT invokes timeoutCb if
// present but is not itself treated as fatal.
func (t *Transport) Run(ctx context.Context, req [ReportSize]byte, delay time.Duration, remaining uint16, expectedClass, expectedID, expectedTID byte, timeoutCb TimeoutFunc) (Status, []byte, error) {
	if !t.Adapter.IsOpen() {
		if t.Open == nil {
			return StatusOSError, nil, fmt.Errorf("protocol: adapter closed and no Open hook set")
		}
		if err := t.Open(); err != nil {
			return StatusOSError, nil, fmt.Errorf("protocol: reopen device: %w", err)
		}
	}

	if remaining == 0 {
		if err := t.Pacer.Wait(ctx, delay); err != nil {
			return StatusUnknown, nil, err
		}
	} else {
		t.Pacer.MarkNow()
	}

	if t.Tracer != nil && t.Tracer.Enabled() {
		t.Tracer.Trace(true, t.DeviceKey, req[:])
	}

	if _, err := t.Adapter.SendFeatureReport(req[:], featureReportID); err != nil {
		return StatusOSError, nil, fmt.Errorf("protocol: send feature report: %w", err)
	}

	if remaining > 0 {
		// More packets of this logical transfer follow; the caller will
		// invoke Run again for each. Only the final packet reads a reply.
		return StatusOK, nil, nil
	}

	var lastStatus Status
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(retryPause)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return lastStatus, nil, ctx.Err()
			}
			timer.Stop()
		}

		if err := t.Pacer.Wait(ctx, delay); err != nil {
			return StatusUnknown, nil, err
		}

		reply, err := t.Adapter.GetFeatureReport(featureReportID, ReportSize)
		if err != nil {
			lastErr = err
			continue
		}
		if t.Tracer != nil && t.Tracer.Enabled() {
			t.Tracer.Trace(false, t.DeviceKey, reply)
		}

		status, data, perr := ParseResponse(reply, expectedTID, expectedClass, expectedID)
		if perr != nil {
			lastErr = perr
			lastStatus = status
			continue
		}

		switch status {
		case StatusOK:
			return StatusOK, data, nil
		case StatusUnsupported:
			return StatusUnsupported, nil, nil
		case StatusTimeout:
			if timeoutCb != nil {
				timeoutCb(status, data)
			}
			return StatusTimeout, nil, nil
		case StatusBusy:
			lastStatus = status
			continue
		default:
			lastStatus = status
			continue
		}
	}

	if lastErr != nil {
		return lastStatus, nil, fmt.Errorf("protocol: exhausted retries: %w", lastErr)
	}
	return lastStatus, nil, nil
}
