package mouse

import (
	"context"

	"github.com/lumenhub/lumend/protocol"
)

const (
	minIdleTimeout = 60
	maxIdleTimeout = 900
	minLowBattery  = 5
	maxLowBattery  = 50
)

// Wireless drives the class-0x07 power/battery commands exposed by
// WIRELESS-quirked hardware. An UNSUPPORTED reply (nil data, nil error)
// from Base.Run falls back to the documented sentinel values rather than
// surfacing an error.
type Wireless struct {
	run func(ctx context.Context, class, id byte, args []byte) ([]byte, error)
}

// NewWireless constructs a Wireless mixin bound to run.
func NewWireless(run func(ctx context.Context, class, id byte, args []byte) ([]byte, error)) *Wireless {
	return &Wireless{run: run}
}

// BatteryLevel returns the battery charge in [0,100], or -1 if the
// command is unsupported or the reply malformed.
func (w *Wireless) BatteryLevel(ctx context.Context) (int, error) {
	data, err := w.run(ctx, protocol.ClassPower, 0x80, nil)
	if err != nil {
		return -1, err
	}
	if len(data) < 2 {
		return -1, nil
	}
	return int(data[1]) * 100 / 255, nil
}

// Charging reports whether the device is currently on its charging dock.
func (w *Wireless) Charging(ctx context.Context) (bool, error) {
	data, err := w.run(ctx, protocol.ClassPower, 0x84, nil)
	if err != nil {
		return false, err
	}
	if len(data) < 2 {
		return false, nil
	}
	return data[1] == 0x01, nil
}

// SetIdleTimeout sets the wireless idle-sleep timeout in seconds,
// clamped to [60,900] per the firmware's accepted range.
func (w *Wireless) SetIdleTimeout(ctx context.Context, seconds int) error {
	seconds = clamp(seconds, minIdleTimeout, maxIdleTimeout)
	_, err := w.run(ctx, protocol.ClassPower, 0x83, []byte{byte(seconds >> 8), byte(seconds)})
	return err
}

// SetLowBatteryThreshold sets the percentage at which the device warns
// of low battery, clamped to [5,50].
func (w *Wireless) SetLowBatteryThreshold(ctx context.Context, percent int) error {
	percent = clamp(percent, minLowBattery, maxLowBattery)
	_, err := w.run(ctx, protocol.ClassPower, 0x81, []byte{byte(percent)})
	return err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
