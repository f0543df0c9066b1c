// Package device implements the common per-device machinery shared by
// every concrete peripheral type: opening and serializing commands over
// a HID handle, resolving protocol quirks, tracking brightness and
// suspend state, and decoding firmware/serial identity. Concrete types
// (keyboard, mouse, laptop, headset) embed Base and add their own LED,
// FX, and input managers on top of it.
package device

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lumenhub/lumend/anim"
	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/internal/util"
	"github.com/lumenhub/lumend/prefs"
	"github.com/lumenhub/lumend/protocol"
)

// PowerState is the payload of Base.PowerStateChanged: fired on every
// brightness step and on each suspend/resume transition.
type PowerState struct {
	Brightness float64
	Suspended  bool
}

// Device is the narrow surface the device manager and control API need
// from any concrete peripheral type (keyboard, mouse, laptop, headset,
// generic): identity, a place to hang protocol-trace identification, and
// an orderly close. Everything else (LEDs, FX, frame, system control) is
// reached through the concrete type behind a type switch, since the
// per-type subsystem surface is genuinely different and a single fat
// interface would just be an unchecked cast in disguise.
type Device interface {
	DeviceKey() string
	DevicePath() string
	HardwareEntry() *hardware.Entry
	Identify(ctx context.Context)
	FirmwareVersion() string
	SerialNumber() string
	Close() error
}

// DeviceKey, DevicePath and HardwareEntry satisfy Device for any type
// embedding Base.
func (b *Base) DeviceKey() string              { return b.Key }
func (b *Base) DevicePath() string             { return b.Path }
func (b *Base) HardwareEntry() *hardware.Entry { return b.Hardware }

// Resourceful is satisfied by every device type built on the common
// LED/FX/animation subsystems (every concrete type except Headset, whose
// RAM/EEPROM wire protocol has no such layering). The control API
// type-asserts a Device to this to build its per-device resource view
// without a type switch over every concrete package.
type Resourceful interface {
	FXManager() *FXManager
	LEDManager() *LEDManager
	Frame() *frame.Frame
	Loop() *anim.Loop
}

// BrightnessSetter routes an animated brightness step to the concrete
// quirk-appropriate LED (backlight, scroll wheel, or logo). Device types
// wire this to their LED manager after constructing Base.
type BrightnessSetter func(ctx context.Context, value float64) error

var nonWord = regexp.MustCompile(`[^\w]`)

const brightnessRampStep = 0.08

// Base owns one HID handle: command serialization, protocol config
// resolution, brightness animation, offline/suspend tracking, and
// firmware/serial identity. It implements frame.CommandRunner so a
// Frame can be built directly on top of it.
type Base struct {
	Key      string
	Path     string
	Hardware *hardware.Entry

	adapter   hid.Adapter
	cfg       protocol.Config
	transport *protocol.Transport

	cmdMu sync.Mutex

	offlineMu sync.Mutex
	offline   bool

	brightMu        sync.Mutex
	brightness      float64
	savedBrightness float64
	suspended       bool
	brightCancel    context.CancelFunc
	setBrightness   BrightnessSetter

	identOnce sync.Once
	firmware  string
	serial    string

	PowerStateChanged util.Signal[PowerState]

	// RestorePrefs is fired once, after construction, with the loaded
	// preferences record for this device's serial. Subsystems (LEDs, FX,
	// animation layers) connect to it to re-apply persisted state rather
	// than each device type owning its own restore sequencing.
	RestorePrefs util.Signal[prefs.Record]
}

// FireRestorePrefs fires RestorePrefs with rec. Concrete device types call
// this once at the end of their constructor when preferences were loaded.
func (b *Base) FireRestorePrefs(rec prefs.Record) {
	b.RestorePrefs.Fire(rec)
}

// NewBase constructs a Base bound to path, resolving its protocol
// configuration from hw's quirks. The adapter starts closed; the first
// command opens it lazily via transport's Open hook.
func NewBase(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer) *Base {
	b := &Base{
		Key:      key,
		Path:     path,
		Hardware: hw,
		adapter:  adapter,
		cfg:      protocol.ConfigFromHardware(hw),
	}
	b.transport = &protocol.Transport{
		Adapter:   adapter,
		Pacer:     &util.Pacer{},
		Tracer:    tracer,
		DeviceKey: key,
		Open:      func() error { return adapter.Open(path, true) },
	}
	return b
}

// SetBrightnessSetter installs the quirk-routed brightness callback used
// by the value-animator. Must be called before SetBrightness/Suspend.
func (b *Base) SetBrightnessSetter(fn BrightnessSetter) {
	b.brightMu.Lock()
	b.setBrightness = fn
	b.brightMu.Unlock()
}

// ProtocolConfig returns the resolved protocol configuration.
func (b *Base) ProtocolConfig() protocol.Config { return b.cfg }

// RunCommand issues one request/response exchange and satisfies
// frame.CommandRunner. Commands are serialized per device: concurrent
// callers (LED writes, FX activation, frame commits) block on cmdMu so
// the pacer and retry machinery only ever see one in-flight exchange.
func (b *Base) RunCommand(ctx context.Context, class, id byte, args []byte, tid byte, delay time.Duration, remaining uint16) ([]byte, error) {
	b.cmdMu.Lock()
	defer b.cmdMu.Unlock()

	dataSize := byte(0)
	if d, ok := protocol.LookupByClassID(class, id); ok && d.DataSize >= 0 {
		dataSize = byte(d.DataSize)
	} else {
		dataSize = byte(len(args))
	}

	req := protocol.BuildRequest(class, id, dataSize, tid, remaining, args)
	status, data, err := b.transport.Run(ctx, req, delay, remaining, class, id, tid, b.handleTimeout)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", b.Key, err)
	}

	if status == protocol.StatusOK {
		b.offlineMu.Lock()
		b.offline = false
		b.offlineMu.Unlock()
	}
	if status == protocol.StatusUnsupported {
		return nil, nil
	}
	return data, nil
}

// Run issues one exchange using this device's resolved transaction id
// and inter-command delay, with no continuation packets.
func (b *Base) Run(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
	return b.RunCommand(ctx, class, id, args, b.cfg.TransactionID, b.cfg.InterCommandDelay, 0)
}

// NewFrame builds a Frame bound to this device's matrix dimensions,
// wiring Base as the CommandRunner. Callers must check Hardware.HasMatrix
// first.
func (b *Base) NewFrame(activateFX frame.FXActivator) *frame.Frame {
	return frame.New(b.Hardware.Dimensions.Cols, b.Hardware.Dimensions.Rows, b.Hardware, b, activateFX)
}

func (b *Base) handleTimeout(_ protocol.Status, _ []byte) {
	if b.Hardware == nil || !b.Hardware.Quirks.Has(hardware.QuirkWireless) {
		return
	}
	b.offlineMu.Lock()
	b.offline = true
	b.offlineMu.Unlock()
	_ = b.adapter.Close()
}

// Offline reports whether the last command on a wireless device timed
// out. The handle is recycled transparently on the next successful
// command.
func (b *Base) Offline() bool {
	b.offlineMu.Lock()
	defer b.offlineMu.Unlock()
	return b.offline
}

// Identify fetches and caches firmware version and serial number. Safe
// to call more than once; only the first call hits the wire.
func (b *Base) Identify(ctx context.Context) {
	b.identOnce.Do(func() {
		b.firmware = b.fetchFirmware(ctx)
		b.serial = b.fetchSerial(ctx)
	})
}

// FirmwareVersion returns the cached "vMAJOR.MINOR" string, or
// "(unknown)" if Identify has not been called or the read failed.
func (b *Base) FirmwareVersion() string {
	if b.firmware == "" {
		return "(unknown)"
	}
	return b.firmware
}

// SerialNumber returns the cached decoded serial, or the device key if
// decoding failed or has not been attempted yet.
func (b *Base) SerialNumber() string {
	if b.serial == "" {
		return b.Key
	}
	return b.serial
}

func (b *Base) fetchFirmware(ctx context.Context) string {
	data, err := b.Run(ctx, protocol.ClassDeviceInfo, 0x81, nil)
	if err != nil || len(data) < 2 {
		return "(unknown)"
	}
	return fmt.Sprintf("v%d.%d", data[0], data[1])
}

func (b *Base) fetchSerial(ctx context.Context) string {
	if b.Hardware != nil && b.Hardware.Type == hardware.TypeLaptop {
		return b.Hardware.Name
	}
	data, err := b.Run(ctx, protocol.ClassDeviceInfo, 0x82, nil)
	if err != nil || len(data) == 0 {
		return b.Key
	}
	s := nonWord.ReplaceAllString(strings.TrimRight(string(data), "\x00"), "")
	if s == "" {
		return b.Key
	}
	return s
}

// Brightness returns the current (possibly mid-ramp) brightness in
// [0,1].
func (b *Base) Brightness() float64 {
	b.brightMu.Lock()
	defer b.brightMu.Unlock()
	return b.brightness
}

// Suspended reports whether the device is currently suspended.
func (b *Base) Suspended() bool {
	b.brightMu.Lock()
	defer b.brightMu.Unlock()
	return b.suspended
}

// SetBrightness ramps brightness to target over successive animation
// ticks, firing PowerStateChanged on every step. fast jumps directly to
// target. A ramp already in flight is cancelled and replaced.
func (b *Base) SetBrightness(ctx context.Context, target float64, fast bool) {
	b.brightMu.Lock()
	if b.brightCancel != nil {
		b.brightCancel()
	}
	start := b.brightness
	rctx, cancel := context.WithCancel(ctx)
	b.brightCancel = cancel
	b.brightMu.Unlock()

	if fast || start == target {
		b.stepBrightness(ctx, target)
		return
	}
	go b.rampBrightness(rctx, start, target)
}

func (b *Base) rampBrightness(ctx context.Context, start, target float64) {
	ticker := util.NewTicker(time.Second / anim.MaxFPS)
	dir := 1.0
	if target < start {
		dir = -1
	}
	v := start
	for {
		if err := ticker.Tick(ctx); err != nil {
			return
		}
		v += dir * brightnessRampStep
		done := (dir > 0 && v >= target) || (dir < 0 && v <= target)
		if done {
			v = target
		}
		b.stepBrightness(ctx, v)
		if done {
			return
		}
	}
}

func (b *Base) stepBrightness(ctx context.Context, v float64) {
	b.brightMu.Lock()
	b.brightness = v
	suspended := b.suspended
	setter := b.setBrightness
	b.brightMu.Unlock()

	if setter != nil {
		_ = setter(ctx, v)
	}
	b.PowerStateChanged.Fire(PowerState{Brightness: v, Suspended: suspended})
}

// Suspend saves the current brightness (via saveFn, typically a
// preferences write) and ramps to zero, or jumps if fast.
func (b *Base) Suspend(ctx context.Context, fast bool, saveFn func(brightness float64)) {
	b.brightMu.Lock()
	b.savedBrightness = b.brightness
	b.suspended = true
	saved := b.savedBrightness
	b.brightMu.Unlock()

	if saveFn != nil {
		saveFn(saved)
	}
	b.SetBrightness(ctx, 0, fast)
}

// Resume restores the brightness saved by the most recent Suspend.
func (b *Base) Resume(ctx context.Context) {
	b.brightMu.Lock()
	target := b.savedBrightness
	b.suspended = false
	b.brightMu.Unlock()

	b.SetBrightness(ctx, target, false)
}

// Close cancels any in-flight brightness ramp and closes the HID handle.
func (b *Base) Close() error {
	b.brightMu.Lock()
	if b.brightCancel != nil {
		b.brightCancel()
	}
	b.brightMu.Unlock()
	return b.adapter.Close()
}
