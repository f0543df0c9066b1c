// Package mouse adapts device.Base for pointing devices: the base mouse
// type, which always carries the Polling (report-rate selection) mixin,
// and WirelessMouse, which adds the Wireless (battery, charging, idle
// timeout) mixin and is chosen by the device manager for hardware with
// the WIRELESS quirk.
package mouse

import (
	"context"
	"time"

	"github.com/lumenhub/lumend/anim"
	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
)

// Mouse is the non-wireless mouse device type: Base plus LEDs, firmware
// effects, a matrix frame/loop for the scroll-wheel/logo strip (when the
// model has one), and always the polling-rate mixin.
type Mouse struct {
	*device.Base
	LEDs    *device.LEDManager
	FX      *device.FXManager
	Polling *Polling

	frame *frame.Frame
	loop  *anim.Loop
	prefs *prefs.Config
}

// New constructs a wired Mouse bound to path.
func New(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) *Mouse {
	base := device.NewBase(key, path, hw, adapter, tracer)
	m := &Mouse{
		Base:    base,
		LEDs:    device.NewLEDManager(hw, base.Run),
		Polling: NewPolling(hw, base.Run),
		prefs:   prefsCfg,
	}
	m.FX = device.NewFXManager(hw, base.Run, m.stopAnimation, m.persistFX)
	base.SetBrightnessSetter(m.routeBrightness)
	base.PowerStateChanged.Connect(func(ps device.PowerState) {
		if m.loop != nil {
			m.loop.OnPowerStateChanged(anim.PowerState{Brightness: ps.Brightness, Suspended: ps.Suspended})
		}
	})
	if hw.HasMatrix() {
		m.frame = base.NewFrame(func(ctx context.Context) error { return m.FX.Activate(ctx, "custom_frame", nil) })
		m.loop = anim.New(m.frame, m.onLoopError)
	}
	if prefsCfg != nil {
		base.RestorePrefs.Connect(func(rec prefs.Record) {
			device.ApplyPrefs(context.Background(), base, m.LEDs, m.FX, m.loop, rec)
		})
		base.FireRestorePrefs(prefsCfg.Snapshot())
	}
	return m
}

func (m *Mouse) Frame() *frame.Frame            { return m.frame }
func (m *Mouse) Loop() *anim.Loop               { return m.loop }
func (m *Mouse) FXManager() *device.FXManager   { return m.FX }
func (m *Mouse) LEDManager() *device.LEDManager { return m.LEDs }

func (m *Mouse) routeBrightness(ctx context.Context, value float64) error {
	ledType := brightnessLED(m.Hardware)
	led, ok := m.LEDs.Get(ledType)
	if !ok {
		return nil
	}
	return led.SetBrightness(ctx, value*100)
}

func brightnessLED(hw *hardware.Entry) hardware.LEDType {
	switch {
	case hw.Quirks.Has(hardware.QuirkScrollWheelBrightness):
		return hardware.LEDScroll
	case hw.Quirks.Has(hardware.QuirkLogoLEDBrightness):
		return hardware.LEDLogo
	default:
		return hardware.LEDBacklight
	}
}

func (m *Mouse) stopAnimation() {
	if m.loop != nil {
		m.loop.Stop()
	}
}

func (m *Mouse) persistFX(name string, args map[string]any) {
	if m.prefs == nil {
		return
	}
	_ = m.prefs.Update(func(r *prefs.Record) {
		r.FX = &name
		r.FXArgs = args
	})
}

func (m *Mouse) onLoopError() {
	if m.frame != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.frame.Reset(ctx)
	}
}
