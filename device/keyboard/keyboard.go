// Package keyboard adapts device.Base for keyboard and keypad hardware:
// LEDs, firmware effects, the matrix frame/animation pipeline, and an
// input queue for models that report key presses back to the host.
package keyboard

import (
	"context"
	"time"

	"github.com/lumenhub/lumend/anim"
	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/input"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
)

// Keyboard is the standard keyboard/keypad device type. Keypad support
// (macro keys) is just Keyboard built against a hardware entry with
// MacroKeys set; there is no separate wire behavior to model.
type Keyboard struct {
	*device.Base
	LEDs  *device.LEDManager
	FX    *device.FXManager
	Input *input.Queue

	frame *frame.Frame
	loop  *anim.Loop
	prefs *prefs.Config
}

// New constructs a Keyboard bound to path.
func New(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) *Keyboard {
	base := device.NewBase(key, path, hw, adapter, tracer)
	k := &Keyboard{
		Base:  base,
		LEDs:  device.NewLEDManager(hw, base.Run),
		Input: input.NewQueue(hw),
		prefs: prefsCfg,
	}
	k.FX = device.NewFXManager(hw, base.Run, k.stopAnimation, k.persistFX)
	base.SetBrightnessSetter(k.routeBrightness)
	base.PowerStateChanged.Connect(func(ps device.PowerState) {
		if k.loop != nil {
			k.loop.OnPowerStateChanged(anim.PowerState{Brightness: ps.Brightness, Suspended: ps.Suspended})
		}
	})
	if hw.HasMatrix() {
		k.frame = base.NewFrame(func(ctx context.Context) error { return k.FX.Activate(ctx, "custom_frame", nil) })
		k.loop = anim.New(k.frame, k.onLoopError)
	}
	if prefsCfg != nil {
		base.RestorePrefs.Connect(func(rec prefs.Record) {
			device.ApplyPrefs(context.Background(), base, k.LEDs, k.FX, k.loop, rec)
		})
		base.FireRestorePrefs(prefsCfg.Snapshot())
	}
	return k
}

func (k *Keyboard) Frame() *frame.Frame           { return k.frame }
func (k *Keyboard) Loop() *anim.Loop              { return k.loop }
func (k *Keyboard) FXManager() *device.FXManager  { return k.FX }
func (k *Keyboard) LEDManager() *device.LEDManager { return k.LEDs }

func (k *Keyboard) routeBrightness(ctx context.Context, value float64) error {
	led, ok := k.LEDs.Get(hardware.LEDBacklight)
	if !ok {
		return nil
	}
	return led.SetBrightness(ctx, value*100)
}

func (k *Keyboard) stopAnimation() {
	if k.loop != nil {
		k.loop.Stop()
	}
}

func (k *Keyboard) persistFX(name string, args map[string]any) {
	if k.prefs == nil {
		return
	}
	_ = k.prefs.Update(func(r *prefs.Record) {
		r.FX = &name
		r.FXArgs = args
	})
}

func (k *Keyboard) onLoopError() {
	if k.frame != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = k.frame.Reset(ctx)
	}
}
