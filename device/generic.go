package device

import (
	"context"
	"time"

	"github.com/lumenhub/lumend/anim"
	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
)

// Generic is the fallback device type for hardware types the device
// manager doesn't dispatch to a dedicated constructor (mousepads and any
// other class): Base plus LEDs, firmware effects, and a matrix
// frame/animation pipeline when the model has one.
type Generic struct {
	*Base
	LEDs *LEDManager
	FX   *FXManager

	frame *frame.Frame
	loop  *anim.Loop
	prefs *prefs.Config
}

// NewGeneric constructs a Generic device bound to path.
func NewGeneric(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) *Generic {
	base := NewBase(key, path, hw, adapter, tracer)
	g := &Generic{
		Base:  base,
		LEDs:  NewLEDManager(hw, base.Run),
		prefs: prefsCfg,
	}
	g.FX = NewFXManager(hw, base.Run, g.stopAnimation, g.persistFX)
	base.SetBrightnessSetter(g.routeBrightness)
	base.PowerStateChanged.Connect(func(ps PowerState) {
		if g.loop != nil {
			g.loop.OnPowerStateChanged(anim.PowerState{Brightness: ps.Brightness, Suspended: ps.Suspended})
		}
	})
	if hw.HasMatrix() {
		g.frame = base.NewFrame(func(ctx context.Context) error { return g.FX.Activate(ctx, "custom_frame", nil) })
		g.loop = anim.New(g.frame, g.onLoopError)
	}
	if prefsCfg != nil {
		base.RestorePrefs.Connect(func(rec prefs.Record) {
			ApplyPrefs(context.Background(), base, g.LEDs, g.FX, g.loop, rec)
		})
		base.FireRestorePrefs(prefsCfg.Snapshot())
	}
	return g
}

func (g *Generic) Frame() *frame.Frame      { return g.frame }
func (g *Generic) Loop() *anim.Loop         { return g.loop }
func (g *Generic) FXManager() *FXManager    { return g.FX }
func (g *Generic) LEDManager() *LEDManager  { return g.LEDs }

func (g *Generic) routeBrightness(ctx context.Context, value float64) error {
	led, ok := g.LEDs.Get(hardware.LEDBacklight)
	if !ok {
		return nil
	}
	return led.SetBrightness(ctx, value*100)
}

func (g *Generic) stopAnimation() {
	if g.loop != nil {
		g.loop.Stop()
	}
}

func (g *Generic) persistFX(name string, args map[string]any) {
	if g.prefs == nil {
		return
	}
	_ = g.prefs.Update(func(r *prefs.Record) {
		r.FX = &name
		r.FXArgs = args
	})
}

func (g *Generic) onLoopError() {
	if g.frame != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = g.frame.Reset(ctx)
	}
}
