package device

import (
	"context"

	"github.com/lumenhub/lumend/anim"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/prefs"
	"github.com/lumenhub/lumend/render"
)

// ApplyPrefs re-applies a loaded preferences record to a device's
// brightness, LED zones, current firmware effect, and animation layers.
// Any of leds/fx/loop may be nil (headset-style devices with no matrix),
// in which case that part of the record is skipped. When the record has
// layers and a loop is given, the saved firmware effect is not re-applied:
// the layers take priority. Each layer's traits are set before it is
// added, so its renderer's Init sees them. Failures restoring an
// individual LED zone or layer are not fatal to the rest of the restore.
func ApplyPrefs(ctx context.Context, base *Base, leds *LEDManager, fx *FXManager, loop *anim.Loop, rec prefs.Record) {
	if rec.Brightness != nil {
		base.SetBrightness(ctx, *rec.Brightness, true)
	}

	if leds != nil && len(rec.LEDs) > 0 {
		values := make(map[hardware.LEDType]map[string]any, len(rec.LEDs))
		for k, v := range rec.LEDs {
			cfg, ok := v.(map[string]any)
			if !ok {
				continue
			}
			values[hardware.LEDType(k)] = cfg
		}
		_ = leds.SetValues(ctx, values)
	}

	if fx != nil && rec.FX != nil && (loop == nil || len(rec.Layers) == 0) {
		_ = fx.Activate(ctx, *rec.FX, rec.FXArgs)
	}

	if loop != nil && len(rec.Layers) > 0 {
		for _, lp := range rec.Layers {
			renderer, err := render.New(lp.RendererKey)
			if err != nil {
				continue
			}
			_ = render.SetTraits(renderer, lp.Traits)
			holder, err := loop.AddLayer(renderer, -1)
			if err != nil {
				continue
			}
			holder.Key = lp.RendererKey
		}
		loop.Start(ctx)
	}
}
