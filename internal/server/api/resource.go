package api

import (
	"github.com/lumenhub/lumend/apitypes"
	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/device/headset"
	"github.com/lumenhub/lumend/render"
)

// BuildResource converts a live device into its published resource
// view. Devices satisfying device.Resourceful (every matrix-capable
// type) get the full LED/FX/animation property set; a Headset, which
// has no such layering, reports only the identity and firmware-effect
// fields it actually has.
func BuildResource(dev device.Device, index int) apitypes.DeviceResource {
	hw := dev.HardwareEntry()
	res := apitypes.DeviceResource{
		Name:            hw.Name,
		Key:             dev.DeviceKey(),
		DeviceType:      string(hw.Type),
		DeviceIndex:     index,
		SerialNumber:    dev.SerialNumber(),
		FirmwareVersion: dev.FirmwareVersion(),
		VendorID:        hw.VendorID,
		ProductID:       hw.ProductID,
		HasMatrix:       hw.HasMatrix(),
		BusPath:         dev.DevicePath(),
	}

	for t := range hw.SupportedLEDs {
		res.SupportedLEDs = append(res.SupportedLEDs, string(t))
	}

	if hs, ok := dev.(*headset.Headset); ok {
		res.AvailableFX = hs.SupportedFX()
		res.CurrentFX = hs.CurrentFX()
		return res
	}

	rs, ok := dev.(device.Resourceful)
	if !ok {
		return res
	}

	if fx := rs.FXManager(); fx != nil {
		res.AvailableFX = fx.AvailableFX()
		res.CurrentFX, _ = fx.CurrentFX()
	}

	if f := rs.Frame(); f != nil {
		res.Width, res.Height = f.Width, f.Height
	}

	res.Brightness = brightnessOf(dev)
	res.Suspended = suspendedOf(dev)

	res.AvailableRenderers = render.Available()

	if loop := rs.Loop(); loop != nil {
		for _, h := range loop.Layers() {
			res.CurrentRenderers = append(res.CurrentRenderers, apitypes.LayerInfo{
				ZIndex:      h.ZIndex,
				RendererKey: h.Key,
				Traits:      render.GetTraits(h.Renderer),
			})
		}
		res.AnimationState = animationState(loop)
	}

	return res
}

// brightnessCapable is satisfied by every Base-backed device type; it's
// narrower than device.Resourceful so Headset (which embeds none of
// this) is excluded the same way.
type brightnessCapable interface {
	Brightness() float64
	Suspended() bool
}

func brightnessOf(dev device.Device) float64 {
	if b, ok := dev.(brightnessCapable); ok {
		return b.Brightness()
	}
	return 0
}

func suspendedOf(dev device.Device) bool {
	if b, ok := dev.(brightnessCapable); ok {
		return b.Suspended()
	}
	return false
}

func animationState(loop interface {
	Running() bool
	Errored() bool
	Paused() bool
}) string {
	switch {
	case loop.Errored():
		return "errored"
	case !loop.Running():
		return "stopped"
	case loop.Paused():
		return "paused"
	default:
		return "running"
	}
}
