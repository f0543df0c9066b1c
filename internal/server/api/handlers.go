package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lumenhub/lumend/apitypes"
	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/devicemgr"
	"github.com/lumenhub/lumend/internal/server/api/apierror"
	"github.com/lumenhub/lumend/render"
)

// deviceLookup is the narrow surface Handlers needs from devicemgr.Manager,
// kept as an interface so handler tests can fake it without spinning up
// real HID hardware.
type deviceLookup interface {
	Get(key string) (device.Device, bool)
	Devices() []devicemgr.Entry
}

// powerControllable is satisfied by every Base-backed device type via
// its embedded *device.Base; it is narrower than device.Resourceful so
// Headset (which has no Base) is excluded from brightness/suspend
// control the same way it's excluded from the rest of the resource
// view.
type powerControllable interface {
	Brightness() float64
	Suspended() bool
	SetBrightness(ctx context.Context, target float64, fast bool)
	Suspend(ctx context.Context, fast bool, saveFn func(brightness float64))
	Resume(ctx context.Context)
}

// Handlers binds the control API's method set to a device source and
// registers it on a Router.
type Handlers struct {
	devices deviceLookup
}

// NewHandlers constructs a Handlers bound to devices.
func NewHandlers(devices deviceLookup) *Handlers {
	return &Handlers{devices: devices}
}

// Register binds every control API route onto r.
func (h *Handlers) Register(r *Router) {
	r.Register("/devices", h.listDevices)
	r.Register("/devices/{key}", h.getDevice)
	r.Register("/devices/{key}/setfx", h.setFX)
	r.Register("/devices/{key}/setled", h.setLED)
	r.Register("/devices/{key}/addrenderer", h.addRenderer)
	r.Register("/devices/{key}/removerenderer", h.removeRenderer)
	r.Register("/devices/{key}/setlayertraits", h.setLayerTraits)
	r.Register("/devices/{key}/pauseanimation", h.pauseAnimation)
	r.Register("/devices/{key}/stopanimation", h.stopAnimation)
	r.Register("/devices/{key}/setbrightness", h.setBrightness)
	r.Register("/devices/{key}/setsuspended", h.setSuspended)
}

func (h *Handlers) lookup(req *Request) (device.Device, apitypes.ApiError) {
	key := req.Params["key"]
	dev, ok := h.devices.Get(key)
	if !ok {
		return nil, apierror.ErrNotFound("device not found")
	}
	return dev, apitypes.ApiError{}
}

func decodeArgs(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

func (h *Handlers) listDevices(req *Request, res *Response, _ *slog.Logger) error {
	entries := h.devices.Devices()
	out := make([]apitypes.DeviceResource, 0, len(entries))
	for _, e := range entries {
		out = append(out, BuildResource(e.Device, e.Index))
	}
	res.Data = apitypes.DevicesListResponse{Devices: out}
	return nil
}

func (h *Handlers) getDevice(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	index := 0
	for _, e := range h.devices.Devices() {
		if e.Device == dev {
			index = e.Index
			break
		}
	}
	res.Data = BuildResource(dev, index)
	return nil
}

func (h *Handlers) setFX(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	rs, ok := dev.(device.Resourceful)
	if !ok || rs.FXManager() == nil {
		return apierror.ErrConflict("device has no FX manager")
	}
	var args apitypes.SetFXRequest
	if err := decodeArgs(req.Args, &args); err != nil {
		return apierror.WrapError(err)
	}
	if err := rs.FXManager().Activate(req.Ctx, args.Name, args.Args); err != nil {
		return apierror.WrapError(err)
	}
	return nil
}

func (h *Handlers) setLED(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	rs, ok := dev.(device.Resourceful)
	if !ok || rs.LEDManager() == nil {
		return apierror.ErrConflict("device has no LED manager")
	}
	var args apitypes.SetLEDRequest
	if err := decodeArgs(req.Args, &args); err != nil {
		return apierror.WrapError(err)
	}
	ctrl, ok := rs.LEDManager().Get(hardwareLEDType(args.LED))
	if !ok {
		return apierror.ErrBadRequest("unsupported led type")
	}
	if err := ctrl.SetValues(req.Ctx, args.Args); err != nil {
		return apierror.WrapError(err)
	}
	return nil
}

func (h *Handlers) addRenderer(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	rs, ok := dev.(device.Resourceful)
	if !ok || rs.Loop() == nil {
		return apierror.ErrConflict("device has no animation loop")
	}
	var args apitypes.AddRendererRequest
	if err := decodeArgs(req.Args, &args); err != nil {
		return apierror.WrapError(err)
	}
	renderer, err := render.New(args.Key)
	if err != nil {
		return apierror.WrapError(err)
	}
	if len(args.Args) > 0 {
		if err := render.SetTraits(renderer, args.Args); err != nil {
			return apierror.WrapError(err)
		}
	}
	holder, err := rs.Loop().AddLayer(renderer, args.ZIndex)
	if err != nil {
		return apierror.WrapError(err)
	}
	holder.Key = args.Key
	res.Data = apitypes.AddRendererResponse{ZIndex: holder.ZIndex}
	return nil
}

func (h *Handlers) removeRenderer(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	rs, ok := dev.(device.Resourceful)
	if !ok || rs.Loop() == nil {
		return apierror.ErrConflict("device has no animation loop")
	}
	var args apitypes.RemoveRendererRequest
	if err := decodeArgs(req.Args, &args); err != nil {
		return apierror.WrapError(err)
	}
	if err := rs.Loop().RemoveLayer(args.ZIndex); err != nil {
		return apierror.WrapError(err)
	}
	return nil
}

func (h *Handlers) setLayerTraits(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	rs, ok := dev.(device.Resourceful)
	if !ok || rs.Loop() == nil {
		return apierror.ErrConflict("device has no animation loop")
	}
	var args apitypes.SetLayerTraitsRequest
	if err := decodeArgs(req.Args, &args); err != nil {
		return apierror.WrapError(err)
	}
	for _, holder := range rs.Loop().Layers() {
		if holder.ZIndex == args.ZIndex {
			if err := render.SetTraits(holder.Renderer, args.Traits); err != nil {
				return apierror.WrapError(err)
			}
			return nil
		}
	}
	return apierror.ErrNotFound("layer not found")
}

func (h *Handlers) pauseAnimation(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	rs, ok := dev.(device.Resourceful)
	if !ok || rs.Loop() == nil {
		return apierror.ErrConflict("device has no animation loop")
	}
	rs.Loop().Pause(true)
	return nil
}

func (h *Handlers) stopAnimation(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	rs, ok := dev.(device.Resourceful)
	if !ok || rs.Loop() == nil {
		return apierror.ErrConflict("device has no animation loop")
	}
	rs.Loop().Stop()
	return nil
}

func (h *Handlers) setBrightness(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	pc, ok := dev.(powerControllable)
	if !ok {
		return apierror.ErrConflict("device has no brightness control")
	}
	var args apitypes.SetBrightnessRequest
	if err := decodeArgs(req.Args, &args); err != nil {
		return apierror.WrapError(err)
	}
	pc.SetBrightness(req.Ctx, args.Brightness, false)
	return nil
}

func (h *Handlers) setSuspended(req *Request, res *Response, _ *slog.Logger) error {
	dev, apiErr := h.lookup(req)
	if dev == nil {
		return apiErr
	}
	pc, ok := dev.(powerControllable)
	if !ok {
		return apierror.ErrConflict("device has no power control")
	}
	var args apitypes.SetSuspendedRequest
	if err := decodeArgs(req.Args, &args); err != nil {
		return apierror.WrapError(err)
	}
	if args.Suspended {
		pc.Suspend(req.Ctx, false, nil)
	} else {
		pc.Resume(req.Ctx)
	}
	return nil
}

func init() {
	_ = context.Background
}
