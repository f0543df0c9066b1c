package apiclient

import (
	"context"
	"fmt"

	"github.com/lumenhub/lumend/apitypes"
)

// Client is the high-level interface to lumend's control API: one Go
// method per published device property or method, matching the surface
// described by the daemon's IPC contract.
type Client struct{ transport *Transport }

// New constructs a client with no authentication.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client authenticated with password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client around a caller-supplied Transport,
// primarily for tests.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

func call[T any](c *Client, ctx context.Context, path string, args any) (*T, error) {
	res, err := c.transport.DoCtx(ctx, path, args)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		if res.Error != nil {
			return nil, *res.Error
		}
		return nil, fmt.Errorf("apiclient: request failed with no error detail")
	}
	return decode[T](res.Data)
}

func decode[T any](data any) (*T, error) {
	var out T
	if data == nil {
		return &out, nil
	}
	if err := remarshal(data, &out); err != nil {
		return nil, fmt.Errorf("apiclient: decode response: %w", err)
	}
	return &out, nil
}

// Devices lists every device currently managed by the daemon.
func (c *Client) Devices(ctx context.Context) ([]apitypes.DeviceResource, error) {
	res, err := call[apitypes.DevicesListResponse](c, ctx, "/devices", nil)
	if err != nil {
		return nil, err
	}
	return res.Devices, nil
}

// Device fetches the full resource view for one device by key.
func (c *Client) Device(ctx context.Context, key string) (*apitypes.DeviceResource, error) {
	return call[apitypes.DeviceResource](c, ctx, "/devices/"+key, nil)
}

// SetFX activates a firmware effect by name on the given device.
func (c *Client) SetFX(ctx context.Context, key, name string, args map[string]any) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/setfx", apitypes.SetFXRequest{Name: name, Args: args})
	return err
}

// SetLED writes one LED's state/color/brightness/mode.
func (c *Client) SetLED(ctx context.Context, key, led string, args map[string]any) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/setled", apitypes.SetLEDRequest{LED: led, Args: args})
	return err
}

// AddRenderer inserts a new animation layer at zindex (negative to append),
// returning the zindex it was actually placed at.
func (c *Client) AddRenderer(ctx context.Context, key, rendererKey string, zindex int, args map[string]any) (int, error) {
	res, err := call[apitypes.AddRendererResponse](c, ctx, "/devices/"+key+"/addrenderer",
		apitypes.AddRendererRequest{Key: rendererKey, ZIndex: zindex, Args: args})
	if err != nil {
		return 0, err
	}
	return res.ZIndex, nil
}

// RemoveRenderer removes the animation layer at zindex.
func (c *Client) RemoveRenderer(ctx context.Context, key string, zindex int) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/removerenderer", apitypes.RemoveRendererRequest{ZIndex: zindex})
	return err
}

// SetLayerTraits updates the named trait values on the layer at zindex.
func (c *Client) SetLayerTraits(ctx context.Context, key string, zindex int, traits map[string]any) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/setlayertraits",
		apitypes.SetLayerTraitsRequest{ZIndex: zindex, Traits: traits})
	return err
}

// PauseAnimation pauses the device's running animation loop.
func (c *Client) PauseAnimation(ctx context.Context, key string) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/pauseanimation", nil)
	return err
}

// StopAnimation stops and tears down the device's animation loop.
func (c *Client) StopAnimation(ctx context.Context, key string) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/stopanimation", nil)
	return err
}

// SetBrightness writes the device's Brightness property (0..1).
func (c *Client) SetBrightness(ctx context.Context, key string, brightness float64) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/setbrightness", apitypes.SetBrightnessRequest{Brightness: brightness})
	return err
}

// SetSuspended writes the device's Suspended property.
func (c *Client) SetSuspended(ctx context.Context, key string, suspended bool) error {
	_, err := call[struct{}](c, ctx, "/devices/"+key+"/setsuspended", apitypes.SetSuspendedRequest{Suspended: suspended})
	return err
}
