package mouse

import (
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
)

// WirelessMouse is a Mouse with the Wireless mixin layered on top,
// constructed for hardware carrying the WIRELESS quirk. Its Base
// inherits the offline/timeout-recycle behavior from device.Base's
// handleTimeout hook automatically, since that only keys off the same
// quirk.
type WirelessMouse struct {
	*Mouse
	Wireless *Wireless
}

// NewWirelessMouse constructs a WirelessMouse bound to path.
func NewWirelessMouse(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) *WirelessMouse {
	m := New(key, path, hw, adapter, tracer, prefsCfg)
	return &WirelessMouse{Mouse: m, Wireless: NewWireless(m.Run)}
}
