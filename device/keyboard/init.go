package keyboard

import (
	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/devicemgr"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
)

func init() {
	ctor := func(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) device.Device {
		return New(key, path, hw, adapter, tracer, prefsCfg)
	}
	devicemgr.RegisterType(devicemgr.Registration{DeviceType: hardware.TypeKeyboard, New: ctor})
	devicemgr.RegisterType(devicemgr.Registration{DeviceType: hardware.TypeKeypad, New: ctor})
}
