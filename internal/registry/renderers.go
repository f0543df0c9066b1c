// Package registry side-effect imports every built-in renderer and
// device-type package so their init() functions register with
// render.Register / devicemgr.RegisterType. Importing this package once
// from main is enough to make every built-in available.
package registry

import (
	_ "github.com/lumenhub/lumend/device/headset"  // register the headset device type
	_ "github.com/lumenhub/lumend/device/keyboard" // register the keyboard/keypad device type
	_ "github.com/lumenhub/lumend/device/laptop"   // register the laptop device type
	_ "github.com/lumenhub/lumend/device/mouse"    // register the mouse/wireless-mouse device type
	_ "github.com/lumenhub/lumend/render/rainbow"  // register the rainbow renderer
	_ "github.com/lumenhub/lumend/render/spectrum" // register the spectrum renderer
	_ "github.com/lumenhub/lumend/render/static"   // register the static renderer
)
