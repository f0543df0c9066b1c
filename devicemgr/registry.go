package devicemgr

import (
	"sync"

	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
)

// Constructor builds a concrete device.Device bound to an opened HID
// path, given its resolved hardware entry.
type Constructor func(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) device.Device

// Registration binds a Constructor to the hardware.DeviceType (and,
// optionally, a required subset of Quirks) it handles. Device-type
// packages register themselves from an init() function via a blank
// import, mirroring the teacher's route-registration pattern applied to
// device dispatch instead of HTTP routes.
type Registration struct {
	DeviceType hardware.DeviceType
	Quirks     hardware.QuirkSet
	New        Constructor
}

var (
	registryMu    sync.Mutex
	registrations []Registration
)

// RegisterType adds r to the process-wide dispatch table. Called from
// device-type package init() functions only.
func RegisterType(r Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registrations = append(registrations, r)
}

// resolve picks the most specific Constructor for hw: among
// registrations whose DeviceType matches and whose Quirks is a subset of
// hw.Quirks, it prefers the one requiring the most quirks (so a
// WIRELESS-gated mouse registration wins over the plain mouse one on
// wireless hardware). A nil Constructor means "use the generic
// fallback."
func resolve(hw *hardware.Entry) Constructor {
	registryMu.Lock()
	defer registryMu.Unlock()

	var best Constructor
	bestSpecificity := -1
	for _, r := range registrations {
		if r.DeviceType != hw.Type {
			continue
		}
		if !subsetOf(r.Quirks, hw.Quirks) {
			continue
		}
		if len(r.Quirks) > bestSpecificity {
			bestSpecificity = len(r.Quirks)
			best = r.New
		}
	}
	return best
}

func subsetOf(required, have hardware.QuirkSet) bool {
	for q := range required {
		if !have.Has(q) {
			return false
		}
	}
	return true
}
