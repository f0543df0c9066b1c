package protocol

// Command classes, per the wire format catalog.
const (
	ClassDeviceInfo   = 0x00
	ClassKeyRemap     = 0x02
	ClassStandardFX   = 0x03
	ClassDPI          = 0x04
	ClassProfiles     = 0x05
	ClassPower        = 0x07
	ClassCalibration  = 0x0B
	ClassLaptopEC     = 0x0D
	ClassExtendedFX   = 0x0F
)

// Def describes one command in the static registry: its class/id pair,
// an optional fixed data size, a human name for diagnostics, and the set
// of protocol versions it is valid on. An empty Protocols set means the
// command is universal.
type Def struct {
	CommandClass byte
	CommandID    byte
	DataSize     int // -1 if variable
	Name         string
	Protocols    []Version
}

// Supports reports whether this command is usable on the given protocol
// version. A command with an empty Protocols set is universal.
func (d Def) Supports(v Version) bool {
	if len(d.Protocols) == 0 {
		return true
	}
	for _, p := range d.Protocols {
		if p == v {
			return true
		}
	}
	return false
}

// Registry is the static, introspectable catalog of every known command.
var Registry = []Def{
	{ClassDeviceInfo, 0x81, 2, "GET_FIRMWARE", nil},
	{ClassDeviceInfo, 0x82, 22, "GET_SERIAL", nil},

	{ClassStandardFX, 0x00, -1, "SET_LED_STATE", nil},
	{ClassStandardFX, 0x01, -1, "SET_LED_COLOR", nil},
	{ClassStandardFX, 0x02, -1, "SET_LED_MODE", nil},
	{ClassStandardFX, 0x03, -1, "SET_LED_BRIGHTNESS", nil},
	{ClassStandardFX, 0x80, -1, "GET_LED_STATE", nil},
	{ClassStandardFX, 0x81, -1, "GET_LED_COLOR", nil},
	{ClassStandardFX, 0x82, -1, "GET_LED_MODE", nil},
	{ClassStandardFX, 0x83, -1, "GET_LED_BRIGHTNESS", nil},
	{ClassStandardFX, 0x0A, -1, "SET_EFFECT", nil},
	{ClassStandardFX, 0x0B, -1, "SET_FRAME_DATA_MATRIX", nil},
	{ClassStandardFX, 0x0C, -1, "SET_FRAME_DATA_SINGLE", nil},

	{ClassExtendedFX, 0x02, -1, "SET_EFFECT_EXTENDED", []Version{VersionExtended, VersionModern, VersionWirelessKB}},
	{ClassExtendedFX, 0x04, -1, "SET_LED_BRIGHTNESS_EXTENDED", []Version{VersionExtended, VersionModern, VersionWirelessKB}},
	{ClassExtendedFX, 0x84, -1, "GET_LED_BRIGHTNESS_EXTENDED", []Version{VersionExtended, VersionModern, VersionWirelessKB}},

	{ClassDPI, 0x01, -1, "SET_DPI", nil},
	{ClassDPI, 0x81, -1, "GET_DPI", nil},
	{ClassDPI, 0x04, 1, "SET_POLLING_RATE", nil},
	{ClassDPI, 0x84, 1, "GET_POLLING_RATE", nil},

	{ClassPower, 0x80, 2, "GET_BATTERY_LEVEL", nil},
	{ClassPower, 0x84, 2, "GET_CHARGING_STATUS", nil},
	{ClassPower, 0x83, 2, "SET_IDLE_TIME", nil},
	{ClassPower, 0x81, 1, "SET_LOW_BATTERY_THRESHOLD", nil},

	{ClassLaptopEC, 0x02, 4, "SET_FAN_MODE", nil},
	{ClassLaptopEC, 0x82, 4, "GET_FAN_MODE", nil},
	{ClassLaptopEC, 0x81, 3, "GET_FAN_SPEED", nil},
	{ClassLaptopEC, 0x0D, -1, "SET_BOOST", nil},
}

// LookupByClassID returns the registry entry matching (class, id), used
// for diagnostics and by run_command to fill in DataSize when the caller
// doesn't override it.
func LookupByClassID(class, id byte) (Def, bool) {
	for _, d := range Registry {
		if d.CommandClass == class && d.CommandID == id {
			return d, true
		}
	}
	return Def{}, false
}

// CommandsFor returns every command usable on the given protocol
// version, for diagnostics.
func CommandsFor(v Version) []Def {
	var out []Def
	for _, d := range Registry {
		if d.Supports(v) {
			out = append(out, d)
		}
	}
	return out
}

// Standard effect ids (class 0x03 SET_EFFECT), per the legacy effect
// table.
const (
	EffectStatic      = 0x06
	EffectWave        = 0x01
	EffectBreathe     = 0x03
	EffectSpectrum    = 0x04
	EffectCustomFrame = 0x05
	EffectDisable     = 0x00
)

// Extended effect ids (class 0x0F SET_EFFECT_EXTENDED). These
// intentionally differ in numbering from the standard table.
const (
	ExtEffectStatic      = 0x01
	ExtEffectBreathe     = 0x02
	ExtEffectSpectrum    = 0x03
	ExtEffectWave        = 0x04
	ExtEffectCustomFrame = 0x05
	ExtEffectDisable     = 0x00
)
