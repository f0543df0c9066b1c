// Package hardware holds the static, immutable per-model hardware
// database: product-id keyed entries describing a device's matrix
// dimensions, supported effects and LEDs, protocol quirks, and key-map
// fixups. Entries are loaded once at startup from a bundled data file and
// never mutated afterwards.
package hardware

import "fmt"

// DeviceType classifies a hardware entry by the kind of peripheral it
// describes, which in turn selects the device-type-specific constructor
// used by the device manager.
type DeviceType string

const (
	TypeKeyboard  DeviceType = "keyboard"
	TypeMouse     DeviceType = "mouse"
	TypeMousepad  DeviceType = "mousepad"
	TypeKeypad    DeviceType = "keypad"
	TypeLaptop    DeviceType = "laptop"
	TypeHeadset   DeviceType = "headset"
	TypeUnknown   DeviceType = "unknown"
)

// ParseDeviceType maps a case-insensitive string to a DeviceType.
func ParseDeviceType(s string) (DeviceType, error) {
	switch lower(s) {
	case "keyboard":
		return TypeKeyboard, nil
	case "mouse":
		return TypeMouse, nil
	case "mousepad":
		return TypeMousepad, nil
	case "keypad":
		return TypeKeypad, nil
	case "laptop":
		return TypeLaptop, nil
	case "headset":
		return TypeHeadset, nil
	default:
		return TypeUnknown, fmt.Errorf("hardware: unknown device type %q", s)
	}
}

// LEDType names an addressable lighting zone on a device.
type LEDType string

const (
	LEDBacklight LEDType = "backlight"
	LEDLogo      LEDType = "logo"
	LEDScroll    LEDType = "scroll_wheel"
	LEDBattery   LEDType = "battery"
	LEDMacro     LEDType = "macro"
	LEDGame      LEDType = "game"
	LEDProfileR  LEDType = "profile_red"
	LEDProfileG  LEDType = "profile_green"
	LEDProfileB  LEDType = "profile_blue"
)

// RGBCapable reports whether this LED zone supports a configurable color,
// as opposed to a single fixed-color indicator.
func (l LEDType) RGBCapable() bool {
	switch l {
	case LEDBacklight, LEDLogo, LEDScroll:
		return true
	default:
		return false
	}
}

// ParseLEDType maps a case-insensitive string to an LEDType.
func ParseLEDType(s string) (LEDType, error) {
	switch lower(s) {
	case "backlight":
		return LEDBacklight, nil
	case "logo":
		return LEDLogo, nil
	case "scroll_wheel", "scroll":
		return LEDScroll, nil
	case "battery":
		return LEDBattery, nil
	case "macro":
		return LEDMacro, nil
	case "game":
		return LEDGame, nil
	case "profile_red":
		return LEDProfileR, nil
	case "profile_green":
		return LEDProfileG, nil
	case "profile_blue":
		return LEDProfileB, nil
	default:
		return "", fmt.Errorf("hardware: unknown LED type %q", s)
	}
}

// Quirk is a per-model behavioral deviation tag consumed by the protocol
// selector and by brightness/frame routing.
type Quirk string

const (
	QuirkTransactionCode3F      Quirk = "transaction_code_3f"
	QuirkTransactionCode1F      Quirk = "transaction_code_1f"
	QuirkTransactionCode9F      Quirk = "transaction_code_9f"
	QuirkTransactionCode08      Quirk = "transaction_code_08"
	QuirkExtendedFXCmds         Quirk = "extended_fx_cmds"
	QuirkScrollWheelBrightness  Quirk = "scroll_wheel_brightness"
	QuirkLogoLEDBrightness      Quirk = "logo_led_brightness"
	QuirkWireless               Quirk = "wireless"
	QuirkHyperpolling           Quirk = "hyperpolling"
	QuirkCustomFrame80          Quirk = "custom_frame_80"
	QuirkProfileLEDs            Quirk = "profile_leds"
	QuirkBacklightLEDFXOnly     Quirk = "backlight_led_fx_only"
)

// ParseQuirk maps a case-insensitive string (as it appears in the bundled
// hardware database) to a Quirk.
func ParseQuirk(s string) (Quirk, error) {
	switch lower(s) {
	case "transaction_code_3f":
		return QuirkTransactionCode3F, nil
	case "transaction_code_1f":
		return QuirkTransactionCode1F, nil
	case "transaction_code_9f":
		return QuirkTransactionCode9F, nil
	case "transaction_code_08":
		return QuirkTransactionCode08, nil
	case "extended_fx_cmds":
		return QuirkExtendedFXCmds, nil
	case "scroll_wheel_brightness":
		return QuirkScrollWheelBrightness, nil
	case "logo_led_brightness":
		return QuirkLogoLEDBrightness, nil
	case "wireless":
		return QuirkWireless, nil
	case "hyperpolling":
		return QuirkHyperpolling, nil
	case "custom_frame_80":
		return QuirkCustomFrame80, nil
	case "profile_leds":
		return QuirkProfileLEDs, nil
	case "backlight_led_fx_only":
		return QuirkBacklightLEDFXOnly, nil
	default:
		return "", fmt.Errorf("hardware: unknown quirk %q", s)
	}
}

// QuirkSet is a small set of Quirks with convenience membership tests.
type QuirkSet map[Quirk]struct{}

func NewQuirkSet(quirks ...Quirk) QuirkSet {
	s := make(QuirkSet, len(quirks))
	for _, q := range quirks {
		s[q] = struct{}{}
	}
	return s
}

func (s QuirkSet) Has(q Quirk) bool {
	_, ok := s[q]
	return ok
}

// Point is a single (row, col) matrix coordinate.
type Point struct {
	Row int
	Col int
}

// KeyFixups describes per-model column insert/delete/copy operations
// applied to a physical row before it is shipped to the device, to
// compensate for hardware that doesn't expose a perfectly rectangular
// matrix.
type KeyFixups struct {
	Insert []FixupInsert
	Delete []int
	Copy   []FixupCopy
}

// FixupInsert inserts a blank column at Index on every row.
type FixupInsert struct {
	Index int
}

// FixupCopy duplicates column From into column To on every row.
type FixupCopy struct {
	From int
	To   int
}

// Dimensions is the (rows, cols) shape of a device's lighting matrix.
type Dimensions struct {
	Rows int
	Cols int
}

// Entry is an immutable, fully-resolved hardware database record. It is
// the flattened snapshot produced by resolving a raw, possibly-partial
// YAML entry up its parent chain (see db.go); device code only ever sees
// Entry values, never the raw tree.
type Entry struct {
	Name         string
	Manufacturer string
	Type         DeviceType
	VendorID     uint16
	ProductID    uint16
	Dimensions   *Dimensions
	SupportedFX  map[string]struct{}
	SupportedLEDs map[LEDType]struct{}
	Quirks       QuirkSet
	KeyMapping   map[uint16][]Point
	KeyFixups    *KeyFixups
	RowOffsets   []int
	MacroKeys    bool
	Revision     int

	// Laptop-only fan/power-mode fields. Zero values mean "not a laptop"
	// or "boost unsupported".
	MinManualRPM int
	MaxRPM       int
	DualFan      bool
	SupportsBoost bool
}

// HasMatrix reports whether this entry has a usable lighting matrix. Per
// the data-model invariant, a matrix exists only if both dimensions are
// set and each is greater than one.
func (e *Entry) HasMatrix() bool {
	return e.Dimensions != nil && e.Dimensions.Rows > 1 && e.Dimensions.Cols > 1
}

// SupportsFX reports whether the named firmware effect is in this
// entry's supported set.
func (e *Entry) SupportsFX(name string) bool {
	_, ok := e.SupportedFX[name]
	return ok
}

// SupportsLED reports whether the given LED zone is present on this
// device.
func (e *Entry) SupportsLED(l LEDType) bool {
	_, ok := e.SupportedLEDs[l]
	return ok
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
