package protocol

import (
	"time"

	"github.com/lumenhub/lumend/hardware"
)

// Version names one of the five fixed protocol presets a device can
// speak.
type Version string

const (
	VersionLegacy     Version = "legacy"
	VersionExtended   Version = "extended"
	VersionModern     Version = "modern"
	VersionWirelessKB Version = "wireless_kb"
	VersionSpecial08  Version = "special_08"
)

// Config is the resolved, derived protocol configuration for a device:
// its transaction id, whether it speaks the extended (0x0F) FX command
// family, and its inter-command pacing delay.
type Config struct {
	Version            Version
	TransactionID      byte
	UsesExtendedFX      bool
	InterCommandDelay  time.Duration
}

const defaultInterCommandDelay = 7 * time.Millisecond

var presets = map[Version]Config{
	VersionLegacy:     {Version: VersionLegacy, TransactionID: 0xFF, UsesExtendedFX: false, InterCommandDelay: defaultInterCommandDelay},
	VersionExtended:   {Version: VersionExtended, TransactionID: 0x3F, UsesExtendedFX: false, InterCommandDelay: defaultInterCommandDelay},
	VersionModern:     {Version: VersionModern, TransactionID: 0x1F, UsesExtendedFX: false, InterCommandDelay: defaultInterCommandDelay},
	VersionWirelessKB: {Version: VersionWirelessKB, TransactionID: 0x9F, UsesExtendedFX: false, InterCommandDelay: defaultInterCommandDelay},
	VersionSpecial08:  {Version: VersionSpecial08, TransactionID: 0x08, UsesExtendedFX: false, InterCommandDelay: defaultInterCommandDelay},
}

// ConfigFromHardware derives a device's ProtocolConfig from its quirk
// set. Precedence on conflicting transaction-code quirks is
// 9F > 08 > 1F > 3F > legacy default, matching the fixed preset table.
func ConfigFromHardware(h *hardware.Entry) Config {
	var cfg Config
	switch {
	case h.Quirks.Has(hardware.QuirkTransactionCode9F):
		cfg = presets[VersionWirelessKB]
	case h.Quirks.Has(hardware.QuirkTransactionCode08):
		cfg = presets[VersionSpecial08]
	case h.Quirks.Has(hardware.QuirkTransactionCode1F):
		cfg = presets[VersionModern]
	case h.Quirks.Has(hardware.QuirkTransactionCode3F):
		cfg = presets[VersionExtended]
	default:
		cfg = presets[VersionLegacy]
	}

	cfg.UsesExtendedFX = cfg.Version == VersionExtended ||
		cfg.Version == VersionModern ||
		cfg.Version == VersionWirelessKB ||
		h.Quirks.Has(hardware.QuirkExtendedFXCmds)

	return cfg
}

// GetTransactionID is a thin accessor over ConfigFromHardware for callers
// that only need the transaction id.
func GetTransactionID(h *hardware.Entry) byte {
	return ConfigFromHardware(h).TransactionID
}

// UsesExtendedFX is a thin accessor over ConfigFromHardware. It returns
// true whenever the resolved protocol version implies extended FX, or
// when the plain EXTENDED_FX_CMDS quirk is set even without a
// transaction-code override.
func UsesExtendedFX(h *hardware.Entry) bool {
	return ConfigFromHardware(h).UsesExtendedFX
}
