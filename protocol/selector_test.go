package protocol_test

import (
	"testing"

	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/protocol"
	"github.com/stretchr/testify/assert"
)

func entryWithQuirks(quirks ...hardware.Quirk) *hardware.Entry {
	return &hardware.Entry{
		Name:   "test entry",
		Type:   hardware.TypeKeyboard,
		Quirks: hardware.NewQuirkSet(quirks...),
	}
}

func TestConfigFromHardware_Precedence(t *testing.T) {
	// Property 3: when multiple transaction-code quirks are present,
	// resolution follows the fixed 9F > 08 > 1F > 3F > legacy order,
	// regardless of the order the quirks were declared in.
	cases := []struct {
		name    string
		quirks  []hardware.Quirk
		want    protocol.Version
		wantTID byte
	}{
		{"none set -> legacy default", nil, protocol.VersionLegacy, 0xFF},
		{"3f alone", []hardware.Quirk{hardware.QuirkTransactionCode3F}, protocol.VersionExtended, 0x3F},
		{"1f alone", []hardware.Quirk{hardware.QuirkTransactionCode1F}, protocol.VersionModern, 0x1F},
		{"08 alone", []hardware.Quirk{hardware.QuirkTransactionCode08}, protocol.VersionSpecial08, 0x08},
		{"9f alone", []hardware.Quirk{hardware.QuirkTransactionCode9F}, protocol.VersionWirelessKB, 0x9F},
		{"1f and 3f -> 1f wins", []hardware.Quirk{hardware.QuirkTransactionCode1F, hardware.QuirkTransactionCode3F}, protocol.VersionModern, 0x1F},
		{"08 and 1f -> 08 wins", []hardware.Quirk{hardware.QuirkTransactionCode08, hardware.QuirkTransactionCode1F}, protocol.VersionSpecial08, 0x08},
		{"9f and 08 -> 9f wins", []hardware.Quirk{hardware.QuirkTransactionCode9F, hardware.QuirkTransactionCode08}, protocol.VersionWirelessKB, 0x9F},
		{"all four set -> 9f wins", []hardware.Quirk{
			hardware.QuirkTransactionCode3F,
			hardware.QuirkTransactionCode1F,
			hardware.QuirkTransactionCode08,
			hardware.QuirkTransactionCode9F,
		}, protocol.VersionWirelessKB, 0x9F},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := entryWithQuirks(tc.quirks...)
			cfg := protocol.ConfigFromHardware(h)
			assert.Equal(t, tc.want, cfg.Version)
			assert.Equal(t, tc.wantTID, cfg.TransactionID)
		})
	}
}

func TestConfigFromHardware_ExtendedFXWithoutTransactionOverride(t *testing.T) {
	// A device can carry the plain EXTENDED_FX_CMDS quirk while otherwise
	// resolving to the legacy preset; it must still report UsesExtendedFX.
	h := entryWithQuirks(hardware.QuirkExtendedFXCmds)
	cfg := protocol.ConfigFromHardware(h)

	assert.Equal(t, protocol.VersionLegacy, cfg.Version)
	assert.True(t, cfg.UsesExtendedFX)
	assert.True(t, protocol.UsesExtendedFX(h))
}

func TestConfigFromHardware_ExtendedFXImpliedByVersion(t *testing.T) {
	for _, tc := range []hardware.Quirk{
		hardware.QuirkTransactionCode3F,
		hardware.QuirkTransactionCode1F,
		hardware.QuirkTransactionCode9F,
	} {
		h := entryWithQuirks(tc)
		cfg := protocol.ConfigFromHardware(h)
		assert.Truef(t, cfg.UsesExtendedFX, "quirk %s should imply extended FX", tc)
	}
}

func TestConfigFromHardware_Special08HasNoExtendedFX(t *testing.T) {
	h := entryWithQuirks(hardware.QuirkTransactionCode08)
	cfg := protocol.ConfigFromHardware(h)
	assert.False(t, cfg.UsesExtendedFX)
}

func TestGetTransactionID(t *testing.T) {
	h := entryWithQuirks(hardware.QuirkTransactionCode1F)
	assert.Equal(t, byte(0x1F), protocol.GetTransactionID(h))
}
