package headset_test

import (
	"context"
	"testing"

	"github.com/lumenhub/lumend/device/headset"
	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headsetEntry(revision int) *hardware.Entry {
	fx := map[string]struct{}{"disable": {}, "static": {}, "spectrum": {}, "breathe": {}}
	return &hardware.Entry{
		Name:        "Test Headset",
		Type:        hardware.TypeHeadset,
		VendorID:    0x1532,
		ProductID:   0x0520,
		Revision:    revision,
		SupportedFX: fx,
	}
}

// eepromResponder replies to the fixed firmware/serial EEPROM reads used
// by Identify, regardless of which RAM address a later write targets.
func eepromResponder(firmware []byte, serial string) func([]byte) []byte {
	return func(written []byte) []byte {
		reply := make([]byte, 33)
		reply[0] = 5
		switch written[0] {
		case 0x20: // HeadsetReadEEPROM
			addr := uint16(written[2])<<8 | uint16(written[3])
			switch addr {
			case 0x0030:
				copy(reply[1:], firmware)
			case 0x7f00:
				copy(reply[1:], []byte(serial))
			}
		}
		return reply
	}
}

func TestIdentify_ParsesFirmwareAndSerial(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = eepromResponder([]byte{0x01, 0x02}, "SN12345")
	require.NoError(t, fake.Open("fake", true))

	h := headset.New("hs-0", "fake", headsetEntry(1), fake, nil, nil)
	h.Identify(context.Background())

	assert.Equal(t, "v1.2", h.FirmwareVersion())
	assert.Equal(t, "SN12345", h.SerialNumber())
}

func TestIdentify_FallsBackToKeyWhenUnread(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	h := headset.New("hs-1", "fake", headsetEntry(1), fake, nil, nil)
	h.Identify(context.Background())

	assert.Equal(t, "(unknown)", h.FirmwareVersion())
	assert.Equal(t, "hs-1", h.SerialNumber())
}

func TestActivate_UnsupportedEffectRejected(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	hw := headsetEntry(1)
	delete(hw.SupportedFX, "spectrum")
	h := headset.New("hs-2", "fake", hw, fake, nil, nil)

	err := h.Activate(context.Background(), "spectrum", nil)
	assert.Error(t, err)
}

func TestActivate_StaticTracksCurrentFX(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	h := headset.New("hs-3", "fake", headsetEntry(1), fake, nil, nil)
	require.NoError(t, h.Activate(context.Background(), "static", []frame.RGB8{{R: 255, G: 0, B: 0}}))

	assert.Equal(t, "static", h.CurrentFX())
}

func TestActivate_BreatheSelectsColorCountByRevision(t *testing.T) {
	fake := hid.NewFake()
	var writes [][]byte
	fake.Responder = func(written []byte) []byte {
		writes = append(writes, append([]byte(nil), written...))
		return make([]byte, 33)
	}
	require.NoError(t, fake.Open("fake", true))

	// Revision 1 (Rainie) has a single color slot, so triple-color args
	// collapse to the single-breathe bit.
	h := headset.New("hs-4", "fake", headsetEntry(1), fake, nil, nil)
	colors := []frame.RGB8{{R: 1}, {G: 1}, {B: 1}}
	require.NoError(t, h.Activate(context.Background(), "breathe", colors))

	var colorWrites int
	for _, w := range writes {
		if w[0] == 0x40 && w[2] == 0x15 && w[3] == 0xDE { // WRITE_RAM, Rainie color0 addr
			colorWrites++
		}
	}
	assert.Equal(t, 1, colorWrites)
}

func TestActivate_PersistsFXAndColorsToPrefs(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "hs-5")
	require.NoError(t, err)

	h := headset.New("hs-5", "fake", headsetEntry(1), fake, nil, cfg)
	require.NoError(t, h.Activate(context.Background(), "static", []frame.RGB8{{R: 10, G: 20, B: 30}}))

	rec := cfg.Snapshot()
	require.NotNil(t, rec.FX)
	assert.Equal(t, "static", *rec.FX)
	assert.NotEmpty(t, rec.FXArgs)
}

func TestNew_RestoresPersistedFXOnConstruction(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "hs-6")
	require.NoError(t, err)
	name := "static"
	require.NoError(t, cfg.Update(func(r *prefs.Record) {
		r.FX = &name
		r.FXArgs = map[string]any{"colors": []map[string]any{{"R": float64(5), "G": float64(6), "B": float64(7)}}}
	}))

	h := headset.New("hs-6", "fake", headsetEntry(1), fake, nil, cfg)
	assert.Equal(t, "static", h.CurrentFX())
}

func TestFrame_AlwaysNil(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	h := headset.New("hs-7", "fake", headsetEntry(2), fake, nil, nil)
	assert.Nil(t, h.Frame())
}

func TestSupportedFX_ListsHardwareSet(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	h := headset.New("hs-8", "fake", headsetEntry(1), fake, nil, nil)
	assert.ElementsMatch(t, []string{"disable", "static", "spectrum", "breathe"}, h.SupportedFX())
}
