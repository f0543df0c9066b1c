package device_test

import (
	"context"
	"testing"

	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genericEntry(withMatrix bool) *hardware.Entry {
	e := &hardware.Entry{
		Name:          "Test Mousepad",
		Type:          hardware.TypeMousepad,
		VendorID:      0x1532,
		ProductID:     0x0900,
		SupportedLEDs: map[hardware.LEDType]struct{}{hardware.LEDBacklight: {}},
		SupportedFX:   map[string]struct{}{"static": {}, "custom_frame": {}, "disable": {}},
	}
	if withMatrix {
		e.Dimensions = &hardware.Dimensions{Rows: 2, Cols: 5}
	}
	return e
}

func TestGeneric_NoMatrixHasNoFrameOrLoop(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	g := device.NewGeneric("pad-0", "fake", genericEntry(false), fake, nil, nil)

	assert.Nil(t, g.Frame())
	assert.Nil(t, g.Loop())
	assert.NotNil(t, g.FXManager())
	assert.NotNil(t, g.LEDManager())
}

func TestGeneric_MatrixBuildsFrameAndLoop(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	g := device.NewGeneric("pad-1", "fake", genericEntry(true), fake, nil, nil)

	assert.NotNil(t, g.Frame())
	assert.NotNil(t, g.Loop())
}

func TestGeneric_RouteBrightnessWritesBacklightLED(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake", true))

	g := device.NewGeneric("pad-2", "fake", genericEntry(false), fake, nil, nil)
	g.SetBrightness(context.Background(), 0.5, true)

	led, ok := g.LEDManager().Get(hardware.LEDBacklight)
	require.True(t, ok)
	state, err := led.State(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50, state.Brightness, 0.01)
}

func TestGeneric_RestoresPersistedFXOnConstruction(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = echoOKResponder
	require.NoError(t, fake.Open("fake", true))

	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "pad-3")
	require.NoError(t, err)
	name := "static"
	require.NoError(t, cfg.Update(func(r *prefs.Record) { r.FX = &name }))

	g := device.NewGeneric("pad-3", "fake", genericEntry(false), fake, nil, cfg)

	current, _ := g.FXManager().CurrentFX()
	assert.Equal(t, "static", current)
}

func TestGeneric_PersistFXWritesPrefsOnActivate(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = echoOKResponder
	require.NoError(t, fake.Open("fake", true))

	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "pad-4")
	require.NoError(t, err)

	g := device.NewGeneric("pad-4", "fake", genericEntry(false), fake, nil, cfg)
	require.NoError(t, g.FXManager().Activate(context.Background(), "static", nil))

	rec := cfg.Snapshot()
	require.NotNil(t, rec.FX)
	assert.Equal(t, "static", *rec.FX)
}
