package device_test

import (
	"context"
	"testing"

	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fxTestEntry(quirks ...hardware.Quirk) *hardware.Entry {
	return &hardware.Entry{
		SupportedFX: map[string]struct{}{
			"static": {}, "wave": {}, "breathe": {}, "spectrum": {}, "custom_frame": {}, "disable": {},
		},
		SupportedLEDs: map[hardware.LEDType]struct{}{hardware.LEDBacklight: {}},
		Quirks:        hardware.NewQuirkSet(quirks...),
	}
}

func TestFXManager_ActivateStandard(t *testing.T) {
	var calls []ledCall
	run := func(_ context.Context, class, id byte, args []byte) ([]byte, error) {
		calls = append(calls, ledCall{class, id, args})
		return nil, nil
	}
	m := device.NewFXManager(fxTestEntry(), run, nil, nil)

	require.NoError(t, m.Activate(context.Background(), "static", map[string]any{"raw": []byte{0xFF, 0x00, 0x00}}))
	require.Len(t, calls, 1)
	assert.Equal(t, byte(0x03), calls[0].class)
	assert.Equal(t, byte(0x0A), calls[0].id)
	assert.Equal(t, []byte{0x06, 0xFF, 0x00, 0x00}, calls[0].args)

	name, _ := m.CurrentFX()
	assert.Equal(t, "static", name)
}

func TestFXManager_ActivateExtendedIncludesVarstoreAndLED(t *testing.T) {
	var calls []ledCall
	run := func(_ context.Context, class, id byte, args []byte) ([]byte, error) {
		calls = append(calls, ledCall{class, id, args})
		return nil, nil
	}
	m := device.NewFXManager(fxTestEntry(hardware.QuirkExtendedFXCmds), run, nil, nil)

	require.NoError(t, m.Activate(context.Background(), "breathe", nil))
	assert.Equal(t, byte(0x0F), calls[0].class)
	assert.Equal(t, byte(0x02), calls[0].id)
	assert.Equal(t, []byte{0x01, 0x05, protocol.ExtEffectBreathe}, calls[0].args)
}

func TestFXManager_DisableAndCustomFrameAreNotPersisted(t *testing.T) {
	var persisted []string
	m := device.NewFXManager(fxTestEntry(), func(context.Context, byte, byte, []byte) ([]byte, error) { return nil, nil },
		nil, func(name string, _ map[string]any) { persisted = append(persisted, name) })

	require.NoError(t, m.Activate(context.Background(), "disable", nil))
	require.NoError(t, m.Activate(context.Background(), "custom_frame", nil))
	require.NoError(t, m.Activate(context.Background(), "static", nil))

	assert.Equal(t, []string{"static"}, persisted)
}

func TestFXManager_ActivateStopsRunningAnimation(t *testing.T) {
	var stopped bool
	m := device.NewFXManager(fxTestEntry(), func(context.Context, byte, byte, []byte) ([]byte, error) { return nil, nil },
		func() { stopped = true }, nil)

	require.NoError(t, m.Activate(context.Background(), "static", nil))
	assert.True(t, stopped)
}

func TestFXManager_UnsupportedFX(t *testing.T) {
	hw := fxTestEntry()
	delete(hw.SupportedFX, "wave")
	m := device.NewFXManager(hw, func(context.Context, byte, byte, []byte) ([]byte, error) { return nil, nil }, nil, nil)

	err := m.Activate(context.Background(), "wave", nil)
	assert.Error(t, err)
}

func TestFXManager_AvailableFXFiltersBySupport(t *testing.T) {
	hw := fxTestEntry()
	delete(hw.SupportedFX, "wave")
	m := device.NewFXManager(hw, func(context.Context, byte, byte, []byte) ([]byte, error) { return nil, nil }, nil, nil)

	assert.NotContains(t, m.AvailableFX(), "wave")
	assert.Contains(t, m.AvailableFX(), "static")
}
