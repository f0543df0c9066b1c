package api_test

import (
	"testing"

	api "github.com/lumenhub/lumend/internal/server/api"
	"github.com/lumenhub/lumend/device/keyboard"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	_ "github.com/lumenhub/lumend/render/static"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHardware() *hardware.Entry {
	return &hardware.Entry{
		Name:          "Test Keyboard",
		Type:          hardware.TypeKeyboard,
		VendorID:      0x1234,
		ProductID:     0x5678,
		Dimensions:    &hardware.Dimensions{Rows: 6, Cols: 18},
		SupportedLEDs: map[hardware.LEDType]struct{}{hardware.LEDBacklight: {}},
		SupportedFX:   map[string]struct{}{"static": {}, "custom_frame": {}, "disable": {}},
	}
}

func TestBuildResource_KeyboardPopulatesFullView(t *testing.T) {
	fake := hid.NewFake()
	require.NoError(t, fake.Open("fake-path", true))

	kb := keyboard.New("test-kb-0", "fake-path", testHardware(), fake, nil, nil)

	res := api.BuildResource(kb, 0)

	assert.Equal(t, "Test Keyboard", res.Name)
	assert.Equal(t, "test-kb-0", res.Key)
	assert.Equal(t, "keyboard", res.DeviceType)
	assert.True(t, res.HasMatrix)
	assert.Equal(t, 18, res.Width)
	assert.Equal(t, 6, res.Height)
	assert.Contains(t, res.SupportedLEDs, "backlight")
	assert.Contains(t, res.AvailableFX, "static")
	assert.NotEmpty(t, res.AvailableRenderers)
	assert.Equal(t, "stopped", res.AnimationState)
}
