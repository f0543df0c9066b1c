package mouse_test

import (
	"context"
	"testing"

	"github.com/lumenhub/lumend/device/mouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireless_BatteryLevelScaled(t *testing.T) {
	w := mouse.NewWireless(func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		return []byte{0x00, 255}, nil
	})
	level, err := w.BatteryLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, level)
}

func TestWireless_ChargingReadsSecondByte(t *testing.T) {
	w := mouse.NewWireless(func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		return []byte{0x00, 0x01}, nil
	})
	charging, err := w.Charging(context.Background())
	require.NoError(t, err)
	assert.True(t, charging)
}

func TestWireless_SetIdleTimeoutClamps(t *testing.T) {
	var gotArgs []byte
	w := mouse.NewWireless(func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		gotArgs = args
		return nil, nil
	})
	require.NoError(t, w.SetIdleTimeout(context.Background(), 10_000))
	assert.Equal(t, []byte{0x03, 0x84}, gotArgs) // 900 clamped, big-endian
}

func TestWireless_SetLowBatteryThresholdClamps(t *testing.T) {
	var gotArgs []byte
	w := mouse.NewWireless(func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		gotArgs = args
		return nil, nil
	})
	require.NoError(t, w.SetLowBatteryThreshold(context.Background(), 1))
	assert.Equal(t, []byte{5}, gotArgs)
}
