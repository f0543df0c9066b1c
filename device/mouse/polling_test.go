package mouse_test

import (
	"context"
	"testing"

	"github.com/lumenhub/lumend/device/mouse"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolling_AvailableRates(t *testing.T) {
	std := mouse.NewPolling(&hardware.Entry{}, nil)
	assert.Equal(t, []int{125, 500, 1000}, std.AvailableRates())

	hyper := mouse.NewPolling(&hardware.Entry{Quirks: hardware.NewQuirkSet(hardware.QuirkHyperpolling)}, nil)
	assert.Equal(t, []int{125, 500, 1000, 2000, 4000, 8000}, hyper.AvailableRates())
}

func TestPolling_SetRateRejectsUnsupported(t *testing.T) {
	std := mouse.NewPolling(&hardware.Entry{}, nil)
	err := std.SetRate(context.Background(), 8000)
	assert.Error(t, err)
}

func TestPolling_SetRateIssuesCode(t *testing.T) {
	var gotClass, gotID byte
	var gotArgs []byte
	p := mouse.NewPolling(&hardware.Entry{}, func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		gotClass, gotID, gotArgs = class, id, args
		return nil, nil
	})
	require.NoError(t, p.SetRate(context.Background(), 500))
	assert.Equal(t, byte(protocol.ClassDPI), gotClass)
	assert.Equal(t, byte(0x04), gotID)
	assert.Equal(t, []byte{0x02}, gotArgs)
}

func TestPolling_RateDecodesHyperpollingCodeDisjointly(t *testing.T) {
	p := mouse.NewPolling(&hardware.Entry{Quirks: hardware.NewQuirkSet(hardware.QuirkHyperpolling)}, func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		return []byte{0x80}, nil
	})
	hz, err := p.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2000, hz)
}
