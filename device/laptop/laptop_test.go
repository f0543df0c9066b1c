package laptop_test

import (
	"context"
	"testing"

	"github.com/lumenhub/lumend/device/laptop"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laptopEntry(dualFan bool) *hardware.Entry {
	return &hardware.Entry{
		Name:         "Test Laptop",
		Type:         hardware.TypeLaptop,
		VendorID:     0x1532,
		ProductID:    0x0001,
		MinManualRPM: 2000,
		MaxRPM:       5000,
		DualFan:      dualFan,
	}
}

func crc(buf []byte) byte {
	var v byte
	for i := 1; i < 87; i++ {
		v ^= buf[i]
	}
	return v
}

func fanModeResponder(mode laptop.PowerMode, rpmHundreds byte) func([]byte) []byte {
	return func(written []byte) []byte {
		reply := make([]byte, protocol.ReportSize)
		reply[0] = byte(protocol.StatusOK)
		reply[1] = written[1]
		reply[5] = 4
		reply[6] = protocol.ClassLaptopEC
		reply[7] = 0x82
		reply[8] = 0x00
		reply[9] = written[9]
		reply[10] = byte(mode)
		reply[11] = rpmHundreds
		reply[88] = crc(reply)
		return reply
	}
}

func TestSystemControl_SetFanRPMRejectsOutsideModelRange(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = fanModeResponder(laptop.PowerBalanced, 30)
	require.NoError(t, fake.Open("fake", true))

	hw := laptopEntry(false)
	sc := laptop.NewSystemControl(hw, func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		req := protocol.BuildRequest(class, id, byte(len(args)), 0xFF, 0, args)
		reply := fake.Responder(req)
		status, data, err := protocol.ParseResponse(reply, 0xFF, class, id)
		if err != nil {
			return nil, err
		}
		if status == protocol.StatusUnsupported {
			return nil, nil
		}
		return data, nil
	})

	err := sc.SetFanRPM(context.Background(), 0, 1000)
	assert.Error(t, err)
}

func TestSystemControl_FanCountMatchesDualFan(t *testing.T) {
	assert.Equal(t, 1, laptop.NewSystemControl(laptopEntry(false), nil).FanCount())
	assert.Equal(t, 2, laptop.NewSystemControl(laptopEntry(true), nil).FanCount())
}

func TestSystemControl_SupportsBoost(t *testing.T) {
	hw := laptopEntry(false)
	sc := laptop.NewSystemControl(hw, nil)
	assert.False(t, sc.SupportsBoost())

	hw.SupportsBoost = true
	assert.True(t, sc.SupportsBoost())
}

func TestSystemControl_SetBoostRejectedWhenUnsupported(t *testing.T) {
	sc := laptop.NewSystemControl(laptopEntry(false), nil)
	err := sc.SetBoost(context.Background(), true)
	assert.Error(t, err)
}

func TestSystemControl_FanStateRefreshesFromWire(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = fanModeResponder(laptop.PowerGaming, 45)
	require.NoError(t, fake.Open("fake", true))

	hw := laptopEntry(false)
	sc := laptop.NewSystemControl(hw, func(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
		req := protocol.BuildRequest(class, id, byte(len(args)), 0xFF, 0, args)
		reply := fake.Responder(req)
		status, data, err := protocol.ParseResponse(reply, 0xFF, class, id)
		if err != nil {
			return nil, err
		}
		if status == protocol.StatusUnsupported {
			return nil, nil
		}
		return data, nil
	})

	state, err := sc.FanState(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, laptop.PowerGaming, state.Mode)
	assert.Equal(t, 4500, state.RPM)
}
