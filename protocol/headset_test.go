package protocol_test

import (
	"context"
	"testing"
	"time"

	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHeadsetRequest_Layout(t *testing.T) {
	buf := protocol.BuildHeadsetRequest(protocol.HeadsetCommand{
		Destination: protocol.HeadsetReadEEPROM,
		Length:      2,
		Address:     0x0030,
	}, nil)

	require.Len(t, buf, protocol.HeadsetReportOut)
	assert.Equal(t, protocol.HeadsetReadEEPROM, buf[0])
	assert.Equal(t, byte(2), buf[1])
	assert.Equal(t, byte(0x00), buf[2])
	assert.Equal(t, byte(0x30), buf[3])
}

func TestBuildHeadsetRequest_AddressIsBigEndian(t *testing.T) {
	buf := protocol.BuildHeadsetRequest(protocol.HeadsetCommand{Address: 0x172D}, nil)
	assert.Equal(t, byte(0x17), buf[2])
	assert.Equal(t, byte(0x2D), buf[3])
}

func TestHeadsetTransport_Read(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = func(written []byte) []byte {
		reply := make([]byte, protocol.HeadsetReportIn)
		reply[0] = 5
		reply[1] = 0x01
		reply[2] = 0x05
		return reply
	}
	require.NoError(t, fake.Open("fake", true))

	tr := &protocol.HeadsetTransport{Adapter: fake, DeviceKey: "hs1"}
	data, err := tr.Read(context.Background(), protocol.HeadsetCommand{
		Destination: protocol.HeadsetReadEEPROM,
		Length:      2,
		Address:     0x0030,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x05}, data)
}

func TestHeadsetTransport_ReadRejectsWrongReportID(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = func(written []byte) []byte {
		reply := make([]byte, protocol.HeadsetReportIn)
		reply[0] = 9
		return reply
	}
	require.NoError(t, fake.Open("fake", true))

	tr := &protocol.HeadsetTransport{Adapter: fake, DeviceKey: "hs1"}
	_, err := tr.Read(context.Background(), protocol.HeadsetCommand{Length: 1}, nil)
	assert.Error(t, err)
}

func TestHeadsetTransport_PacesSuccessiveCommands(t *testing.T) {
	fake := hid.NewFake()
	fake.Responder = func(written []byte) []byte {
		return make([]byte, protocol.HeadsetReportIn)
	}
	require.NoError(t, fake.Open("fake", true))

	tr := &protocol.HeadsetTransport{Adapter: fake, DeviceKey: "hs1"}
	start := time.Now()
	require.NoError(t, tr.Write(context.Background(), protocol.HeadsetCommand{Length: 1}, nil))
	require.NoError(t, tr.Write(context.Background(), protocol.HeadsetCommand{Length: 1}, nil))
	assert.GreaterOrEqual(t, time.Since(start), protocol.HeadsetDelay)
}
