package devicemgr_test

import (
	"context"
	"sync"
	"testing"

	"github.com/lumenhub/lumend/devicemgr"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
mouse_test:
  name: "Test Mouse"
  manufacturer: "Test"
  type: mouse
  vendor_id: "0x1532"
  product_id: "0x0001"
keyboard_test:
  name: "Test Keyboard"
  manufacturer: "Test"
  type: keyboard
  vendor_id: "0x1532"
  product_id: "0x0002"
`

type fakeEnumerator struct {
	mu    sync.Mutex
	infos []hid.DeviceInfo
}

func (f *fakeEnumerator) set(infos []hid.DeviceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = infos
}

func (f *fakeEnumerator) Enumerate(vendorID uint16) ([]hid.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]hid.DeviceInfo, 0, len(f.infos))
	for _, info := range f.infos {
		if vendorID == 0 || info.VendorID == vendorID {
			out = append(out, info)
		}
	}
	return out, nil
}

func TestManager_ScanAddsAndFiltersByInterface(t *testing.T) {
	db, err := hardware.LoadBytes([]byte(testYAML))
	require.NoError(t, err)

	enum := &fakeEnumerator{infos: []hid.DeviceInfo{
		{Path: "mouse-if0", VendorID: 0x1532, ProductID: 0x0001, InterfaceNumber: 0, SerialNumber: "S1"},
		{Path: "mouse-if1", VendorID: 0x1532, ProductID: 0x0001, InterfaceNumber: 1, SerialNumber: "S1"},
	}}

	var added []devicemgr.Entry
	m := devicemgr.New(db, devicemgr.Options{
		Enumerator: enum,
		NewAdapter: func() hid.Adapter { return hid.NewFake() },
		VendorIDs:  []uint16{0x1532},
		OnAdd:      func(e devicemgr.Entry) { added = append(added, e) },
	})

	require.NoError(t, m.Start(context.Background()))
	defer m.CloseDevices()

	require.Len(t, added, 1)
	assert.Equal(t, 0, added[0].Index)
	assert.Len(t, m.Devices(), 1)
}

func TestManager_UnknownProductIDIgnored(t *testing.T) {
	db, err := hardware.LoadBytes([]byte(testYAML))
	require.NoError(t, err)

	enum := &fakeEnumerator{infos: []hid.DeviceInfo{
		{Path: "x", VendorID: 0x1532, ProductID: 0xFFFF, InterfaceNumber: 0},
	}}

	m := devicemgr.New(db, devicemgr.Options{
		Enumerator: enum,
		NewAdapter: func() hid.Adapter { return hid.NewFake() },
	})
	require.NoError(t, m.Start(context.Background()))
	defer m.CloseDevices()

	assert.Empty(t, m.Devices())
}

func TestManager_IndexReuseAfterRemoval(t *testing.T) {
	db, err := hardware.LoadBytes([]byte(testYAML))
	require.NoError(t, err)

	enum := &fakeEnumerator{infos: []hid.DeviceInfo{
		{Path: "mouse1", VendorID: 0x1532, ProductID: 0x0001, InterfaceNumber: 1, SerialNumber: "A"},
		{Path: "kb1", VendorID: 0x1532, ProductID: 0x0002, InterfaceNumber: 2, SerialNumber: "B"},
	}}

	m := devicemgr.New(db, devicemgr.Options{
		Enumerator: enum,
		NewAdapter: func() hid.Adapter { return hid.NewFake() },
	})
	require.NoError(t, m.Start(context.Background()))
	defer m.CloseDevices()

	entries := m.Devices()
	require.Len(t, entries, 2)
	assert.ElementsMatch(t, []int{0, 1}, []int{entries[0].Index, entries[1].Index})
}
