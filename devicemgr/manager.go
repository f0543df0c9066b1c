// Package devicemgr discovers HID peripherals, dispatches each to its
// device-type-specific constructor via the registry in registry.go, and
// keeps the resulting device.Device set in sync with what's physically
// plugged in.
package devicemgr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
)

// requiredInterface returns the USB interface number a hardware type's
// control endpoint is expected on. Enumerated endpoints on any other
// interface for the same physical device are the ones used for other
// purposes (HID boot input, etc.) and are skipped.
func requiredInterface(t hardware.DeviceType) int {
	switch t {
	case hardware.TypeKeyboard, hardware.TypeKeypad, hardware.TypeLaptop:
		return 2
	case hardware.TypeMouse, hardware.TypeMousepad:
		return 1
	case hardware.TypeHeadset:
		return 3
	default:
		return 0
	}
}

// pollInterval is the default re-enumeration period for the poll-based
// hot-plug fallback.
const pollInterval = 2 * time.Second

// settleDelay gives a device's owning subsystems a moment to unwind
// before firing the remove callback, matching the "small initial delay"
// the spec calls for.
const settleDelay = 250 * time.Millisecond

// Entry pairs a live device with its assigned index and the sysPath used
// to detect unplug.
type Entry struct {
	Index   int
	SysPath string
	Device  device.Device
}

// Manager owns the full set of live devices for one daemon process. It
// is safe for concurrent use.
type Manager struct {
	db         *hardware.Database
	enumerator hid.Enumerator
	newAdapter func() hid.Adapter
	tracer     log.ProtocolTracer
	vendorIDs  []uint16
	logger     *slog.Logger

	onAdd    func(Entry)
	onRemove func(Entry)

	mu      sync.Mutex
	devices map[string]Entry // keyed by sysPath
	stop    chan struct{}
	wg      sync.WaitGroup
}

// Options configures a Manager.
type Options struct {
	Enumerator hid.Enumerator
	NewAdapter func() hid.Adapter
	Tracer     log.ProtocolTracer
	VendorIDs  []uint16
	Logger     *slog.Logger
	OnAdd      func(Entry)
	OnRemove   func(Entry)
}

// New constructs a Manager bound to db. Call Start to begin discovery.
func New(db *hardware.Database, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		db:         db,
		enumerator: opts.Enumerator,
		newAdapter: opts.NewAdapter,
		tracer:     opts.Tracer,
		vendorIDs:  opts.VendorIDs,
		logger:     opts.Logger,
		onAdd:      opts.OnAdd,
		onRemove:   opts.OnRemove,
		devices:    make(map[string]Entry),
	}
}

// Start performs an initial scan and launches the background poll loop.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.scan(ctx); err != nil {
		return err
	}
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.pollLoop(ctx)
	return nil
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.scan(ctx); err != nil {
				m.logger.Warn("devicemgr: rescan failed", "error", err)
			}
		case <-m.stop:
			return
		}
	}
}

// scan re-enumerates every configured vendor id, adds devices for newly
// seen sysPaths, and removes ones that vanished.
func (m *Manager) scan(ctx context.Context) error {
	seen := make(map[string]hid.DeviceInfo)
	vendorIDs := m.vendorIDs
	if len(vendorIDs) == 0 {
		vendorIDs = []uint16{0}
	}
	for _, vid := range vendorIDs {
		infos, err := m.enumerator.Enumerate(vid)
		if err != nil {
			return fmt.Errorf("devicemgr: enumerate: %w", err)
		}
		for _, info := range infos {
			hw, ok := m.db.Get(info.ProductID, "")
			if !ok {
				continue
			}
			if info.InterfaceNumber != requiredInterface(hw.Type) {
				continue
			}
			seen[sysPath(info)] = info
		}
	}

	m.mu.Lock()
	var toRemove []Entry
	for path, entry := range m.devices {
		if _, ok := seen[path]; !ok {
			toRemove = append(toRemove, entry)
			delete(m.devices, path)
		}
	}
	var toAdd []hid.DeviceInfo
	for path, info := range seen {
		if _, ok := m.devices[path]; !ok {
			toAdd = append(toAdd, info)
		}
	}
	m.mu.Unlock()

	for _, entry := range toRemove {
		m.removeDevice(entry)
	}
	for _, info := range toAdd {
		m.addDevice(ctx, info)
	}
	return nil
}

// sysPath approximates "which physical device does this endpoint belong
// to": HID enumeration here doesn't expose a platform device-tree
// parent, so endpoints are grouped by (vendor, product, serial) instead,
// which is stable across the multiple interfaces one physical device
// exposes.
func sysPath(info hid.DeviceInfo) string {
	return fmt.Sprintf("%04x:%04x:%s", info.VendorID, info.ProductID, info.SerialNumber)
}

func (m *Manager) addDevice(ctx context.Context, info hid.DeviceInfo) {
	hw, ok := m.db.Get(info.ProductID, "")
	if !ok {
		return
	}

	ctor := resolve(hw)
	if ctor == nil {
		ctor = func(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) device.Device {
			return device.NewGeneric(key, path, hw, adapter, tracer, prefsCfg)
		}
	}

	m.mu.Lock()
	index := m.nextIndexLocked()
	m.mu.Unlock()

	key := fmt.Sprintf("%s-%d", hw.Name, index)
	adapter := m.newAdapter()

	var prefsCfg *prefs.Config
	if cfg, err := prefs.Load(info.SerialNumber); err == nil {
		prefsCfg = cfg
	} else {
		m.logger.Warn("devicemgr: prefs load failed", "serial", info.SerialNumber, "error", err)
	}

	dev := ctor(key, info.Path, hw, adapter, m.tracer, prefsCfg)
	entry := Entry{Index: index, SysPath: sysPath(info), Device: dev}

	m.mu.Lock()
	m.devices[entry.SysPath] = entry
	m.mu.Unlock()

	m.logger.Info("devicemgr: device added", "key", key, "product_id", info.ProductID)
	if m.onAdd != nil {
		m.onAdd(entry)
	}
}

func (m *Manager) removeDevice(entry Entry) {
	time.AfterFunc(settleDelay, func() {
		if err := entry.Device.Close(); err != nil {
			m.logger.Warn("devicemgr: close on unplug failed", "error", err)
		}
		if m.onRemove != nil {
			m.onRemove(entry)
		}
	})
	m.logger.Info("devicemgr: device removed", "sys_path", entry.SysPath)
}

// nextIndexLocked returns the smallest non-negative integer not
// currently assigned to a live device. Caller must hold m.mu. The index
// is not reserved: addDevice releases the lock and inserts the entry
// into m.devices only after constructing the device.
func (m *Manager) nextIndexLocked() int {
	used := make(map[int]struct{}, len(m.devices))
	for _, e := range m.devices {
		used[e.Index] = struct{}{}
	}
	for i := 0; ; i++ {
		if _, ok := used[i]; !ok {
			return i
		}
	}
}

// Devices returns a stable-ordered snapshot of every live device.
func (m *Manager) Devices() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.devices))
	for _, e := range m.devices {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Get returns the live device with the given key, constructed as
// "{hardware name}-{index}" by addDevice. ok is false if no device
// currently carries that key.
func (m *Manager) Get(key string) (device.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.devices {
		if e.Device.DeviceKey() == key {
			return e.Device, true
		}
	}
	return nil, false
}

// CloseDevices closes every live device, stops the poll loop, and clears
// the registry. Safe to call once, at shutdown.
func (m *Manager) CloseDevices() {
	if m.stop != nil {
		close(m.stop)
	}
	m.wg.Wait()

	m.mu.Lock()
	entries := make([]Entry, 0, len(m.devices))
	for _, e := range m.devices {
		entries = append(entries, e)
	}
	m.devices = make(map[string]Entry)
	m.mu.Unlock()

	for _, e := range entries {
		if err := e.Device.Close(); err != nil {
			m.logger.Warn("devicemgr: close failed", "key", e.Device.DeviceKey(), "error", err)
		}
	}
}
