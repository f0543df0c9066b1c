package hid

import (
	"errors"
	"fmt"
	"sync"
	"time"

	gohid "github.com/sstallion/go-hid"
)

var (
	initOnce sync.Once
	initErr  error
)

// ensureInit lazily initializes the underlying hidapi library exactly
// once per process.
func ensureInit() error {
	initOnce.Do(func() {
		initErr = gohid.Init()
	})
	return initErr
}

// realAdapter is the production Adapter backed by github.com/sstallion/go-hid.
type realAdapter struct {
	mu   sync.Mutex
	dev  *gohid.Device
	path string
}

// NewAdapter constructs an unopened Adapter.
func NewAdapter() Adapter {
	return &realAdapter{}
}

func (a *realAdapter) Open(path string, blocking bool) error {
	if err := ensureInit(); err != nil {
		return fmt.Errorf("hid: init: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dev != nil {
		return nil
	}
	dev, err := gohid.OpenPath(path)
	if err != nil {
		return fmt.Errorf("hid: open %s: %w", path, err)
	}
	if !blocking {
		_ = dev.SetNonblock(1)
	}
	a.dev = dev
	a.path = path
	return nil
}

func (a *realAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev == nil {
		return nil
	}
	err := a.dev.Close()
	a.dev = nil
	return err
}

func (a *realAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev != nil
}

func (a *realAdapter) Write(b []byte, reportID byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev == nil {
		return 0, errors.New("hid: device not open")
	}
	buf := append([]byte{reportID}, b...)
	return a.dev.Write(buf)
}

func (a *realAdapter) Read(size int, timeout time.Duration) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev == nil {
		return nil, errors.New("hid: device not open")
	}
	buf := make([]byte, size)
	n, err := a.dev.ReadWithTimeout(buf, int(timeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (a *realAdapter) SendFeatureReport(b []byte, reportID byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev == nil {
		return 0, errors.New("hid: device not open")
	}
	buf := append([]byte{reportID}, b...)
	return a.dev.SendFeatureReport(buf)
}

func (a *realAdapter) GetFeatureReport(reportID byte, size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev == nil {
		return nil, errors.New("hid: device not open")
	}
	buf := make([]byte, size+1)
	buf[0] = reportID
	n, err := a.dev.GetFeatureReport(buf)
	if err != nil {
		return nil, err
	}
	// Platforms that prepend the report id to the returned buffer leave
	// it at offset 0; strip it so callers always see just the payload.
	if n > 0 && buf[0] == reportID {
		return buf[1:n], nil
	}
	return buf[:n], nil
}

func (a *realAdapter) SetNonblocking(nonblocking bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev == nil {
		return errors.New("hid: device not open")
	}
	v := 0
	if nonblocking {
		v = 1
	}
	return a.dev.SetNonblock(v)
}

// realEnumerator implements Enumerator over gohid.Enumerate.
type realEnumerator struct{}

// NewEnumerator constructs the production Enumerator.
func NewEnumerator() Enumerator { return realEnumerator{} }

func (realEnumerator) Enumerate(vendorID uint16) ([]DeviceInfo, error) {
	if err := ensureInit(); err != nil {
		return nil, fmt.Errorf("hid: init: %w", err)
	}

	var out []DeviceInfo
	err := gohid.Enumerate(vendorID, 0, func(info *gohid.DeviceInfo) error {
		out = append(out, DeviceInfo{
			Path:            info.Path,
			VendorID:        info.VendorID,
			ProductID:       info.ProductID,
			ReleaseNumber:   info.ReleaseNbr,
			SerialNumber:    info.SerialNbr,
			Manufacturer:    info.MfrStr,
			Product:         info.ProductStr,
			UsagePage:       info.UsagePage,
			Usage:           info.Usage,
			InterfaceNumber: info.InterfaceNbr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hid: enumerate: %w", err)
	}
	return out, nil
}
