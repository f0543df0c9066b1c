package hid

import (
	"errors"
	"sync"
	"time"
)

// Fake is an in-memory Adapter used by tests. Responder, if set, is
// invoked synchronously on SendFeatureReport to queue up the bytes the
// next GetFeatureReport call(s) should return.
type Fake struct {
	mu        sync.Mutex
	open      bool
	Writes    [][]byte
	Responder func(written []byte) []byte
	nextReply []byte
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Open(path string, blocking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *Fake) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Fake) Write(b []byte, reportID byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), b...)
	f.Writes = append(f.Writes, cp)
	return len(b), nil
}

func (f *Fake) Read(size int, timeout time.Duration) ([]byte, error) {
	return nil, errors.New("hid: fake does not support interrupt reads")
}

func (f *Fake) SendFeatureReport(b []byte, reportID byte) (int, error) {
	f.mu.Lock()
	cp := append([]byte(nil), b...)
	f.Writes = append(f.Writes, cp)
	responder := f.Responder
	f.mu.Unlock()

	if responder != nil {
		reply := responder(cp)
		f.mu.Lock()
		f.nextReply = reply
		f.mu.Unlock()
	}
	return len(b), nil
}

func (f *Fake) GetFeatureReport(reportID byte, size int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nextReply == nil {
		return make([]byte, size), nil
	}
	reply := f.nextReply
	f.nextReply = nil
	if len(reply) > size {
		reply = reply[:size]
	}
	out := make([]byte, size)
	copy(out, reply)
	return out, nil
}

func (f *Fake) SetNonblocking(nonblocking bool) error { return nil }
