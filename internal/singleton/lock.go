// Package singleton enforces that only one lumend daemon owns the
// connected devices at a time, per spec.md §5 ("no cross-process
// locking: only one daemon owns the devices" — enforced here rather
// than left unenforced).
package singleton

import (
	"fmt"
	"os"
)

// Lock holds an exclusive, advisory lock on a file for the lifetime of
// the process. Release drops it.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) the lock file at path and takes an
// exclusive, non-blocking lock on it. It returns ErrHeld if another
// process already holds it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("singleton: open lock file: %w", err)
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Release unlocks and closes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ErrHeld is returned by Acquire when another process already holds the
// lock.
var ErrHeld = fmt.Errorf("singleton: another lumend instance is already running")
