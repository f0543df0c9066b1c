// Package prefs persists per-device-serial preference records to a
// user-scoped JSON store and notifies observers on every mutation, so
// subsystems (LEDs, FX, animation layers) can write their state back
// without each owning file I/O.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lumenhub/lumend/internal/configpaths"
	"github.com/lumenhub/lumend/internal/util"
)

// Record is the persisted shape for one device serial.
type Record struct {
	Brightness *float64          `json:"brightness,omitempty"`
	FX         *string           `json:"fx,omitempty"`
	FXArgs     map[string]any    `json:"fx_args,omitempty"`
	LEDs       map[string]any    `json:"leds,omitempty"`
	Layers     []LayerPref       `json:"layers,omitempty"`
	PowerMode  *string           `json:"power_mode,omitempty"`
}

// LayerPref is one entry of the ordered layers list: the fully-qualified
// renderer type name plus its config-tagged trait bag.
type LayerPref struct {
	RendererKey string         `json:"renderer_key"`
	Traits      map[string]any `json:"traits"`
}

// Config owns one serial's Record plus an observer set. Mutations made
// through Update fire every connected observer with a snapshot of the
// whole record, unless observers are paused via ObserversPaused.
type Config struct {
	mu       sync.Mutex
	serial   string
	path     string
	record   Record
	paused   bool
	changed  util.Signal[Record]
}

// Load reads (or initializes empty) the preference record for serial from
// the default preferences directory.
func Load(serial string) (*Config, error) {
	dir, err := configpaths.DefaultPrefsDir()
	if err != nil {
		return nil, fmt.Errorf("prefs: resolve directory: %w", err)
	}
	return LoadFromDir(dir, serial)
}

// LoadFromDir is Load with an explicit base directory, used by tests.
func LoadFromDir(dir, serial string) (*Config, error) {
	path := filepath.Join(dir, sanitize(serial)+".json")
	c := &Config{serial: serial, path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("prefs: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.record); err != nil {
		return nil, fmt.Errorf("prefs: parse %s: %w", path, err)
	}
	return c, nil
}

// Snapshot returns a copy of the current record.
func (c *Config) Snapshot() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Update applies fn to the record under lock, persists it, and — unless
// observers are currently paused — fires the change signal with the new
// snapshot.
func (c *Config) Update(fn func(*Record)) error {
	c.mu.Lock()
	fn(&c.record)
	snap := c.record
	paused := c.paused
	c.mu.Unlock()

	if err := c.persist(snap); err != nil {
		return err
	}
	if !paused {
		c.changed.Fire(snap)
	}
	return nil
}

// Delete removes the persisted record file for this serial, if any. It
// does not reset the in-memory snapshot or fire observers.
func (c *Config) Delete() error {
	c.mu.Lock()
	path := c.path
	c.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("prefs: delete %s: %w", path, err)
	}
	return nil
}

func (c *Config) persist(r Record) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("prefs: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: marshal: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("prefs: write %s: %w", c.path, err)
	}
	return nil
}

// OnChange registers an observer invoked with a snapshot after every
// unpaused Update.
func (c *Config) OnChange(fn func(Record)) util.Handle {
	return c.changed.Connect(fn)
}

// ObserversPaused suppresses change notifications for the duration of a
// bulk restore and returns a function; calling it resumes notification
// (without itself firing one).
func (c *Config) ObserversPaused() func() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.paused = false
		c.mu.Unlock()
	}
}

func sanitize(serial string) string {
	b := []byte(serial)
	out := make([]byte, 0, len(b))
	for _, ch := range b {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "unknown"
	}
	return string(out)
}
