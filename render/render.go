// Package render defines the animation-producer contract: a renderer
// fills one layer's matrix per tick at a bounded, user-tunable frame
// rate. Concrete renderers self-register at init() time, the same
// plugin-discovery idiom the teacher uses for its device-type registry.
package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/internal/util"
)

// Meta is a renderer's immutable identity, shown to clients choosing
// between available renderers.
type Meta struct {
	DisplayName string
	Description string
	Author      string
	Version     string
}

// Renderer is an animation producer. Concrete implementations allocate
// any model-sized buffers in Init and fill one layer's matrix per Draw.
type Renderer interface {
	Meta() Meta
	// Init is called once by the animation loop after traits are set.
	Init(f *frame.Frame) (bool, error)
	// Draw fills layer's matrix for one tick. Returning false means no
	// new buffer should be enqueued this tick.
	Draw(ctx context.Context, layer *frame.Layer, timestamp time.Time) (bool, error)
	Finish(f *frame.Frame)
}

// BaseTraits holds the standard properties every renderer exposes,
// embedded by concrete renderer types.
type BaseTraits struct {
	mu              sync.Mutex
	fps             int
	BlendMode       frame.BlendMode
	Opacity         float64
	BackgroundColor *frame.RGBA
	Height, Width   int
	ZIndex          int

	ticker *util.Ticker
}

const (
	defaultFPS = 15
	maxFPS     = 30
)

// NewBaseTraits returns BaseTraits at the default fps (15) and full
// opacity.
func NewBaseTraits() BaseTraits {
	return BaseTraits{fps: defaultFPS, Opacity: 1, ticker: util.NewTicker(time.Second / defaultFPS)}
}

// FPS returns the current frames-per-second cap.
func (b *BaseTraits) FPS() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fps
}

// SetFPS updates the pacing ticker live; values outside [0,30] are
// clamped.
func (b *BaseTraits) SetFPS(fps int) {
	if fps < 0 {
		fps = 0
	}
	if fps > maxFPS {
		fps = maxFPS
	}
	b.mu.Lock()
	b.fps = fps
	b.mu.Unlock()
	if fps == 0 {
		b.ticker.SetInterval(0)
		return
	}
	b.ticker.SetInterval(time.Second / time.Duration(fps))
}

// Pace blocks until the next tick is due per the current fps.
func (b *BaseTraits) Pace(ctx context.Context) error {
	if b.ticker == nil {
		b.ticker = util.NewTicker(time.Second / defaultFPS)
	}
	return b.ticker.Tick(ctx)
}

// Registration is a self-registered renderer factory, analogous to the
// teacher's DeviceRegistration for its own USB device types.
type Registration struct {
	Key  string
	Meta Meta
	New  func() Renderer
}

var (
	mu       sync.RWMutex
	registry = map[string]Registration{}
)

// Register adds a renderer factory under key. Called from renderer
// package init() functions.
func Register(reg Registration) {
	mu.Lock()
	defer mu.Unlock()
	registry[reg.Key] = reg
}

// Get looks up a registered renderer factory by key.
func Get(key string) (Registration, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := registry[key]
	return r, ok
}

// New constructs a fresh renderer instance for key.
func New(key string) (Renderer, error) {
	reg, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("render: unknown renderer %q", key)
	}
	return reg.New(), nil
}

// Available lists every registered renderer key.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	return keys
}
