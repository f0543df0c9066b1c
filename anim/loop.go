// Package anim implements the soft-real-time animation loop: a
// multi-producer/single-consumer pipeline that composites N renderers'
// layers in zindex order and commits one frame per tick, bounded at
// MaxFPS.
package anim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/internal/util"
	"github.com/lumenhub/lumend/render"
)

// MaxFPS bounds the loop's own tick rate, independent of any individual
// renderer's fps.
const MaxFPS = 30

// LayersChangedEvent is fired on add/remove.
type LayersChangedEvent struct {
	Action   string // "add" or "remove"
	ZIndex   int
	Renderer render.Renderer
}

// TraitsChangedEvent is fired when a running renderer's trait is edited.
type TraitsChangedEvent struct {
	ZIndex    int
	NewValues map[string]any
	Field     string
	OldValue  any
}

// PowerState mirrors device.Base's brightness/suspend signal payload.
type PowerState struct {
	Brightness float64
	Suspended  bool
}

// Loop drives the per-device animation pipeline.
type Loop struct {
	frame *frame.Frame

	mu      sync.Mutex
	layers  []*LayerHolder
	running bool
	paused  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	errored bool
	onError func()

	pauseGate chan struct{}

	StateChanged  util.Signal[string]
	LayersChanged util.Signal[LayersChangedEvent]
	TraitsChanged util.Signal[TraitsChangedEvent]
}

// New constructs a Loop bound to f. onError, if non-nil, is invoked once
// when a commit fails and the loop stops, so the device can schedule a
// Reset() on next start.
func New(f *frame.Frame, onError func()) *Loop {
	gate := make(chan struct{})
	close(gate) // start open (unpaused)
	return &Loop{frame: f, onError: onError, pauseGate: gate}
}

// AddLayer constructs a LayerHolder for renderer, inserts it at zindex
// (append if negative or past the end), renumbers every layer's zindex
// by position, and — if the loop is running — starts its
// producer immediately. Returns an error if the renderer's Init fails.
func (l *Loop) AddLayer(renderer render.Renderer, zindex int) (*LayerHolder, error) {
	ok, err := renderer.Init(l.frame)
	if err != nil {
		return nil, fmt.Errorf("anim: renderer init: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("anim: renderer declined to initialize")
	}

	l.mu.Lock()
	if zindex < 0 || zindex > len(l.layers) {
		zindex = len(l.layers)
	}
	holder := newLayerHolder(renderer, l.frame, zindex)
	l.layers = append(l.layers, nil)
	copy(l.layers[zindex+1:], l.layers[zindex:])
	l.layers[zindex] = holder
	l.renumberLocked()
	running := l.running
	ctx := l.ctx
	l.mu.Unlock()

	if running {
		holder.start(ctx)
	}

	l.LayersChanged.Fire(LayersChangedEvent{Action: "add", ZIndex: holder.ZIndex, Renderer: renderer})
	return holder, nil
}

// RemoveLayer stops and removes the holder at zindex.
func (l *Loop) RemoveLayer(zindex int) error {
	l.mu.Lock()
	idx := -1
	for i, h := range l.layers {
		if h.ZIndex == zindex {
			idx = i
			break
		}
	}
	if idx == -1 {
		l.mu.Unlock()
		return fmt.Errorf("anim: no layer at zindex %d", zindex)
	}
	holder := l.layers[idx]
	l.layers = append(l.layers[:idx], l.layers[idx+1:]...)
	l.renumberLocked()
	l.mu.Unlock()

	holder.stop()
	holder.Renderer.Finish(l.frame)

	l.LayersChanged.Fire(LayersChangedEvent{Action: "remove", ZIndex: zindex})
	return nil
}

func (l *Loop) renumberLocked() {
	sort.SliceStable(l.layers, func(i, j int) bool { return l.layers[i].ZIndex < l.layers[j].ZIndex })
	for i, h := range l.layers {
		h.ZIndex = i
	}
}

// Start begins the main compositing goroutine. No-op if already running.
func (l *Loop) Start(parent context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	l.ctx, l.cancel = ctx, cancel
	l.running = true
	l.errored = false
	for _, h := range l.layers {
		h.start(ctx)
	}
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(ctx)

	l.StateChanged.Fire("running")
}

// Stop cancels the main loop and every layer holder's producer, awaits
// the main loop's exit, then stops the holders in reverse order. Layers
// stay in the list and Finish is not called on their renderers, so a
// later Start resumes them.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	layers := append([]*LayerHolder(nil), l.layers...)
	l.mu.Unlock()

	cancel()
	l.wg.Wait()

	for i := len(layers) - 1; i >= 0; i-- {
		layers[i].stop()
	}

	l.StateChanged.Fire("stopped")
}

// Pause(true) blocks the main tick at its gate; Pause(false) releases
// it. Either transition fires StateChanged.
func (l *Loop) Pause(pause bool) {
	l.mu.Lock()
	if pause == l.paused {
		l.mu.Unlock()
		return
	}
	l.paused = pause
	if pause {
		l.pauseGate = make(chan struct{})
	} else {
		close(l.pauseGate)
	}
	l.mu.Unlock()

	if pause {
		l.StateChanged.Fire("paused")
	} else {
		l.StateChanged.Fire("running")
	}
}

// OnPowerStateChanged mirrors suspended onto paused, per the spec's
// power-coupling rule.
func (l *Loop) OnPowerStateChanged(ps PowerState) {
	l.Pause(ps.Suspended)
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	ticker := util.NewTicker(time.Second / MaxFPS)

	for {
		l.mu.Lock()
		gate := l.pauseGate
		l.mu.Unlock()

		select {
		case <-gate:
		case <-ctx.Done():
			return
		}

		if err := ticker.Tick(ctx); err != nil {
			return
		}

		l.mu.Lock()
		layers := append([]*LayerHolder(nil), l.layers...)
		l.mu.Unlock()

		bufs := make([]*frame.Layer, 0, len(layers))
		for _, h := range layers {
			if buf := h.Current(); buf != nil {
				buf.BlendMode = h.BlendMode
				buf.Opacity = h.Opacity
				buf.ZIndex = h.ZIndex
				bufs = append(bufs, buf)
			}
		}
		if len(bufs) == 0 {
			continue
		}

		if err := l.frame.Commit(ctx, bufs, 0xFF, true); err != nil {
			l.mu.Lock()
			l.errored = true
			l.running = false
			l.mu.Unlock()
			if l.onError != nil {
				l.onError()
			}
			return
		}
	}
}

// Errored reports whether the loop stopped due to a commit failure.
func (l *Loop) Errored() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errored
}

// Running reports whether the main loop goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Paused reports whether the loop is currently gated by Pause(true).
func (l *Loop) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Layers returns a zindex-ordered snapshot of the current layer
// holders, for callers (the control API's device resource view) that
// need to list what's composited without reaching into the loop's
// internals.
func (l *Loop) Layers() []*LayerHolder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*LayerHolder(nil), l.layers...)
}
