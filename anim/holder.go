package anim

import (
	"context"
	"sync"
	"time"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/render"
)

// NumBuffers is the fixed depth of each layer holder's double-buffered
// pipeline: one buffer may be mid-draw by the renderer while another is
// the most recently composited frame.
const NumBuffers = 2

// LayerHolder owns one renderer's buffer pipeline. free starts full of
// NumBuffers preallocated layers; the renderer's producer goroutine pops
// from free, draws, and pushes completed buffers into active. A
// collector goroutine moves active buffers into current, returning the
// previous current to free, preserving
// len(free)+len(active)+(current!=nil) == NumBuffers at every quiescent
// point.
type LayerHolder struct {
	Renderer  render.Renderer
	BlendMode frame.BlendMode
	Opacity   float64
	ZIndex    int

	// Key is the registry key the renderer was constructed from. It is
	// informational only (set by the caller after AddLayer returns) and
	// lets the control API report which renderer backs each layer
	// without keeping a side table.
	Key string

	free   chan *frame.Layer
	active chan *frame.Layer

	mu      sync.Mutex
	current *frame.Layer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newLayerHolder(r render.Renderer, f *frame.Frame, zindex int) *LayerHolder {
	h := &LayerHolder{
		Renderer: r,
		Opacity:  1,
		ZIndex:   zindex,
		free:     make(chan *frame.Layer, NumBuffers),
		active:   make(chan *frame.Layer, NumBuffers),
	}
	for i := 0; i < NumBuffers; i++ {
		h.free <- f.CreateLayer()
	}
	return h
}

// start launches the producer and collector goroutines under a child
// context of ctx.
func (h *LayerHolder) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	h.wg.Add(2)
	go h.pump(ctx)
	go h.collect(ctx)
}

func (h *LayerHolder) stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

func (h *LayerHolder) pump(ctx context.Context) {
	defer h.wg.Done()
	for {
		var buf *frame.Layer
		select {
		case buf = <-h.free:
		case <-ctx.Done():
			return
		}

		ok, err := h.Renderer.Draw(ctx, buf, time.Now())
		if err != nil || !ok {
			select {
			case h.free <- buf:
			case <-ctx.Done():
			}
			if err != nil {
				return
			}
			continue
		}

		select {
		case h.active <- buf:
		case <-ctx.Done():
			return
		}
	}
}

func (h *LayerHolder) collect(ctx context.Context) {
	defer h.wg.Done()
	for {
		select {
		case buf := <-h.active:
			h.mu.Lock()
			old := h.current
			h.current = buf
			h.mu.Unlock()
			if old != nil {
				select {
				case h.free <- old:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Current returns the most recently collected buffer, or nil if the
// renderer has not produced one yet.
func (h *LayerHolder) Current() *frame.Layer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// queueDepth reports (free, active, hasCurrent) for tests verifying the
// loop invariant.
func (h *LayerHolder) queueDepth() (int, int, bool) {
	h.mu.Lock()
	hasCurrent := h.current != nil
	h.mu.Unlock()
	return len(h.free), len(h.active), hasCurrent
}
