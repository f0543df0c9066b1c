// Package static implements the simplest renderer: a single solid color
// fill of the whole matrix, redrawn only when the color changes.
package static

import (
	"context"
	"sync"
	"time"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/render"
)

func init() {
	render.Register(render.Registration{
		Key: "static",
		Meta: render.Meta{
			DisplayName: "Static",
			Description: "Solid color fill",
			Author:      "lumend",
			Version:     "1.0",
		},
		New: func() render.Renderer { return New() },
	})
}

// Static fills every pixel with Color until it changes.
type Static struct {
	render.BaseTraits

	mu      sync.Mutex
	Color   frame.RGBA
	drawn   bool
	lastCol frame.RGBA
}

// New returns a Static renderer defaulting to opaque white.
func New() *Static {
	return &Static{BaseTraits: render.NewBaseTraits(), Color: frame.RGBA{R: 1, G: 1, B: 1, A: 1}}
}

func (s *Static) Meta() render.Meta {
	reg, _ := render.Get("static")
	return reg.Meta
}

func (s *Static) Init(f *frame.Frame) (bool, error) {
	s.Height, s.Width = f.Height, f.Width
	return true, nil
}

func (s *Static) Draw(ctx context.Context, layer *frame.Layer, _ time.Time) (bool, error) {
	if err := s.Pace(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	col := s.Color
	dirty := !s.drawn || col != s.lastCol
	s.lastCol = col
	s.drawn = true
	s.mu.Unlock()

	if !dirty {
		return false, nil
	}
	for r := range layer.Matrix {
		for c := range layer.Matrix[r] {
			layer.Matrix[r][c] = col
		}
	}
	return true, nil
}

func (s *Static) Finish(*frame.Frame) {}
