// Package rainbow implements a scrolling per-column hue gradient,
// grounded directly on uchroma/fxlib/rainbow.py's Rainbow effect.
package rainbow

import (
	"context"
	"math"
	"time"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/render"
)

const (
	defaultSpeed   = 8
	defaultStagger = 4
)

func init() {
	render.Register(render.Registration{
		Key: "rainbow",
		Meta: render.Meta{
			DisplayName: "Rainflow",
			Description: "Simple flowing colors",
			Author:      "lumend",
			Version:     "1.0",
		},
		New: func() render.Renderer { return New() },
	})
}

// Rainbow advances a per-column hue gradient one step each tick; Stagger
// offsets the gradient per row so the pattern appears to flow
// diagonally.
type Rainbow struct {
	render.BaseTraits

	Speed, Stagger int

	gradient []frame.RGBA
	offset   int
}

// New returns a Rainbow renderer at the default speed/stagger.
func New() *Rainbow {
	return &Rainbow{BaseTraits: render.NewBaseTraits(), Speed: defaultSpeed, Stagger: defaultStagger}
}

func (r *Rainbow) Meta() render.Meta {
	reg, _ := render.Get("rainbow")
	return reg.Meta
}

func (r *Rainbow) Init(f *frame.Frame) (bool, error) {
	r.Height, r.Width = f.Height, f.Width
	r.buildGradient()
	return true, nil
}

func (r *Rainbow) buildGradient() {
	length := r.Speed*r.Width + r.Height*r.Stagger
	if length <= 0 {
		length = 1
	}
	r.gradient = make([]frame.RGBA, length)
	step := 360.0 / float64(length)
	for i := range r.gradient {
		r.gradient[i] = hsvToRGBA(step * float64(i))
	}
	r.offset = 0
}

func (r *Rainbow) Draw(ctx context.Context, layer *frame.Layer, _ time.Time) (bool, error) {
	if err := r.Pace(ctx); err != nil {
		return false, err
	}
	if len(r.gradient) == 0 {
		r.buildGradient()
	}

	n := len(r.gradient)
	for row := range layer.Matrix {
		for col := range layer.Matrix[row] {
			idx := (r.offset + row*r.Stagger + col) % n
			layer.Matrix[row][col] = r.gradient[idx]
		}
	}
	r.offset = (r.offset + 1) % n
	return true, nil
}

func (r *Rainbow) Finish(*frame.Frame) {}

func hsvToRGBA(hue float64) frame.RGBA {
	h := hue / 60
	i := math.Floor(h)
	f := h - i
	q := 1 - f
	switch int(i) % 6 {
	case 0:
		return frame.RGBA{R: 1, G: f, B: 0, A: 1}
	case 1:
		return frame.RGBA{R: q, G: 1, B: 0, A: 1}
	case 2:
		return frame.RGBA{R: 0, G: 1, B: f, A: 1}
	case 3:
		return frame.RGBA{R: 0, G: q, B: 1, A: 1}
	case 4:
		return frame.RGBA{R: f, G: 0, B: 1, A: 1}
	default:
		return frame.RGBA{R: 1, G: 0, B: q, A: 1}
	}
}
