// Package spectrum implements a whole-matrix hue cycle: every pixel
// shares one hue that advances each tick, grounded on the original
// uchroma spectrum effect.
package spectrum

import (
	"context"
	"math"
	"time"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/render"
)

const defaultSpeed = 4 // hue degrees advanced per tick

func init() {
	render.Register(render.Registration{
		Key: "spectrum",
		Meta: render.Meta{
			DisplayName: "Spectrum",
			Description: "Cycles the whole matrix through the color wheel",
			Author:      "lumend",
			Version:     "1.0",
		},
		New: func() render.Renderer { return New() },
	})
}

// Spectrum cycles every pixel through the same hue at Speed degrees per
// tick.
type Spectrum struct {
	render.BaseTraits

	Speed float64
	hue   float64
}

// New returns a Spectrum renderer at the default speed.
func New() *Spectrum {
	return &Spectrum{BaseTraits: render.NewBaseTraits(), Speed: defaultSpeed}
}

func (s *Spectrum) Meta() render.Meta {
	reg, _ := render.Get("spectrum")
	return reg.Meta
}

func (s *Spectrum) Init(f *frame.Frame) (bool, error) {
	s.Height, s.Width = f.Height, f.Width
	return true, nil
}

func (s *Spectrum) Draw(ctx context.Context, layer *frame.Layer, _ time.Time) (bool, error) {
	if err := s.Pace(ctx); err != nil {
		return false, err
	}

	col := hsvToRGBA(s.hue)
	s.hue = math.Mod(s.hue+s.Speed, 360)

	for r := range layer.Matrix {
		for c := range layer.Matrix[r] {
			layer.Matrix[r][c] = col
		}
	}
	return true, nil
}

func (s *Spectrum) Finish(*frame.Frame) {}

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
