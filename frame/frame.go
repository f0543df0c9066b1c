// Package frame implements the matrix-lighting compositor: layers are
// alpha-composited into a single RGB image and shipped to hardware as one
// or more row-oriented feature reports.
package frame

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenhub/lumend/hardware"
)

// BlendMode names how a non-base layer combines with the composite built
// from the layers below it.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendScreen
	BlendMultiply
)

// RGBA is a single pixel in [0,1] per channel, matching the spec's layer
// matrix representation.
type RGBA struct {
	R, G, B, A float64
}

// RGB8 is an 8-bit-quantized pixel as shipped on the wire.
type RGB8 struct {
	R, G, B byte
}

// Layer is one renderer's output buffer plus its blend metadata. Width
// and height are write-once, set by the owning Frame at construction.
type Layer struct {
	Width, Height   int
	Matrix          [][]RGBA
	BlendMode       BlendMode
	Opacity         float64
	BackgroundColor *RGBA
	ZIndex          int
	Locked          bool
}

// NewLayer allocates a zero-initialized (transparent black) layer of the
// given dimensions.
func NewLayer(width, height int) *Layer {
	m := make([][]RGBA, height)
	for r := range m {
		m[r] = make([]RGBA, width)
	}
	return &Layer{Width: width, Height: height, Matrix: m, Opacity: 1, BlendMode: BlendNormal}
}

// CommandRunner is the narrow surface a Frame needs from a device to ship
// report bytes; device.Base implements it. Kept minimal so this package
// never imports device and cannot form an import cycle.
type CommandRunner interface {
	RunCommand(ctx context.Context, class, id byte, args []byte, tid byte, delay time.Duration, remaining uint16) ([]byte, error)
}

// FXActivator is invoked by Commit when show is true, to let the FX
// manager record that the device is now displaying a custom frame. It is
// a function rather than an interface so Frame never needs to import the
// device package that owns the FX manager.
type FXActivator func(ctx context.Context) error

// Frame owns layer creation and the per-tick commit for one device.
type Frame struct {
	Width, Height int
	hw            *hardware.Entry
	runner        CommandRunner
	activateFX    FXActivator

	cachedReport []byte
}

// New constructs a Frame bound to one device's matrix dimensions and
// command runner.
func New(width, height int, hw *hardware.Entry, runner CommandRunner, activateFX FXActivator) *Frame {
	return &Frame{Width: width, Height: height, hw: hw, runner: runner, activateFX: activateFX}
}

// CreateLayer produces a zero-initialized layer bound to this frame's
// dimensions.
func (f *Frame) CreateLayer() *Layer {
	return NewLayer(f.Width, f.Height)
}

// Compose alpha-composites layers (ascending zindex) into a single RGB8
// image. It is pure: it never touches hardware. Empty input yields
// (nil, false). Background color on any layer but the first is ignored.
func Compose(layers []*Layer) ([][]RGB8, bool) {
	if len(layers) == 0 || layers[0] == nil {
		return nil, false
	}

	base := layers[0]
	height, width := base.Height, base.Width
	acc := make([][]RGBA, height)
	for r := range acc {
		acc[r] = make([]RGBA, width)
		copy(acc[r], base.Matrix[r])
	}

	for i := 1; i < len(layers); i++ {
		l := layers[i]
		if l == nil || l.Height != height || l.Width != width {
			continue
		}
		blendOver(acc, l)
	}

	var bg RGBA
	if base.BackgroundColor != nil {
		bg = *base.BackgroundColor
	}

	out := make([][]RGB8, height)
	for r := 0; r < height; r++ {
		out[r] = make([]RGB8, width)
		for c := 0; c < width; c++ {
			out[r][c] = compositeOverBackground(acc[r][c], bg)
		}
	}
	return out, true
}

func blendOver(acc [][]RGBA, l *Layer) {
	op := l.Opacity
	for r := range acc {
		for c := range acc[r] {
			src := l.Matrix[r][c]
			switch l.BlendMode {
			case BlendScreen:
				src.R = 1 - (1-acc[r][c].R)*(1-src.R)
				src.G = 1 - (1-acc[r][c].G)*(1-src.G)
				src.B = 1 - (1-acc[r][c].B)*(1-src.B)
			case BlendMultiply:
				src.R *= acc[r][c].R
				src.G *= acc[r][c].G
				src.B *= acc[r][c].B
			}
			a := src.A * op
			acc[r][c].R = acc[r][c].R*(1-a) + src.R*a
			acc[r][c].G = acc[r][c].G*(1-a) + src.G*a
			acc[r][c].B = acc[r][c].B*(1-a) + src.B*a
			acc[r][c].A = acc[r][c].A*(1-a) + a
		}
	}
}

func compositeOverBackground(p RGBA, bg RGBA) RGB8 {
	a := p.A
	r := p.R*a + bg.R*(1-a)
	g := p.G*a + bg.G*(1-a)
	b := p.B*a + bg.B*(1-a)
	return RGB8{quantize(r), quantize(g), quantize(b)}
}

func quantize(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}

// Commit composes layers, writes the result to hardware, and — if show
// is true — activates the custom-frame effect so the matrix becomes
// visible.
func (f *Frame) Commit(ctx context.Context, layers []*Layer, frameID byte, show bool) error {
	img, ok := Compose(layers)
	if !ok {
		return fmt.Errorf("frame: nothing to compose")
	}
	if err := f.setFrameData(ctx, img, frameID); err != nil {
		return err
	}
	if show && f.activateFX != nil {
		return f.activateFX(ctx)
	}
	return nil
}

// Reset commits an all-zero layer with show=false.
func (f *Frame) Reset(ctx context.Context) error {
	return f.Commit(ctx, []*Layer{f.CreateLayer()}, 0xFF, false)
}
