package anim_test

import (
	"context"
	"testing"
	"time"

	"github.com/lumenhub/lumend/anim"
	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct{}

func (fakeRunner) RunCommand(context.Context, byte, byte, []byte, byte, time.Duration, uint16) ([]byte, error) {
	return nil, nil
}

// renderStub is a minimal always-ready renderer used to exercise the
// loop without depending on a concrete built-in renderer.
type renderStub struct{}

func (renderStub) Meta() render.Meta                { return render.Meta{DisplayName: "stub"} }
func (renderStub) Init(*frame.Frame) (bool, error) { return true, nil }
func (renderStub) Draw(_ context.Context, layer *frame.Layer, _ time.Time) (bool, error) {
	layer.Matrix[0][0] = frame.RGBA{R: 1, A: 1}
	return true, nil
}
func (renderStub) Finish(*frame.Frame) {}

func TestAddRemoveLayer(t *testing.T) {
	f := frame.New(2, 2, nil, fakeRunner{}, nil)
	loop := anim.New(f, nil)

	holder, err := loop.AddLayer(renderStub{}, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, holder.ZIndex)

	require.NoError(t, loop.RemoveLayer(0))
}

func TestRunCompositesRunningLayers(t *testing.T) {
	f := frame.New(2, 2, nil, fakeRunner{}, nil)
	loop := anim.New(f, nil)

	_, err := loop.AddLayer(renderStub{}, -1)
	require.NoError(t, err)

	loop.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	loop.Stop()

	assert.False(t, loop.Errored())
}

func TestPauseBlocksTicks(t *testing.T) {
	f := frame.New(1, 1, nil, fakeRunner{}, nil)
	loop := anim.New(f, nil)
	loop.Pause(true)
	loop.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.False(t, loop.Errored())
	loop.Stop()
}
