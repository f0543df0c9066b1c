package render_test

import (
	"testing"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/render"
	"github.com/lumenhub/lumend/render/static"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTraits_PromotedAndOwnFields(t *testing.T) {
	s := static.New()

	err := render.SetTraits(s, map[string]any{
		"ZIndex":  3.0,
		"Opacity": 0.5,
		"Color":   map[string]any{"R": 0.1, "G": 0.2, "B": 0.3, "A": 1.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, s.ZIndex)
	assert.Equal(t, 0.5, s.Opacity)
	assert.Equal(t, frame.RGBA{R: 0.1, G: 0.2, B: 0.3, A: 1}, s.Color)
}

func TestSetTraits_CaseInsensitiveAndUnknownIgnored(t *testing.T) {
	s := static.New()

	err := render.SetTraits(s, map[string]any{
		"zindex":         7.0,
		"not_a_realtrait": "whatever",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, s.ZIndex)
}

func TestGetTraits_IncludesPromotedFields(t *testing.T) {
	s := static.New()
	s.ZIndex = 2
	s.Color = frame.RGBA{R: 1}

	traits := render.GetTraits(s)
	assert.Equal(t, 2, traits["ZIndex"])
	assert.Equal(t, frame.RGBA{R: 1}, traits["Color"])
	assert.NotContains(t, traits, "mu")
	assert.NotContains(t, traits, "drawn")
}
