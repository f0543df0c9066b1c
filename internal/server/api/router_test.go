package api_test

import (
	"log/slog"
	"testing"

	api "github.com/lumenhub/lumend/internal/server/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_MatchesParamSegments(t *testing.T) {
	r := api.NewRouter()
	var gotParams map[string]string
	r.Register("/devices/{key}/setfx", func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		gotParams = req.Params
		return nil
	})

	h, params := r.Match("/devices/kbd-1/setfx")
	require.NotNil(t, h)
	assert.Equal(t, "kbd-1", params["key"])

	require.NoError(t, h(&api.Request{Params: params}, &api.Response{}, slog.Default()))
	assert.Equal(t, "kbd-1", gotParams["key"])
}

func TestRouter_NoMatch(t *testing.T) {
	r := api.NewRouter()
	r.Register("/devices/{key}", func(*api.Request, *api.Response, *slog.Logger) error { return nil })

	h, params := r.Match("/devices/a/b/c")
	assert.Nil(t, h)
	assert.Nil(t, params)
}

func TestRouter_StaticSegmentMustMatch(t *testing.T) {
	r := api.NewRouter()
	r.Register("/devices/{key}/setfx", func(*api.Request, *api.Response, *slog.Logger) error { return nil })

	h, _ := r.Match("/devices/kbd-1/setled")
	assert.Nil(t, h)
}

func TestRouter_CaseInsensitivePath(t *testing.T) {
	r := api.NewRouter()
	r.Register("/Devices", func(*api.Request, *api.Response, *slog.Logger) error { return nil })

	h, _ := r.Match("/DEVICES")
	assert.NotNil(t, h)
}
