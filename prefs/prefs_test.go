package prefs_test

import (
	"path/filepath"
	"testing"

	"github.com/lumenhub/lumend/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDir_MissingFileIsEmptyRecord(t *testing.T) {
	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "SERIAL123")
	require.NoError(t, err)
	assert.Equal(t, prefs.Record{}, cfg.Snapshot())
}

func TestUpdate_PersistsAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "SERIAL123")
	require.NoError(t, err)

	brightness := 0.5
	require.NoError(t, cfg.Update(func(r *prefs.Record) {
		r.Brightness = &brightness
		r.LEDs = map[string]any{"backlight": map[string]any{"brightness": 40.0}}
	}))

	reloaded, err := prefs.LoadFromDir(dir, "SERIAL123")
	require.NoError(t, err)
	snap := reloaded.Snapshot()
	require.NotNil(t, snap.Brightness)
	assert.InDelta(t, 0.5, *snap.Brightness, 0.0001)
	assert.Equal(t, map[string]any{"backlight": map[string]any{"brightness": 40.0}}, snap.LEDs)
}

func TestUpdate_FiresObserverUnlessPaused(t *testing.T) {
	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "SERIAL123")
	require.NoError(t, err)

	var fired []prefs.Record
	cfg.OnChange(func(r prefs.Record) { fired = append(fired, r) })

	require.NoError(t, cfg.Update(func(r *prefs.Record) {
		mode := "gaming"
		r.PowerMode = &mode
	}))
	assert.Len(t, fired, 1)

	resume := cfg.ObserversPaused()
	require.NoError(t, cfg.Update(func(r *prefs.Record) {
		mode := "creator"
		r.PowerMode = &mode
	}))
	assert.Len(t, fired, 1, "paused update must not fire observers")
	resume()

	require.NoError(t, cfg.Update(func(r *prefs.Record) {
		mode := "balanced"
		r.PowerMode = &mode
	}))
	assert.Len(t, fired, 2, "update after resume must fire again")
}

func TestDelete_RemovesPersistedFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "SERIAL123")
	require.NoError(t, err)

	require.NoError(t, cfg.Update(func(r *prefs.Record) {
		fx := "static"
		r.FX = &fx
	}))

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	require.NoError(t, cfg.Delete())

	matches, err = filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Deleting again (file already gone) must not error.
	require.NoError(t, cfg.Delete())
}

func TestSanitize_SerialWithUnsafeCharacters(t *testing.T) {
	dir := t.TempDir()
	cfg, err := prefs.LoadFromDir(dir, "../../etc/passwd")
	require.NoError(t, err)
	require.NoError(t, cfg.Update(func(r *prefs.Record) {
		mode := "gaming"
		r.PowerMode = &mode
	}))

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.NotContains(t, matches[0], "..")
}
