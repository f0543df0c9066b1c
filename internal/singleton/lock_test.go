package singleton_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lumenhub/lumend/internal/singleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SecondAcquireFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumend.lock")

	first, err := singleton.Acquire(path)
	require.NoError(t, err)
	defer first.Release()

	_, err = singleton.Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, singleton.ErrHeld))
}

func TestAcquire_ReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumend.lock")

	first, err := singleton.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := singleton.Acquire(path)
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}
