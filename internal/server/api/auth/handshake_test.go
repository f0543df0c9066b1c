package auth_test

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/lumenhub/lumend/internal/server/api/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAuthHandshake(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString(auth.HandshakeMagic + "rest"))
	ok, err := auth.IsAuthHandshake(r)
	require.NoError(t, err)
	assert.True(t, ok)

	r2 := bufio.NewReader(bytes.NewBufferString("plain-command arg"))
	ok2, err := auth.IsAuthHandshake(r2)
	require.NoError(t, err)
	assert.False(t, ok2)
}

// halfDuplex connects a client-side and server-side handshake through a
// pair of io.Pipes, simulating a duplex net.Conn with two blocking
// unidirectional streams.
type halfDuplex struct {
	toServerR *io.PipeReader
	toServerW *io.PipeWriter
	toClientR *io.PipeReader
	toClientW *io.PipeWriter
}

func newHalfDuplex() *halfDuplex {
	sr, sw := io.Pipe()
	cr, cw := io.Pipe()
	return &halfDuplex{toServerR: sr, toServerW: sw, toClientR: cr, toClientW: cw}
}

func TestHandleAuthHandshake_RoundTrip(t *testing.T) {
	key := []byte("shared-secret-key")
	hd := newHalfDuplex()

	clientDone := make(chan struct {
		clientNonce, serverNonce []byte
		err                      error
	}, 1)
	go func() {
		clientNonce, serverNonce, err := auth.HandleAuthHandshake(bufio.NewReader(hd.toClientR), hd.toServerW, key, true)
		clientDone <- struct {
			clientNonce, serverNonce []byte
			err                      error
		}{clientNonce, serverNonce, err}
	}()

	serverClientNonce, serverServerNonce, err := auth.HandleAuthHandshake(bufio.NewReader(hd.toServerR), hd.toClientW, key, false)
	require.NoError(t, err)

	result := <-clientDone
	require.NoError(t, result.err)

	assert.Equal(t, result.clientNonce, serverClientNonce)
	assert.Equal(t, result.serverNonce, serverServerNonce)
}

func TestHandleAuthHandshake_WrongKeyRejected(t *testing.T) {
	hd := newHalfDuplex()

	clientErr := make(chan error, 1)
	go func() {
		_, _, err := auth.HandleAuthHandshake(bufio.NewReader(hd.toClientR), hd.toServerW, []byte("client-key"), true)
		clientErr <- err
	}()

	_, _, err := auth.HandleAuthHandshake(bufio.NewReader(hd.toServerR), hd.toClientW, []byte("server-key"), false)
	assert.Error(t, err)
	hd.toClientW.Close()

	assert.Error(t, <-clientErr)
}
