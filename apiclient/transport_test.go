package apiclient_test

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/lumenhub/lumend/apiclient"
	apitypes "github.com/lumenhub/lumend/apitypes"
	"github.com/lumenhub/lumend/internal/server/api/auth"

	"github.com/stretchr/testify/assert"
)

func startTestServer(t *testing.T, response string) (addr string, gotLine *string, closeFn func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	got := new(string)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, _ := r.ReadString('\n')
		*got = strings.TrimSuffix(line, "\n")
		if response != "" {
			_, _ = conn.Write([]byte(response))
		}
	}()
	return ln.Addr().String(), got, func() { _ = ln.Close() }
}

func TestTransportRequestEncoding(t *testing.T) {
	addr, got, closeFn := startTestServer(t, `{"ok":true,"data":"pong"}`+"\n")
	defer closeFn()

	client := apiclient.NewTransport(addr)
	res, err := client.Do("/ping", map[string]any{"a": 1})
	assert.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "pong", res.Data)

	var sent apitypes.Request
	assert.NoError(t, json.Unmarshal([]byte(*got), &sent))
	assert.Equal(t, "/ping", sent.Path)
}

func TestTransportErrorResult(t *testing.T) {
	addr, _, closeFn := startTestServer(t, `{"ok":false,"error":{"status":404,"title":"Not Found","detail":"no such device"}}`+"\n")
	defer closeFn()

	client := apiclient.NewTransport(addr)
	res, err := client.Do("/devices/missing", nil)
	assert.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 404, res.Error.Status)
}

func TestEncryptedTransport(t *testing.T) {
	type testCase struct {
		name          string
		password      string
		serverHandler func(t *testing.T, conn net.Conn)
		expectedErr   error
	}

	echoHandler := func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)

		key, err := auth.DeriveKey("test123")
		assert.NoError(t, err)

		clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, conn, key, false)
		if err != nil {
			var apiErr apitypes.ApiError
			if errors.As(err, &apiErr) {
				b, merr := json.Marshal(apiErr)
				assert.NoError(t, merr)
				_, _ = conn.Write(append(b, '\n'))
			}
			return
		}

		sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
		secConn, err := auth.WrapConn(conn, sessionKey)
		assert.NoError(t, err)

		rr := bufio.NewReader(secConn)
		line, err := rr.ReadString('\n')
		if err != nil {
			return
		}
		var req apitypes.Request
		assert.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(line, "\n")), &req))

		reply, _ := json.Marshal(apitypes.Result{OK: true, Data: req.Path})
		_, _ = secConn.Write(append(reply, '\n'))
	}

	cases := []testCase{
		{name: "success", password: "test123", serverHandler: echoHandler},
		{
			name: "wrong password", password: "wrongpass", serverHandler: echoHandler,
			expectedErr: errors.New("401 Unauthorized: invalid password"),
		},
		{
			name:     "bad handshake response",
			password: "test123",
			serverHandler: func(t *testing.T, conn net.Conn) {
				defer conn.Close()
				_, _ = conn.Write([]byte("NO\x00" + strings.Repeat("x", 32)))
			},
			expectedErr: errors.New(""),
		},
		{
			name:     "server closes early",
			password: "test123",
			serverHandler: func(t *testing.T, conn net.Conn) {
				_ = conn.Close()
			},
			expectedErr: errors.New(""),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			assert.NoError(t, err)
			defer ln.Close()

			go func() {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				tc.serverHandler(t, conn)
			}()

			client := apiclient.NewTransportWithPassword(ln.Addr().String(), tc.password)
			res, err := client.Do("/ping", nil)

			if tc.expectedErr != nil {
				assert.Error(t, err)
				assert.ErrorContains(t, err, tc.expectedErr.Error())
				return
			}

			assert.NoError(t, err)
			assert.True(t, res.OK)
			assert.Equal(t, "/ping", res.Data)
		})
	}
}
