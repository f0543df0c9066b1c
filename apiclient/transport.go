// Package apiclient is the matching client library for lumend's control
// API: a low-level Transport implementing the newline-delimited JSON
// wire protocol (optionally behind the password handshake), and a
// high-level Client exposing one Go method per API surface operation.
package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/lumenhub/lumend/apitypes"
	"github.com/lumenhub/lumend/internal/server/api/auth"
)

// Config controls low-level transport behavior such as timeouts and
// optional password authentication.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Transport is the low-level lumend control-protocol implementation used
// by Client. One call dials a fresh connection, optionally performs the
// password handshake, writes one JSON request line, and reads back
// exactly one JSON result line.
type Transport struct {
	addr string
	mock func(path string, args any) (*apitypes.Result, error)
	cfg  Config
}

// NewTransport creates a transport with default timeouts and no
// authentication.
func NewTransport(addr string) *Transport { return NewTransportWithConfig(addr, nil) }

// NewTransportWithPassword creates a transport authenticated with
// password.
func NewTransportWithPassword(addr, password string) *Transport {
	cfg := defaultConfig()
	cfg.Password = password
	return NewTransportWithConfig(addr, &cfg)
}

// NewTransportWithConfig creates a transport with custom timeouts.
func NewTransportWithConfig(addr string, cfg *Config) *Transport {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c}
}

// NewMockTransport creates a transport that returns canned responses
// without real networking, for exercising Client against a fake server.
func NewMockTransport(responder func(path string, args any) (*apitypes.Result, error)) *Transport {
	return &Transport{addr: "mock", mock: responder, cfg: defaultConfig()}
}

// Do sends one request and returns the decoded result.
func (t *Transport) Do(path string, args any) (*apitypes.Result, error) {
	return t.DoCtx(context.Background(), path, args)
}

// DoCtx is like Do but honors ctx for dialing.
func (t *Transport) DoCtx(ctx context.Context, path string, args any) (*apitypes.Result, error) {
	if t.mock != nil {
		return t.mock(path, args)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	r := bufio.NewReader(conn)
	var w net.Conn = conn

	if t.cfg.Password != "" {
		key, err := auth.DeriveKey(t.cfg.Password)
		if err != nil {
			return nil, err
		}
		clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, w, key, true)
		if err != nil {
			return nil, err
		}
		sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
		secConn, err := auth.WrapConn(conn, sessionKey)
		if err != nil {
			return nil, err
		}
		w = secConn
		r = bufio.NewReader(secConn)
	}

	req := apitypes.Request{Path: strings.ToLower(path), Args: args}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	respLine, err := r.ReadString('\n')
	if err != nil && respLine == "" {
		return nil, fmt.Errorf("read: %w", err)
	}
	respLine = strings.TrimSpace(respLine)

	var res apitypes.Result
	if err := json.Unmarshal([]byte(respLine), &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}
