package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/lumenhub/lumend/apitypes"
	"github.com/lumenhub/lumend/internal/server/api/apierror"
	"github.com/lumenhub/lumend/internal/server/api/auth"
)

// Server implements the daemon's control API: a TCP listener speaking
// newline-delimited JSON (apitypes.Request/apitypes.Result), optionally
// behind the password handshake in the auth package.
type Server struct {
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config *ServerConfig
}

// New creates a Server with an empty Router. Call Router() to register
// handlers before Start.
func New(addr string, config ServerConfig, logger *slog.Logger) *Server {
	cfg := config
	return &Server{
		addr:   addr,
		logger: logger,
		config: &cfg,
		router: NewRouter(),
	}
}

// Router returns the router used by the server so callers can register handlers.
func (s *Server) Router() *Router { return s.router }

// Config returns the server's configuration.
func (s *Server) Config() *ServerConfig { return s.config }

// Addr returns the actual address the server is listening on. Before
// Start is called it returns the configured address.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Start listens on the configured address and serves incoming API
// connections in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	s.config.Addr = s.addr
	s.logger.Info("control API listening", "addr", s.addr)
	go s.serve()
	return nil
}

// Close stops the server, interrupting Accept.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				s.logger.Info("control API stopped")
				return
			}
			s.logger.Warn("control API accept error", "error", err)
			return
		}
		if tcpConn, ok := c.(*net.TCPConn); ok {
			if err := tcpConn.SetNoDelay(true); err != nil {
				s.logger.Warn("failed to set TCP_NODELAY", "error", err)
			}
		}
		go s.handleConn(c)
	}
}

// writeHandshakeError reports a pre-session auth failure as a bare
// apitypes.ApiError JSON line, the wire shape the auth package's client
// side parses before any Result envelope protocol has begun.
func (s *Server) writeHandshakeError(w net.Conn, apiErr apitypes.ApiError) {
	b, err := json.Marshal(apiErr)
	if err != nil {
		s.logger.Error("encode handshake error failed", "error", err)
		return
	}
	fmt.Fprintf(w, "%s\n", b)
}

func (s *Server) writeResult(w net.Conn, res apitypes.Result) {
	b, err := json.Marshal(res)
	if err != nil {
		s.logger.Error("encode result failed", "error", err)
		return
	}
	if s.config.ConnectionTimeout > 0 {
		_ = w.SetWriteDeadline(time.Now().Add(s.config.ConnectionTimeout))
	}
	fmt.Fprintf(w, "%s\n", b)
}

func (s *Server) isLocalhost(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return false
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (s *Server) requiresAuth(addr net.Addr) bool {
	if s.isLocalhost(addr) {
		return s.config.RequireLocalHostAuth
	}
	return true
}

// handleConn services exactly one request per connection: read a single
// newline-delimited JSON apitypes.Request, dispatch it through the
// router, and write back one apitypes.Result line. This mirrors the
// teacher's one-shot-per-connection command protocol rather than a
// persistent multiplexed session.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)
	w := conn

	isAuth, err := auth.IsAuthHandshake(r)
	if err != nil && !errors.Is(err, context.Canceled) {
		connLogger.Debug("handshake peek failed, treating as unauthenticated", "error", err)
		isAuth = false
	}

	if !isAuth && s.requiresAuth(conn.RemoteAddr()) {
		connLogger.Warn("authentication required")
		s.writeHandshakeError(w, apierror.ErrUnauthorized("authentication required"))
		return
	}

	if isAuth {
		key, err := auth.DeriveKey(s.config.Password)
		if err != nil {
			connLogger.Error("derive key failed", "error", err)
			return
		}
		clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, w, key, false)
		if err != nil {
			var apiErr apitypes.ApiError
			if errors.As(err, &apiErr) {
				s.writeHandshakeError(w, apiErr)
			}
			connLogger.Warn("auth handshake failed", "error", err)
			return
		}
		sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
		secConn, err := auth.WrapConn(conn, sessionKey)
		if err != nil {
			connLogger.Error("wrap secure conn failed", "error", err)
			return
		}
		conn = secConn
		r = bufio.NewReader(conn)
		w = conn
	}

	if s.config.ConnectionTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ConnectionTimeout))
	}
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		connLogger.Debug("read request failed", "error", err)
		return
	}
	line = strings.TrimSpace(line)
	if line == "" {
		s.writeResult(w, errResult("", apierror.ErrBadRequest("empty request")))
		return
	}

	var reqEnv apitypes.Request
	if err := json.Unmarshal([]byte(line), &reqEnv); err != nil {
		s.writeResult(w, errResult("", apierror.ErrBadRequest("malformed request: "+err.Error())))
		return
	}
	if reqEnv.Path == "" {
		s.writeResult(w, errResult(reqEnv.ID, apierror.ErrBadRequest("missing path")))
		return
	}

	path := strings.ToLower(reqEnv.Path)
	connLogger.Debug("api request", "path", path)

	handler, params := s.router.Match(path)
	if handler == nil {
		s.writeResult(w, errResult(reqEnv.ID, apierror.ErrNotFound("unknown path: "+path)))
		return
	}

	var argBytes []byte
	if reqEnv.Args != nil {
		argBytes, err = json.Marshal(reqEnv.Args)
		if err != nil {
			s.writeResult(w, errResult(reqEnv.ID, apierror.ErrBadRequest("encode args: "+err.Error())))
			return
		}
	}

	req := &Request{Ctx: connCtx, Params: params, Args: argBytes}
	res := &Response{}
	if err := handler(req, res, connLogger); err != nil {
		connLogger.Warn("api handler error", "path", path, "error", err)
		s.writeResult(w, errResult(reqEnv.ID, apierror.WrapError(err)))
		return
	}
	s.writeResult(w, apitypes.Result{ID: reqEnv.ID, OK: true, Data: res.Data})
}

func errResult(id string, apiErr apitypes.ApiError) apitypes.Result {
	return apitypes.Result{ID: id, OK: false, Error: &apiErr}
}
