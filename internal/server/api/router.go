package api

import (
	"context"
	"log/slog"
	"strings"
)

// Request is one dispatched command: the path's matched {param}
// placeholders plus the request's decoded args payload.
type Request struct {
	Ctx    context.Context
	Params map[string]string
	Args   []byte // raw JSON, decoded by the handler into its own argument type
}

// Response carries the handler's result back to the connection loop for
// JSON encoding.
type Response struct {
	Data any
}

// HandlerFunc processes one request and populates res, or returns an
// error (normalized to an apitypes.ApiError by the caller). logger is a
// connection-scoped logger enriched with remote address metadata.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// Router implements simple path pattern matching with {name}
// placeholders, the same shape the teacher's daemon-to-daemon command
// dispatch uses, just matched against a JSON envelope's Path field
// instead of an HTTP-style request line.
type Router struct {
	routes []routeEntry
}

type routeEntry struct {
	pattern         string
	originalPattern string
	parts           []string
	handler         HandlerFunc
}

// NewRouter returns an empty Router.
func NewRouter() *Router { return &Router{} }

// Register binds handler to a path pattern like "/devices/{key}/setfx".
func (r *Router) Register(pattern string, handler HandlerFunc) {
	p := strings.ToLower(pattern)
	r.routes = append(r.routes, routeEntry{
		pattern:         p,
		originalPattern: pattern,
		parts:           strings.Split(p, "/"),
		handler:         handler,
	})
}

// Match returns the handler and extracted params for path, or nil if no
// registered pattern matches.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	p := strings.ToLower(path)
	parts := strings.Split(p, "/")
	for _, rt := range r.routes {
		if len(rt.parts) != len(parts) {
			continue
		}
		params := map[string]string{}
		originalParts := strings.Split(rt.originalPattern, "/")
		ok := true
		for i := range parts {
			if strings.HasPrefix(rt.parts[i], "{") && strings.HasSuffix(rt.parts[i], "}") {
				name := originalParts[i][1 : len(originalParts[i])-1]
				params[name] = parts[i]
				continue
			}
			if rt.parts[i] != parts[i] {
				ok = false
				break
			}
		}
		if ok {
			return rt.handler, params
		}
	}
	return nil, nil
}
