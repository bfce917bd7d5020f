package pylon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server owns the HTTP transport and dispatches every inbound request
// through a Dispatcher, mirroring air.Air.Serve's construction of an
// http.Server wrapped for cleartext HTTP/2 (h2c) the way the teacher does,
// and listener.go's TCP keep-alive tuning on accepted connections. TLS/ACME
// provisioning (air's autocert wiring) is deliberately not carried forward
// — see DESIGN.md.
type Server struct {
	Config     Config
	Dispatcher *Dispatcher
	Lifespan   *LifespanManager

	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a Server around dispatcher and lifespan, using cfg for
// address/timeouts.
func NewServer(cfg Config, dispatcher *Dispatcher, lifespan *LifespanManager) *Server {
	s := &Server{Config: cfg, Dispatcher: dispatcher, Lifespan: lifespan}

	h2s := &http2.Server{}
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      h2c.NewHandler(http.HandlerFunc(s.serveHTTP), h2s),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// keepAliveListener wraps a TCP listener to enable keep-alives on every
// accepted connection, mirroring air's listener.go.
type keepAliveListener struct {
	*net.TCPListener
}

func (ln keepAliveListener) Accept() (net.Conn, error) {
	conn, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAlive(true)
	conn.SetKeepAlivePeriod(3 * time.Minute)
	return conn, nil
}

// Serve runs the fixed LifespanManager startup sequence, then accepts and
// serves connections until Shutdown is called, mirroring air.Air.Serve.
func (s *Server) Serve(ctx context.Context) error {
	if s.Lifespan != nil {
		if err := s.Lifespan.Startup(ctx); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	if tcpLn, ok := ln.(*net.TCPListener); ok {
		ln = keepAliveListener{tcpLn}
	}
	s.listener = ln

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and runs the LifespanManager's
// reverse shutdown sequence.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if s.Lifespan != nil {
		if err := s.Lifespan.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// serveHTTP adapts a net/http request into a pylon.Request, dispatches it,
// and writes the resulting Response back, mirroring the shape of
// air.Air.ServeHTTP's top-level flow (build request -> resolve route ->
// run gas chain -> write response -> always clean up).
func (s *Server) serveHTTP(w http.ResponseWriter, hr *http.Request) {
	body, err := copyBody(hr.Body, s.Config.MaxBodyBytes)
	if err != nil {
		res := NewResponse(nil)
		res.SetError(err)
		_ = res.WriteTo(w, "")
		return
	}

	req := &Request{
		ID:        newRequestID(hr.Header),
		Method:    hr.Method,
		Path:      hr.URL.Path,
		Query:     hr.URL.Query(),
		Header:    hr.Header,
		Params:    make(map[string]string),
		RemoteIP:  remoteIP(hr),
		Transport: TransportHTTP,
		Typed:     strings.Contains(hr.Header.Get("Content-Type"), "vnd.pylon.typed"),
	}
	if len(body) > 0 {
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	if s.Dispatcher.Registry != nil {
		s.Dispatcher.Registry.Register(hr.Context(), req)
		defer s.Dispatcher.Registry.Unregister(req)
	} else {
		req.ctx = hr.Context()
	}

	name := routeNameFromPath(req.Path)
	res := s.Dispatcher.Dispatch(req.Context(), name, req.Method, req)
	_ = res.WriteTo(w, hr.Header.Get("Accept-Encoding"))
}

// routeNameFromPath converts a URL path into the dotted route name the
// Router resolves against, e.g. "/users/42" -> "users.:id"-shaped
// resolution happens inside Router.Resolve itself via path-segment
// matching; here we only strip the leading slash and swap "/" for ".".
func routeNameFromPath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ""
	}
	return strings.ReplaceAll(trimmed, "/", ".")
}

func remoteIP(hr *http.Request) string {
	host, _, err := net.SplitHostPort(hr.RemoteAddr)
	if err != nil {
		return hr.RemoteAddr
	}
	return host
}
