package pylon

import (
	"context"

	"github.com/pylon-dev/pylon/telemetry"
)

// Dispatcher bridges a transport-level inbound event to a Router
// resolution and back to a transport-level outbound event, mirroring the
// shape of air.Air.ServeHTTP/serveHTTP but generalized across transports
// (HTTP request/response, WebSocket RPC frame) per §4.6.
type Dispatcher struct {
	Router   *Router
	Pipeline *Pipeline
	Registry *RequestRegistry
	Tracer   telemetry.Tracer
}

// NewDispatcher wires a Dispatcher from its three collaborators. Tracer
// defaults to a no-op implementation if telemetry was never configured.
func NewDispatcher(router *Router, pipeline *Pipeline, registry *RequestRegistry) *Dispatcher {
	return &Dispatcher{
		Router:   router,
		Pipeline: pipeline,
		Registry: registry,
		Tracer:   telemetry.NoopTracer{},
	}
}

// Dispatch runs the middleware pipeline around route resolution and the
// resolved Handler, so the Router's filters see whatever middleware added
// to req (e.g. AuthTags from the auth middleware), and always returns a
// populated Response — translating any returned error via the fixed kind-to-status
// table rather than propagating it to the caller. The caller (an HTTP or
// WebSocket transport adapter) is responsible for registering req with the
// Registry before calling Dispatch and unregistering it immediately after,
// in a defer, so cleanup runs even on panic.
func (d *Dispatcher) Dispatch(ctx context.Context, name, method string, req *Request) *Response {
	ctx, span := d.Tracer.Start(ctx, "pylon.dispatch")
	defer span.End()
	span.SetAttributes("route", name, "method", method, "transport", string(req.Transport))

	req.ctx = WithRequest(ctx, req)
	res := NewResponse(req)

	terminal := func(req *Request, res *Response) error {
		resolved, err := d.Router.Resolve(name, method, req)
		if err != nil {
			return err
		}
		return resolved.Handler(req, res)
	}

	handler := terminal
	if d.Pipeline != nil {
		handler = d.Pipeline.Build(terminal)
	}

	if err := handler(req, res); err != nil {
		res.SetError(err)
		span.SetStatus(AsError(err).Status())
		return res
	}

	if res.Status == 0 {
		res.Status = 200
	}
	span.SetStatus(res.Status)
	return res
}
