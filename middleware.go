package pylon

import "sort"

// Standard middleware orders, per §4.5.
const (
	OrderErrorTranslation = 100
	OrderRequestLogging   = 200
	OrderCORS             = 300
	OrderAuth             = 400
	OrderSession          = 450
	OrderAppDefinedStart  = 500
	OrderAppDefinedEnd    = 800
	OrderCompression      = 900
)

// Middleware wraps a Handler to add cross-cutting behavior, generalizing
// air's Gas (func(Handler) Handler) with an explicit Order so the pipeline
// can sort middleware deterministically regardless of registration order.
// DefaultEnabled reports whether the middleware participates in a Pipeline
// that hasn't been told otherwise by configuration (§4.5: "Each middleware
// declares a static order integer and a default_enabled flag").
type Middleware interface {
	Order() int
	DefaultEnabled() bool
	Wrap(next Handler) Handler
}

// MiddlewareFunc adapts a plain func(Handler) Handler plus a fixed order
// into a Middleware, for the common case of a stateless wrapper.
type MiddlewareFunc struct {
	order          int
	defaultEnabled bool
	wrap           func(Handler) Handler
}

// NewMiddleware builds a MiddlewareFunc with the given order, enabled by
// default.
func NewMiddleware(order int, wrap func(Handler) Handler) MiddlewareFunc {
	return MiddlewareFunc{order: order, defaultEnabled: true, wrap: wrap}
}

// NewMiddlewareWithDefault builds a MiddlewareFunc with an explicit
// default_enabled flag, for middleware meant to ship off unless a caller
// opts in (e.g. the optional session middleware).
func NewMiddlewareWithDefault(order int, defaultEnabled bool, wrap func(Handler) Handler) MiddlewareFunc {
	return MiddlewareFunc{order: order, defaultEnabled: defaultEnabled, wrap: wrap}
}

func (m MiddlewareFunc) Order() int               { return m.order }
func (m MiddlewareFunc) DefaultEnabled() bool      { return m.defaultEnabled }
func (m MiddlewareFunc) Wrap(next Handler) Handler { return m.wrap(next) }

// Pipeline is an ordered, short-circuiting chain of Middleware wrapping a
// terminal Handler, composed by Build from its registered Middleware set on
// every Dispatch (one Pipeline for the whole Router), mirroring the FILO wrapping air.Air.Serve
// performs over its []Gas slice, but sorted by Order first.
type Pipeline struct {
	middleware []Middleware
	overrides  map[int]bool // keyed by Middleware.Order(), set by SetEnabled
}

// NewPipeline returns an empty Pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// Add registers one or more Middleware; order of Add calls does not matter,
// only each Middleware's own Order.
func (p *Pipeline) Add(m ...Middleware) {
	p.middleware = append(p.middleware, m...)
}

// SetEnabled overrides a registered middleware's default_enabled flag (the
// `middleware.<name>: on|off` half of §6's configuration surface; the
// caller, not Pipeline, resolves a configured name to an Order). Identifying
// middleware by Order works because §4.5's standard orders are each
// reserved for exactly one role.
func (p *Pipeline) SetEnabled(order int, enabled bool) {
	if p.overrides == nil {
		p.overrides = make(map[int]bool)
	}
	p.overrides[order] = enabled
}

// Build composes the pipeline around terminal from every middleware whose
// effective enabled state (an override set via SetEnabled, else its own
// DefaultEnabled) is true. Enabled middleware is sorted by ascending order
// and wrapped from highest order down to lowest, so the lowest-order
// middleware ends up outermost: it runs first on the way in and last on the
// way out (§4.5: "sort by order ascending, lower is outer" — e.g. order-100
// error translation wraps order-900 compression, not the reverse, so it can
// observe errors raised by every middleware inside it).
func (p *Pipeline) Build(terminal Handler) Handler {
	var ordered []Middleware
	for _, m := range p.middleware {
		enabled := m.DefaultEnabled()
		if override, ok := p.overrides[m.Order()]; ok {
			enabled = override
		}
		if enabled {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order() < ordered[j].Order()
	})

	h := terminal
	for i := len(ordered) - 1; i >= 0; i-- {
		h = ordered[i].Wrap(h)
	}
	return h
}
