package pylon

import (
	"fmt"
	"strconv"
	"strings"
)

// Handler processes a Request and populates a Response. Handlers that need
// to block should be dispatched onto the execution subsystem's BlockingPool
// by the caller rather than blocking the dispatch goroutine directly.
type Handler func(*Request, *Response) error

// Decision is returned by a Plugin's Filter hook to short-circuit or allow
// continued resolution of a route.
type Decision struct {
	Allow  bool
	Reason string
}

// Plugin hooks into route attachment and per-request filtering, generalizing
// the notion of a route-tree extension beyond what a single Middleware can
// express (a Plugin sees the RouteNode itself, not just the request).
type Plugin interface {
	OnAttach(node *RouteNode)
	Filter(node *RouteNode, req *Request) Decision
}

// RouteNode is one named node of the hierarchical route tree (§4.4). Unlike
// the teacher's method+path radix trie (air.router/air.node), a RouteNode is
// keyed purely by name; HTTP-method dispatch, when relevant, is handled by
// storing one Handler per method in Handlers.
type RouteNode struct {
	Name     string
	Handlers map[string]Handler // keyed by HTTP method, "" for method-agnostic (e.g. WS) nodes
	Metadata map[string]interface{}
	AuthTags []string

	parent   *RouteNode // weak: never owns, never ranged over for GC purposes
	children map[string]*RouteNode
	param    *RouteNode // single wildcard child, name is the param name
	catchAll *RouteNode
}

func newRouteNode(name string, parent *RouteNode) *RouteNode {
	return &RouteNode{
		Name:     name,
		Handlers: make(map[string]Handler),
		Metadata: make(map[string]interface{}),
		parent:   parent,
		children: make(map[string]*RouteNode),
	}
}

// Parent returns the node's parent, or nil at the root.
func (n *RouteNode) Parent() *RouteNode { return n.parent }

// Path reconstructs the node's full dotted name path from the root.
func (n *RouteNode) Path() string {
	if n.parent == nil || n.parent.Name == "" {
		return n.Name
	}
	return n.parent.Path() + "." + n.Name
}

// Router owns the root of the hierarchical route tree and resolves incoming
// requests against it (§4.4).
type Router struct {
	root    *RouteNode
	plugins []Plugin
}

// NewRouter returns a Router with an empty, unnamed root node.
func NewRouter() *Router {
	return &Router{root: newRouteNode("", nil)}
}

// Root returns the router's root RouteNode.
func (r *Router) Root() *RouteNode { return r.root }

// Use registers a Plugin; its OnAttach hook fires for every node attached
// from this point forward, and its Filter hook runs after the three
// built-in filters on every resolution.
func (r *Router) Use(p Plugin) {
	r.plugins = append(r.plugins, p)
}

// Add attaches a Handler at the named dotted path (e.g. "users.get") for
// the given HTTP method ("" for method-agnostic), creating intermediate
// nodes as needed and splitting path segments on ".", mirroring the
// segment-walk style of air.router's traversal while keying by name instead
// of literal URL bytes.
func (r *Router) Add(name, method string, handler Handler) *RouteNode {
	node := r.ensureNode(name)
	node.Handlers[method] = handler
	for _, p := range r.plugins {
		p.OnAttach(node)
	}
	return node
}

func (r *Router) ensureNode(name string) *RouteNode {
	cur := r.root
	if name == "" {
		return cur
	}
	for _, seg := range strings.Split(name, ".") {
		cur = cur.child(seg)
	}
	return cur
}

// child returns (creating if necessary) the named child of n, handling the
// three segment kinds in the teacher's precedence order: literal, then
// ":param", then "*" catch-all.
func (n *RouteNode) child(seg string) *RouteNode {
	switch {
	case strings.HasPrefix(seg, ":"):
		if n.param == nil {
			n.param = newRouteNode(seg, n)
		}
		return n.param
	case seg == "*":
		if n.catchAll == nil {
			n.catchAll = newRouteNode(seg, n)
		}
		return n.catchAll
	default:
		if c, ok := n.children[seg]; ok {
			return c
		}
		c := newRouteNode(seg, n)
		n.children[seg] = c
		return c
	}
}

// Resolved is the result of resolving a dotted route name: the matched
// node, the Handler for the requested method, and any parameters bound
// from ":param"/"*" segments along the way.
type Resolved struct {
	Node    *RouteNode
	Handler Handler
	Params  map[string]string
}

// Resolve walks the tree following name, binding ":param"/"*" segments,
// then runs the three fixed-order filters (capability, authorization,
// argument binding) followed by every registered Plugin's Filter hook, in
// registration order, matching §4.4 step order exactly.
func (r *Router) Resolve(name, method string, req *Request) (*Resolved, error) {
	cur := r.root
	params := map[string]string{}
	if name != "" {
		for _, seg := range strings.Split(name, ".") {
			next, ok := cur.children[seg]
			if ok {
				cur = next
				continue
			}
			if cur.param != nil {
				params[strings.TrimPrefix(cur.param.Name, ":")] = seg
				cur = cur.param
				continue
			}
			if cur.catchAll != nil {
				cur = cur.catchAll
				continue
			}
			return nil, ErrNotFound
		}
	}

	handler, ok := cur.Handlers[method]
	if !ok {
		handler, ok = cur.Handlers[""]
	}
	if !ok {
		return nil, ErrNotFound
	}

	if err := r.runCapabilityFilter(cur, req); err != nil {
		return nil, err
	}
	if err := r.runAuthFilter(cur, req); err != nil {
		return nil, err
	}
	for k, v := range params {
		req.Params[k] = v
	}
	if err := r.runArgumentBinding(cur, req, params); err != nil {
		return nil, err
	}

	for _, p := range r.plugins {
		d := p.Filter(cur, req)
		if !d.Allow {
			return nil, NewError(KindNotAuthorized, d.Reason)
		}
	}

	return &Resolved{Node: cur, Handler: handler, Params: params}, nil
}

// runCapabilityFilter enforces §4.4 filter (1): every entry of
// node.Metadata["required_capabilities"] (a []string) must appear in
// req.EnvCapabilities, else NotAvailable.
func (r *Router) runCapabilityFilter(n *RouteNode, req *Request) error {
	required, ok := n.Metadata["required_capabilities"].([]string)
	if !ok || len(required) == 0 {
		return nil
	}
	have := make(map[string]bool, len(req.EnvCapabilities))
	for _, c := range req.EnvCapabilities {
		have[c] = true
	}
	for _, c := range required {
		if !have[c] {
			return NewError(KindNotAvailable, fmt.Sprintf("missing capability %q", c))
		}
	}
	return nil
}

// runAuthFilter enforces §4.4 filter (2): n's effective auth_tags
// expression (inherited from ancestors, combined with `&`, each entry
// itself a boolean expression of `&`/`|`/`!` over identifiers) must
// evaluate true against req.AuthTags (populated by order-400/450
// middleware), else NotAuthenticated if req.AuthTags is empty, else
// NotAuthorized.
func (r *Router) runAuthFilter(n *RouteNode, req *Request) error {
	tags := n.effectiveAuthTags()
	if len(tags) == 0 {
		return nil
	}
	expr := joinAuthTagsAsExpr(tags)
	ok, err := evaluateAuthExpr(expr, req.AuthTags)
	if err != nil {
		return NewError(KindInternal, err.Error())
	}
	if ok {
		return nil
	}
	if len(req.AuthTags) == 0 {
		return ErrNotAuthenticated
	}
	return ErrNotAuthorized
}

// joinAuthTagsAsExpr combines a node's (possibly already-compound) auth_tags
// entries into one expression, ANDing them together while parenthesizing
// each so an OR/NOT inside one entry can't leak across entries.
func joinAuthTagsAsExpr(tags []string) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = "(" + t + ")"
	}
	return strings.Join(parts, "&")
}

// effectiveAuthTags collects AuthTags from n up through its ancestors,
// matching the spec's "auth tags are inherited and merged down the tree"
// rule.
func (n *RouteNode) effectiveAuthTags() []string {
	var tags []string
	for cur := n; cur != nil; cur = cur.parent {
		tags = append(tags, cur.AuthTags...)
	}
	return tags
}

// ArgKind names the coercion target type for one declared argument.
type ArgKind string

const (
	ArgString ArgKind = "string"
	ArgInt    ArgKind = "int"
	ArgFloat  ArgKind = "float"
	ArgBool   ArgKind = "bool"
)

// ArgSpec declares how a single path or query argument must be coerced and
// whether its absence is an error.
type ArgSpec struct {
	Kind     ArgKind
	Required bool
}

// ArgSchema maps an argument name (a ":param" path segment or a query key)
// to its ArgSpec; stored under a RouteNode's Metadata["arg_schema"].
type ArgSchema map[string]ArgSpec

// runArgumentBinding enforces §4.4 filter (3): every argument n.Metadata
// ["arg_schema"] declares is coerced from the bound path params or the
// request's query string into req.Args, in the schema's declared type,
// raising ValidationError on a missing required argument or a coercion
// failure. Arguments with no schema entry are left untouched as raw
// strings in pathParams and are not copied into req.Args.
func (r *Router) runArgumentBinding(n *RouteNode, req *Request, pathParams map[string]string) error {
	schema, ok := n.Metadata["arg_schema"].(ArgSchema)
	if !ok || len(schema) == 0 {
		return nil
	}

	if req.Args == nil {
		req.Args = make(map[string]interface{})
	}

	for name, spec := range schema {
		raw, found := pathParams[name]
		if !found {
			raw = req.Query.Get(name)
			found = req.Query.Has(name)
		}
		if !found {
			if spec.Required {
				return NewError(KindValidation, fmt.Sprintf("missing required argument %q", name))
			}
			continue
		}
		val, err := coerceArg(raw, spec.Kind)
		if err != nil {
			return NewError(KindValidation, fmt.Sprintf("argument %q: %s", name, err))
		}
		req.Args[name] = val
	}
	return nil
}

// coerceArg converts raw into the Go value matching kind.
func coerceArg(raw string, kind ArgKind) (interface{}, error) {
	switch kind {
	case ArgInt:
		return strconv.Atoi(raw)
	case ArgFloat:
		return strconv.ParseFloat(raw, 64)
	case ArgBool:
		return strconv.ParseBool(raw)
	case ArgString, "":
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown arg kind %q", kind)
	}
}
