package pylon

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterResolveLiteral(t *testing.T) {
	r := NewRouter()
	r.Add("users.list", "GET", func(req *Request, res *Response) error {
		return res.SetResult("ok")
	})

	req := &Request{Params: make(map[string]string)}
	resolved, err := r.Resolve("users.list", "GET", req)
	require.NoError(t, err)
	assert.Equal(t, "users.list", resolved.Node.Path())
}

func TestRouterResolveParam(t *testing.T) {
	r := NewRouter()
	r.Add("users.:id", "GET", func(req *Request, res *Response) error { return nil })

	req := &Request{Params: make(map[string]string)}
	resolved, err := r.Resolve("users.42", "GET", req)
	require.NoError(t, err)
	assert.Equal(t, "42", resolved.Params["id"])
	assert.Equal(t, "42", req.Params["id"])
}

func TestRouterResolveNotFound(t *testing.T) {
	r := NewRouter()
	req := &Request{Params: make(map[string]string)}
	_, err := r.Resolve("missing", "GET", req)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, AsError(err).Kind)
}

func TestRouterResolveWrongMethod(t *testing.T) {
	r := NewRouter()
	r.Add("users", "GET", func(req *Request, res *Response) error { return nil })

	req := &Request{Params: make(map[string]string)}
	_, err := r.Resolve("users", "POST", req)
	assert.Equal(t, KindNotFound, AsError(err).Kind)
}

type recordingPlugin struct {
	attached []string
}

func (p *recordingPlugin) OnAttach(node *RouteNode) {
	p.attached = append(p.attached, node.Path())
}

func (p *recordingPlugin) Filter(node *RouteNode, req *Request) Decision {
	return Decision{Allow: true}
}

func TestRouterPluginOnAttach(t *testing.T) {
	r := NewRouter()
	p := &recordingPlugin{}
	r.Use(p)
	r.Add("orders.create", "POST", func(req *Request, res *Response) error { return nil })

	assert.Contains(t, p.attached, "orders.create")
}

func TestRouteNodeAuthTagsInherit(t *testing.T) {
	r := NewRouter()
	parent := r.ensureNode("admin")
	parent.AuthTags = []string{"admin"}
	child := r.Add("admin.users", "GET", func(req *Request, res *Response) error { return nil })

	tags := child.effectiveAuthTags()
	assert.Contains(t, tags, "admin")
}

func TestRouterResolveAuthFilterRejectsEmptyTags(t *testing.T) {
	r := NewRouter()
	node := r.Add("admin.users", "GET", func(req *Request, res *Response) error { return nil })
	node.AuthTags = []string{"admin"}

	req := &Request{Params: make(map[string]string)}
	_, err := r.Resolve("admin.users", "GET", req)
	require.Error(t, err)
	assert.Equal(t, KindNotAuthenticated, AsError(err).Kind)
}

func TestRouterResolveAuthFilterRejectsInsufficientTags(t *testing.T) {
	r := NewRouter()
	node := r.Add("admin.users", "GET", func(req *Request, res *Response) error { return nil })
	node.AuthTags = []string{"admin"}

	req := &Request{Params: make(map[string]string), AuthTags: []string{"user"}}
	_, err := r.Resolve("admin.users", "GET", req)
	require.Error(t, err)
	assert.Equal(t, KindNotAuthorized, AsError(err).Kind)
}

func TestRouterResolveAuthFilterAllowsSufficientTags(t *testing.T) {
	r := NewRouter()
	node := r.Add("admin.users", "GET", func(req *Request, res *Response) error { return nil })
	node.AuthTags = []string{"admin"}

	req := &Request{Params: make(map[string]string), AuthTags: []string{"admin"}}
	resolved, err := r.Resolve("admin.users", "GET", req)
	require.NoError(t, err)
	assert.Equal(t, "admin.users", resolved.Node.Path())
}

func TestRouterResolveAuthFilterEvaluatesBooleanExpression(t *testing.T) {
	r := NewRouter()
	node := r.Add("reports.view", "GET", func(req *Request, res *Response) error { return nil })
	node.AuthTags = []string{"admin|auditor"}

	req := &Request{Params: make(map[string]string), AuthTags: []string{"auditor"}}
	_, err := r.Resolve("reports.view", "GET", req)
	assert.NoError(t, err)

	req2 := &Request{Params: make(map[string]string), AuthTags: []string{"guest"}}
	_, err = r.Resolve("reports.view", "GET", req2)
	require.Error(t, err)
	assert.Equal(t, KindNotAuthorized, AsError(err).Kind)
}

func TestRouterResolveCapabilityFilterRejectsMissingCapability(t *testing.T) {
	r := NewRouter()
	node := r.Add("jobs.run", "POST", func(req *Request, res *Response) error { return nil })
	node.Metadata["required_capabilities"] = []string{"gpu"}

	req := &Request{Params: make(map[string]string)}
	_, err := r.Resolve("jobs.run", "POST", req)
	require.Error(t, err)
	assert.Equal(t, KindNotAvailable, AsError(err).Kind)
}

func TestRouterResolveCapabilityFilterAllowsGrantedCapability(t *testing.T) {
	r := NewRouter()
	node := r.Add("jobs.run", "POST", func(req *Request, res *Response) error { return nil })
	node.Metadata["required_capabilities"] = []string{"gpu"}

	req := &Request{Params: make(map[string]string), EnvCapabilities: []string{"gpu", "net"}}
	_, err := r.Resolve("jobs.run", "POST", req)
	assert.NoError(t, err)
}

func TestRouterResolveArgumentBindingCoercesPathParam(t *testing.T) {
	r := NewRouter()
	node := r.Add("users.:id", "GET", func(req *Request, res *Response) error { return nil })
	node.Metadata["arg_schema"] = ArgSchema{"id": {Kind: ArgInt, Required: true}}

	req := &Request{Params: make(map[string]string), Query: url.Values{}}
	_, err := r.Resolve("users.42", "GET", req)
	require.NoError(t, err)
	assert.Equal(t, 42, req.Args["id"])
}

func TestRouterResolveArgumentBindingRejectsBadCoercion(t *testing.T) {
	r := NewRouter()
	node := r.Add("users.:id", "GET", func(req *Request, res *Response) error { return nil })
	node.Metadata["arg_schema"] = ArgSchema{"id": {Kind: ArgInt, Required: true}}

	req := &Request{Params: make(map[string]string), Query: url.Values{}}
	_, err := r.Resolve("users.abc", "GET", req)
	require.Error(t, err)
	assert.Equal(t, KindValidation, AsError(err).Kind)
}

func TestRouterResolveArgumentBindingRejectsMissingRequired(t *testing.T) {
	r := NewRouter()
	node := r.Add("search", "GET", func(req *Request, res *Response) error { return nil })
	node.Metadata["arg_schema"] = ArgSchema{"q": {Kind: ArgString, Required: true}}

	req := &Request{Params: make(map[string]string), Query: url.Values{}}
	_, err := r.Resolve("search", "GET", req)
	require.Error(t, err)
	assert.Equal(t, KindValidation, AsError(err).Kind)
}

func TestRouterResolveArgumentBindingReadsQueryParam(t *testing.T) {
	r := NewRouter()
	node := r.Add("search", "GET", func(req *Request, res *Response) error { return nil })
	node.Metadata["arg_schema"] = ArgSchema{"limit": {Kind: ArgInt}}

	req := &Request{Params: make(map[string]string), Query: url.Values{"limit": []string{"10"}}}
	_, err := r.Resolve("search", "GET", req)
	require.NoError(t, err)
	assert.Equal(t, 10, req.Args["limit"])
}

func TestResponseSetResultJSON(t *testing.T) {
	req := &Request{Header: make(http.Header)}
	res := NewResponse(req)
	err := res.SetResult(map[string]interface{}{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Contains(t, string(res.Body), "ok")
}
