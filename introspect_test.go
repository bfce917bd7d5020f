package pylon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIntrospectionRouter() *Router {
	r := NewRouter()
	r.Add("users.list", "GET", func(req *Request, res *Response) error { return nil })
	r.Add("users.:id", "GET", func(req *Request, res *Response) error { return nil })
	node := r.Add("orders.create", "POST", func(req *Request, res *Response) error { return nil })
	node.AuthTags = []string{"admin"}
	return r
}

func TestRouterNodesTreeShape(t *testing.T) {
	r := buildIntrospectionRouter()

	snap, err := r.Nodes("", ModeTree)
	require.NoError(t, err)

	root, ok := snap.(*NodeSnapshot)
	require.True(t, ok)
	assert.Equal(t, "", root.Name)
	assert.Len(t, root.Children, 2) // "orders" and "users"
}

func TestRouterNodesFlatShape(t *testing.T) {
	r := buildIntrospectionRouter()

	snap, err := r.Nodes("", ModeFlat)
	require.NoError(t, err)

	entries, ok := snap.([]FlatEndpoint)
	require.True(t, ok)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, "users.list")
	assert.Contains(t, paths, "users.:id")
	assert.Contains(t, paths, "orders.create")
}

func TestRouterNodesFlatIncludesInheritedAuthTags(t *testing.T) {
	r := buildIntrospectionRouter()
	r.root.children["orders"].AuthTags = []string{"staff"}

	snap, err := r.Nodes("orders", ModeFlat)
	require.NoError(t, err)

	entries := snap.([]FlatEndpoint)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].AuthTags, "admin")
	assert.Contains(t, entries[0].AuthTags, "staff")
}

func TestRouterNodesOpenAPIShape(t *testing.T) {
	r := buildIntrospectionRouter()

	snap, err := r.Nodes("", ModeOpenAPI)
	require.NoError(t, err)

	doc, ok := snap.(map[string]interface{})
	require.True(t, ok)
	paths, ok := doc["paths"].(map[string]map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/users/list")
	assert.Contains(t, paths, "/orders/create")

	params := paths["/users/:id"]["get"].(map[string]interface{})["parameters"].([]map[string]interface{})
	require.Len(t, params, 1)
	assert.Equal(t, "id", params[0]["name"])
}

func TestRouterNodesUnknownBasepath(t *testing.T) {
	r := buildIntrospectionRouter()

	_, err := r.Nodes("does.not.exist", ModeTree)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, AsError(err).Kind)
}

func TestRouterNodesDoesNotMutateTree(t *testing.T) {
	r := buildIntrospectionRouter()

	before := len(r.root.children)
	_, err := r.Nodes("", ModeTree)
	require.NoError(t, err)
	_, err = r.Nodes("totally.unknown.path", ModeFlat)
	require.Error(t, err)

	assert.Equal(t, before, len(r.root.children))
}
