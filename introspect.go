package pylon

import (
	"sort"
	"strings"
)

// IntrospectMode selects the shape Router.Nodes returns, per §4.4's
// "Introspection" operation.
type IntrospectMode string

const (
	ModeTree    IntrospectMode = "tree"
	ModeFlat    IntrospectMode = "flat"
	ModeOpenAPI IntrospectMode = "openapi"
)

// NodeSnapshot is the nested-structure form returned by Nodes(basepath,
// ModeTree): one entry per RouteNode below basepath, with its own children
// nested beneath it.
type NodeSnapshot struct {
	Name     string                 `json:"name"`
	Path     string                 `json:"path"`
	Methods  []string               `json:"methods,omitempty"`
	AuthTags []string               `json:"auth_tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Children []*NodeSnapshot        `json:"children,omitempty"`
}

// FlatEndpoint is one entry of the list-shaped form returned by
// Nodes(basepath, ModeFlat): a single node/method pair with its fully
// resolved dotted path.
type FlatEndpoint struct {
	Path     string   `json:"path"`
	Method   string   `json:"method"`
	AuthTags []string `json:"auth_tags,omitempty"`
}

// Nodes returns a read-only snapshot of the route tree rooted at basepath
// (dotted name, "" for the whole tree), shaped per mode. It never mutates
// the tree: ModeTree and ModeFlat walk Metadata/AuthTags/Handlers by value
// or by copying into fresh maps/slices, and ModeOpenAPI only reads from
// the same walk.
func (r *Router) Nodes(basepath string, mode IntrospectMode) (interface{}, error) {
	start := r.root
	if basepath != "" {
		n, ok := r.lookupNode(basepath)
		if !ok {
			return nil, ErrNotFound
		}
		start = n
	}

	switch mode {
	case ModeTree, "":
		return snapshotTree(start), nil
	case ModeFlat:
		var out []FlatEndpoint
		walkFlat(start, &out)
		return out, nil
	case ModeOpenAPI:
		paths := make(map[string]map[string]interface{})
		walkOpenAPI(start, paths)
		return map[string]interface{}{
			"openapi": "3.0.0",
			"paths":   paths,
		}, nil
	default:
		return nil, NewError(KindValidation, "unknown introspection mode: "+string(mode))
	}
}

// lookupNode walks name without creating any node, returning (nil, false)
// on the first missing segment. Used only by Nodes, so introspection never
// grows the tree as a side effect of being asked about it.
func (r *Router) lookupNode(name string) (*RouteNode, bool) {
	cur := r.root
	for _, seg := range strings.Split(name, ".") {
		child, ok := cur.children[seg]
		switch {
		case ok:
			cur = child
		case cur.param != nil:
			cur = cur.param
		case cur.catchAll != nil:
			cur = cur.catchAll
		default:
			return nil, false
		}
	}
	return cur, true
}

func snapshotTree(n *RouteNode) *NodeSnapshot {
	snap := &NodeSnapshot{
		Name:     n.Name,
		Path:     n.Path(),
		Methods:  methodList(n),
		AuthTags: append([]string(nil), n.AuthTags...),
		Metadata: copyMetadata(n.Metadata),
	}
	for _, name := range sortedKeys(n.children) {
		snap.Children = append(snap.Children, snapshotTree(n.children[name]))
	}
	if n.param != nil {
		snap.Children = append(snap.Children, snapshotTree(n.param))
	}
	if n.catchAll != nil {
		snap.Children = append(snap.Children, snapshotTree(n.catchAll))
	}
	return snap
}

func walkFlat(n *RouteNode, out *[]FlatEndpoint) {
	for _, method := range methodList(n) {
		*out = append(*out, FlatEndpoint{
			Path:     n.Path(),
			Method:   method,
			AuthTags: n.effectiveAuthTags(),
		})
	}
	for _, name := range sortedKeys(n.children) {
		walkFlat(n.children[name], out)
	}
	if n.param != nil {
		walkFlat(n.param, out)
	}
	if n.catchAll != nil {
		walkFlat(n.catchAll, out)
	}
}

func walkOpenAPI(n *RouteNode, paths map[string]map[string]interface{}) {
	if len(n.Handlers) > 0 {
		path := "/" + strings.ReplaceAll(n.Path(), ".", "/")
		ops := make(map[string]interface{}, len(n.Handlers))
		for _, method := range methodList(n) {
			opMethod := strings.ToLower(method)
			if opMethod == "" {
				opMethod = "get"
			}
			ops[opMethod] = map[string]interface{}{
				"operationId": strings.ReplaceAll(n.Path(), ".", "_"),
				"parameters":  openAPIParams(n),
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "OK"},
				},
			}
		}
		paths[path] = ops
	}
	for _, name := range sortedKeys(n.children) {
		walkOpenAPI(n.children[name], paths)
	}
	if n.param != nil {
		walkOpenAPI(n.param, paths)
	}
	if n.catchAll != nil {
		walkOpenAPI(n.catchAll, paths)
	}
}

// openAPIParams derives a parameter-schema skeleton from the ":param"
// segments along n's ancestry only; Metadata["arg_schema"] (query
// arguments, declared kinds) is not consulted, and every parameter is
// typed as a string.
func openAPIParams(n *RouteNode) []map[string]interface{} {
	var params []map[string]interface{}
	var ancestors []*RouteNode
	for cur := n; cur != nil; cur = cur.parent {
		ancestors = append(ancestors, cur)
	}
	for i := len(ancestors) - 1; i >= 0; i-- {
		if name, ok := strings.CutPrefix(ancestors[i].Name, ":"); ok {
			params = append(params, map[string]interface{}{
				"name":     name,
				"in":       "path",
				"required": true,
				"schema":   map[string]interface{}{"type": "string"},
			})
		}
	}
	return params
}

func methodList(n *RouteNode) []string {
	methods := make([]string, 0, len(n.Handlers))
	for m := range n.Handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]*RouteNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
