package pylon

// RoutingInstance is anything that can be mounted under a named node of a
// Router: an application module that registers its own routes and
// optionally participates in the LifespanManager's startup/shutdown order
// (§4.4 attach_instance, §4.8).
type RoutingInstance interface {
	// Register attaches this instance's routes under the given mount
	// point, using cfg to decide middleware inheritance and naming.
	Register(mount *RouteNode, cfg *MountConfig)
}

// MountConfig collects the options a MountOption can set, grounded on
// rivaas/router/route/mount.go's functional-options style.
type MountConfig struct {
	InheritMiddleware bool
	ExtraMiddleware   []Middleware
	NamePrefix        string
	NotFoundHandler   Handler
}

// MountOption configures a Mount call.
type MountOption func(*MountConfig)

// InheritMiddleware sets MountConfig.InheritMiddleware for the instance's
// Register to act on; Router and Dispatcher do not read it.
func InheritMiddleware() MountOption {
	return func(c *MountConfig) { c.InheritMiddleware = true }
}

// WithMountMiddleware records middleware in MountConfig.ExtraMiddleware for
// the instance's Register to act on. Router and Dispatcher do not apply it:
// the Dispatcher runs one Pipeline for every route.
func WithMountMiddleware(m ...Middleware) MountOption {
	return func(c *MountConfig) { c.ExtraMiddleware = append(c.ExtraMiddleware, m...) }
}

// WithNamePrefix overrides the dotted name prefix under which the instance
// is mounted; defaults to the name passed to Mount.
func WithNamePrefix(prefix string) MountOption {
	return func(c *MountConfig) { c.NamePrefix = prefix }
}

// WithMountNotFound records a Handler in MountConfig.NotFoundHandler for the
// instance's Register to act on; Router.Resolve does not invoke it and
// returns ErrNotFound for an unmatched name.
func WithMountNotFound(h Handler) MountOption {
	return func(c *MountConfig) { c.NotFoundHandler = h }
}

func buildMountConfig(name string, opts ...MountOption) *MountConfig {
	cfg := &MountConfig{NamePrefix: name}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Mount attaches a RoutingInstance under the router at name, per §4.4's
// attach_instance(instance, name). The instance's Register method receives
// the RouteNode it is mounted at, already created.
func (r *Router) Mount(name string, instance RoutingInstance, opts ...MountOption) *RouteNode {
	cfg := buildMountConfig(name, opts...)
	node := r.ensureNode(cfg.NamePrefix)
	instance.Register(node, cfg)
	return node
}
