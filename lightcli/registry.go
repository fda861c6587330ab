package lightcli

// Registry dispatches events to per-command routes. It implements Handler.
//
//	reg := lightcli.NewRegistry()
//	reg.Handle("HELLO").
//	    OnKey("Name", func(v []byte) { name = string(v) }).
//	    OnDone(func() { fmt.Fprintf(out, "OK:hello %s\n", name) })
//	reg.OnUnknownCommand(func(cmd []byte) { ... })
//
// Routes are registered up front; lookups at event time do not allocate.
// A Registry is not safe for concurrent registration and dispatch.
type Registry struct {
	routes         map[string]*Route
	unknownCommand func(command []byte)
	unknownKey     func(command, key, value []byte)
}

// Route holds the actions for one command name.
type Route struct {
	name   string
	keys   map[string]func(value []byte)
	anyKey func(key, value []byte)
	done   func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]*Route)}
}

// Handle returns the route for command, creating it on first use.
func (r *Registry) Handle(command string) *Route {
	if rt, ok := r.routes[command]; ok {
		return rt
	}
	rt := &Route{name: command, keys: make(map[string]func(value []byte))}
	r.routes[command] = rt
	return rt
}

// OnUnknownCommand sets the callback for events naming an unregistered
// command. It runs once per attribute of such a command and once more at
// its completion.
func (r *Registry) OnUnknownCommand(fn func(command []byte)) {
	r.unknownCommand = fn
}

// OnUnknownKey sets the callback for attributes a registered command has
// no action for.
func (r *Registry) OnUnknownKey(fn func(command, key, value []byte)) {
	r.unknownKey = fn
}

// Commands returns the registered command names in no particular order.
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}

// HandleAttribute implements Handler.
func (r *Registry) HandleAttribute(command, key, value []byte) {
	rt, ok := r.routes[string(command)]
	if !ok {
		if r.unknownCommand != nil {
			r.unknownCommand(command)
		}
		return
	}
	if fn, ok := rt.keys[string(key)]; ok {
		fn(value)
		return
	}
	if rt.anyKey != nil {
		rt.anyKey(key, value)
		return
	}
	if r.unknownKey != nil {
		r.unknownKey(command, key, value)
	}
}

// HandleCommand implements Handler.
func (r *Registry) HandleCommand(command []byte) {
	rt, ok := r.routes[string(command)]
	if !ok {
		if r.unknownCommand != nil {
			r.unknownCommand(command)
		}
		return
	}
	if rt.done != nil {
		rt.done()
	}
}

// Name returns the command name the route serves.
func (rt *Route) Name() string {
	return rt.name
}

// OnKey sets the action for attributes with the given key. The value is
// borrowed.
func (rt *Route) OnKey(key string, fn func(value []byte)) *Route {
	rt.keys[key] = fn
	return rt
}

// OnAnyKey sets the action for attributes whose key has no OnKey action.
// It takes precedence over the registry's unknown-key callback.
func (rt *Route) OnAnyKey(fn func(key, value []byte)) *Route {
	rt.anyKey = fn
	return rt
}

// OnDone sets the action run when the command line completes.
func (rt *Route) OnDone(fn func()) *Route {
	rt.done = fn
	return rt
}
