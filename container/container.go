package container

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a concrete value from the container. Factories receive the
// container so they can pull further dependencies.
type Factory func(c *Container) (any, error)

// binding holds a registered factory plus its lifecycle and tags.
type binding struct {
	factory   Factory
	singleton bool
	tags      []string
}

// Options configures a registration.
type Options struct {
	// Singleton caches the first resolved instance for the container's
	// lifetime.
	Singleton bool

	// Tags group registrations so Tagged(tag) can resolve them together.
	Tags []string
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the runtime's service container.
//
// It registers named factories, resolves singletons lazily, and detects
// resolution cycles with an explicit in-progress stack rather than relying
// on a stack overflow. Duplicate registration of a name is an error:
// silently replacing a service mid-bootstrap hides real wiring bugs.
type Container struct {
	mu sync.RWMutex

	// name → binding
	bindings map[string]*binding

	// name → resolved singleton instance
	instances map[string]any

	// registration order, for Tagged and diagnostics
	order []string

	// names currently mid-construction, guarded by mu like the other
	// fields. Cycle detection assumes resolution runs on one bootstrap
	// control flow; concurrent Get calls are memory-safe but share this
	// stack.
	resolutionStack []string
}

// New creates an empty container and binds it to itself under "container".
func New() *Container {
	c := &Container{
		bindings:  make(map[string]*binding),
		instances: make(map[string]any),
	}
	c.instances["container"] = c
	c.order = append(c.order, "container")
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores a named factory.
//
//	c.Register("showRepository", func(c *container.Container) (any, error) {
//	    bus, err := c.Get("eventBus")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return repo.NewShows(bus.(*event.Bus)), nil
//	}, container.Options{Singleton: true, Tags: []string{"repositories"}})
func (c *Container) Register(name string, factory Factory, opts Options) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("container: service name must be a non-empty string")
	}
	if factory == nil {
		return fmt.Errorf("container: factory for %q must not be nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.bindings[name]; dup {
		return fmt.Errorf("container: service %q is already registered", name)
	}
	if _, dup := c.instances[name]; dup {
		return fmt.Errorf("container: service %q is already registered", name)
	}

	c.bindings[name] = &binding{factory: factory, singleton: opts.Singleton, tags: opts.Tags}
	c.order = append(c.order, name)
	return nil
}

// Singleton is shorthand for Register with Options{Singleton: true}.
func (c *Container) Singleton(name string, factory Factory) error {
	return c.Register(name, factory, Options{Singleton: true})
}

// Instance registers a pre-built value as a singleton.
func (c *Container) Instance(name string, instance any) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("container: service name must be a non-empty string")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.bindings[name]; dup {
		return fmt.Errorf("container: service %q is already registered", name)
	}
	if _, dup := c.instances[name]; dup {
		return fmt.Errorf("container: service %q is already registered", name)
	}

	c.instances[name] = instance
	c.order = append(c.order, name)
	return nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves a service by name.
//
// Singleton factories run at most once; a factory that fails leaves no
// instance cached, so a later Get retries construction. Unknown names fail
// with the full list of registered names; cycles fail with the full chain
// (a -> b -> a) so the graph can be fixed without a stack trace.
func (c *Container) Get(name string) (any, error) {
	c.mu.RLock()
	for _, inProgress := range c.resolutionStack {
		if inProgress == name {
			chain := append(append([]string{}, c.resolutionStack...), name)
			c.mu.RUnlock()
			return nil, fmt.Errorf("container: circular dependency detected: %s",
				strings.Join(chain, " -> "))
		}
	}
	if inst, ok := c.instances[name]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	b, ok := c.bindings[name]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("container: unknown service %q (known services: %s)",
			name, strings.Join(c.Names(), ", "))
	}

	c.pushResolving(name)
	instance, err := func() (any, error) {
		// Pop on the way out even if the factory panics, so a failed
		// factory never poisons later lookups.
		defer c.popResolving()
		return b.factory(c)
	}()
	if err != nil {
		return nil, fmt.Errorf("container: building %q: %w", name, err)
	}

	if b.singleton {
		c.mu.Lock()
		c.instances[name] = instance
		c.mu.Unlock()
	}
	return instance, nil
}

// The factory itself runs outside the lock so it can re-enter Get.
func (c *Container) pushResolving(name string) {
	c.mu.Lock()
	c.resolutionStack = append(c.resolutionStack, name)
	c.mu.Unlock()
}

func (c *Container) popResolving() {
	c.mu.Lock()
	c.resolutionStack = c.resolutionStack[:len(c.resolutionStack)-1]
	c.mu.Unlock()
}

// Has reports whether a name is registered. It never constructs anything.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, hasBinding := c.bindings[name]
	_, hasInstance := c.instances[name]
	return hasBinding || hasInstance
}

// Tagged resolves every registration carrying tag, in registration order.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	var names []string
	for _, name := range c.order {
		if b, ok := c.bindings[name]; ok {
			for _, t := range b.tags {
				if t == tag {
					names = append(names, name)
					break
				}
			}
		}
	}
	c.mu.RUnlock()

	instances := make([]any, 0, len(names))
	for _, name := range names {
		inst, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// forget drops registrations so a deferred provider can re-register its
// names for real. Internal to the provider registry.
func (c *Container) forget(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		delete(c.bindings, name)
		delete(c.instances, name)
		for i, n := range c.order {
			if n == name {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}

// invokeBinding runs the current factory for name without Get's stack
// bookkeeping. Used by deferred-provider placeholders, whose own frame
// already holds the name on the resolution stack.
func (c *Container) invokeBinding(name string) (any, error) {
	c.mu.RLock()
	if inst, ok := c.instances[name]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	b, ok := c.bindings[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("container: deferred provider did not register %q", name)
	}

	instance, err := b.factory(c)
	if err != nil {
		return nil, fmt.Errorf("container: building %q: %w", name, err)
	}
	if b.singleton {
		c.mu.Lock()
		c.instances[name] = instance
		c.mu.Unlock()
	}
	return instance, nil
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

// Diagnostics is an inspectable snapshot of the container, for debugging
// and tests only. Application logic must not branch on it.
type Diagnostics struct {
	Services        []string `json:"services"`
	Singletons      []string `json:"singletons"`
	ResolutionStack []string `json:"resolutionStack"`
}

// GetDiagnostics snapshots registered names, live singletons and the
// current (normally empty) resolution stack.
func (c *Container) GetDiagnostics() Diagnostics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	singletons := make([]string, 0, len(c.instances))
	for name := range c.instances {
		singletons = append(singletons, name)
	}
	sort.Strings(singletons)

	return Diagnostics{
		Services:        append([]string{}, c.order...),
		Singletons:      singletons,
		ResolutionStack: append([]string{}, c.resolutionStack...),
	}
}

// Names returns all registered names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.order...)
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result. It panics on failure,
// which is the right behavior during bootstrap: a miswired service graph
// is a programming error, not a runtime condition to recover from.
//
//	bus := container.Resolve[*event.Bus](c, "eventBus")
func Resolve[T any](c *Container, name string) T {
	instance, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Sprintf("container: Resolve[%T]: %q resolved to %T", *new(T), name, instance))
	}
	return typed
}

// MaybeResolve is like Resolve but reports failure instead of panicking.
func MaybeResolve[T any](c *Container, name string) (T, bool) {
	instance, err := c.Get(name)
	if err != nil {
		var zero T
		return zero, false
	}
	typed, ok := instance.(T)
	return typed, ok
}
