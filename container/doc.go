// Package container provides the runtime's service container and the
// ServiceProvider bootstrap system.
//
// # Overview
//
// The container manages instantiation and lifecycle of the application's
// services. Registrations are string-keyed factories; singletons resolve
// lazily and cache for the container's lifetime. Go has no constructor
// reflection, so auto-wiring is replaced by explicit factories that pull
// their own dependencies from the container.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(&StoreProvider{})
//  3. Boot: registry.Boot()   — safe to resolve everything after this
//  4. Run the application
//
// # Registration
//
//	// Transient — new instance every Get()
//	c.Register("exporter", func(c *container.Container) (any, error) {
//	    return export.New(), nil
//	}, container.Options{})
//
//	// Singleton — created once, reused
//	c.Singleton("eventBus", func(c *container.Container) (any, error) {
//	    return event.NewBus(event.Config{}), nil
//	})
//
//	// Pre-built value
//	c.Instance("config", cfg)
//
// Registering a name twice is an error, not a silent overwrite. Rebinding
// a live service hides wiring bugs; if two providers fight over a name the
// bootstrap should fail loudly.
//
// # Resolution
//
//	raw, err := c.Get("eventBus")
//
//	// Generic (preferred in bootstrap code — panics on a miswired graph)
//	bus := container.Resolve[*event.Bus](c, "eventBus")
//
// Cycles are detected with an explicit in-progress stack. Resolving
// a → b → a fails with the full chain in the error message.
//
// # Tags
//
//	c.Register("showRepo", factory, container.Options{Tags: []string{"repositories"}})
//	repos, err := c.Tagged("repositories")
//
// # Diagnostics
//
// GetDiagnostics exposes registered names, live singletons and the current
// resolution stack for debugging and tests. It must never drive
// application logic.
package container
