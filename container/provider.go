package container

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related service registrations for bootstrap.
//
// Register binds factories into the container and must not resolve other
// services; Boot runs after every provider has registered, so resolving is
// safe there.
//
//	type StoreProvider struct{ container.BaseProvider }
//
//	func (p *StoreProvider) Register(c *container.Container) error {
//	    return c.Singleton("applicationState", func(c *container.Container) (any, error) {
//	        bus, err := c.Get("eventBus")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return store.New(store.Config{Bus: bus.(*event.Bus)}), nil
//	    })
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here — use Boot() for that.
	Register(c *Container) error

	// Boot is called after all providers are registered.
	// Safe to resolve and use any binding here.
	Boot(c *Container) error

	// Provides returns the names this provider registers. Used for
	// deferred (lazy) provider loading. Empty means always eager.
	Provides() []string

	// IsDeferred reports whether the provider should load lazily, only
	// when one of its Provides() names is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot(), Provides() and
// IsDeferred(). Embed it and override only what you need.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred ones.
type ProviderRegistry struct {
	c          *Container
	eager      []ServiceProvider
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to c.
func NewProviderRegistry(c *Container) *ProviderRegistry {
	return &ProviderRegistry{
		c:          c,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method (unless
// deferred). Registering the same provider instance twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		return r.interceptDeferred(provider)
	}

	if err := provider.Register(r.c); err != nil {
		return err
	}
	r.eager = append(r.eager, provider)

	// Providers registered after Boot() boot immediately.
	if r.booted {
		return provider.Boot(r.c)
	}
	return nil
}

// interceptDeferred installs a lazy binding for each deferred name.
// The first Get() call triggers the real registration (and boot, if the
// registry has already booted).
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	loaded := false
	load := func(c *Container) error {
		if loaded {
			return nil
		}
		loaded = true
		// Drop the placeholders so the provider can register for real.
		c.forget(provider.Provides()...)
		if err := provider.Register(c); err != nil {
			return err
		}
		if r.booted {
			return provider.Boot(c)
		}
		return nil
	}

	for _, name := range provider.Provides() {
		n := name // capture
		err := r.c.Register(n, func(c *Container) (any, error) {
			if err := load(c); err != nil {
				return nil, err
			}
			return c.invokeBinding(n)
		}, Options{})
		if err != nil {
			return err
		}
	}
	return nil
}

// Boot calls Boot() on all eager providers, once. Call after ALL providers
// have been registered.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.eager {
		if err := provider.Boot(r.c); err != nil {
			return err
		}
	}
	return nil
}

// Booted reports whether Boot() has run.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.eager }
