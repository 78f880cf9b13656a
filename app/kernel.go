// Package app assembles the runtime: a container, a provider registry,
// and the core providers every application needs.
//
//	application, err := app.New(app.Config{DefaultState: defaultState})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Boot(); err != nil {
//	    log.Fatal(err)
//	}
//	application.Store().RegisterMutation("setTheme", setTheme)
//	application.Run()
package app

import (
	"github.com/sirupsen/logrus"

	"github.com/tracklet/appkit/command"
	"github.com/tracklet/appkit/config"
	"github.com/tracklet/appkit/container"
	"github.com/tracklet/appkit/event"
	"github.com/tracklet/appkit/providers"
	"github.com/tracklet/appkit/server"
	"github.com/tracklet/appkit/store"
)

// Config controls application bootstrap.
type Config struct {
	// EnvFiles are extra dotenv files loaded before the environment.
	EnvFiles []string

	// DefaultState seeds the store before persisted state loads.
	DefaultState map[string]any

	// ExtraProviders are registered after the core set.
	ExtraProviders []container.ServiceProvider
}

// Application is the bootstrapped runtime.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
}

// New builds a container and registers the core providers.
func New(cfg Config) (*Application, error) {
	c := container.New()
	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
	}

	core := []container.ServiceProvider{
		&providers.ConfigProvider{EnvFiles: cfg.EnvFiles},
		&providers.LoggerProvider{},
		&providers.EventBusProvider{},
		&providers.StorageProvider{},
		&providers.StoreProvider{DefaultState: cfg.DefaultState},
		&providers.CommandBusProvider{},
		&providers.MetricsProvider{},
		&providers.RouterProvider{},
		&providers.ServerProvider{},
	}
	for _, p := range append(core, cfg.ExtraProviders...) {
		if err := app.Providers.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Boot boots all registered providers. Idempotent.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Run boots (if needed) and serves HTTP until the listener fails.
func (a *Application) Run() error {
	if err := a.Boot(); err != nil {
		return err
	}
	return a.Server().Run()
}

// Shutdown drains and closes the event bus.
func (a *Application) Shutdown() {
	a.Events().Close()
}

// ── Typed accessors ──────────────────────────────────────────────────────────

func (a *Application) Config() *config.Config {
	return container.Resolve[*config.Config](a.Container, "config")
}

func (a *Application) Log() *logrus.Logger {
	return container.Resolve[*logrus.Logger](a.Container, "logger")
}

func (a *Application) Events() *event.Bus {
	return container.Resolve[*event.Bus](a.Container, "eventBus")
}

func (a *Application) Commands() *command.Bus {
	return container.Resolve[*command.Bus](a.Container, "commandBus")
}

func (a *Application) Store() *store.Store {
	return container.Resolve[*store.Store](a.Container, "applicationState")
}

func (a *Application) Server() *server.Server {
	return container.Resolve[*server.Server](a.Container, "server")
}
