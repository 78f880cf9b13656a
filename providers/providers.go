// Package providers contains the framework service providers registered
// by every application bootstrap, in dependency order: config → logger →
// event bus → storage → store → command bus → metrics → router → server.
package providers

import (
	"github.com/sirupsen/logrus"

	"github.com/tracklet/appkit/command"
	"github.com/tracklet/appkit/config"
	"github.com/tracklet/appkit/container"
	"github.com/tracklet/appkit/event"
	"github.com/tracklet/appkit/metrics"
	"github.com/tracklet/appkit/routing"
	"github.com/tracklet/appkit/server"
	"github.com/tracklet/appkit/storage"
	"github.com/tracklet/appkit/store"
)

// ── ConfigProvider ────────────────────────────────────────────────────────────

// ConfigProvider loads configuration from .env and the environment.
//
// Bound services:
//   - "config" → *config.Config
type ConfigProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *ConfigProvider) Register(c *container.Container) error {
	envFiles := p.EnvFiles
	return c.Singleton("config", func(c *container.Container) (any, error) {
		return config.Load(envFiles...)
	})
}

// ── LoggerProvider ────────────────────────────────────────────────────────────

// LoggerProvider builds the application logger.
//
// Bound services:
//   - "logger" → *logrus.Logger
type LoggerProvider struct {
	container.BaseProvider
}

func (p *LoggerProvider) Register(c *container.Container) error {
	return c.Singleton("logger", func(c *container.Container) (any, error) {
		cfg := container.Resolve[*config.Config](c, "config")

		log := logrus.New()
		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)
		if cfg.App.Debug {
			log.SetLevel(logrus.DebugLevel)
		}
		return log, nil
	})
}

// ── EventBusProvider ──────────────────────────────────────────────────────────

// EventBusProvider registers the event bus.
//
// Bound services:
//   - "eventBus" → *event.Bus
type EventBusProvider struct {
	container.BaseProvider
}

func (p *EventBusProvider) Register(c *container.Container) error {
	return c.Singleton("eventBus", func(c *container.Container) (any, error) {
		return event.NewBus(event.Config{
			Logger: container.Resolve[*logrus.Logger](c, "logger"),
		}), nil
	})
}

// ── StorageProvider ───────────────────────────────────────────────────────────

// StorageProvider registers the persistence driver: file-backed when
// STORE_PERSIST is on, in-memory otherwise.
//
// Bound services:
//   - "storage" → storage.Driver
type StorageProvider struct {
	container.BaseProvider
}

func (p *StorageProvider) Register(c *container.Container) error {
	return c.Singleton("storage", func(c *container.Container) (any, error) {
		cfg := container.Resolve[*config.Config](c, "config")
		if !cfg.Store.Persist {
			return storage.Driver(storage.NewMemory()), nil
		}
		driver, err := storage.NewFile(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		return storage.Driver(driver), nil
	})
}

// ── StoreProvider ─────────────────────────────────────────────────────────────

// StoreProvider registers the application state store.
//
// Bound services:
//   - "applicationState" → *store.Store
type StoreProvider struct {
	container.BaseProvider

	// DefaultState is the tree used before any persisted state loads.
	DefaultState map[string]any
}

func (p *StoreProvider) Register(c *container.Container) error {
	defaultState := p.DefaultState
	return c.Singleton("applicationState", func(c *container.Container) (any, error) {
		cfg := container.Resolve[*config.Config](c, "config")

		var driver storage.Driver
		if cfg.Store.Persist {
			driver = container.Resolve[storage.Driver](c, "storage")
		}

		return store.New(store.Config{
			Bus:          container.Resolve[*event.Bus](c, "eventBus"),
			Logger:       container.Resolve[*logrus.Logger](c, "logger"),
			InitialState: defaultState,
			HistoryLimit: cfg.Store.HistoryLimit,
			Storage:      driver,
		}), nil
	})
}

// ── CommandBusProvider ────────────────────────────────────────────────────────

// CommandBusProvider registers the command bus.
//
// Bound services:
//   - "commandBus" → *command.Bus
type CommandBusProvider struct {
	container.BaseProvider
}

func (p *CommandBusProvider) Register(c *container.Container) error {
	return c.Singleton("commandBus", func(c *container.Container) (any, error) {
		return command.NewBus(command.Config{
			Events: container.Resolve[*event.Bus](c, "eventBus"),
			Logger: container.Resolve[*logrus.Logger](c, "logger"),
		}), nil
	})
}

// ── MetricsProvider ───────────────────────────────────────────────────────────

// MetricsProvider registers the Prometheus collectors and attaches them
// to the event bus during boot.
//
// Bound services:
//   - "metrics" → *metrics.Metrics
type MetricsProvider struct {
	container.BaseProvider
}

func (p *MetricsProvider) Register(c *container.Container) error {
	return c.Singleton("metrics", func(c *container.Container) (any, error) {
		return metrics.New(), nil
	})
}

func (p *MetricsProvider) Boot(c *container.Container) error {
	m := container.Resolve[*metrics.Metrics](c, "metrics")
	m.Attach(container.Resolve[*event.Bus](c, "eventBus"))
	return nil
}

// ── RouterProvider ────────────────────────────────────────────────────────────

// RouterProvider registers the HTTP router.
//
// Bound services:
//   - "router" → *routing.Router
type RouterProvider struct {
	container.BaseProvider
}

func (p *RouterProvider) Register(c *container.Container) error {
	return c.Singleton("router", func(c *container.Container) (any, error) {
		return routing.New(), nil
	})
}

// ── ServerProvider ────────────────────────────────────────────────────────────

// ServerProvider registers the HTTP server over the runtime. Deferred:
// tests and headless tools resolve the core without ever mounting routes.
type ServerProvider struct {
	container.BaseProvider
}

func (p *ServerProvider) IsDeferred() bool   { return true }
func (p *ServerProvider) Provides() []string { return []string{"server"} }

func (p *ServerProvider) Register(c *container.Container) error {
	return c.Singleton("server", func(c *container.Container) (any, error) {
		return server.New(server.Config{
			App:      container.Resolve[*config.Config](c, "config"),
			Logger:   container.Resolve[*logrus.Logger](c, "logger"),
			Router:   container.Resolve[*routing.Router](c, "router"),
			Services: c,
			Events:   container.Resolve[*event.Bus](c, "eventBus"),
			Commands: container.Resolve[*command.Bus](c, "commandBus"),
			Store:    container.Resolve[*store.Store](c, "applicationState"),
			Storage:  container.Resolve[storage.Driver](c, "storage"),
			Metrics:  container.Resolve[*metrics.Metrics](c, "metrics"),
		}), nil
	})
}
