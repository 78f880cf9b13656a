package command

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tracklet/appkit/apperr"
	"github.com/tracklet/appkit/event"
)

// Lifecycle event names emitted on the event bus per dispatch, always in
// start → success/error order.
const (
	EventStart   = "command:start"
	EventSuccess = "command:success"
	EventError   = "command:error"
)

// LifecycleEvent is the payload of the lifecycle events. Result is set on
// success, Err on failure.
type LifecycleEvent struct {
	Command string `json:"commandName"`
	Payload any    `json:"payload"`
	Result  any    `json:"result,omitempty"`
	Err     error  `json:"error,omitempty"`
}

// HandlerFunc executes a command with its final (post-middleware) payload.
type HandlerFunc func(ctx context.Context, payload any) (any, error)

// Validator checks a payload before the middleware chain runs. A non-nil
// return rejects the dispatch; the returned error becomes the
// ValidationError detail.
type Validator func(ctx context.Context, payload any) error

// Middleware transforms a payload before the handler sees it. Middleware
// run sequentially in registration order, each receiving the previous
// stage's output, so cross-cutting concerns (auth checks, logging, payload
// enrichment) stay out of the handlers.
type Middleware func(ctx context.Context, commandName string, payload any) (any, error)

// registration pairs a handler with its optional validator.
type registration struct {
	handler   HandlerFunc
	validator Validator
}

// Option configures a registration.
type Option func(*registration)

// WithValidator attaches a payload validator to the command.
func WithValidator(v Validator) Option {
	return func(r *registration) { r.validator = v }
}

// ── Bus ───────────────────────────────────────────────────────────────────────

// Bus routes named commands through a validated, middleware-composed
// pipeline. It is the one component that always wraps unexpected failures
// (into apperr.ApplicationError) before returning them, and always emits a
// lifecycle event before the failure reaches the caller.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[string]*registration
	order      []string
	middleware []Middleware

	events *event.Bus // optional; nil disables lifecycle events
	log    logrus.FieldLogger
}

// Config configures a Bus.
type Config struct {
	// Events receives the command lifecycle events. Optional.
	Events *event.Bus

	// Logger defaults to the standard logrus logger.
	Logger logrus.FieldLogger
}

// NewBus creates a command bus.
func NewBus(cfg Config) *Bus {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Bus{
		handlers: make(map[string]*registration),
		events:   cfg.Events,
		log:      cfg.Logger,
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores a handler for a command name. Duplicate names are
// rejected, not overwritten: silent handler replacement is a bootstrap bug.
func (b *Bus) Register(name string, handler HandlerFunc, opts ...Option) error {
	if strings.TrimSpace(name) == "" {
		return apperr.NewValidationError("command name must be a non-empty string")
	}
	if handler == nil {
		return apperr.NewValidationError("handler for command %q must not be nil", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.handlers[name]; dup {
		return apperr.NewValidationError("command %q is already registered", name)
	}

	reg := &registration{handler: handler}
	for _, opt := range opts {
		opt(reg)
	}
	b.handlers[name] = reg
	b.order = append(b.order, name)
	return nil
}

// Unregister removes a command. Unknown names are a no-op.
func (b *Bus) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[name]; !ok {
		return
	}
	delete(b.handlers, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Has reports whether a command is registered.
func (b *Bus) Has(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.handlers[name]
	return ok
}

// RegisteredCommands returns all command names in registration order.
func (b *Bus) RegisteredCommands() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string{}, b.order...)
}

// Clear removes every command registration. Middleware stays.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]*registration)
	b.order = nil
}

// Use appends a middleware to the chain.
func (b *Bus) Use(mw Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, mw)
}

// ── Dispatch ──────────────────────────────────────────────────────────────────

// Dispatch runs the command pipeline:
//
//	lookup → command:start → validator → middleware chain → handler →
//	command:success
//
// Any failure after lookup emits command:error first, then returns: the
// runtime's own error types pass through unchanged, anything else is
// wrapped in an ApplicationError carrying the command name and payload.
func (b *Bus) Dispatch(ctx context.Context, name string, payload any) (any, error) {
	b.mu.RLock()
	reg, ok := b.handlers[name]
	middleware := append([]Middleware{}, b.middleware...)
	b.mu.RUnlock()

	if !ok {
		return nil, apperr.NewValidationError("unknown command %q", name).
			WithAvailable(b.RegisteredCommands())
	}

	b.emit(EventStart, LifecycleEvent{Command: name, Payload: payload})
	b.log.WithField("command", name).Debug("command: dispatch")

	if reg.validator != nil {
		if verr := reg.validator(ctx, payload); verr != nil {
			err := apperr.NewValidationError("command %q payload rejected", name).
				WithDetail(verr)
			return nil, b.fail(name, payload, err)
		}
	}

	current := payload
	for _, mw := range middleware {
		next, err := mw(ctx, name, current)
		if err != nil {
			return nil, b.fail(name, payload, err)
		}
		current = next
	}

	result, err := reg.handler(ctx, current)
	if err != nil {
		return nil, b.fail(name, payload, err)
	}

	b.emit(EventSuccess, LifecycleEvent{Command: name, Payload: current, Result: result})
	return result, nil
}

// fail emits command:error and applies the wrap-on-failure policy.
func (b *Bus) fail(name string, payload any, err error) error {
	b.emit(EventError, LifecycleEvent{Command: name, Payload: payload, Err: err})
	b.log.WithField("command", name).WithError(err).Warn("command: dispatch failed")

	if apperr.IsFramework(err) {
		return err
	}
	return apperr.Wrap(err, name, payload)
}

// emit publishes a lifecycle event if an event bus is wired. All three
// lifecycle events use the deferred path so their relative order per
// dispatch is preserved by the bus queue.
func (b *Bus) emit(eventName string, payload LifecycleEvent) {
	if b.events == nil {
		return
	}
	b.events.Emit(eventName, payload)
}
