// Package command implements the runtime's command bus.
//
// Commands are named operations dispatched by UI collaborators. Each
// dispatch runs a fixed pipeline: optional validator, then the ordered
// middleware chain (each stage may transform the payload), then the
// handler. Lifecycle events (command:start, command:success,
// command:error) are emitted on the event bus so cross-cutting listeners
// can observe every dispatch without the handlers knowing.
//
// Unlike store actions, command failures are always wrapped: callers catch
// apperr.ApplicationError generically and turn it into user-facing
// feedback, while validation failures surface as apperr.ValidationError.
//
//	bus := command.NewBus(command.Config{Events: events})
//	_ = bus.Register("progressEpisode", progressHandler,
//	    command.WithValidator(requireShowID))
//	bus.Use(loggingMiddleware)
//
//	result, err := bus.Dispatch(ctx, "progressEpisode", payload)
package command
