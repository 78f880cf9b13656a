// Package event implements the runtime's ordered publish/subscribe bus.
//
// Subscribers register per event name and are invoked in subscription
// order. Two delivery paths exist:
//
//   - EmitSync — delivers to all current subscribers before returning.
//     Use it when a subscriber's side effect must have happened
//     deterministically before the emitting code proceeds (starting
//     playback, for example).
//   - Emit — deferred, fire-and-forget. Deliveries run on a single
//     dispatch goroutine in publish order, so handlers of one event keep
//     their subscription order and separate emissions keep their relative
//     order, but the emitter never waits.
//
// Handler faults are isolated per handler: a panic is logged and the
// remaining handlers still run.
//
//	bus := event.NewBus(event.Config{})
//	defer bus.Close()
//
//	off := bus.Subscribe("player:play", func(payload any) { ... })
//	defer off()
//
//	bus.EmitSync("player:play", track)
package event
