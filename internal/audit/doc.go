// Package audit relays domain events to a sink on a background goroutine.
//
// The [Dispatcher] buffers events and either drops them when the buffer is
// full (counting the drops) or blocks the caller until there is room. Sinks
// write to a channel, a JSON line stream, a zap logger, or nowhere.
//
// The package only moves events. Callers decide what to emit.
package audit
